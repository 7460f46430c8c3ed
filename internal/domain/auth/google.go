package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	apperrors "github.com/yanqian/meteo-burkina/pkg/errors"
)

const (
	googleProvider  = "google"
	googleIssuer    = "https://accounts.google.com"
	googleRevokeURL = "https://oauth2.googleapis.com/revoke"
)

type googleProfile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
}

type idTokenVerifier func(ctx context.Context, rawIDToken string) (googleProfile, error)

// googleSignIn bundles the OAuth client, the ID token verifier discovered on
// first use and the sealer for stored refresh tokens.
type googleSignIn struct {
	oauth     *oauth2.Config
	sealer    *tokenSealer
	client    *http.Client
	revokeURL string

	mu       sync.Mutex
	verifier idTokenVerifier
}

// newGoogleSignIn returns nil when Google sign-in is not configured.
func newGoogleSignIn(cfg GoogleConfig) (*googleSignIn, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" || strings.TrimSpace(cfg.RedirectURL) == "" {
		return nil, nil
	}
	sealer, err := newTokenSealer(cfg.TokenEncryptionKey)
	if err != nil {
		return nil, err
	}
	return &googleSignIn{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		sealer:    sealer,
		client:    &http.Client{Timeout: 10 * time.Second},
		revokeURL: googleRevokeURL,
	}, nil
}

func (g *googleSignIn) verify(ctx context.Context, rawIDToken string) (googleProfile, error) {
	g.mu.Lock()
	if g.verifier == nil {
		provider, err := oidc.NewProvider(oidc.ClientContext(ctx, g.client), googleIssuer)
		if err != nil {
			g.mu.Unlock()
			return googleProfile{}, apperrors.Wrap("auth_error", "failed to discover google issuer", err)
		}
		oidcVerifier := provider.Verifier(&oidc.Config{ClientID: g.oauth.ClientID})
		g.verifier = func(ctx context.Context, raw string) (googleProfile, error) {
			idToken, err := oidcVerifier.Verify(ctx, raw)
			if err != nil {
				return googleProfile{}, err
			}
			var profile googleProfile
			err = idToken.Claims(&profile)
			return profile, err
		}
	}
	verifier := g.verifier
	g.mu.Unlock()

	profile, err := verifier(ctx, rawIDToken)
	if err != nil {
		return googleProfile{}, apperrors.Wrap("invalid_token", "failed to verify id token", err)
	}
	if profile.Subject == "" || profile.Email == "" {
		return googleProfile{}, apperrors.Wrap("invalid_token", "id token lacks subject or email", nil)
	}
	return profile, nil
}

func (g *googleSignIn) revoke(ctx context.Context, refreshToken string) error {
	form := url.Values{"token": {refreshToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("google revoke returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *service) googleClient() (*googleSignIn, error) {
	if s.google == nil {
		return nil, apperrors.Wrap("auth_not_configured", "La connexion Google n'est pas configurée.", nil)
	}
	return s.google, nil
}

func (s *service) GoogleAuthURL(_ context.Context, state, codeChallenge string) (string, error) {
	g, err := s.googleClient()
	if err != nil {
		return "", err
	}
	return g.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	), nil
}

// GoogleCallback exchanges the authorization code, signs in the linked
// account or creates a verified one. An existing password account with the
// same email is never linked implicitly.
func (s *service) GoogleCallback(ctx context.Context, code, codeVerifier string) (LoginResponse, error) {
	g, err := s.googleClient()
	if err != nil {
		return LoginResponse{}, err
	}
	if strings.TrimSpace(code) == "" || strings.TrimSpace(codeVerifier) == "" {
		return LoginResponse{}, apperrors.Wrap("invalid_input", "missing oauth code or verifier", nil)
	}
	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, g.client)
	token, err := g.oauth.Exchange(exchangeCtx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return LoginResponse{}, apperrors.Wrap("auth_error", "failed to exchange oauth code", err)
	}
	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return LoginResponse{}, apperrors.Wrap("auth_error", "missing id_token in oauth response", nil)
	}
	profile, err := g.verify(ctx, rawIDToken)
	if err != nil {
		return LoginResponse{}, err
	}
	if !profile.EmailVerified {
		return LoginResponse{}, apperrors.Wrap("invalid_credentials", "google account email not verified", nil)
	}
	email, err := normalizeEmail(profile.Email)
	if err != nil {
		return LoginResponse{}, apperrors.Wrap("invalid_input", "invalid email address", err)
	}

	user, err := s.googleUser(ctx, email, profile)
	if err != nil {
		return LoginResponse{}, err
	}
	if err := s.linkGoogleIdentity(ctx, g, user.ID, profile, token.RefreshToken); err != nil {
		return LoginResponse{}, err
	}
	return s.buildLoginResponse(user)
}

func (s *service) googleUser(ctx context.Context, email string, profile googleProfile) (User, error) {
	identity, found, err := s.repo.GetIdentity(ctx, googleProvider, profile.Subject)
	if err != nil {
		return User{}, apperrors.Wrap("auth_error", "failed to fetch identity", err)
	}
	if found {
		user, ok, err := s.repo.GetByID(ctx, identity.UserID)
		if err != nil {
			return User{}, apperrors.Wrap("auth_error", "failed to load user", err)
		}
		if !ok {
			return User{}, apperrors.Wrap("not_found", "user not found", nil)
		}
		return user, nil
	}

	if _, exists, err := s.repo.GetByEmail(ctx, email); err != nil {
		return User{}, apperrors.Wrap("auth_error", "failed to check existing user", err)
	} else if exists {
		return User{}, apperrors.Wrap("account_linking_disabled", "Un compte existe déjà avec cet email.", nil)
	}

	passwordHash, err := hashRandomPassword()
	if err != nil {
		return User{}, apperrors.Wrap("auth_error", "failed to generate password hash", err)
	}
	verifiedAt := s.now().UTC()
	user, err := s.repo.Create(ctx, NewUser{
		Email:           email,
		Username:        googleUsername(profile),
		PasswordHash:    passwordHash,
		EmailVerifiedAt: &verifiedAt,
	})
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return User{}, apperrors.Wrap("email_exists", "Email déjà utilisé.", err)
		}
		return User{}, apperrors.Wrap("auth_error", "failed to create user", err)
	}
	s.logger.Info("google account created", "userId", user.ID)
	return user, nil
}

// linkGoogleIdentity records the provider link. An empty refresh token keeps
// the one already stored.
func (s *service) linkGoogleIdentity(ctx context.Context, g *googleSignIn, userID int64, profile googleProfile, refreshToken string) error {
	sealed, err := g.sealer.seal(profile.Subject, refreshToken)
	if err != nil {
		return apperrors.Wrap("auth_error", "failed to encrypt refresh token", err)
	}
	_, err = s.repo.UpsertIdentity(ctx, Identity{
		UserID:          userID,
		Provider:        googleProvider,
		ProviderSubject: profile.Subject,
		ProviderEmail:   profile.Email,
		RefreshToken:    sealed,
	})
	if err != nil {
		return apperrors.Wrap("auth_error", "failed to persist identity", err)
	}
	return nil
}

// Logout revokes the stored Google refresh token. Revocation problems are
// logged; the caller is signed out regardless.
func (s *service) Logout(ctx context.Context, userID int64) error {
	if s.google == nil {
		return nil
	}
	identity, found, err := s.repo.GetIdentityByUser(ctx, userID, googleProvider)
	if err != nil {
		return apperrors.Wrap("auth_error", "failed to fetch identity", err)
	}
	if !found || identity.RefreshToken == "" {
		return nil
	}
	refreshToken, err := s.google.sealer.open(identity.ProviderSubject, identity.RefreshToken)
	if err != nil {
		s.logger.Warn("failed to decrypt google refresh token", "userId", userID, "error", err)
		return nil
	}
	if err := s.google.revoke(ctx, refreshToken); err != nil {
		s.logger.Warn("failed to revoke google refresh token", "userId", userID, "error", err)
	}
	return nil
}

// googleUsername derives a valid username from the Google profile.
func googleUsername(profile googleProfile) string {
	candidates := []string{profile.GivenName, profile.Name, strings.Split(profile.Email, "@")[0]}
	for _, candidate := range candidates {
		var b strings.Builder
		for _, r := range strings.TrimSpace(candidate) {
			if b.Len() >= 30 {
				break
			}
			if r == ' ' {
				r = '.'
			}
			if isUsernameRune(r) {
				b.WriteRune(r)
			}
		}
		if name, err := normalizeUsername(strings.Trim(b.String(), ".")); err == nil {
			return name
		}
	}
	return "utilisateur"
}

func hashRandomPassword() (string, error) {
	raw, err := randomString(32)
	if err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func randomString(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CodeChallengeFromVerifier computes the S256 PKCE challenge.
func CodeChallengeFromVerifier(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewOAuthState returns a state, code verifier and code challenge for PKCE.
func NewOAuthState() (state, codeVerifier, codeChallenge string, err error) {
	if state, err = randomString(32); err != nil {
		return "", "", "", err
	}
	if codeVerifier, err = randomString(32); err != nil {
		return "", "", "", err
	}
	return state, codeVerifier, CodeChallengeFromVerifier(codeVerifier), nil
}
