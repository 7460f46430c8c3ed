package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/yanqian/meteo-burkina/pkg/errors"
)

// Service exposes authentication workflows.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error)
	VerifyEmail(ctx context.Context, req VerifyRequest) (UserView, error)
	ResendVerification(ctx context.Context, req ResendRequest) error
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	GoogleAuthURL(ctx context.Context, state, codeChallenge string) (string, error)
	GoogleCallback(ctx context.Context, code, codeVerifier string) (LoginResponse, error)
	ValidateToken(ctx context.Context, token string) (Claims, error)
	Refresh(ctx context.Context, refreshToken string) (LoginResponse, error)
	Profile(ctx context.Context, userID int64) (UserView, error)
	Logout(ctx context.Context, userID int64) error
}

type service struct {
	cfg    Config
	repo   Repository
	mailer Mailer
	google *googleSignIn
	logger *slog.Logger
	now    func() time.Time
}

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	defaultVerificationTTL = 24 * time.Hour
	verificationTokenBytes = 32
)

// NewService constructs a Service instance.
func NewService(cfg Config, repo Repository, mailer Mailer, logger *slog.Logger) Service {
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = defaultVerificationTTL
	}
	logger = logger.With("component", "auth.service")
	google, err := newGoogleSignIn(cfg.Google)
	if err != nil {
		logger.Error("google sign-in disabled", "error", err)
	}
	return &service{
		cfg:    cfg,
		repo:   repo,
		mailer: mailer,
		google: google,
		logger: logger,
		now:    time.Now,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return RegisterResponse{}, apperrors.Wrap("invalid_input", "invalid email address", err)
	}
	username, err := normalizeUsername(req.Username)
	if err != nil {
		return RegisterResponse{}, apperrors.Wrap("invalid_input", err.Error(), nil)
	}
	if err := validatePassword(req.Password); err != nil {
		return RegisterResponse{}, apperrors.Wrap("invalid_input", err.Error(), nil)
	}
	_, exists, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return RegisterResponse{}, apperrors.Wrap("auth_error", "failed to check user", err)
	}
	if exists {
		return RegisterResponse{}, apperrors.Wrap("email_exists", "Email déjà utilisé.", nil)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return RegisterResponse{}, apperrors.Wrap("auth_error", "failed to hash password", err)
	}
	user, err := s.repo.Create(ctx, NewUser{Email: email, Username: username, PasswordHash: string(hashed)})
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return RegisterResponse{}, apperrors.Wrap("email_exists", "Email déjà utilisé.", err)
		}
		return RegisterResponse{}, apperrors.Wrap("auth_error", "failed to create user", err)
	}

	sent, err := s.sendVerification(ctx, user)
	if err != nil {
		return RegisterResponse{}, err
	}
	s.logger.Info("user registered", "userId", user.ID, "verificationSent", sent)
	return RegisterResponse{User: toView(user), VerificationSent: sent}, nil
}

func (s *service) VerifyEmail(ctx context.Context, req VerifyRequest) (UserView, error) {
	token := strings.TrimSpace(req.Token)
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if token == "" || email == "" {
		return UserView{}, apperrors.Wrap("invalid_token", "Lien invalide.", nil)
	}
	record, found, err := s.repo.GetVerificationToken(ctx, token)
	if err != nil {
		return UserView{}, apperrors.Wrap("auth_error", "failed to load verification token", err)
	}
	if !found || record.Identifier != email {
		return UserView{}, apperrors.Wrap("invalid_token", "Lien expiré ou invalide.", nil)
	}
	now := s.now()
	if record.ExpiresAt.Before(now) {
		if err := s.repo.DeleteVerificationToken(ctx, token); err != nil {
			s.logger.Warn("failed to delete expired verification token", "error", err)
		}
		return UserView{}, apperrors.Wrap("invalid_token", "Lien expiré ou invalide.", nil)
	}
	if err := s.repo.MarkEmailVerified(ctx, email, now.UTC()); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return UserView{}, apperrors.Wrap("invalid_token", "Lien expiré ou invalide.", err)
		}
		return UserView{}, apperrors.Wrap("auth_error", "failed to verify email", err)
	}
	if err := s.repo.DeleteVerificationToken(ctx, token); err != nil {
		return UserView{}, apperrors.Wrap("auth_error", "failed to consume verification token", err)
	}
	user, found, err := s.repo.GetByEmail(ctx, email)
	if err != nil || !found {
		return UserView{}, apperrors.Wrap("auth_error", "failed to load user", err)
	}
	s.logger.Info("email verified", "userId", user.ID)
	return toView(user), nil
}

// ResendVerification issues a new link. Unknown or already verified
// addresses succeed silently so the endpoint does not reveal accounts.
func (s *service) ResendVerification(ctx context.Context, req ResendRequest) error {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return apperrors.Wrap("invalid_input", "invalid email address", err)
	}
	user, found, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return apperrors.Wrap("auth_error", "failed to fetch user", err)
	}
	if !found || user.Verified() {
		return nil
	}
	sent, err := s.sendVerification(ctx, user)
	if err != nil {
		return err
	}
	if !sent {
		return apperrors.Wrap("mail_error", "verification email could not be sent", nil)
	}
	return nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return LoginResponse{}, apperrors.Wrap("invalid_input", "invalid email address", err)
	}
	if strings.TrimSpace(req.Password) == "" {
		return LoginResponse{}, apperrors.Wrap("invalid_input", "password cannot be empty", nil)
	}
	user, found, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return LoginResponse{}, apperrors.Wrap("auth_error", "failed to fetch user", err)
	}
	if !found {
		return LoginResponse{}, apperrors.Wrap("invalid_credentials", "invalid email or password", nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return LoginResponse{}, apperrors.Wrap("invalid_credentials", "invalid email or password", nil)
	}
	if !user.Verified() {
		return LoginResponse{}, apperrors.Wrap("email_not_verified", "Vous devez vérifier votre email avant de vous connecter.", nil)
	}
	return s.buildLoginResponse(user)
}

func (s *service) ValidateToken(ctx context.Context, token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, apperrors.Wrap("invalid_token", "token missing", nil)
	}
	claims, err := s.parseToken(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != tokenTypeAccess {
		return Claims{}, apperrors.Wrap("invalid_token", "token type mismatch", nil)
	}
	return claims, nil
}

func (s *service) Profile(ctx context.Context, userID int64) (UserView, error) {
	user, found, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return UserView{}, apperrors.Wrap("auth_error", "failed to load profile", err)
	}
	if !found {
		return UserView{}, apperrors.Wrap("not_found", "user not found", nil)
	}
	return toView(user), nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (LoginResponse, error) {
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return LoginResponse{}, err
	}
	if claims.TokenType != tokenTypeRefresh {
		return LoginResponse{}, apperrors.Wrap("invalid_token", "token type mismatch", nil)
	}
	user, found, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return LoginResponse{}, apperrors.Wrap("auth_error", "failed to load user", err)
	}
	if !found {
		return LoginResponse{}, apperrors.Wrap("invalid_token", "user no longer exists", nil)
	}
	return s.buildLoginResponse(user)
}

// sendVerification stores a fresh token and mails the link. A delivery
// failure is logged and reported as false; storage failures are errors.
func (s *service) sendVerification(ctx context.Context, user User) (bool, error) {
	token, err := newVerificationToken()
	if err != nil {
		return false, apperrors.Wrap("auth_error", "failed to generate verification token", err)
	}
	record := VerificationToken{
		Identifier: user.Email,
		Token:      token,
		ExpiresAt:  s.now().Add(s.cfg.VerificationTTL).UTC(),
	}
	if err := s.repo.SaveVerificationToken(ctx, record); err != nil {
		return false, apperrors.Wrap("auth_error", "failed to store verification token", err)
	}
	if s.mailer == nil {
		s.logger.Warn("no mailer configured, verification email skipped", "userId", user.ID)
		return false, nil
	}
	link := verificationLink(s.cfg.PublicBaseURL, token, user.Email)
	if err := s.mailer.Send(ctx, verificationMessage(user.Email, user.Username, link)); err != nil {
		s.logger.Error("failed to send verification email", "userId", user.ID, "error", err)
		return false, nil
	}
	return true, nil
}

func (s *service) buildLoginResponse(user User) (LoginResponse, error) {
	access, err := s.generateToken(user, tokenTypeAccess, s.cfg.TokenTTL)
	if err != nil {
		return LoginResponse{}, err
	}
	refresh, err := s.generateToken(user, tokenTypeRefresh, s.cfg.RefreshTokenTTL)
	if err != nil {
		return LoginResponse{}, err
	}
	return LoginResponse{
		Token:        access,
		RefreshToken: refresh,
		User:         toView(user),
	}, nil
}

func (s *service) generateToken(user User, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := tokenClaims{
		UserID:    user.ID,
		Email:     user.Email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        newTokenID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", apperrors.Wrap("auth_error", "failed to sign token", err)
	}
	return signed, nil
}

func (s *service) parseToken(token string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil {
		return Claims{}, apperrors.Wrap("invalid_token", "token validation failed", err)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return Claims{}, apperrors.Wrap("invalid_token", "token invalid", nil)
	}
	return Claims{
		UserID:    claims.UserID,
		Email:     claims.Email,
		TokenType: claims.TokenType,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func toView(user User) UserView {
	return UserView{
		ID:            user.ID,
		Email:         user.Email,
		Username:      user.Username,
		EmailVerified: user.Verified(),
		CreatedAt:     user.CreatedAt,
	}
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(strings.ToLower(raw))
	if email == "" {
		return "", errors.New("email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return "", err
	}
	if addr.Address != email {
		return "", errors.New("email must be a bare address")
	}
	return email, nil
}

func normalizeUsername(raw string) (string, error) {
	username := strings.TrimSpace(raw)
	n := len([]rune(username))
	if n < 2 || n > 30 {
		return "", errors.New("username must be between 2 and 30 characters")
	}
	for _, r := range username {
		if !isUsernameRune(r) {
			return "", errors.New("username may only contain letters, digits, '.', '_' and '-'")
		}
	}
	return username, nil
}

func isUsernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '-':
		return true
	default:
		return false
	}
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"userId"`
	Email     string `json:"email"`
	TokenType string `json:"type"`
}

func newTokenID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return hex.EncodeToString(buf)
}

func newVerificationToken() (string, error) {
	buf := make([]byte, verificationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
