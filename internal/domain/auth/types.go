package auth

import "time"

// Config drives authentication behavior.
type Config struct {
	Secret          string
	TokenTTL        time.Duration
	RefreshTokenTTL time.Duration
	VerificationTTL time.Duration
	// PublicBaseURL prefixes the email verification link.
	PublicBaseURL string
	Google        GoogleConfig
}

// GoogleConfig holds OAuth settings for Google sign-in.
type GoogleConfig struct {
	ClientID             string
	ClientSecret         string
	RedirectURL          string
	TokenEncryptionKey   string
	PostLoginRedirectURL string
}

// User represents a persisted account.
type User struct {
	ID              int64
	Email           string
	Username        string
	PasswordHash    string
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
}

// Verified reports whether the account confirmed its email address.
func (u User) Verified() bool {
	return u.EmailVerifiedAt != nil
}

// NewUser carries the fields required to create an account.
type NewUser struct {
	Email           string
	Username        string
	PasswordHash    string
	EmailVerifiedAt *time.Time
}

// VerificationToken is a single-use email confirmation secret.
type VerificationToken struct {
	Identifier string
	Token      string
	ExpiresAt  time.Time
}

// Identity represents an external auth provider linkage.
type Identity struct {
	ID              int64
	UserID          int64
	Provider        string
	ProviderSubject string
	ProviderEmail   string
	RefreshToken    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RegisterRequest captures the sign-up payload.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse tells the client whether the confirmation mail left.
type RegisterResponse struct {
	User             UserView `json:"user"`
	VerificationSent bool     `json:"verificationSent"`
}

// VerifyRequest carries the values of a verification link.
type VerifyRequest struct {
	Token string `form:"token" json:"token"`
	Email string `form:"email" json:"email"`
}

// ResendRequest asks for a fresh verification link.
type ResendRequest struct {
	Email string `json:"email"`
}

// LoginRequest captures login details.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns the signed tokens.
type LoginResponse struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	User         UserView `json:"user"`
}

// UserView trims sensitive fields.
type UserView struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Claims are extracted from the JWT token.
type Claims struct {
	UserID    int64
	Email     string
	TokenType string
	ExpiresAt time.Time
}

// RefreshRequest encapsulates refresh token payload.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}
