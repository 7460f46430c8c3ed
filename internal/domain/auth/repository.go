package auth

import (
	"context"
	"time"
)

// Repository abstracts account persistence.
type Repository interface {
	Create(ctx context.Context, user NewUser) (User, error)
	GetByEmail(ctx context.Context, email string) (User, bool, error)
	GetByID(ctx context.Context, id int64) (User, bool, error)
	MarkEmailVerified(ctx context.Context, email string, at time.Time) error

	SaveVerificationToken(ctx context.Context, token VerificationToken) error
	GetVerificationToken(ctx context.Context, token string) (VerificationToken, bool, error)
	DeleteVerificationToken(ctx context.Context, token string) error

	GetIdentity(ctx context.Context, provider, providerSubject string) (Identity, bool, error)
	GetIdentityByUser(ctx context.Context, userID int64, provider string) (Identity, bool, error)
	UpsertIdentity(ctx context.Context, identity Identity) (Identity, error)
}

// Message is an outgoing email.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer delivers account emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
