package userrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/meteo-burkina/internal/domain/auth"
)

const uniqueViolation = "23505"

const userColumns = `id, email, username, password_hash, email_verified_at, created_at`

// PostgresRepository persists accounts in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new user row.
func (r *PostgresRepository) Create(ctx context.Context, input auth.NewUser) (auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, username, password_hash, email_verified_at)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns, input.Email, input.Username, input.PasswordHash, input.EmailVerifiedAt)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return auth.User{}, auth.ErrEmailExists
		}
		return auth.User{}, err
	}
	return user, nil
}

// GetByEmail fetches a user by email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (auth.User, bool, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return optionalUser(row)
}

// GetByID fetches by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (auth.User, bool, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return optionalUser(row)
}

// MarkEmailVerified stamps the account as confirmed.
func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, email string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET email_verified_at = $2 WHERE email = $1`, email, at.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// SaveVerificationToken stores or replaces a token.
func (r *PostgresRepository) SaveVerificationToken(ctx context.Context, token auth.VerificationToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO verification_tokens (identifier, token, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET identifier = EXCLUDED.identifier, expires_at = EXCLUDED.expires_at
	`, token.Identifier, token.Token, token.ExpiresAt.UTC())
	return err
}

// GetVerificationToken looks a token up by its secret value.
func (r *PostgresRepository) GetVerificationToken(ctx context.Context, token string) (auth.VerificationToken, bool, error) {
	var record auth.VerificationToken
	err := r.pool.QueryRow(ctx, `
		SELECT identifier, token, expires_at FROM verification_tokens WHERE token = $1
	`, token).Scan(&record.Identifier, &record.Token, &record.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.VerificationToken{}, false, nil
	}
	if err != nil {
		return auth.VerificationToken{}, false, err
	}
	record.ExpiresAt = record.ExpiresAt.UTC()
	return record, true, nil
}

// DeleteVerificationToken removes a token; missing tokens are ignored.
func (r *PostgresRepository) DeleteVerificationToken(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM verification_tokens WHERE token = $1`, token)
	return err
}

const identityColumns = `id, user_id, provider, provider_subject, provider_email, refresh_token, created_at, updated_at`

// GetIdentity returns an identity by provider and subject.
func (r *PostgresRepository) GetIdentity(ctx context.Context, provider, providerSubject string) (auth.Identity, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+identityColumns+` FROM user_identities WHERE provider = $1 AND provider_subject = $2
	`, provider, providerSubject)
	return optionalIdentity(row)
}

// GetIdentityByUser returns an identity by user and provider.
func (r *PostgresRepository) GetIdentityByUser(ctx context.Context, userID int64, provider string) (auth.Identity, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+identityColumns+` FROM user_identities WHERE user_id = $1 AND provider = $2
	`, userID, provider)
	return optionalIdentity(row)
}

// UpsertIdentity stores or updates the identity mapping. Empty refresh tokens
// and emails keep the stored values.
func (r *PostgresRepository) UpsertIdentity(ctx context.Context, identity auth.Identity) (auth.Identity, error) {
	if identity.UserID == 0 {
		return auth.Identity{}, errors.New("userID is required")
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO user_identities (user_id, provider, provider_subject, provider_email, refresh_token)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider, provider_subject) DO UPDATE SET
			provider_email = COALESCE(NULLIF(EXCLUDED.provider_email, ''), user_identities.provider_email),
			refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), user_identities.refresh_token),
			updated_at = now()
		RETURNING `+identityColumns,
		identity.UserID, identity.Provider, identity.ProviderSubject, identity.ProviderEmail, identity.RefreshToken)
	return scanIdentity(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (auth.User, error) {
	var (
		user     auth.User
		verified *time.Time
		created  time.Time
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &verified, &created); err != nil {
		return auth.User{}, err
	}
	user.EmailVerifiedAt = copyTime(verified)
	user.CreatedAt = created.UTC()
	return user, nil
}

func optionalUser(row pgx.Row) (auth.User, bool, error) {
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.User{}, false, nil
	}
	if err != nil {
		return auth.User{}, false, err
	}
	return user, true, nil
}

func scanIdentity(row rowScanner) (auth.Identity, error) {
	var identity auth.Identity
	if err := row.Scan(
		&identity.ID,
		&identity.UserID,
		&identity.Provider,
		&identity.ProviderSubject,
		&identity.ProviderEmail,
		&identity.RefreshToken,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	); err != nil {
		return auth.Identity{}, err
	}
	identity.CreatedAt = identity.CreatedAt.UTC()
	identity.UpdatedAt = identity.UpdatedAt.UTC()
	return identity, nil
}

func optionalIdentity(row pgx.Row) (auth.Identity, bool, error) {
	identity, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.Identity{}, false, nil
	}
	if err != nil {
		return auth.Identity{}, false, err
	}
	return identity, true, nil
}

var _ auth.Repository = (*PostgresRepository)(nil)
