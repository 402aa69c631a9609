package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hirehub/portal/internal/account"
)

var (
	// ErrNotFound is returned when no account matches.
	ErrNotFound = errors.New("account not found")
	// ErrExists is returned when the email is already registered.
	ErrExists = errors.New("account already exists")
)

// Repository persists accounts.
type Repository interface {
	Create(ctx context.Context, acct Account) error
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	FindByVerifyToken(ctx context.Context, token string) (Account, error)
	Update(ctx context.Context, acct Account) error
}

const schema = `CREATE TABLE IF NOT EXISTS accounts (
    id UUID PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL DEFAULT '',
    user_type TEXT NOT NULL,
    password_hash BYTEA NOT NULL,
    email_verified BOOLEAN NOT NULL DEFAULT FALSE,
    verify_token TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    has_preferences BOOLEAN NOT NULL DEFAULT FALSE,
    verification_status TEXT NOT NULL DEFAULT 'draft',
    profile_complete BOOLEAN NOT NULL DEFAULT FALSE,
    rejected_reason TEXT NOT NULL DEFAULT '',
    permissions TEXT[] NOT NULL DEFAULT '{}',
    token_version INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL
)`

const selectColumns = `SELECT id, email, name, user_type, password_hash, email_verified, verify_token,
    phone, has_preferences, verification_status, profile_complete, rejected_reason, permissions,
    token_version, created_at FROM accounts`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository and
// makes sure its table exists.
func NewPostgresRepository(ctx context.Context, db *pgxpool.Pool) (*PostgresRepository, error) {
	if _, err := db.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensure accounts schema: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

// Create inserts a new account.
func (r *PostgresRepository) Create(ctx context.Context, acct Account) error {
	id, err := uuid.Parse(acct.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO accounts (id, email, name, user_type, password_hash, email_verified,
        verify_token, phone, has_preferences, verification_status, profile_complete, rejected_reason,
        permissions, token_version, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		id, acct.Email, acct.Name, string(acct.UserType), acct.PasswordHash, acct.EmailVerified,
		acct.VerifyToken, acct.Phone, acct.HasPreferences, string(acct.VerificationStatus),
		acct.ProfileComplete, acct.RejectedReason, permissions(acct), acct.TokenVersion, acct.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrExists
	}
	return err
}

// FindByEmail fetches an account by email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	return r.findOne(ctx, selectColumns+` WHERE email = $1`, email)
}

// FindByID fetches an account by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Account, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	return r.findOne(ctx, selectColumns+` WHERE id = $1`, uid)
}

// FindByVerifyToken fetches the account holding an email verification token.
func (r *PostgresRepository) FindByVerifyToken(ctx context.Context, token string) (Account, error) {
	if token == "" {
		return Account{}, ErrNotFound
	}
	return r.findOne(ctx, selectColumns+` WHERE verify_token = $1`, token)
}

// Update overwrites the mutable columns of an account.
func (r *PostgresRepository) Update(ctx context.Context, acct Account) error {
	id, err := uuid.Parse(acct.ID)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET name = $2, email_verified = $3, verify_token = $4,
        phone = $5, has_preferences = $6, verification_status = $7, profile_complete = $8,
        rejected_reason = $9, permissions = $10, token_version = $11 WHERE id = $1`,
		id, acct.Name, acct.EmailVerified, acct.VerifyToken, acct.Phone, acct.HasPreferences,
		string(acct.VerificationStatus), acct.ProfileComplete, acct.RejectedReason, permissions(acct),
		acct.TokenVersion)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (Account, error) {
	var (
		id        uuid.UUID
		userType  string
		status    string
		createdAt time.Time
		acct      Account
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(&id, &acct.Email, &acct.Name, &userType, &acct.PasswordHash,
		&acct.EmailVerified, &acct.VerifyToken, &acct.Phone, &acct.HasPreferences, &status,
		&acct.ProfileComplete, &acct.RejectedReason, &acct.Permissions, &acct.TokenVersion, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	acct.ID = id.String()
	acct.UserType = account.UserType(userType)
	acct.VerificationStatus = account.VerificationStatus(status)
	acct.CreatedAt = createdAt.UTC()
	return acct, nil
}

// permissions never sends NULL to the NOT NULL array column.
func permissions(acct Account) []string {
	if acct.Permissions == nil {
		return []string{}
	}
	return acct.Permissions
}
