package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/care-circle-auth/internal/domain"
)

const uniqueViolation = "23505"

var (
	// ErrStoreNotConfigured is returned by every call when no database pool is available.
	ErrStoreNotConfigured = errors.New("identity store is not configured")
	// ErrPhoneTaken is returned when the phone unique constraint rejects an insert.
	ErrPhoneTaken = errors.New("phone already registered")
)

// IdentityRepository defines persistence access for phone identities.
type IdentityRepository interface {
	Configured() bool
	FindProfileByPhone(ctx context.Context, phone string) (*domain.Profile, error)
	GetAuthUser(ctx context.Context, id string) (*domain.AuthUser, error)
	CreateAuthUser(ctx context.Context, phone string) (*domain.AuthUser, error)
	UpsertProfile(ctx context.Context, profile *domain.Profile) error
}

type identityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository returns a Postgres-backed implementation. A nil pool
// yields a repository that reports itself unconfigured.
func NewIdentityRepository(pool *pgxpool.Pool) IdentityRepository {
	return &identityRepository{pool: pool}
}

func (r *identityRepository) Configured() bool {
	return r.pool != nil
}

// FindProfileByPhone returns pgx.ErrNoRows when no profile exists.
func (r *identityRepository) FindProfileByPhone(ctx context.Context, phone string) (*domain.Profile, error) {
	if r.pool == nil {
		return nil, ErrStoreNotConfigured
	}
	const query = `
        SELECT id, phone, created_at, updated_at
        FROM profiles WHERE phone=$1`

	var profile domain.Profile
	if err := r.pool.QueryRow(ctx, query, phone).Scan(
		&profile.ID,
		&profile.Phone,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *identityRepository) GetAuthUser(ctx context.Context, id string) (*domain.AuthUser, error) {
	if r.pool == nil {
		return nil, ErrStoreNotConfigured
	}
	const query = `
        SELECT id, phone, phone_confirmed_at, created_at, updated_at
        FROM auth_users WHERE id=$1`

	var user domain.AuthUser
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Phone,
		&user.PhoneConfirmedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateAuthUser inserts a phone-confirmed user. Concurrent signups for the
// same phone are serialised by the unique constraint and surface as ErrPhoneTaken.
func (r *identityRepository) CreateAuthUser(ctx context.Context, phone string) (*domain.AuthUser, error) {
	if r.pool == nil {
		return nil, ErrStoreNotConfigured
	}
	const query = `
        INSERT INTO auth_users (id, phone, phone_confirmed_at)
        VALUES ($1, $2, NOW())
        RETURNING id, phone, phone_confirmed_at, created_at, updated_at`

	var user domain.AuthUser
	if err := r.pool.QueryRow(ctx, query, uuid.NewString(), phone).Scan(
		&user.ID,
		&user.Phone,
		&user.PhoneConfirmedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, mapWriteError(err)
	}
	return &user, nil
}

func (r *identityRepository) UpsertProfile(ctx context.Context, profile *domain.Profile) error {
	if r.pool == nil {
		return ErrStoreNotConfigured
	}
	const query = `
        INSERT INTO profiles (id, phone)
        VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET phone=EXCLUDED.phone, updated_at=NOW()
        RETURNING created_at, updated_at`

	if err := r.pool.QueryRow(ctx, query, profile.ID, profile.Phone).Scan(
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrPhoneTaken
	}
	return err
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
