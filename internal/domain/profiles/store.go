package profiles

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	EnsureProfile(ctx context.Context, profile *Profile) error
	SetActivationToken(ctx context.Context, userID int64, hashedToken string, exp time.Duration) error
	Activate(ctx context.Context, hashedToken string) error
	GetByID(ctx context.Context, userID int64) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	Delete(ctx context.Context, userID int64) error
	SaveRefreshToken(ctx context.Context, userID int64, refreshToken string) error
	GetRefreshToken(ctx context.Context, userID int64) (string, error)
	DeleteRefreshToken(ctx context.Context, userID int64) error
	SetTier(ctx context.Context, userID int64, tier Tier) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

// EnsureProfile upserts the profile row for an account. It is idempotent and
// safe to retry: registration calls it explicitly instead of relying on a
// database-side signup trigger, and replays only fill in missing fields.
func (r *Repository) EnsureProfile(ctx context.Context, profile *Profile) error {
	query := `
        INSERT INTO profiles (email, full_name, role, password, subscription_tier, subscription_status)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (email) DO UPDATE
            SET full_name = COALESCE(NULLIF(profiles.full_name, ''), EXCLUDED.full_name),
                updated_at = NOW()
        RETURNING id, subscription_tier, subscription_status, is_active, created_at, updated_at
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if profile.Role == "" {
		profile.Role = RoleSponsor
	}
	if profile.Tier == "" {
		profile.Tier = TierFree
	}
	if profile.SubscriptionStatus == "" {
		profile.SubscriptionStatus = "active"
	}

	err := r.db.QueryRow(ctx, query,
		strings.ToLower(profile.Email),
		profile.FullName,
		profile.Role,
		profile.Password.Hash(),
		profile.Tier,
		profile.SubscriptionStatus,
	).Scan(
		&profile.ID,
		&profile.Tier,
		&profile.SubscriptionStatus,
		&profile.IsActive,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateEmail
	}
	return err
}

func (r *Repository) SetActivationToken(ctx context.Context, userID int64, hashedToken string, exp time.Duration) error {
	query := `
        INSERT INTO profile_invitations (profile_id, token, expiry)
        VALUES ($1, $2, $3)
        ON CONFLICT (profile_id) DO UPDATE SET token = EXCLUDED.token, expiry = EXCLUDED.expiry
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx, query, userID, hashedToken, time.Now().Add(exp))
	return err
}

// Activate marks the profile verified and burns the invitation token. The
// verified email feeds the trust scorer's account signals.
func (r *Repository) Activate(ctx context.Context, hashedToken string) error {
	query := `
        WITH invitation AS (
            DELETE FROM profile_invitations
            WHERE token = $1 AND expiry > NOW()
            RETURNING profile_id
        )
        UPDATE profiles SET is_active = true, updated_at = NOW()
        WHERE id = (SELECT profile_id FROM invitation)
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	res, err := r.db.Exec(ctx, query, hashedToken)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const profileColumns = `
    p.id, p.email, p.full_name, p.role, p.company_id, c.name, c.domain,
    p.linkedin_url, p.subscription_tier, p.subscription_status, p.is_active,
    p.password, p.created_at, p.updated_at
`

func (r *Repository) GetByID(ctx context.Context, userID int64) (*Profile, error) {
	query := `
        SELECT ` + profileColumns + `
        FROM profiles p
        LEFT JOIN companies c ON c.id = p.company_id
        WHERE p.id = $1
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return scanProfile(r.db.QueryRow(ctx, query, userID))
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	query := `
        SELECT ` + profileColumns + `
        FROM profiles p
        LEFT JOIN companies c ON c.id = p.company_id
        WHERE p.email = $1
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return scanProfile(r.db.QueryRow(ctx, query, strings.ToLower(email)))
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	var hash []byte

	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.Role,
		&p.CompanyID,
		&p.CompanyName,
		&p.CompanyDomain,
		&p.LinkedInURL,
		&p.Tier,
		&p.SubscriptionStatus,
		&p.IsActive,
		&hash,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	p.Password.SetHash(hash)
	return &p, nil
}

func (r *Repository) Delete(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, userID)
	return err
}

func (r *Repository) SaveRefreshToken(ctx context.Context, userID int64, refreshToken string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx,
		`UPDATE profiles SET refresh_token = $1, updated_at = NOW() WHERE id = $2`,
		refreshToken, userID)
	return err
}

func (r *Repository) GetRefreshToken(ctx context.Context, userID int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var token string
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(refresh_token, '') FROM profiles WHERE id = $1`, userID).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return token, err
}

func (r *Repository) DeleteRefreshToken(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx,
		`UPDATE profiles SET refresh_token = NULL, updated_at = NOW() WHERE id = $1`, userID)
	return err
}

func (r *Repository) SetTier(ctx context.Context, userID int64, tier Tier) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	res, err := r.db.Exec(ctx,
		`UPDATE profiles SET subscription_tier = $1, updated_at = NOW() WHERE id = $2`,
		tier, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
