package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/oauth2"
)

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository is the Postgres Store for one shard.
type Repository struct {
	db DB
}

// NewRepository creates a Repository over a shard pool.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const loadContextQuery = `
SELECT c.id, c.account_id, c.owner_id, c.company_key, c.name, c.is_disabled,
       COALESCE(c.postmark_secret, ''), COALESCE(c.mailgun_secret, ''),
       COALESCE(c.mailgun_domain, ''), c.mailgun_eu,
       a.id, a.account_key, a.is_flagged, a.is_verified, a.is_sms_verified, a.daily_email_quota,
       u.id, u.account_id, u.email, u.first_name, u.last_name, COALESCE(u.oauth_provider, ''),
       COALESCE(u.oauth_access_token, ''), COALESCE(u.oauth_refresh_token, ''), u.oauth_token_expiry
FROM companies c
JOIN accounts a ON a.id = c.account_id
JOIN users u ON u.id = c.owner_id
WHERE c.company_key = $1 AND c.deleted_at IS NULL`

// LoadContext loads the company, its account and owner.
func (r *Repository) LoadContext(ctx context.Context, companyKey string) (*Context, error) {
	var (
		tc     Context
		expiry *time.Time
	)
	err := r.db.QueryRow(ctx, loadContextQuery, companyKey).Scan(
		&tc.Company.ID, &tc.Company.AccountID, &tc.Company.OwnerID, &tc.Company.Key, &tc.Company.Name,
		&tc.Company.Disabled, &tc.Company.PostmarkSecret, &tc.Company.MailgunSecret,
		&tc.Company.MailgunDomain, &tc.Company.MailgunEU,
		&tc.Account.ID, &tc.Account.Key, &tc.Account.Flagged, &tc.Account.Verified,
		&tc.Account.SMSVerified, &tc.Account.DailyQuota,
		&tc.Owner.ID, &tc.Owner.AccountID, &tc.Owner.Email, &tc.Owner.FirstName, &tc.Owner.LastName,
		&tc.Owner.OAuthProvider, &tc.Owner.AccessToken, &tc.Owner.RefreshToken, &expiry,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrLoadFailed, err)
	}
	if expiry != nil {
		tc.Owner.TokenExpiry = *expiry
	}
	return &tc, nil
}

const userQuery = `
SELECT id, account_id, email, first_name, last_name, COALESCE(oauth_provider, ''),
       COALESCE(oauth_access_token, ''), COALESCE(oauth_refresh_token, ''), oauth_token_expiry
FROM users
WHERE id = $1 AND deleted_at IS NULL`

// User loads a user by id.
func (r *Repository) User(ctx context.Context, id uuid.UUID) (*User, error) {
	var (
		u      User
		expiry *time.Time
	)
	err := r.db.QueryRow(ctx, userQuery, id).Scan(
		&u.ID, &u.AccountID, &u.Email, &u.FirstName, &u.LastName,
		&u.OAuthProvider, &u.AccessToken, &u.RefreshToken, &expiry,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrLoadFailed, err)
	}
	if expiry != nil {
		u.TokenExpiry = *expiry
	}
	return &u, nil
}

// A single UPDATE keeps the three token columns consistent; concurrent
// refreshes for one user are last-writer-wins.
const saveTokenQuery = `
UPDATE users
SET oauth_access_token = $2,
    oauth_refresh_token = COALESCE(NULLIF($3, ''), oauth_refresh_token),
    oauth_token_expiry = $4,
    updated_at = now()
WHERE id = $1`

// SaveUserToken persists a refreshed token.
func (r *Repository) SaveUserToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error {
	var expiry *time.Time
	if !tok.Expiry.IsZero() {
		expiry = &tok.Expiry
	}
	tag, err := r.db.Exec(ctx, saveTokenQuery, userID, tok.AccessToken, tok.RefreshToken, expiry)
	if err != nil {
		return errors.Join(ErrSaveTokenFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Join(ErrSaveTokenFailed, ErrUserNotFound)
	}
	return nil
}

// Exec runs a statement on the shard. Audit and notification writers use it.
func (r *Repository) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, sql, args...)
}

var _ Store = (*Repository)(nil)
