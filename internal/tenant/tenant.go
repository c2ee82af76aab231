package tenant

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/oauth2"
)

// Company is a billing customer sending mail through the platform.
type Company struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	OwnerID   uuid.UUID
	Key       string
	Name      string
	Shard     string
	Disabled  bool

	// Tenant-supplied provider credentials. Never copied into job payloads.
	PostmarkSecret string
	MailgunSecret  string
	MailgunDomain  string
	MailgunEU      bool
}

// Account groups companies under one subscription.
type Account struct {
	ID          uuid.UUID
	Key         string
	Flagged     bool
	Verified    bool
	SMSVerified bool
	// DailyQuota of zero means unlimited.
	DailyQuota int
	// SentToday is read from the quota counter, not the database.
	SentToday int
}

// QuotaExceeded reports whether the platform-funded daily allowance is used up.
func (a Account) QuotaExceeded() bool {
	return a.DailyQuota > 0 && a.SentToday >= a.DailyQuota
}

// User is a member of an account. OAuth fields are set for users who
// connected Gmail or Microsoft 365.
type User struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	Email         string
	FirstName     string
	LastName      string
	OAuthProvider string
	AccessToken   string
	RefreshToken  string
	TokenExpiry   time.Time
}

// Name returns the display name, falling back to the email address.
func (u User) Name() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Context is everything an attempt needs to know about the sending tenant.
type Context struct {
	Company Company
	Account Account
	Owner   User
}

// Store reads and writes tenant data on one shard.
type Store interface {
	LoadContext(ctx context.Context, companyKey string) (*Context, error)
	User(ctx context.Context, id uuid.UUID) (*User, error)
	SaveUserToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
