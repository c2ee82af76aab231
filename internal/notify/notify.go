package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUnknownEntity = errors.New("notify: unknown entity type")
	ErrInvalidRef    = errors.New("notify: invalid entity reference")
	ErrNotifyFailed  = errors.New("notify: failed to record delivery failure")
)

// Entity types a message can be attached to.
const (
	TypeInvoice       = "invoice"
	TypeQuote         = "quote"
	TypeCredit        = "credit"
	TypePurchaseOrder = "purchase_order"
	TypePayment       = "payment"
)

// EntityRef points at the business object a message was sent for.
type EntityRef struct {
	Type         string `json:"type"`
	ID           string `json:"id"`
	InvitationID string `json:"invitation_id,omitempty"`
}

// Notifiable is a business object that wants to know its email bounced.
type Notifiable interface {
	OnDeliveryFailed(ctx context.Context, message string) error
}

// Execer runs a statement on the tenant shard. tenant.Store implements it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// invitation covers documents sent through per-contact invitations.
type invitation struct {
	db    Execer
	table string
	id    string
}

func (n *invitation) OnDeliveryFailed(ctx context.Context, message string) error {
	sql := fmt.Sprintf(
		`UPDATE %s SET email_status = 'bounced', email_error = $2, updated_at = now() WHERE id = $1`,
		n.table,
	)
	if _, err := n.db.Exec(ctx, sql, n.id, message); err != nil {
		return errors.Join(ErrNotifyFailed, err)
	}
	return nil
}

// payment has no invitations; the failure is recorded on the activity feed.
type payment struct {
	db Execer
	id string
}

func (n *payment) OnDeliveryFailed(ctx context.Context, message string) error {
	const sql = `
INSERT INTO activities (payment_id, company_id, activity_type, notes, created_at)
SELECT id, company_id, 'payment_email_failed', $2, now() FROM payments WHERE id = $1`
	if _, err := n.db.Exec(ctx, sql, n.id, message); err != nil {
		return errors.Join(ErrNotifyFailed, err)
	}
	return nil
}

var invitationTables = map[string]string{
	TypeInvoice:       "invoice_invitations",
	TypeQuote:         "quote_invitations",
	TypeCredit:        "credit_invitations",
	TypePurchaseOrder: "purchase_order_invitations",
}

// Resolve returns the Notifiable for ref on the given shard.
func Resolve(db Execer, ref EntityRef) (Notifiable, error) {
	if ref.Type == TypePayment {
		if ref.ID == "" {
			return nil, fmt.Errorf("%w: payment without id", ErrInvalidRef)
		}
		return &payment{db: db, id: ref.ID}, nil
	}

	table, ok := invitationTables[ref.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, ref.Type)
	}
	if ref.InvitationID == "" {
		return nil, fmt.Errorf("%w: %s without invitation", ErrInvalidRef, ref.Type)
	}
	return &invitation{db: db, table: table, id: ref.InvitationID}, nil
}

// Notifier resolves and notifies in one step.
type Notifier struct{}

// Notify tells the entity behind ref that delivery failed.
func (Notifier) Notify(ctx context.Context, db Execer, ref EntityRef, message string) error {
	n, err := Resolve(db, ref)
	if err != nil {
		return err
	}
	return n.OnDeliveryFailed(ctx, message)
}
