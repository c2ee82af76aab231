package preflight

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/courier/internal/tenant"
	"github.com/dmitrymomot/courier/internal/transport"
)

// Message is what the gate knows about the mail being sent.
type Message struct {
	To       string
	Subject  string
	HTML     string
	Text     string
	Method   transport.Method
	Override bool
}

// Scanner is an optional content-quality check. Block returns true to
// suppress the message.
type Scanner interface {
	Block(ctx context.Context, tc *tenant.Context, m Message) bool
}

// ScannerFunc adapts a function to Scanner.
type ScannerFunc func(ctx context.Context, tc *tenant.Context, m Message) bool

// Block implements Scanner.
func (f ScannerFunc) Block(ctx context.Context, tc *tenant.Context, m Message) bool {
	return f(ctx, tc, m)
}

// Gate decides whether a message may be sent at all.
type Gate struct {
	placeholders []string
	scanner      Scanner
	logger       *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithPlaceholderDomains replaces the reserved recipient domains.
func WithPlaceholderDomains(domains ...string) Option {
	return func(g *Gate) {
		g.placeholders = g.placeholders[:0]
		for _, d := range domains {
			if d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@")); d != "" {
				g.placeholders = append(g.placeholders, "@"+d)
			}
		}
	}
}

// WithScanner installs a content scanner.
func WithScanner(s Scanner) Option {
	return func(g *Gate) {
		g.scanner = s
	}
}

// WithLogger sets the logger blocked messages are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a Gate. By default @example.com recipients are reserved.
func New(opts ...Option) *Gate {
	g := &Gate{
		placeholders: []string{"@example.com"},
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ShouldBlock runs the checks in a fixed order, cheapest first; the first
// decisive check wins.
func (g *Gate) ShouldBlock(ctx context.Context, tc *tenant.Context, m Message) bool {
	block, reason := g.decide(ctx, tc, m)
	if block {
		g.logger.InfoContext(ctx, "message blocked by preflight", slog.String("reason", reason))
	}
	return block
}

func (g *Gate) decide(ctx context.Context, tc *tenant.Context, m Message) (bool, string) {
	if m.Override {
		return false, ""
	}
	if tc.Company.Disabled {
		return true, "company disabled"
	}
	if tc.Account.Flagged {
		return true, "account flagged"
	}
	if g.placeholder(m.To) {
		return true, "placeholder recipient"
	}
	if m.Method.Uncapped() {
		return false, ""
	}
	if tc.Account.QuotaExceeded() {
		return true, "quota exceeded"
	}
	if tc.Account.Verified {
		return false, ""
	}
	if !strings.Contains(m.To, "@") {
		return true, "invalid recipient"
	}
	if !tc.Account.SMSVerified {
		if g.scanner == nil {
			return true, "unverified account without scanner"
		}
		return g.scanner.Block(ctx, tc, m), "content scan"
	}
	if g.scanner != nil {
		return g.scanner.Block(ctx, tc, m), "content scan"
	}
	return false, ""
}

func (g *Gate) placeholder(to string) bool {
	to = strings.ToLower(strings.TrimSpace(to))
	for _, p := range g.placeholders {
		if strings.HasSuffix(to, p) {
			return true
		}
	}
	return false
}
