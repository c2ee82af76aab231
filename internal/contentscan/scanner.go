package contentscan

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/dmitrymomot/courier/pkg/sanitizer"
)

// Rules configure what the scanner treats as spam.
type Rules struct {
	Keywords   []string `env:"SCAN_KEYWORDS" envSeparator:","`
	Shorteners []string `env:"SCAN_SHORTENERS" envSeparator:"," envDefault:"bit.ly,tinyurl.com,t.co,goo.gl,is.gd,ow.ly,cutt.ly,rb.gy"`
	MaxLinks   int      `env:"SCAN_MAX_LINKS" envDefault:"15"`
}

// Content is the part of a message the scanner looks at.
type Content struct {
	Subject string
	HTML    string
	Text    string
}

// Scanner flags messages from unverified senders that look like abuse.
type Scanner struct {
	rules  Rules
	logger *slog.Logger
}

var linkPattern = regexp.MustCompile(`(?i)https?://[^\s"'<>)]+`)

// New creates a Scanner.
func New(rules Rules, log *slog.Logger) *Scanner {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	kw := make([]string, 0, len(rules.Keywords))
	for _, k := range rules.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kw = append(kw, k)
		}
	}
	rules.Keywords = kw
	return &Scanner{rules: rules, logger: log}
}

// Block reports whether the message should be suppressed.
func (s *Scanner) Block(ctx context.Context, c Content) bool {
	if reason := s.check(c); reason != "" {
		s.logger.InfoContext(ctx, "content scanner blocked message", slog.String("reason", reason))
		return true
	}
	return false
}

func (s *Scanner) check(c Content) string {
	body := strings.ToLower(c.Subject + "\n" + sanitizer.PlainText(c.HTML) + "\n" + c.Text)
	for _, k := range s.rules.Keywords {
		if strings.Contains(body, k) {
			return "keyword"
		}
	}

	links := linkPattern.FindAllString(c.HTML+"\n"+c.Text, -1)
	if s.rules.MaxLinks > 0 && len(links) > s.rules.MaxLinks {
		return "too many links"
	}
	for _, l := range links {
		u, err := url.Parse(l)
		if err != nil {
			continue
		}
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		if slices.Contains(s.rules.Shorteners, host) {
			return "url shortener"
		}
	}
	return ""
}
