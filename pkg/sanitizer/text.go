package sanitizer

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var strict = sync.OnceValue(bluemonday.StrictPolicy)

// PlainText strips every tag from s, decodes entities and collapses runs of
// whitespace into single spaces. Script and style contents are dropped.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(html.UnescapeString(strict().Sanitize(s))), " ")
}
