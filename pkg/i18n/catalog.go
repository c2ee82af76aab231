package i18n

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultLang is used when a locale matches nothing in the catalog.
const DefaultLang = "en"

// M holds placeholder values.
type M map[string]any

// Catalog is an immutable set of translations, safe for concurrent use.
type Catalog struct {
	messages    map[string]string // "lang:namespace:key.path"
	matcher     language.Matcher
	languages   []string
	defaultLang string
}

// Option configures Load.
type Option func(*Catalog) error

// WithDefaultLanguage sets the fallback language.
func WithDefaultLanguage(lang string) Option {
	return func(c *Catalog) error {
		if lang == "" {
			return ErrEmptyLanguage
		}
		c.defaultLang = lang
		return nil
	}
}

// Load reads {lang}/{namespace}.yaml files from fsys.
func Load(fsys fs.FS, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		messages:    make(map[string]string),
		defaultLang: DefaultLang,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	langs := map[string]struct{}{}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := strings.ToLower(path.Ext(p))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		dir := path.Dir(p)
		if dir == "." {
			return fmt.Errorf("%w: %q must be inside a language directory", ErrInvalidFile, p)
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("reading %q: %w", p, err)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return fmt.Errorf("%w: parsing %q: %s", ErrInvalidFile, p, err)
		}

		lang := path.Base(dir)
		namespace := strings.TrimSuffix(path.Base(p), path.Ext(p))
		flatten(tree, "", func(key, value string) {
			c.messages[lang+":"+namespace+":"+key] = value
		})
		langs[lang] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(langs) == 0 {
		return nil, ErrNoTranslations
	}

	// The matcher falls back to the first tag, so the default goes first.
	c.languages = append(c.languages, c.defaultLang)
	delete(langs, c.defaultLang)
	rest := make([]string, 0, len(langs))
	for l := range langs {
		rest = append(rest, l)
	}
	slices.Sort(rest)
	c.languages = append(c.languages, rest...)

	tags := make([]language.Tag, len(c.languages))
	for i, l := range c.languages {
		tags[i] = language.Make(l)
	}
	c.matcher = language.NewMatcher(tags)

	return c, nil
}

// Languages lists loaded languages, default first.
func (c *Catalog) Languages() []string {
	return slices.Clone(c.languages)
}

// Match maps a tenant locale such as "de_DE" or "fr-CA" to a loaded
// language, or the default language when nothing is close.
func (c *Catalog) Match(locale string) string {
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return c.defaultLang
	}
	_, idx, conf := c.matcher.Match(tag)
	if conf == language.No {
		return c.defaultLang
	}
	return c.languages[idx]
}

// T translates key for locale, falling back to the default language and
// finally to the key itself. Placeholders use the {{name}} form.
func (c *Catalog) T(locale, namespace, key string, args M) string {
	lang := c.Match(locale)
	msg, ok := c.messages[lang+":"+namespace+":"+key]
	if !ok {
		if msg, ok = c.messages[c.defaultLang+":"+namespace+":"+key]; !ok {
			return key
		}
	}
	for name, v := range args {
		msg = strings.ReplaceAll(msg, "{{"+name+"}}", fmt.Sprint(v))
	}
	return msg
}

func flatten(tree map[string]any, prefix string, emit func(key, value string)) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(val, key, emit)
		case string:
			emit(key, val)
		default:
			emit(key, fmt.Sprint(val))
		}
	}
}
