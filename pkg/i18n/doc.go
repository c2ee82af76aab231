// Package i18n loads YAML message catalogs and translates keys into a
// tenant's locale.
//
// Catalogs follow the {lang}/{namespace}.yaml layout and are usually
// embedded:
//
//	//go:embed locales
//	var locales embed.FS
//
//	sub, _ := fs.Sub(locales, "locales")
//	cat, err := i18n.Load(sub)
//	msg := cat.T("de_DE", "failure", "suppressed", i18n.M{"email": to})
//
// Locales are matched with golang.org/x/text/language, so regional variants
// resolve to their base language.
package i18n
