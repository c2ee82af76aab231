// Package contentscan is the built-in content-quality scanner consulted by
// the preflight gate for accounts that are not yet verified. It strips HTML
// with bluemonday and checks keywords, link count and URL shorteners.
package contentscan
