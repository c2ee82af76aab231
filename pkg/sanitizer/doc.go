// Package sanitizer turns message HTML into text for content checks.
package sanitizer
