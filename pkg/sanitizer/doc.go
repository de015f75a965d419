// Package sanitizer normalizes untrusted input values before validation
// and storage.
package sanitizer
