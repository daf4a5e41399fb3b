// Package shared holds small string helpers used by both the client and the
// command line layers.
package shared

import "strings"

// NormalizeAPIURL trims whitespace and trailing slashes so URLs from flags,
// config and oscrc sections compare equal.
func NormalizeAPIURL(value string) string {
	return strings.TrimRight(strings.TrimSpace(value), "/")
}

// RedactSecret hides a non-empty secret for logs and %v output.
func RedactSecret(value string) string {
	if value == "" {
		return ""
	}
	return "***"
}
