package utils

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail reports whether email looks like a deliverable address.
func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	if len(email) > 254 || strings.Count(email, "@") != 1 {
		return false
	}
	if strings.Contains(email, "..") {
		return false
	}
	return emailPattern.MatchString(email)
}

// NormalizeEmail trims and lowercases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
