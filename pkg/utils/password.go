package utils

import (
	"unicode"
	"unicode/utf8"
)

// Minimum lengths used by the strength heuristic.
const (
	MinPasswordLength    = 8
	strongPasswordLength = 12
	tooShortLength       = 6
)

var strengthLabels = [...]string{"very weak", "weak", "fair", "good", "strong"}

// PasswordScore is the result of PasswordStrength.
type PasswordScore struct {
	Score    int      `json:"score"`
	Label    string   `json:"label"`
	Feedback []string `json:"feedback,omitempty"`
}

// PasswordStrength scores a password from 0 to 4.
func PasswordStrength(password string) PasswordScore {
	length := utf8.RuneCountInString(password)

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}

	var feedback []string
	score := 0
	if length >= MinPasswordLength {
		score++
	} else {
		feedback = append(feedback, "Use at least 8 characters")
	}
	if hasLower && hasUpper {
		score++
	} else {
		feedback = append(feedback, "Mix upper and lower case letters")
	}
	if hasDigit {
		score++
	} else {
		feedback = append(feedback, "Add a number")
	}
	if hasSymbol {
		score++
	} else {
		feedback = append(feedback, "Add a symbol")
	}
	if length >= strongPasswordLength {
		score++
	}

	if length < tooShortLength {
		score = 0
	}
	if score > 4 {
		score = 4
	}

	return PasswordScore{
		Score:    score,
		Label:    strengthLabels[score],
		Feedback: feedback,
	}
}

// IsPasswordAcceptable reports whether a password may be stored.
func IsPasswordAcceptable(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength && PasswordStrength(password).Score >= 2
}
