package security

import (
	"strings"
	"unicode/utf8"
)

// Strength classifies a password score.
type Strength string

const (
	StrengthWeak       Strength = "weak"
	StrengthMedium     Strength = "medium"
	StrengthStrong     Strength = "strong"
	StrengthVeryStrong Strength = "very-strong"
)

// PasswordSpecialChars is the punctuation set that satisfies the special character rule.
const PasswordSpecialChars = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

var commonPasswords = map[string]struct{}{
	"password": {}, "123456": {}, "12345678": {}, "qwerty": {}, "abc123": {},
	"monkey": {}, "1234567": {}, "letmein": {}, "trustno1": {}, "dragon": {},
	"baseball": {}, "iloveyou": {}, "master": {}, "sunshine": {}, "ashley": {},
	"bailey": {}, "passw0rd": {}, "shadow": {}, "123123": {}, "654321": {},
	"superman": {}, "qazwsx": {}, "michael": {}, "football": {},
}

// PasswordResult extends Result with a 0-100 score and its strength band.
type PasswordResult struct {
	Result
	Strength Strength
	Score    int
}

// ValidatePassword scores a password and lists every rule it breaks.
func ValidatePassword(password string) PasswordResult {
	var v violations
	score := 0

	length := utf8.RuneCountInString(password)
	if length < MinPasswordLength {
		v.add("password", "Password must be at least 8 characters long")
	} else {
		score += 20
	}

	if strings.IndexFunc(password, isUpper) < 0 {
		v.add("password", "Password must contain at least one uppercase letter")
	} else {
		score += 20
	}

	if strings.IndexFunc(password, isLower) < 0 {
		v.add("password", "Password must contain at least one lowercase letter")
	} else {
		score += 20
	}

	if strings.IndexFunc(password, isDigit) < 0 {
		v.add("password", "Password must contain at least one number")
	} else {
		score += 20
	}

	if !strings.ContainsAny(password, PasswordSpecialChars) {
		v.add("password", "Password must contain at least one special character (!@#$%^&*...)")
	} else {
		score += 20
	}

	if length >= 12 {
		score += 10
	}
	if length >= 16 {
		score += 10
	}
	if score > 100 {
		score = 100
	}

	if _, common := commonPasswords[strings.ToLower(password)]; common {
		v.add("password", "Password is too common, choose a safer one")
		if score > 20 {
			score = 20
		}
	}

	return PasswordResult{
		Result:   v.result(),
		Strength: strengthFor(score),
		Score:    score,
	}
}

func strengthFor(score int) Strength {
	switch {
	case score >= 80:
		return StrengthVeryStrong
	case score >= 60:
		return StrengthStrong
	case score >= 40:
		return StrengthMedium
	default:
		return StrengthWeak
	}
}

// ASCII classes, matching the [A-Z], [a-z] and [0-9] rules.
func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }
