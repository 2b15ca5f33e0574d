package services

import (
	"strings"
	"unicode"
)

const minPasswordLength = 8

var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "12345678": {}, "123456789": {},
	"1234567890": {}, "qwerty123": {}, "qwertyuiop": {}, "iloveyou": {}, "sunshine": {},
	"princess": {}, "football": {}, "baseball": {}, "welcome1": {}, "abc12345": {},
	"letmein1": {}, "trustno1": {}, "passw0rd": {}, "11111111": {}, "00000000": {},
}

// validatePassword applies the password rules and returns the problems
// found, joined into one message, or "" when the password is acceptable.
func validatePassword(password, username string) string {
	var problems []string

	if len([]rune(password)) < minPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		problems = append(problems, "This password is too common.")
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		problems = append(problems, "This password is entirely numeric.")
	}
	if tooSimilar(password, username) {
		problems = append(problems, "The password is too similar to the username.")
	}

	return strings.Join(problems, " ")
}

// tooSimilar flags passwords that contain the username or are contained in it.
func tooSimilar(password, username string) bool {
	p := strings.ToLower(password)
	u := strings.ToLower(username)
	if len(u) < 3 || p == "" {
		return false
	}
	return strings.Contains(p, u) || strings.Contains(u, p)
}
