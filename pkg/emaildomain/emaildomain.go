// Package emaildomain extracts the organization lookup key from a submitted
// email address.
//
// Extract is strict: it does not trim or lowercase. Callers that want
// case-insensitive directory matching apply Normalize explicitly.
package emaildomain

import (
	"errors"
	"strings"
)

// ErrInvalidEmail is returned for empty input, input without '@', or input
// whose domain part is empty.
var ErrInvalidEmail = errors.New("invalid email address")

// Domain is the part of an email address after the last '@'
type Domain string

func (d Domain) String() string {
	return string(d)
}

// Extract returns the domain of email
func Extract(email string) (Domain, error) {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return "", ErrInvalidEmail
	}

	domain := email[at+1:]
	if domain == "" {
		return "", ErrInvalidEmail
	}

	return Domain(domain), nil
}

// Normalize trims surrounding whitespace and lowercases d
func Normalize(d Domain) Domain {
	return Domain(strings.ToLower(strings.TrimSpace(string(d))))
}

// Valid reports whether Extract would accept email
func Valid(email string) bool {
	_, err := Extract(email)
	return err == nil
}
