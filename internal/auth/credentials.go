package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/library/internal/config"
)

const (
	// MinPasswordLength applies to passwords hashed for BASIC_PASS_HASH.
	MinPasswordLength = 12
	// maxBcryptInput is the longest input bcrypt will accept.
	maxBcryptInput = 72
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 12 characters")
	ErrPasswordTooLong  = errors.New("password exceeds maximum length of 72 bytes")
)

// Credentials holds the librarian login accepted by Basic auth. A bcrypt
// hash takes precedence over a plaintext password.
type Credentials struct {
	username string
	password string
	hash     string
}

func NewCredentials(cfg config.Auth) Credentials {
	return Credentials{username: cfg.Username, password: cfg.Password, hash: cfg.PasswordHash}
}

// Configured reports whether a username and some password are set.
func (c Credentials) Configured() bool {
	return c.username != "" && (c.hash != "" || c.password != "")
}

// Verify checks a login. Unconfigured credentials reject everything.
func (c Credentials) Verify(user, pass string) bool {
	if !c.Configured() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.username)) == 1

	var passOK bool
	if c.hash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(c.hash), []byte(pass)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(pass), []byte(c.password)) == 1
	}
	return userOK && passOK
}

// HashPassword produces a value suitable for BASIC_PASS_HASH.
func HashPassword(password string, cost int) (string, error) {
	switch {
	case len(password) < MinPasswordLength:
		return "", ErrPasswordTooShort
	case len(password) > maxBcryptInput:
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
