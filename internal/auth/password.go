package auth

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted by ValidatePassword.
const MinPasswordLength = 8

// MaxPasswordBytes is the longest password bcrypt can hash.
const MaxPasswordBytes = 72

// PasswordSpecialChars is the set a password must draw at least one character from.
const PasswordSpecialChars = `!@#$%^&*(),.?":{}|<>`

// WeakPasswordError reports the first password rule a candidate failed.
type WeakPasswordError struct {
	Reason string
}

func (e *WeakPasswordError) Error() string {
	return e.Reason
}

// ValidatePassword checks the password policy rules in order and returns a
// *WeakPasswordError naming the first one that fails.
func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return &WeakPasswordError{Reason: "Password must be at least 8 characters long"}
	}
	if !strings.ContainsFunc(password, isASCIIUpper) {
		return &WeakPasswordError{Reason: "Password must contain at least one uppercase letter"}
	}
	if !strings.ContainsFunc(password, isASCIILower) {
		return &WeakPasswordError{Reason: "Password must contain at least one lowercase letter"}
	}
	if !strings.ContainsAny(password, PasswordSpecialChars) {
		return &WeakPasswordError{Reason: "Password must contain at least one special character"}
	}
	if len(password) > MaxPasswordBytes {
		return errPasswordTooLong
	}
	return nil
}

func isASCIIUpper(r rune) bool {
	return r <= unicode.MaxASCII && unicode.IsUpper(r)
}

func isASCIILower(r rune) bool {
	return r <= unicode.MaxASCII && unicode.IsLower(r)
}

// ErrPasswordMismatch is returned by Hasher.Compare when the password does
// not match the stored hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// Hasher hashes and verifies passwords with bcrypt. Each hash carries its
// own random salt.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using the given bcrypt cost. Out-of-range
// costs fall back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

var errPasswordTooLong = &WeakPasswordError{Reason: "Password must be at most 72 bytes long"}

// Hash returns the bcrypt hash of password. Passwords bcrypt cannot hash
// are reported as a *WeakPasswordError.
func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", errPasswordTooLong
	}
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare returns nil when password matches hash and ErrPasswordMismatch
// when it does not. Malformed hashes are reported as a mismatch too.
func (h *Hasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return nil
	}
	return ErrPasswordMismatch
}
