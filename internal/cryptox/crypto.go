// Package cryptox wraps bcrypt for account passwords.
package cryptox

import "golang.org/x/crypto/bcrypt"

var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// dummyHash is compared against when an account does not exist, so a login
// for an unknown username costs about as much as one with a wrong password.
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3ZsM8J5oQ0SdGdcjtqWqvZW")

// HashPassword returns the bcrypt hash of password. Costs outside the bcrypt
// range fall back to bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword reports whether password matches hash. An empty or malformed
// hash never matches.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// BurnCompare runs a comparison against a fixed hash and discards the result.
func BurnCompare(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
