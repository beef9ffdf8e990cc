// Package otp issues six-digit password reset codes. Only Hash(code) is ever
// stored; the plaintext goes to the mailer and nowhere else.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strconv"
)

const (
	lowest  = 100000
	highest = 999999
)

var span = big.NewInt(highest - lowest + 1)

// Generate draws uniformly from [100000, 999999].
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+lowest, 10), nil
}

// Hash returns the hex SHA-256 digest of code.
func Hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
