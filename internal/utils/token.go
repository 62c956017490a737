// Package utils provides small helpers shared across the service.
package utils

import (
    "crypto/rand"
    "encoding/hex"
)

// RandomToken generates a random hexadecimal string of n*2 characters.
// It backs hold tokens and ticket verification codes. The underlying
// call to crypto/rand ensures cryptographically secure random bytes; for
// a 64 character hex string, specify 32 bytes. On failure it returns an
// error.
func RandomToken(n int) (string, error) {
    b := make([]byte, n)
    if _, err := rand.Read(b); err != nil {
        return "", err
    }
    return hex.EncodeToString(b), nil
}
