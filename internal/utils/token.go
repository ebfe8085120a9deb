package utils

import (
    "crypto/rand"
    "encoding/hex"
)

// RandomToken generates a random hexadecimal string of n bytes (2n hex
// characters).  The underlying call to crypto/rand ensures
// cryptographically secure random bytes.  It is used for ticket codes,
// which double as the QR payload and must be unguessable.
func RandomToken(n int) (string, error) {
    b := make([]byte, n)
    if _, err := rand.Read(b); err != nil {
        return "", err
    }
    return hex.EncodeToString(b), nil
}
