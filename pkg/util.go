package pkg

import (
	"crypto/rand"
	"encoding/base32"
	"time"
	"unsafe"
)

// BytesToString converts bytes slice to a string without extra allocation
func BytesToString(buf []byte) string {
	return *(*string)(unsafe.Pointer(&buf))
}

// GenerateRandomBytes returns securely generated random bytes.
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// GenerateInviteCode returns a short, human-typeable, securely generated code,
// used for linking player accounts.
func GenerateInviteCode() (string, error) {
	b, err := GenerateRandomBytes(5)
	if err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b), nil
}

// ParseTimestampPtr parses an optional RFC3339 timestamp; nil or empty
// input stays nil.
func ParseTimestampPtr(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
