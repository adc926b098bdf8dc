package utils

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

const sessionPrefix = "CLINSESSION"

// NewSessionID returns a fresh agent session identifier.
func NewSessionID() string {
	return sessionPrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
}

// ValidateSessionID accepts identifiers produced by NewSessionID as well as
// caller supplied ones made of letters, digits, '-' and '_' (max 100 chars).
func ValidateSessionID(sessionID string) bool {
	if sessionID == "" || len(sessionID) > 100 {
		return false
	}
	for _, r := range sessionID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// MD5Hash generates MD5 hash of input string
func MD5Hash(input string) string {
	hash := md5.Sum([]byte(input))
	return hex.EncodeToString(hash[:])
}

// GenerateRandomID returns the first length hex characters of a random UUID.
func GenerateRandomID(length int) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if length <= 0 || length > len(id) {
		return id
	}
	return id[:length]
}
