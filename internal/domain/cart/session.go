package cart

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	sessionIDPrefix    = "sess_"
	maxSessionIDLength = 128
)

// SessionID is the anonymous identity shared by every client surface of one shopper.
type SessionID string

// NewSessionID generates a fresh id from a UUIDv7 (millisecond timestamp plus random bits)
func NewSessionID() (SessionID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return SessionID(sessionIDPrefix + strings.ReplaceAll(id.String(), "-", "")), nil
}

// ParseSessionID trims and validates a client-supplied session id
func ParseSessionID(raw string) (SessionID, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", ErrSessionIDRequired
	}
	if len(id) > maxSessionIDLength {
		return "", ErrSessionIDTooLong
	}
	if strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return "", ErrSessionIDInvalid
	}
	return SessionID(id), nil
}

// String returns the string representation
func (s SessionID) String() string {
	return string(s)
}

// IsEmpty returns true for the zero id
func (s SessionID) IsEmpty() bool {
	return strings.TrimSpace(string(s)) == ""
}
