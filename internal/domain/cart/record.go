package cart

import (
	"strings"
	"time"
)

// Origin identifies the client surface that last wrote a record
type Origin string

const (
	OriginWeb     Origin = "web"
	OriginMini    Origin = "mini"
	OriginUnknown Origin = "unknown"
)

// ParseOrigin maps a client-supplied source tag onto a known origin
func ParseOrigin(source string) Origin {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "web", "fe", "storefront":
		return OriginWeb
	case "mini", "miniapp", "mini-app", "zalo":
		return OriginMini
	default:
		return OriginUnknown
	}
}

// String returns the string representation
func (o Origin) String() string {
	return string(o)
}

// SyncRecord is the server-side snapshot of one session's cart.
// Every push replaces the whole record.
type SyncRecord struct {
	SessionID SessionID `json:"session_id"`
	Lines     []Line    `json:"cart"`
	UpdatedAt time.Time `json:"updated_at"`
	Origin    Origin    `json:"source"`
}

// NewSyncRecord creates a record with normalized lines
func NewSyncRecord(sessionID SessionID, lines []Line, origin Origin, updatedAt time.Time) *SyncRecord {
	if origin == "" {
		origin = OriginUnknown
	}
	return &SyncRecord{
		SessionID: sessionID,
		Lines:     Normalize(lines),
		UpdatedAt: updatedAt.UTC(),
		Origin:    origin,
	}
}

// ItemsCount returns the number of distinct lines
func (r *SyncRecord) ItemsCount() int {
	return len(r.Lines)
}
