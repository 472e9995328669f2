package resource

import (
	"strings"
	"time"
)

// Defaults applied when the descriptor or a request omits a value.
const (
	DefaultMaxLockDuration = 86400
	DefaultLockTTL         = 3600
)

// Human readable lock_details values.
const (
	DetailsAvailableInitial = "Resource is available"
	DetailsLocked           = "Resource locked"
	DetailsAvailable        = "Resource available"
	DetailsAutoExpiredPfx   = "Auto-expired at "
)

// Resource is a named, lockable automation endpoint. Identity fields are
// fixed at catalog load; only the lock fields ever change, and records are
// replaced wholesale under the store mutex rather than mutated in place.
type Resource struct {
	ID              int        `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Endpoint        string     `json:"endpoint"`
	Tags            string     `json:"tags"`
	MaxLockDuration int        `json:"max-lock-duration"`
	LockToken       string     `json:"lock-token"`
	LockDetails     string     `json:"lock-details"`
	LockAcquiredAt  *time.Time `json:"lock-acquired-at"`
	LockExpiresAt   *time.Time `json:"lock-expires-at"`
}

// IsLocked reports whether the resource currently carries a lock token.
func (r *Resource) IsLocked() bool {
	return r.LockToken != ""
}

// ParsedTags splits the comma separated tag declaration into a clean slice.
func (r *Resource) ParsedTags() []string {
	return ParseTags(r.Tags)
}

// HasTags reports whether every required tag is declared on the resource.
// An empty tag declaration never matches a non-empty requirement.
func (r *Resource) HasTags(required []string) bool {
	if len(required) == 0 {
		return false
	}
	declared := r.ParsedTags()
	if len(declared) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(declared))
	for _, tag := range declared {
		set[tag] = struct{}{}
	}
	for _, tag := range required {
		if _, ok := set[tag]; !ok {
			return false
		}
	}
	return true
}

// ParseTags splits a comma separated tag string, trimming whitespace and
// dropping empty entries.
func ParseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
