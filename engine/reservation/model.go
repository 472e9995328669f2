package reservation

import "time"

// Status is the reservation lifecycle state. Expired and cancelled are
// terminal transitions that delete the record rather than stored states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
	StatusClaimed   Status = "claimed"
)

// Defaults applied when a create request omits a value.
const (
	DefaultMaxWaitTime = 3600
	DefaultTTL         = 3600
)

// DefaultClaimWindow is how long a fulfilled reservation waits to be
// claimed before the scheduler reclaims its resources.
const DefaultClaimWindow = 60 * time.Second

// Reservation is a deferred batch lock request on tag-matching resources.
type Reservation struct {
	ReservationID   string     `json:"reservation_id"`
	Status          Status     `json:"status"`
	Tags            []string   `json:"tags"`
	Quantity        int        `json:"quantity"`
	TTL             int        `json:"ttl"`
	PositionInQueue *int       `json:"position_in_queue,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	FulfilledAt     *time.Time `json:"fulfilled_at,omitempty"`
	ClaimExpiresAt  *time.Time `json:"claim_expires_at,omitempty"`
	ClaimedAt       *time.Time `json:"claimed_at,omitempty"`
	ResourceIDs     []int      `json:"resource_ids"`
	LockTokens      []string   `json:"lock_tokens"`

	// seq breaks created_at ties for FIFO ordering; not serialized.
	seq uint64
}

// IsPending reports whether the reservation is still queued.
func (r *Reservation) IsPending() bool {
	return r.Status == StatusPending
}
