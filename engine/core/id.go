package core

import "github.com/google/uuid"

// ReservationIDPrefix marks reservation identifiers on the wire.
const ReservationIDPrefix = "res_"

// NewLockToken returns a fresh opaque lock token. Tokens are only ever
// compared for equality, a v4 UUID is enough for collision resistance.
func NewLockToken() string {
	return uuid.NewString()
}

// NewReservationID returns a fresh reservation identifier.
func NewReservationID() string {
	return ReservationIDPrefix + uuid.NewString()
}
