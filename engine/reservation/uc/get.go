package uc

import (
	"context"

	"github.com/rentabot/rentabot/engine/reservation"
)

// Get returns a reservation with its computed queue position.
type Get struct {
	reservations *reservation.Store
	id           string
}

func NewGet(reservations *reservation.Store, id string) *Get {
	return &Get{reservations: reservations, id: id}
}

func (uc *Get) Execute(_ context.Context) (*reservation.Reservation, error) {
	r, err := uc.reservations.Get(uc.id)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns all reservations, positions filled for pending ones.
type List struct {
	reservations *reservation.Store
}

func NewList(reservations *reservation.Store) *List {
	return &List{reservations: reservations}
}

func (uc *List) Execute(_ context.Context) ([]reservation.Reservation, error) {
	return uc.reservations.List(), nil
}
