package model

import "github.com/google/uuid"

// Actor is the caller identity resolved by the transport layer.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

func (a Actor) Authenticated() bool {
	return a.UserID != uuid.Nil
}

func (a Actor) CanAccess(order *Order) bool {
	return a.Admin || order.IsOwnedBy(a.UserID)
}
