package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const compensationTimeout = 5 * time.Second

type reservationStep struct {
	productID uuid.UUID
	quantity  int
}

// reservationSaga remembers every reservation made for one checkout so a later
// failure can undo them.
type reservationSaga struct {
	catalog CatalogAccessor
	steps   []reservationStep
}

func newReservationSaga(catalog CatalogAccessor) *reservationSaga {
	return &reservationSaga{catalog: catalog}
}

func (s *reservationSaga) record(productID uuid.UUID, quantity int) {
	s.steps = append(s.steps, reservationStep{productID: productID, quantity: quantity})
}

// compensate releases recorded reservations in reverse order. It runs detached
// from the caller's cancellation so an expired request still rolls back.
func (s *reservationSaga) compensate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		// Release logs its own failures, compensation keeps going.
		_ = s.catalog.Release(ctx, step.productID, step.quantity)
	}
	s.steps = nil
}

func releaseLines(ctx context.Context, catalog CatalogAccessor, steps []reservationStep) {
	saga := &reservationSaga{catalog: catalog, steps: steps}
	saga.compensate(ctx)
}
