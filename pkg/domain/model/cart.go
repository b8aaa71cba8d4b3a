package model

import (
	"context"

	"github.com/google/uuid"
)

type CartRepository interface {
	Clear(ctx context.Context, userID uuid.UUID) error
}
