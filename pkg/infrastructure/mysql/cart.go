package mysql

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"orderservice/pkg/domain/model"
)

func NewCartRepository(db *sqlx.DB) model.CartRepository {
	return &cartRepository{db: db}
}

type cartRepository struct {
	db *sqlx.DB
}

func (r *cartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_item WHERE user_id = ?`, userID)
	return errors.Wrap(err, "failed to clear cart")
}
