package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"orderservice/pkg/domain/model"
)

func NewProductRepository(db *sqlx.DB) model.ProductRepository {
	return &productRepository{db: db}
}

type productRepository struct {
	db *sqlx.DB
}

type sqlxProduct struct {
	ID        uuid.UUID       `db:"product_id"`
	Name      string          `db:"name"`
	Price     decimal.Decimal `db:"price"`
	Stock     int             `db:"stock"`
	SoldCount int             `db:"sold_count"`
	Active    bool            `db:"is_active"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (r *productRepository) Find(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p sqlxProduct
	err := r.db.GetContext(ctx, &p, `
		SELECT product_id, name, price, stock, sold_count, is_active, created_at, updated_at
		FROM product WHERE product_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrProductNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find product")
	}

	return &model.Product{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
		SoldCount: p.SoldCount,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

// Reserve relies on the conditional UPDATE for atomicity: the row lock it takes
// also keeps name and price stable for the read that follows in the same transaction.
func (r *productRepository) Reserve(ctx context.Context, id uuid.UUID, quantity int) (*model.Reservation, error) {
	var reservation *model.Reservation
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE product
			SET stock = stock - ?, sold_count = sold_count + ?, updated_at = ?
			WHERE product_id = ? AND is_active = 1 AND stock >= ?`,
			quantity, quantity, time.Now().UTC(), id, quantity)
		if err != nil {
			return errors.Wrap(err, "failed to reserve stock")
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "failed to reserve stock")
		}
		if affected == 0 {
			return reserveFailure(ctx, tx, id)
		}

		var snapshot struct {
			Name  string          `db:"name"`
			Price decimal.Decimal `db:"price"`
		}
		if err := tx.GetContext(ctx, &snapshot, `SELECT name, price FROM product WHERE product_id = ?`, id); err != nil {
			return errors.Wrap(err, "failed to read reserved product")
		}

		reservation = &model.Reservation{
			ProductID: id,
			Name:      snapshot.Name,
			UnitPrice: snapshot.Price,
			Quantity:  quantity,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

func (r *productRepository) Release(ctx context.Context, id uuid.UUID, quantity int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE product
		SET stock = stock + ?, sold_count = IF(sold_count >= ?, sold_count - ?, 0), updated_at = ?
		WHERE product_id = ?`,
		quantity, quantity, quantity, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "failed to release stock")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to release stock")
	}
	if affected == 0 {
		return model.ErrProductNotFound
	}
	return nil
}

func reserveFailure(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	var active bool
	err := tx.GetContext(ctx, &active, `SELECT is_active FROM product WHERE product_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrProductNotFound
	}
	if err != nil {
		return errors.Wrap(err, "failed to inspect product")
	}
	if !active {
		return model.ErrProductNotFound
	}
	return model.ErrInsufficientStock
}
