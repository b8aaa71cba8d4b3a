package mysql

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"orderservice/pkg/domain/model"
)

func NewProcessedEventRepository(db *sqlx.DB) model.ProcessedEventRepository {
	return &processedEventRepository{db: db}
}

type processedEventRepository struct {
	db *sqlx.DB
}

func (r *processedEventRepository) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM processed_gateway_event WHERE event_id = ?)`, eventID)
	if err != nil {
		return false, errors.Wrap(err, "failed to look up processed event")
	}
	return exists, nil
}

func (r *processedEventRepository) MarkProcessed(ctx context.Context, eventID string, kind model.GatewayEventKind) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT IGNORE INTO processed_gateway_event (event_id, event_kind, processed_at)
		VALUES (?, ?, ?)`, eventID, string(kind), time.Now().UTC())
	return errors.Wrap(err, "failed to record processed event")
}
