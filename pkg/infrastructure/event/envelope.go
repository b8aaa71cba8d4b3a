package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"orderservice/pkg/common/domain"
)

const publishTimeout = 5 * time.Second

type envelope struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

type message struct {
	envelope
	key  string
	body []byte
}

func encode(event domain.Event) (*message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s", event.Type())
	}

	env := envelope{
		ID:         uuid.New(),
		Type:       event.Type(),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s envelope", event.Type())
	}

	return &message{envelope: env, key: aggregateKey(payload), body: body}, nil
}

// aggregateKey keeps events of one order (or product) on one partition.
func aggregateKey(payload []byte) string {
	var ids struct {
		OrderID   string `json:"orderId"`
		ProductID string `json:"productId"`
	}
	if err := json.Unmarshal(payload, &ids); err != nil {
		return ""
	}
	if ids.OrderID != "" {
		return ids.OrderID
	}
	return ids.ProductID
}
