package event

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderservice/pkg/domain/model"
)

func TestEncode(t *testing.T) {
	orderID := uuid.New()
	event := model.OrderPaid{OrderID: orderID, TransactionID: "pi_1", Amount: decimal.RequireFromString("64.00")}

	msg, err := encode(event)

	require.NoError(t, err)
	assert.Equal(t, orderID.String(), msg.key)

	var decoded struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Payload struct {
			OrderID       string `json:"orderId"`
			TransactionID string `json:"transactionId"`
			Amount        string `json:"amount"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.body, &decoded))
	assert.Equal(t, "OrderPaid", decoded.Type)
	assert.NotEmpty(t, decoded.ID)
	assert.Equal(t, orderID.String(), decoded.Payload.OrderID)
	assert.Equal(t, "pi_1", decoded.Payload.TransactionID)
	assert.Equal(t, "64", decoded.Payload.Amount)
}

func TestEncodeKeysStockEventsByProduct(t *testing.T) {
	productID := uuid.New()

	msg, err := encode(model.StockReleased{ProductID: productID, Quantity: 2})

	require.NoError(t, err)
	assert.Equal(t, productID.String(), msg.key)
}

func TestLogDispatcher(t *testing.T) {
	logger, hook := test.NewNullLogger()
	dispatcher := NewLogDispatcher(logger)

	require.NoError(t, dispatcher.Dispatch(model.OrderCancelled{OrderID: uuid.New(), UserID: uuid.New()}))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "OrderCancelled", entry.Data["eventType"])
}

func TestKafkaWriter(t *testing.T) {
	t.Run("Flushes without waiting for a full batch", func(t *testing.T) {
		writer, err := newKafkaWriter(" broker-1:9092, ,broker-2:9092", "orders")

		require.NoError(t, err)
		assert.Equal(t, batchTimeout, writer.BatchTimeout)
		assert.Equal(t, "broker-1:9092,broker-2:9092", writer.Addr.String())
		assert.Equal(t, "orders", writer.Topic)
	})

	t.Run("Fail without brokers", func(t *testing.T) {
		_, err := newKafkaWriter(" , ", "orders")
		assert.Error(t, err)
	})
}
