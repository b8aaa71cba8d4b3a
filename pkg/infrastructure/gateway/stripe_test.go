package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderservice/pkg/domain/model"
)

const testSecret = "whsec_test_secret"

func sign(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", at.Unix(), payload)))
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyAndParseEvent(t *testing.T) {
	gateway := NewStripeGateway("sk_test")

	t.Run("Payment intent succeeded", func(t *testing.T) {
		payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded",
			"data":{"object":{"id":"pi_1","object":"payment_intent","metadata":{"orderId":"0b9c3b4e-7a43-4a5b-9f0e-0f3c8d2f1a11"}}}}`)

		event, err := gateway.VerifyAndParseEvent(payload, sign(payload, testSecret, time.Now()), testSecret)

		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.ID)
		assert.Equal(t, model.EventPaymentIntentSucceeded, event.Kind)
		assert.Equal(t, "0b9c3b4e-7a43-4a5b-9f0e-0f3c8d2f1a11", event.OrderID)
		assert.Equal(t, "pi_1", event.TransactionID)
		assert.True(t, event.IsPaymentSuccess())
	})

	t.Run("Checkout session completed", func(t *testing.T) {
		payload := []byte(`{"id":"evt_2","object":"event","type":"checkout.session.completed",
			"data":{"object":{"id":"cs_1","object":"checkout.session","payment_intent":"pi_2","metadata":{"orderId":"order-2"}}}}`)

		event, err := gateway.VerifyAndParseEvent(payload, sign(payload, testSecret, time.Now()), testSecret)

		require.NoError(t, err)
		assert.Equal(t, model.EventCheckoutSessionCompleted, event.Kind)
		assert.Equal(t, "order-2", event.OrderID)
		assert.Equal(t, "pi_2", event.TransactionID)
	})

	t.Run("Other event kinds pass through", func(t *testing.T) {
		payload := []byte(`{"id":"evt_3","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)

		event, err := gateway.VerifyAndParseEvent(payload, sign(payload, testSecret, time.Now()), testSecret)

		require.NoError(t, err)
		assert.False(t, event.IsPaymentSuccess())
		assert.Empty(t, event.OrderID)
	})
}

func TestVerifyAndParseEventRejectsBadSignatures(t *testing.T) {
	gateway := NewStripeGateway("sk_test")
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)

	testCases := []struct {
		name      string
		payload   []byte
		signature string
	}{
		{"Wrong secret", payload, sign(payload, "whsec_other", time.Now())},
		{"Tampered payload", []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_2"}}}`), sign(payload, testSecret, time.Now())},
		{"Expired timestamp", payload, sign(payload, testSecret, time.Now().Add(-time.Hour))},
		{"Missing header", payload, ""},
		{"Garbage header", payload, "not-a-signature"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := gateway.VerifyAndParseEvent(tc.payload, tc.signature, testSecret)
			assert.ErrorIs(t, err, model.ErrInvalidSignature)
		})
	}
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(12960), toMinorUnits(decimal.RequireFromString("129.60")))
	assert.Equal(t, int64(6400), toMinorUnits(decimal.RequireFromString("64")))
	assert.Equal(t, int64(1), toMinorUnits(decimal.RequireFromString("0.005")))
	assert.Equal(t, int64(0), toMinorUnits(decimal.Zero))
}
