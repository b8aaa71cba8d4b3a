package transport

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"orderservice/pkg/domain/model"
)

const (
	signatureHeader    = "Stripe-Signature"
	maxWebhookBodySize = 65536
)

func (h *handler) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var body orderPaymentRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, "", err)
		return
	}
	orderID, err := bodyOrderID(body)
	if err != nil {
		h.writeError(w, r, "", err)
		return
	}

	intent, err := h.services.Payments.CreatePaymentIntent(r.Context(), actorFromRequest(r), orderID)
	if err != nil {
		h.writeError(w, r, "", err)
		return
	}
	h.writeJSON(w, http.StatusOK, paymentIntentResponse{ClientSecret: intent.ClientSecret, PaymentIntentID: intent.ID})
}

func (h *handler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var body orderPaymentRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, "", err)
		return
	}
	orderID, err := bodyOrderID(body)
	if err != nil {
		h.writeError(w, r, "", err)
		return
	}

	session, err := h.services.Payments.CreateCheckoutSession(r.Context(), actorFromRequest(r), orderID, body.SuccessURL, body.CancelURL)
	if err != nil {
		h.writeError(w, r, "", err)
		return
	}
	h.writeJSON(w, http.StatusOK, checkoutSessionResponse{SessionID: session.ID, URL: session.URL})
}

func (h *handler) paymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "orderId")
	if !ok {
		h.writeError(w, r, "", model.ErrOrderNotFound)
		return
	}

	order, err := h.services.Payments.PaymentStatus(r.Context(), actorFromRequest(r), orderID)
	if err != nil {
		h.writeError(w, r, "", err)
		return
	}
	h.writeJSON(w, http.StatusOK, paymentStatusResponse{
		PaymentStatus: string(order.Payment.Status),
		OrderStatus:   string(order.Status),
		TransactionID: order.Payment.TransactionID,
		PaidAt:        order.Payment.PaidAt,
	})
}

// paymentWebhook must see the body exactly as sent; the signature covers raw bytes.
func (h *handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			verr := &model.ValidationError{}
			verr.Add("body", "exceeds the maximum webhook size")
			h.writeError(w, r, opWebhook, verr)
			return
		}
		h.writeError(w, r, opWebhook, err)
		return
	}

	if err := h.services.Webhooks.Reconcile(r.Context(), payload, r.Header.Get(signatureHeader)); err != nil {
		h.writeError(w, r, opWebhook, err)
		return
	}

	h.recordOutcome(opWebhook, kindOK)
	h.writeJSON(w, http.StatusOK, webhookResponse{Received: true})
}

func bodyOrderID(body orderPaymentRequest) (uuid.UUID, error) {
	if body.OrderID == "" {
		verr := &model.ValidationError{}
		verr.Add("orderId", "is required")
		return uuid.Nil, verr
	}
	orderID, err := uuid.Parse(body.OrderID)
	if err != nil {
		return uuid.Nil, model.ErrOrderNotFound
	}
	return orderID, nil
}
