package transport

import (
	"errors"
	"net/http"

	"orderservice/pkg/domain/model"
)

type errorKind struct {
	target error
	kind   string
	status int
}

var errorKinds = []errorKind{
	{model.ErrValidationFailed, "VALIDATION_FAILED", http.StatusBadRequest},
	{model.ErrEmptyOrder, "EMPTY_ORDER", http.StatusBadRequest},
	{model.ErrInvalidSignature, "INVALID_SIGNATURE", http.StatusBadRequest},
	{model.ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized},
	{model.ErrForbidden, "FORBIDDEN", http.StatusForbidden},
	{model.ErrProductNotFound, "NOT_FOUND", http.StatusNotFound},
	{model.ErrOrderNotFound, "NOT_FOUND", http.StatusNotFound},
	{model.ErrInsufficientStock, "INSUFFICIENT_STOCK", http.StatusConflict},
	{model.ErrInvalidStatusTransition, "INVALID_STATUS_TRANSITION", http.StatusConflict},
	{model.ErrOptimisticLock, "CONFLICT", http.StatusConflict},
	{model.ErrPaymentNotAllowed, "PAYMENT_NOT_ALLOWED", http.StatusConflict},
}

const (
	kindInternal   = "INTERNAL"
	kindOK         = "OK"
	internalErrMsg = "internal server error"
)

type errorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorBody struct {
	Kind    string        `json:"kind"`
	Message string        `json:"message"`
	Details []errorDetail `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// classify maps a domain error to its stable kind. Unknown errors become
// INTERNAL and their text is not exposed.
func classify(err error) (errorBody, int) {
	for _, k := range errorKinds {
		if !errors.Is(err, k.target) {
			continue
		}
		body := errorBody{Kind: k.kind, Message: err.Error()}
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			body.Message = model.ErrValidationFailed.Error()
			for _, f := range verr.Fields {
				body.Details = append(body.Details, errorDetail{Field: f.Field, Message: f.Message})
			}
		}
		if k.target == model.ErrInvalidSignature {
			body.Message = model.ErrInvalidSignature.Error()
		}
		return body, k.status
	}
	return errorBody{Kind: kindInternal, Message: internalErrMsg}, http.StatusInternalServerError
}
