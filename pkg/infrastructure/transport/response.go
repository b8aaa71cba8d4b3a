package transport

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"orderservice/pkg/domain/model"
)

const maxBodyBytes = 1 << 20

func (h *handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.WithError(err).Error("write response")
	}
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	body, status := classify(err)
	h.recordOutcome(operation, body.Kind)

	entry := h.logger.WithFields(logrus.Fields{
		"operation": operation,
		"kind":      body.Kind,
		"url":       r.URL.String(),
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}

	h.writeJSON(w, status, errorResponse{Error: body})
}

func (h *handler) recordOutcome(operation, kind string) {
	if h.metrics == nil || operation == "" {
		return
	}
	h.metrics.Outcomes.WithLabelValues(operation, kind).Inc()
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		verr := &model.ValidationError{}
		verr.Add("body", "must be a valid JSON document")
		return verr
	}
	return nil
}
