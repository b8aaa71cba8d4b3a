package transport

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"orderservice/pkg/domain/model"
	"orderservice/pkg/domain/service"
)

const (
	opCheckout     = "checkout"
	opUpdateStatus = "update_status"
	opWebhook      = "webhook"
)

func (h *handler) createOrder(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	if !actor.Authenticated() {
		h.writeError(w, r, opCheckout, model.ErrUnauthorized)
		return
	}

	var body createOrderRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, opCheckout, err)
		return
	}

	req, err := toCheckoutRequest(actor, body)
	if err != nil {
		h.writeError(w, r, opCheckout, err)
		return
	}

	order, err := h.services.Checkout.PlaceOrder(r.Context(), req)
	if err != nil {
		h.writeError(w, r, opCheckout, err)
		return
	}

	h.recordOutcome(opCheckout, kindOK)
	h.writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func toCheckoutRequest(actor model.Actor, body createOrderRequest) (service.CheckoutRequest, error) {
	verr := &model.ValidationError{}
	items := make([]service.CheckoutItem, 0, len(body.Items))
	for i, item := range body.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil && item.ProductID != "" {
			verr.Add(fmt.Sprintf("items[%d].productId", i), "must be a valid id")
		}
		items = append(items, service.CheckoutItem{ProductID: productID, Quantity: item.Quantity})
	}
	if err := verr.Err(); err != nil {
		return service.CheckoutRequest{}, err
	}

	address := body.ShippingAddress
	return service.CheckoutRequest{
		UserID: actor.UserID,
		Items:  items,
		ShippingAddress: model.ShippingAddress{
			Name:    address.Name,
			Email:   address.Email,
			Phone:   address.Phone,
			Street:  address.Street,
			City:    address.City,
			State:   address.State,
			Zip:     address.Zip,
			Country: address.Country,
		},
		PaymentMethod: body.PaymentMethod,
		Notes:         body.Notes,
	}, nil
}

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "id")
	if !ok {
		h.writeError(w, r, "", model.ErrOrderNotFound)
		return
	}

	order, err := h.services.Orders.GetOrder(r.Context(), actorFromRequest(r), orderID)
	if err != nil {
		h.writeError(w, r, "", err)
		return
	}
	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		h.writeError(w, r, "", err)
		return
	}

	page, err := h.services.Orders.ListOrders(r.Context(), actorFromRequest(r), filter)
	if err != nil {
		h.writeError(w, r, "", err)
		return
	}
	h.writeJSON(w, http.StatusOK, toOrderList(page))
}

func (h *handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		h.writeError(w, r, "", err)
		return
	}

	page, err := h.services.Orders.ListAllOrders(r.Context(), actorFromRequest(r), filter)
	if err != nil {
		h.writeError(w, r, "", err)
		return
	}
	h.writeJSON(w, http.StatusOK, toOrderList(page))
}

func (h *handler) orderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.services.Orders.Stats(r.Context(), actorFromRequest(r))
	if err != nil {
		h.writeError(w, r, "", err)
		return
	}
	h.writeJSON(w, http.StatusOK, toStatsResponse(stats))
}

func (h *handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "id")
	if !ok {
		h.writeError(w, r, opUpdateStatus, model.ErrOrderNotFound)
		return
	}

	var body updateStatusRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, opUpdateStatus, err)
		return
	}

	order, err := h.services.Orders.UpdateStatus(r.Context(), actorFromRequest(r), orderID, model.OrderStatus(body.Status))
	if err != nil {
		h.writeError(w, r, opUpdateStatus, err)
		return
	}

	h.recordOutcome(opUpdateStatus, kindOK)
	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func filterFromQuery(r *http.Request) (model.OrderFilter, error) {
	query := r.URL.Query()
	verr := &model.ValidationError{}
	var filter model.OrderFilter

	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			verr.Add("page", "must be a number")
		case page > model.MaxPage:
			verr.Add("page", fmt.Sprintf("must not exceed %d", model.MaxPage))
		}
		filter.Page = page
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			verr.Add("limit", "must be a number")
		}
		filter.Limit = limit
	}
	if raw := query.Get("status"); raw != "" {
		status, ok := model.ParseOrderStatus(raw)
		if !ok {
			verr.Add("status", "is not a known order status")
		}
		filter.Status = &status
	}

	return filter, verr.Err()
}
