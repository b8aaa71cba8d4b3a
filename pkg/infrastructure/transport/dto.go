package transport

import (
	"time"

	"github.com/shopspring/decimal"

	"orderservice/pkg/domain/model"
)

type addressDTO struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country,omitempty"`
}

type createOrderRequest struct {
	Items []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	ShippingAddress addressDTO `json:"shippingAddress"`
	PaymentMethod   string     `json:"paymentMethod"`
	Notes           string     `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderPaymentRequest struct {
	OrderID    string `json:"orderId"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

type orderLineDTO struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"price"`
}

type paymentInfoDTO struct {
	Method        string     `json:"method"`
	Status        string     `json:"status"`
	TransactionID string     `json:"transactionId,omitempty"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
}

type orderResponse struct {
	ID              string         `json:"id"`
	OrderNumber     string         `json:"orderNumber"`
	UserID          string         `json:"userId"`
	Items           []orderLineDTO `json:"items"`
	ShippingAddress addressDTO     `json:"shippingAddress"`
	PaymentInfo     paymentInfoDTO `json:"paymentInfo"`
	Subtotal        string         `json:"subtotal"`
	Tax             string         `json:"tax"`
	ShippingCost    string         `json:"shippingCost"`
	TotalAmount     string         `json:"totalAmount"`
	OrderStatus     string         `json:"orderStatus"`
	Notes           string         `json:"notes,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	ShippedAt       *time.Time     `json:"shippedAt,omitempty"`
	DeliveredAt     *time.Time     `json:"deliveredAt,omitempty"`
	CancelledAt     *time.Time     `json:"cancelledAt,omitempty"`
}

type paginationDTO struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	Pagination paginationDTO   `json:"pagination"`
}

type statsResponse struct {
	TotalOrders       int    `json:"totalOrders"`
	PendingOrders     int    `json:"pendingOrders"`
	ProcessingOrders  int    `json:"processingOrders"`
	ShippedOrders     int    `json:"shippedOrders"`
	DeliveredOrders   int    `json:"deliveredOrders"`
	CancelledOrders   int    `json:"cancelledOrders"`
	TotalRevenue      string `json:"totalRevenue"`
	AverageOrderValue string `json:"averageOrderValue"`
}

type paymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

type checkoutSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type paymentStatusResponse struct {
	PaymentStatus string     `json:"paymentStatus"`
	OrderStatus   string     `json:"orderStatus"`
	TransactionID string     `json:"transactionId,omitempty"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
}

type webhookResponse struct {
	Received bool `json:"received"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toOrderResponse(order *model.Order) orderResponse {
	items := make([]orderLineDTO, 0, len(order.Lines))
	for _, line := range order.Lines {
		items = append(items, orderLineDTO{
			ProductID: line.ProductID.String(),
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: money(line.UnitPrice),
		})
	}

	address := order.ShippingAddress
	return orderResponse{
		ID:          order.ID.String(),
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID.String(),
		Items:       items,
		ShippingAddress: addressDTO{
			Name:    address.Name,
			Email:   address.Email,
			Phone:   address.Phone,
			Street:  address.Street,
			City:    address.City,
			State:   address.State,
			Zip:     address.Zip,
			Country: address.Country,
		},
		PaymentInfo: paymentInfoDTO{
			Method:        order.Payment.Method,
			Status:        string(order.Payment.Status),
			TransactionID: order.Payment.TransactionID,
			PaidAt:        order.Payment.PaidAt,
		},
		Subtotal:     money(order.Totals.Subtotal),
		Tax:          money(order.Totals.Tax),
		ShippingCost: money(order.Totals.ShippingCost),
		TotalAmount:  money(order.Totals.Total),
		OrderStatus:  string(order.Status),
		Notes:        order.Notes,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
		ShippedAt:    order.ShippedAt,
		DeliveredAt:  order.DeliveredAt,
		CancelledAt:  order.CancelledAt,
	}
}

func toOrderList(page *model.OrderPage) orderListResponse {
	orders := make([]orderResponse, 0, len(page.Orders))
	for i := range page.Orders {
		orders = append(orders, toOrderResponse(&page.Orders[i]))
	}

	pages := 0
	if page.Limit > 0 {
		pages = (page.Total + page.Limit - 1) / page.Limit
	}
	return orderListResponse{
		Orders: orders,
		Pagination: paginationDTO{
			Page:  page.Page,
			Limit: page.Limit,
			Total: page.Total,
			Pages: pages,
		},
	}
}

func toStatsResponse(stats *model.OrderStats) statsResponse {
	return statsResponse{
		TotalOrders:       stats.TotalOrders,
		PendingOrders:     stats.CountByStatus[model.StatusPending],
		ProcessingOrders:  stats.CountByStatus[model.StatusProcessing],
		ShippedOrders:     stats.CountByStatus[model.StatusShipped],
		DeliveredOrders:   stats.CountByStatus[model.StatusDelivered],
		CancelledOrders:   stats.CountByStatus[model.StatusCancelled],
		TotalRevenue:      money(stats.TotalRevenue),
		AverageOrderValue: money(stats.AverageOrderValue),
	}
}
