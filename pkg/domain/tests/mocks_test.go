package tests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"orderservice/pkg/common/domain"
	"orderservice/pkg/domain/model"
)

var _ model.ProductRepository = &mockProductRepository{}

type mockProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*model.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*model.Product)}
}

func (m *mockProductRepository) add(name string, price string, stock int) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New()
	m.products[id] = &model.Product{
		ID:     id,
		Name:   name,
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Active: true,
	}
	return id
}

func (m *mockProductRepository) stock(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func (m *mockProductRepository) soldCount(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].SoldCount
}

func (m *mockProductRepository) remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
}

func (m *mockProductRepository) Find(_ context.Context, id uuid.UUID) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, ok := m.products[id]
	if !ok {
		return nil, model.ErrProductNotFound
	}
	clone := *product
	return &clone, nil
}

func (m *mockProductRepository) Reserve(_ context.Context, id uuid.UUID, quantity int) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, ok := m.products[id]
	if !ok || !product.Active {
		return nil, model.ErrProductNotFound
	}
	if product.Stock < quantity {
		return nil, model.ErrInsufficientStock
	}

	product.Stock -= quantity
	product.SoldCount += quantity
	return &model.Reservation{ProductID: id, Name: product.Name, UnitPrice: product.Price, Quantity: quantity}, nil
}

func (m *mockProductRepository) Release(_ context.Context, id uuid.UUID, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, ok := m.products[id]
	if !ok {
		return model.ErrProductNotFound
	}
	product.Stock += quantity
	product.SoldCount -= quantity
	return nil
}

var _ model.OrderRepository = &mockOrderRepository{}

type mockOrderRepository struct {
	mu    sync.Mutex
	store map[uuid.UUID]*model.Order

	createErr     error
	conflictsLeft int

	// numberCollisions makes the next Create calls find their order number taken.
	numberCollisions int
	triedNumbers     []string
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{store: make(map[uuid.UUID]*model.Order)}
}

func (m *mockOrderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (m *mockOrderRepository) Create(_ context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	m.triedNumbers = append(m.triedNumbers, order.OrderNumber)
	if m.numberCollisions > 0 {
		m.numberCollisions--
		return model.ErrDuplicateOrderNumber
	}
	for _, stored := range m.store {
		if stored.OrderNumber == order.OrderNumber {
			return model.ErrDuplicateOrderNumber
		}
	}
	if _, exists := m.store[order.ID]; exists {
		return errors.New("order with this ID already exists")
	}
	stored := cloneOrder(order)
	m.store[order.ID] = stored
	return nil
}

func (m *mockOrderRepository) Find(_ context.Context, id uuid.UUID) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if order, ok := m.store[id]; ok {
		return cloneOrder(order), nil
	}
	return nil, model.ErrOrderNotFound
}

func (m *mockOrderRepository) Update(_ context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.store[order.ID]
	if !ok {
		return model.ErrOrderNotFound
	}
	if m.conflictsLeft > 0 {
		m.conflictsLeft--
		existing.Version++
		return model.ErrOptimisticLock
	}
	if existing.Version != order.Version-1 {
		return model.ErrOptimisticLock
	}

	m.store[order.ID] = cloneOrder(order)
	return nil
}

func (m *mockOrderRepository) List(_ context.Context, filter model.OrderFilter) (*model.OrderPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []model.Order
	for _, order := range m.store {
		if filter.UserID != nil && order.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		matched = append(matched, *cloneOrder(order))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	page := &model.OrderPage{Total: len(matched)}
	start := filter.Offset()
	if start < len(matched) {
		end := start + filter.Limit
		if end > len(matched) {
			end = len(matched)
		}
		page.Orders = matched[start:end]
	}
	return page, nil
}

func (m *mockOrderRepository) Stats(_ context.Context) (*model.OrderStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &model.OrderStats{CountByStatus: make(map[model.OrderStatus]int), TotalRevenue: decimal.Zero}
	paid := 0
	for _, order := range m.store {
		stats.TotalOrders++
		stats.CountByStatus[order.Status]++
		if order.Paid() {
			paid++
			stats.TotalRevenue = stats.TotalRevenue.Add(order.Totals.Total)
		}
	}
	stats.AverageOrderValue = decimal.Zero
	if paid > 0 {
		stats.AverageOrderValue = stats.TotalRevenue.Div(decimal.NewFromInt(int64(paid))).Round(2)
	}
	return stats, nil
}

func (m *mockOrderRepository) put(order *model.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[order.ID] = cloneOrder(order)
}

func (m *mockOrderRepository) get(id uuid.UUID) *model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneOrder(m.store[id])
}

func (m *mockOrderRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

func cloneOrder(order *model.Order) *model.Order {
	if order == nil {
		return nil
	}
	clone := *order
	clone.Lines = append([]model.OrderLine(nil), order.Lines...)
	return &clone
}

var _ model.CartRepository = &mockCartRepository{}

type mockCartRepository struct {
	mu      sync.Mutex
	cleared []uuid.UUID
	err     error
}

func (m *mockCartRepository) Clear(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.cleared = append(m.cleared, userID)
	return nil
}

var _ model.ProcessedEventRepository = &mockProcessedEventRepository{}

type mockProcessedEventRepository struct {
	mu     sync.Mutex
	events map[string]model.GatewayEventKind
}

func newMockProcessedEventRepository() *mockProcessedEventRepository {
	return &mockProcessedEventRepository{events: make(map[string]model.GatewayEventKind)}
}

func (m *mockProcessedEventRepository) IsProcessed(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.events[eventID]
	return ok, nil
}

func (m *mockProcessedEventRepository) MarkProcessed(_ context.Context, eventID string, kind model.GatewayEventKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[eventID] = kind
	return nil
}

const validSignature = "t=1,v1=valid"

var _ model.PaymentGateway = &mockPaymentGateway{}

// mockPaymentGateway treats the payload as an event id registered through on().
type mockPaymentGateway struct {
	mu       sync.Mutex
	events   map[string]model.GatewayEvent
	intents  []model.PaymentIntentRequest
	sessions []model.CheckoutSessionRequest
}

func newMockPaymentGateway() *mockPaymentGateway {
	return &mockPaymentGateway{events: make(map[string]model.GatewayEvent)}
}

func (m *mockPaymentGateway) on(event model.GatewayEvent) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ID] = event
	return []byte(event.ID)
}

func (m *mockPaymentGateway) CreateIntent(_ context.Context, req model.PaymentIntentRequest) (*model.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents = append(m.intents, req)
	return &model.PaymentIntent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

func (m *mockPaymentGateway) CreateCheckoutSession(_ context.Context, req model.CheckoutSessionRequest) (*model.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, req)
	return &model.CheckoutSession{ID: "cs_test", URL: "https://checkout.test/cs_test"}, nil
}

func (m *mockPaymentGateway) VerifyAndParseEvent(payload []byte, signatureHeader, secret string) (*model.GatewayEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if signatureHeader != validSignature || secret == "" {
		return nil, model.ErrInvalidSignature
	}
	event, ok := m.events[string(payload)]
	if !ok {
		return &model.GatewayEvent{ID: string(payload), Kind: "customer.created"}, nil
	}
	return &event, nil
}

var _ domain.EventDispatcher = &mockEventDispatcher{}

type mockEventDispatcher struct {
	mu     sync.Mutex
	events []domain.Event
	delay  time.Duration
}

func (m *mockEventDispatcher) Dispatch(event domain.Event) error {
	time.Sleep(m.delay)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventDispatcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func (m *mockEventDispatcher) ofType(eventType string) []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	var found []domain.Event
	for _, event := range m.events {
		if event.Type() == eventType {
			found = append(found, event)
		}
	}
	return found
}
