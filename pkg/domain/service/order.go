package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"orderservice/pkg/common/domain"
	"orderservice/pkg/domain/model"
)

const (
	maxUpdateAttempts = 3

	defaultUserPageLimit  = 10
	defaultAdminPageLimit = 20
	maxPageLimit          = 100
)

type OrderService interface {
	GetOrder(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.Order, error)
	ListOrders(ctx context.Context, actor model.Actor, filter model.OrderFilter) (*model.OrderPage, error)
	ListAllOrders(ctx context.Context, actor model.Actor, filter model.OrderFilter) (*model.OrderPage, error)
	Stats(ctx context.Context, actor model.Actor) (*model.OrderStats, error)

	// UpdateStatus applies an admin transition. Cancelling returns every line's
	// quantity to the catalog once the new status is stored.
	UpdateStatus(ctx context.Context, actor model.Actor, orderID uuid.UUID, status model.OrderStatus) (*model.Order, error)
}

func NewOrderService(
	repo model.OrderRepository,
	catalog CatalogAccessor,
	dispatcher domain.EventDispatcher,
	logger logrus.FieldLogger,
) OrderService {
	return &orderService{repo: repo, catalog: catalog, dispatcher: dispatcher, logger: logger}
}

type orderService struct {
	repo       model.OrderRepository
	catalog    CatalogAccessor
	dispatcher domain.EventDispatcher
	logger     logrus.FieldLogger
}

func (s *orderService) GetOrder(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.Order, error) {
	if !actor.Authenticated() {
		return nil, model.ErrUnauthorized
	}

	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order) {
		return nil, model.ErrForbidden
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, actor model.Actor, filter model.OrderFilter) (*model.OrderPage, error) {
	if !actor.Authenticated() {
		return nil, model.ErrUnauthorized
	}

	filter.UserID = &actor.UserID
	return s.list(ctx, normalizeFilter(filter, defaultUserPageLimit))
}

func (s *orderService) ListAllOrders(ctx context.Context, actor model.Actor, filter model.OrderFilter) (*model.OrderPage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	filter.UserID = nil
	return s.list(ctx, normalizeFilter(filter, defaultAdminPageLimit))
}

func (s *orderService) list(ctx context.Context, filter model.OrderFilter) (*model.OrderPage, error) {
	page, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	page.Page, page.Limit = filter.Page, filter.Limit
	return page, nil
}

func (s *orderService) Stats(ctx context.Context, actor model.Actor) (*model.OrderStats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repo.Stats(ctx)
}

func (s *orderService) UpdateStatus(ctx context.Context, actor model.Actor, orderID uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if _, ok := model.ParseOrderStatus(string(status)); !ok {
		verr := &model.ValidationError{}
		verr.Add("status", "must be one of pending, processing, shipped, delivered, cancelled")
		return nil, verr
	}

	var (
		order *model.Order
		from  model.OrderStatus
	)
	err := retryOnConflict(func() error {
		current, err := s.repo.Find(ctx, orderID)
		if err != nil {
			return err
		}
		from = current.Status

		if err := current.TransitionTo(status, time.Now().UTC()); err != nil {
			return err
		}
		if err := updateOrder(ctx, s.repo, current); err != nil {
			return err
		}
		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	events := []domain.Event{model.OrderStatusChanged{OrderID: order.ID, From: from, To: status}}
	if status == model.StatusCancelled {
		// Only the writer that stored the cancellation reaches this point, so
		// stock is released exactly once per order.
		releaseLines(ctx, s.catalog, linesToSteps(order.Lines))
		events = append(events, model.OrderCancelled{OrderID: order.ID, UserID: order.UserID})
	}

	s.logger.WithFields(logrus.Fields{
		"orderId": order.ID,
		"from":    from,
		"to":      status,
	}).Info("order status updated")

	dispatchEvents(s.dispatcher, s.logger, events...)
	return order, nil
}

func requireAdmin(actor model.Actor) error {
	if !actor.Authenticated() {
		return model.ErrUnauthorized
	}
	if !actor.Admin {
		return model.ErrForbidden
	}
	return nil
}

func normalizeFilter(filter model.OrderFilter, defaultLimit int) model.OrderFilter {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Page > model.MaxPage {
		filter.Page = model.MaxPage
	}
	if filter.Limit < 1 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}
	return filter
}

func linesToSteps(lines []model.OrderLine) []reservationStep {
	steps := make([]reservationStep, 0, len(lines))
	for _, line := range lines {
		steps = append(steps, reservationStep{productID: line.ProductID, quantity: line.Quantity})
	}
	return steps
}

// retryOnConflict reruns a read-modify-write cycle while the store reports a
// concurrent modification.
func retryOnConflict(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, model.ErrOptimisticLock) {
			return err
		}
	}
	return err
}

func updateOrder(ctx context.Context, repo model.OrderRepository, order *model.Order) error {
	order.Version++
	order.UpdatedAt = time.Now().UTC()
	return repo.Update(ctx, order)
}
