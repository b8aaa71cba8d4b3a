package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"orderservice/pkg/common/domain"
	"orderservice/pkg/domain/model"
)

type CatalogAccessor interface {
	// Reserve publishes nothing. The caller announces StockReserved once the
	// reservation is bound to a stored order.
	Reserve(ctx context.Context, productID uuid.UUID, quantity int) (*model.Reservation, error)
	// Release returns stock taken by Reserve. A product that no longer exists is
	// logged and skipped; other failures are logged and returned for visibility only.
	Release(ctx context.Context, productID uuid.UUID, quantity int) error
}

func NewCatalogAccessor(repo model.ProductRepository, dispatcher domain.EventDispatcher, logger logrus.FieldLogger) CatalogAccessor {
	return &catalogAccessor{repo: repo, dispatcher: dispatcher, logger: logger}
}

type catalogAccessor struct {
	repo       model.ProductRepository
	dispatcher domain.EventDispatcher
	logger     logrus.FieldLogger
}

func (c *catalogAccessor) Reserve(ctx context.Context, productID uuid.UUID, quantity int) (*model.Reservation, error) {
	if quantity <= 0 {
		verr := &model.ValidationError{}
		verr.Add("quantity", "must be at least 1")
		return nil, verr
	}

	return c.repo.Reserve(ctx, productID, quantity)
}

func (c *catalogAccessor) Release(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return nil
	}

	log := c.logger.WithFields(logrus.Fields{"productId": productID, "quantity": quantity})
	err := c.repo.Release(ctx, productID, quantity)
	if errors.Is(err, model.ErrProductNotFound) {
		log.Warn("product no longer exists, stock release skipped")
		return nil
	}
	if err != nil {
		log.WithError(err).Error("failed to release stock")
		return err
	}

	dispatchEvents(c.dispatcher, c.logger, model.StockReleased{ProductID: productID, Quantity: quantity})
	return nil
}
