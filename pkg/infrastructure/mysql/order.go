package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"orderservice/pkg/domain/model"
)

const orderColumns = `
	order_id, order_number, user_id,
	ship_name, ship_email, ship_phone, ship_street, ship_city, ship_state, ship_zip, ship_country,
	payment_method, payment_status, transaction_id, paid_at,
	subtotal, tax, shipping_cost, total_amount,
	status, notes, version, created_at, updated_at, shipped_at, delivered_at, cancelled_at`

func NewOrderRepository(db *sqlx.DB) model.OrderRepository {
	return &orderRepository{db: db}
}

type orderRepository struct {
	db *sqlx.DB
}

type sqlxOrder struct {
	ID            uuid.UUID       `db:"order_id"`
	OrderNumber   string          `db:"order_number"`
	UserID        uuid.UUID       `db:"user_id"`
	ShipName      string          `db:"ship_name"`
	ShipEmail     string          `db:"ship_email"`
	ShipPhone     string          `db:"ship_phone"`
	ShipStreet    string          `db:"ship_street"`
	ShipCity      string          `db:"ship_city"`
	ShipState     string          `db:"ship_state"`
	ShipZip       string          `db:"ship_zip"`
	ShipCountry   string          `db:"ship_country"`
	PaymentMethod string          `db:"payment_method"`
	PaymentStatus string          `db:"payment_status"`
	TransactionID sql.NullString  `db:"transaction_id"`
	PaidAt        *time.Time      `db:"paid_at"`
	Subtotal      decimal.Decimal `db:"subtotal"`
	Tax           decimal.Decimal `db:"tax"`
	ShippingCost  decimal.Decimal `db:"shipping_cost"`
	TotalAmount   decimal.Decimal `db:"total_amount"`
	Status        string          `db:"status"`
	Notes         sql.NullString  `db:"notes"`
	Version       int             `db:"version"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
	ShippedAt     *time.Time      `db:"shipped_at"`
	DeliveredAt   *time.Time      `db:"delivered_at"`
	CancelledAt   *time.Time      `db:"cancelled_at"`
}

type sqlxOrderItem struct {
	OrderID   uuid.UUID       `db:"order_id"`
	LineNo    int             `db:"line_no"`
	ProductID uuid.UUID       `db:"product_id"`
	Name      string          `db:"name"`
	Quantity  int             `db:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price"`
}

func (r *orderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	row := fromOrder(order)
	items := fromLines(order)

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `INSERT INTO customer_order (`+orderColumns+`) VALUES (
			:order_id, :order_number, :user_id,
			:ship_name, :ship_email, :ship_phone, :ship_street, :ship_city, :ship_state, :ship_zip, :ship_country,
			:payment_method, :payment_status, :transaction_id, :paid_at,
			:subtotal, :tax, :shipping_cost, :total_amount,
			:status, :notes, :version, :created_at, :updated_at, :shipped_at, :delivered_at, :cancelled_at)`, row)
		if isDuplicateKey(err, orderNumberKey) {
			return model.ErrDuplicateOrderNumber
		}
		if err != nil {
			return errors.Wrap(err, "failed to insert order")
		}
		if len(items) == 0 {
			return nil
		}

		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO order_item (order_id, line_no, product_id, name, quantity, unit_price)
			VALUES (:order_id, :line_no, :product_id, :name, :quantity, :unit_price)`, items)
		return errors.Wrap(err, "failed to insert order items")
	})
}

func (r *orderRepository) Find(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var row sqlxOrder
	err := r.db.GetContext(ctx, &row, `SELECT `+orderColumns+` FROM customer_order WHERE order_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}

	items, err := r.findItems(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	return toOrder(row, items[id]), nil
}

func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE customer_order SET
			payment_status = :payment_status,
			transaction_id = :transaction_id,
			paid_at = :paid_at,
			status = :status,
			notes = :notes,
			version = :version,
			updated_at = :updated_at,
			shipped_at = :shipped_at,
			delivered_at = :delivered_at,
			cancelled_at = :cancelled_at
		WHERE order_id = :order_id AND version = :version - 1`, fromOrder(order))
	if err != nil {
		return errors.Wrap(err, "failed to update order")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to update order")
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	err = r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM customer_order WHERE order_id = ?)`, order.ID)
	if err != nil {
		return errors.Wrap(err, "failed to check order")
	}
	if !exists {
		return model.ErrOrderNotFound
	}
	return model.ErrOptimisticLock
}

func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter) (*model.OrderPage, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := &model.OrderPage{}
	if err := r.db.GetContext(ctx, &page.Total, `SELECT COUNT(*) FROM customer_order`+where, args...); err != nil {
		return nil, errors.Wrap(err, "failed to count orders")
	}

	var rows []sqlxOrder
	query := `SELECT ` + orderColumns + ` FROM customer_order` + where + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	if err := r.db.SelectContext(ctx, &rows, query, append(args, filter.Limit, filter.Offset())...); err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}
	if len(rows) == 0 {
		return page, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	items, err := r.findItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	page.Orders = make([]model.Order, 0, len(rows))
	for _, row := range rows {
		page.Orders = append(page.Orders, *toOrder(row, items[row.ID]))
	}
	return page, nil
}

func (r *orderRepository) Stats(ctx context.Context) (*model.OrderStats, error) {
	var counts []struct {
		Status string `db:"status"`
		Count  int    `db:"cnt"`
	}
	if err := r.db.SelectContext(ctx, &counts, `SELECT status, COUNT(*) AS cnt FROM customer_order GROUP BY status`); err != nil {
		return nil, errors.Wrap(err, "failed to count orders by status")
	}

	var revenue struct {
		Total decimal.Decimal `db:"revenue"`
		Paid  int             `db:"paid"`
	}
	err := r.db.GetContext(ctx, &revenue, `
		SELECT COALESCE(SUM(total_amount), 0) AS revenue, COUNT(*) AS paid
		FROM customer_order WHERE payment_status = ?`, string(model.PaymentCompleted))
	if err != nil {
		return nil, errors.Wrap(err, "failed to sum revenue")
	}

	stats := &model.OrderStats{
		CountByStatus:     make(map[model.OrderStatus]int, len(counts)),
		TotalRevenue:      revenue.Total,
		AverageOrderValue: decimal.Zero,
	}
	for _, c := range counts {
		stats.CountByStatus[model.OrderStatus(c.Status)] = c.Count
		stats.TotalOrders += c.Count
	}
	if revenue.Paid > 0 {
		stats.AverageOrderValue = revenue.Total.Div(decimal.NewFromInt(int64(revenue.Paid))).Round(2)
	}
	return stats, nil
}

func (r *orderRepository) findItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]sqlxOrderItem, error) {
	query, args, err := sqlx.In(`
		SELECT order_id, line_no, product_id, name, quantity, unit_price
		FROM order_item WHERE order_id IN (?) ORDER BY order_id, line_no`, orderIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build order items query")
	}

	var rows []sqlxOrderItem
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "failed to load order items")
	}

	byOrder := make(map[uuid.UUID][]sqlxOrderItem, len(orderIDs))
	for _, row := range rows {
		byOrder[row.OrderID] = append(byOrder[row.OrderID], row)
	}
	return byOrder, nil
}

func fromOrder(order *model.Order) sqlxOrder {
	return sqlxOrder{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		ShipName:      order.ShippingAddress.Name,
		ShipEmail:     order.ShippingAddress.Email,
		ShipPhone:     order.ShippingAddress.Phone,
		ShipStreet:    order.ShippingAddress.Street,
		ShipCity:      order.ShippingAddress.City,
		ShipState:     order.ShippingAddress.State,
		ShipZip:       order.ShippingAddress.Zip,
		ShipCountry:   order.ShippingAddress.Country,
		PaymentMethod: order.Payment.Method,
		PaymentStatus: string(order.Payment.Status),
		TransactionID: nullString(order.Payment.TransactionID),
		PaidAt:        order.Payment.PaidAt,
		Subtotal:      order.Totals.Subtotal,
		Tax:           order.Totals.Tax,
		ShippingCost:  order.Totals.ShippingCost,
		TotalAmount:   order.Totals.Total,
		Status:        string(order.Status),
		Notes:         nullString(order.Notes),
		Version:       order.Version,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
		ShippedAt:     order.ShippedAt,
		DeliveredAt:   order.DeliveredAt,
		CancelledAt:   order.CancelledAt,
	}
}

func fromLines(order *model.Order) []sqlxOrderItem {
	items := make([]sqlxOrderItem, 0, len(order.Lines))
	for i, line := range order.Lines {
		items = append(items, sqlxOrderItem{
			OrderID:   order.ID,
			LineNo:    i + 1,
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return items
}

func toOrder(row sqlxOrder, items []sqlxOrderItem) *model.Order {
	lines := make([]model.OrderLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, model.OrderLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	return &model.Order{
		ID:          row.ID,
		OrderNumber: row.OrderNumber,
		UserID:      row.UserID,
		Lines:       lines,
		ShippingAddress: model.ShippingAddress{
			Name:    row.ShipName,
			Email:   row.ShipEmail,
			Phone:   row.ShipPhone,
			Street:  row.ShipStreet,
			City:    row.ShipCity,
			State:   row.ShipState,
			Zip:     row.ShipZip,
			Country: row.ShipCountry,
		},
		Payment: model.PaymentInfo{
			Method:        row.PaymentMethod,
			Status:        model.PaymentStatus(row.PaymentStatus),
			TransactionID: row.TransactionID.String,
			PaidAt:        row.PaidAt,
		},
		Totals: model.Totals{
			Subtotal:     row.Subtotal,
			Tax:          row.Tax,
			ShippingCost: row.ShippingCost,
			Total:        row.TotalAmount,
		},
		Status:      model.OrderStatus(row.Status),
		Notes:       row.Notes.String,
		Version:     row.Version,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		ShippedAt:   row.ShippedAt,
		DeliveredAt: row.DeliveredAt,
		CancelledAt: row.CancelledAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
