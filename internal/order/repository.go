package order

import (
	"context"
	"database/sql"
	"errors"

	"storefront-orders/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	CreateOrderTx(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, orderID uint) (*Order, error)
	GetOrderItems(ctx context.Context, orderID uint) ([]OrderItem, error)
	ListOrders(ctx context.Context) ([]*Order, error)
	ListOrdersByUser(ctx context.Context, userID uint) ([]*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, status Status) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderViewColumns = `
	SELECT
		o.id,
		o.user_id,
		o.total,
		o.status,
		o.payment_method,
		o.created_at,
		o.updated_at,
		COALESCE(d.full_name, ''),
		COALESCE(d.phone, ''),
		COALESCE(d.address, ''),
		COALESCE(d.city, ''),
		COALESCE(d.notes, '')
	FROM orders o
	LEFT JOIN delivery_details d ON d.order_id = o.id
`

// CreateOrderTx writes the order, its line items and its delivery record in
// one transaction. On success order.ID and order.CreatedAt are populated.
func (r *repository) CreateOrderTx(ctx context.Context, order *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrderTx"),
		zap.Uint("user_id", order.UserID),
		zap.Int("item_count", len(order.Items)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	// 1. Insert order
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, total, status, payment_method)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`,
		order.UserID,
		order.Total,
		order.Status,
		order.PaymentMethod,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		logPQError(log, "failed to insert order", err)
		return err
	}
	order.UpdatedAt = order.CreatedAt

	log = log.With(zap.Uint("order_id", order.ID))

	// 2. Insert line items
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		item.UserID = order.UserID

		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, user_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`,
			item.OrderID,
			item.UserID,
			item.ProductID,
			item.Quantity,
			item.Price,
		).Scan(&item.ID)
		if err != nil {
			logPQError(log.With(zap.Uint("product_id", item.ProductID)), "failed to insert order item", err)
			return err
		}
	}

	// 3. Insert delivery details
	_, err = tx.ExecContext(ctx, `
		INSERT INTO delivery_details (order_id, full_name, phone, address, city, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		order.ID,
		order.Delivery.FullName,
		order.Delivery.Phone,
		order.Delivery.Address,
		order.Delivery.City,
		order.Delivery.Notes,
	)
	if err != nil {
		logPQError(log, "failed to insert delivery details", err)
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order transaction", zap.Error(err))
		return err
	}

	log.Debug("order persisted")
	return nil
}

func (r *repository) GetOrder(ctx context.Context, orderID uint) (*Order, error) {
	row := r.db.QueryRowContext(ctx, orderViewColumns+` WHERE o.id = $1`, orderID)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to get order",
			zap.Uint("order_id", orderID),
			zap.Error(err),
		)
		return nil, err
	}

	return o, nil
}

func (r *repository) GetOrderItems(ctx context.Context, orderID uint) ([]OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, user_id, product_id, quantity, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.UserID, &it.ProductID, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

// ListOrders returns every order, newest first.
func (r *repository) ListOrders(ctx context.Context) ([]*Order, error) {
	return r.queryOrders(ctx, orderViewColumns+` ORDER BY o.id DESC`)
}

func (r *repository) ListOrdersByUser(ctx context.Context, userID uint) ([]*Order, error) {
	return r.queryOrders(ctx, orderViewColumns+` WHERE o.user_id = $1 ORDER BY o.id DESC`, userID)
}

// UpdateOrderStatus overwrites the status unconditionally; concurrent
// updates resolve as last write wins.
func (r *repository) UpdateOrderStatus(ctx context.Context, orderID uint, status Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, orderID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to update order status",
			zap.Uint("order_id", orderID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *repository) queryOrders(ctx context.Context, query string, args ...any) ([]*Order, error) {
	log := logger.FromCtx(ctx)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			log.Error("failed to scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var (
		o      Order
		status string
	)
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Total,
		&status,
		&o.PaymentMethod,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.Delivery.FullName,
		&o.Delivery.Phone,
		&o.Delivery.Address,
		&o.Delivery.City,
		&o.Delivery.Notes,
	)
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	return &o, nil
}

func logPQError(log *zap.Logger, msg string, err error) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		log.Error(msg,
			zap.String("pq_code", string(pqErr.Code)),
			zap.String("constraint", pqErr.Constraint),
			zap.Error(err),
		)
		return
	}
	log.Error(msg, zap.Error(err))
}
