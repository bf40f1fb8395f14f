package order

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"storefront-orders/internal/events"
	"storefront-orders/internal/logger"
	"storefront-orders/internal/notify"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*Order, error)
	UpdateStatus(ctx context.Context, orderID uint, raw string) (Status, error)
	GetOrder(ctx context.Context, orderID uint) (*Order, error)
	ListOrders(ctx context.Context) ([]*Order, error)
	ListOrdersByUser(ctx context.Context, userID uint) ([]*Order, error)
}

// Enqueuer accepts confirmations for background delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg notify.OrderConfirmation) bool
}

// Observer is told about committed writes; metrics.Metrics implements it.
type Observer interface {
	OrderPlaced()
	StatusUpdated(status string)
}

type Options struct {
	// StrictStatus rejects unrecognized status input instead of
	// coercing it to processing.
	StrictStatus bool
	Observer     Observer
}

type service struct {
	repo      Repository
	notifier  Enqueuer
	publisher events.Publisher
	validate  *validator.Validate
	opts      Options
	now       func() time.Time
}

func NewService(repo Repository, notifier Enqueuer, publisher events.Publisher, opts Options) Service {
	return &service{
		repo:      repo,
		notifier:  notifier,
		publisher: publisher,
		validate:  newValidator(),
		opts:      opts,
		now:       time.Now,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterStructValidation(validateCartItem, CartItem{})
	return v
}

// validateCartItem keeps prices storable without rounding: whole cents and
// within the column range.
func validateCartItem(sl validator.StructLevel) {
	item := sl.Current().Interface().(CartItem)
	switch {
	case !item.Price.Equal(item.Price.Round(2)):
		sl.ReportError(item.Price, "price", "Price", "money", "")
	case item.Price.GreaterThan(MaxAmount):
		sl.ReportError(item.Price, "price", "Price", "maxamount", "")
	}
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "PlaceOrder"),
		zap.Uint("user_id", input.UserID),
	)

	// 1. Validate before touching storage
	trimInput(&input)
	if err := s.validate.Struct(input); err != nil {
		log.Info("rejected order input", zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, describeValidation(err))
	}

	// 2. Build the order with a frozen total
	order := &Order{
		UserID:        input.UserID,
		Status:        StatusProcessing,
		PaymentMethod: input.PaymentMethod,
		Delivery:      input.Delivery,
		Total:         CartTotal(input.Cart),
	}
	if order.Total.GreaterThan(MaxAmount) {
		log.Info("rejected order total", zap.String("total", order.Total.String()))
		return nil, fmt.Errorf("%w: total is too large", ErrInvalidInput)
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = DefaultPaymentMethod
	}
	for _, c := range input.Cart {
		order.Items = append(order.Items, OrderItem{
			UserID:    input.UserID,
			ProductID: c.ProductID,
			Quantity:  c.Quantity,
			Price:     c.Price,
		})
	}

	// 3. Persist order, items and delivery atomically
	if err := s.repo.CreateOrderTx(ctx, order); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	log.Info("order placed",
		zap.Uint("order_id", order.ID),
		zap.String("total", order.Total.StringFixed(2)),
	)
	if s.opts.Observer != nil {
		s.opts.Observer.OrderPlaced()
	}

	// 4. Hand the confirmation off; the response never waits on it
	s.notifyPlaced(ctx, order, input.Email)

	return order, nil
}

// CartTotal is Σ price × quantity over the cart.
func CartTotal(cart []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, c := range cart {
		total = total.Add(c.Price.Mul(decimal.NewFromInt(int64(c.Quantity))))
	}
	return total
}

func (s *service) notifyPlaced(ctx context.Context, order *Order, email string) {
	if s.notifier == nil {
		return
	}
	if email == "" {
		logger.FromCtx(ctx).Warn("order confirmation skipped: no email on identity",
			zap.Uint("order_id", order.ID),
		)
		return
	}

	s.notifier.Enqueue(ctx, ConfirmationFor(order, email))
}

// ConfirmationFor snapshots order for the notifier.
func ConfirmationFor(order *Order, email string) notify.OrderConfirmation {
	items := make([]notify.Item, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, notify.Item{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.InexactFloat64(),
		})
	}

	return notify.OrderConfirmation{
		EventID:       uuid.NewString(),
		Email:         email,
		OrderID:       order.ID,
		UserID:        order.UserID,
		Items:         items,
		Total:         order.Total.InexactFloat64(),
		Status:        string(order.Status),
		PaymentMethod: order.PaymentMethod,
		Delivery: notify.Delivery{
			FullName: order.Delivery.FullName,
			Phone:    order.Delivery.Phone,
			Address:  order.Delivery.Address,
			City:     order.Delivery.City,
			Notes:    order.Delivery.Notes,
		},
		PlacedAt: order.CreatedAt,
	}
}

func (s *service) UpdateStatus(ctx context.Context, orderID uint, raw string) (Status, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateStatus"),
		zap.Uint("order_id", orderID),
	)

	status, recognized := ParseStatus(raw)
	if !recognized {
		if s.opts.StrictStatus {
			return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
		}
		log.Warn("unrecognized status coerced", zap.String("raw", raw), zap.String("status", string(status)))
	}
	if !status.IsCanonical() {
		return "", ErrInvalidStatus
	}

	err := s.repo.UpdateOrderStatus(ctx, orderID, status)
	if errors.Is(err, ErrOrderNotFound) {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	log.Info("order status updated", zap.String("status", string(status)))
	if s.opts.Observer != nil {
		s.opts.Observer.StatusUpdated(string(status))
	}

	if s.publisher != nil {
		evt := events.StatusChanged{OrderID: orderID, Status: string(status), ChangedAt: s.now().UTC()}
		if err := s.publisher.PublishStatusChanged(ctx, evt); err != nil {
			log.Warn("status change not published", zap.Error(err))
		}
	}

	return status, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uint) (*Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	items, err := s.repo.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	order.Items = items
	order.Status = Normalize(string(order.Status))

	return order, nil
}

func (s *service) ListOrders(ctx context.Context) ([]*Order, error) {
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return normalizeAll(orders), nil
}

func (s *service) ListOrdersByUser(ctx context.Context, userID uint) ([]*Order, error) {
	orders, err := s.repo.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return normalizeAll(orders), nil
}

func normalizeAll(orders []*Order) []*Order {
	for _, o := range orders {
		o.Status = Normalize(string(o.Status))
	}
	return orders
}

func trimInput(in *PlaceOrderInput) {
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	in.Delivery.FullName = strings.TrimSpace(in.Delivery.FullName)
	in.Delivery.Phone = strings.TrimSpace(in.Delivery.Phone)
	in.Delivery.Address = strings.TrimSpace(in.Delivery.Address)
	in.Delivery.City = strings.TrimSpace(in.Delivery.City)
	in.Delivery.Notes = strings.TrimSpace(in.Delivery.Notes)
}

// describeValidation turns validator errors into a short client-safe
// message such as "delivery.fullName is required".
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}

	fe := verrs[0]
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must not be empty"
	case "gte":
		return field + " must be at least " + fe.Param()
	case "lte":
		return field + " must be at most " + fe.Param()
	case "max":
		return field + " is too long"
	case "money":
		return field + " must have at most 2 decimal places"
	case "maxamount":
		return field + " is too large"
	default:
		return field + " is invalid"
	}
}

func fieldPath(namespace string) string {
	// Drop the root struct name.
	_, path, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return path
}
