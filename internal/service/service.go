package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aofbiz/allset/internal/model"
	"github.com/aofbiz/allset/internal/money"
	"github.com/aofbiz/allset/internal/report"
	"github.com/aofbiz/allset/internal/service/config"
	"github.com/aofbiz/allset/internal/service/courierclient"
	"github.com/aofbiz/allset/internal/service/sessioncache"
	"github.com/aofbiz/allset/internal/store"
)

type Service interface {
	PostOrder(ctx context.Context, order model.Order) (model.Order, error)
	PutOrder(ctx context.Context, order model.Order) (model.Order, error)
	GetOrder(ctx context.Context, owner string, id string) (model.Order, error)
	ListOrders(ctx context.Context, owner string) ([]model.Order, error)
	SyncOrder(ctx context.Context, owner string, id string) (SyncResult, error)
	SalesSummary(ctx context.Context, owner string) (model.SalesSummary, error)
	// Run - фоновая синхронизация заказов с курьером до отмены ctx
	Run(ctx context.Context) error
}

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrAlreadyExists    = errors.New("already exists")
	ErrNotFound         = errors.New("order not found")
	ErrCourierDisabled  = errors.New("courier integration is disabled")
	ErrNoTrackingNumber = errors.New("order has no tracking number")
	ErrCourier          = errors.New("courier request failed")
)

type service struct {
	cfg      config.Config
	store    store.Store
	report   report.Report
	courier  courierclient.CourierClient
	sessions sessioncache.Cache
	notifier Notifier
	zaplog   *zap.Logger
	now      func() time.Time

	// заказы, которые сейчас синхронизируются в фоне
	inFlight sync.Map
}

type Option func(*service)

func WithCourierClient(courier courierclient.CourierClient) Option {
	return func(s *service) { s.courier = courier }
}

func WithNotifier(notifier Notifier) Option {
	return func(s *service) { s.notifier = notifier }
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(cfg config.Config, store store.Store, sessions sessioncache.Cache, zaplog *zap.Logger, opts ...Option) Service {
	service := &service{
		cfg:      cfg,
		store:    store,
		report:   report.NewReport(store),
		sessions: sessions,
		zaplog:   zaplog,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}

	if service.courier == nil {
		service.courier = courierclient.NewCourierClient(cfg.Courier.BaseURL, cfg.Courier.Timeout)
	}
	if service.notifier == nil {
		service.notifier = NewLogNotifier(zaplog)
	}

	return service
}

func (service *service) PostOrder(ctx context.Context, order model.Order) (model.Order, error) {
	if order.Owner == "" {
		return model.Order{}, ErrInsufficientData
	}
	order.CustomerName = strings.TrimSpace(order.CustomerName)
	if order.CustomerName == "" {
		return model.Order{}, ErrInsufficientData
	}

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.Status == "" {
		order.Status = model.OrderStatusNew
	}
	if order.Payment == "" {
		order.Payment = model.PaymentStatusPending
	}
	order.TotalPrice = OrderTotal(order)
	order.CreatedAt = service.now()
	order.UpdatedAt = order.CreatedAt

	err := service.store.OrderPost(ctx, order)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			return model.Order{}, ErrAlreadyExists
		default:
			return model.Order{}, err
		}
	}

	return order, nil
}

func (service *service) PutOrder(ctx context.Context, order model.Order) (model.Order, error) {
	if order.Owner == "" || order.ID == "" {
		return model.Order{}, ErrInsufficientData
	}
	order.CustomerName = strings.TrimSpace(order.CustomerName)
	if order.CustomerName == "" {
		return model.Order{}, ErrInsufficientData
	}

	current, err := service.GetOrder(ctx, order.Owner, order.ID)
	if err != nil {
		return model.Order{}, err
	}

	if order.Status == "" {
		order.Status = current.Status
	}
	if order.Payment == "" {
		order.Payment = current.Payment
	}
	order.TotalPrice = OrderTotal(order)
	order.CreatedAt = current.CreatedAt
	order.UpdatedAt = service.now()

	if err = service.put(ctx, order); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func (service *service) put(ctx context.Context, order model.Order) error {
	err := service.store.OrderPut(ctx, order)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNoRows):
			return ErrNotFound
		default:
			return err
		}
	}
	return nil
}

func (service *service) GetOrder(ctx context.Context, owner string, id string) (model.Order, error) {
	if owner == "" || id == "" {
		return model.Order{}, ErrInsufficientData
	}

	order, err := service.store.OrderGet(ctx, owner, id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNoRows):
			return model.Order{}, ErrNotFound
		default:
			return model.Order{}, err
		}
	}
	return order, nil
}

func (service *service) ListOrders(ctx context.Context, owner string) ([]model.Order, error) {
	if owner == "" {
		return nil, ErrInsufficientData
	}

	return service.store.OrderList(ctx, owner)
}

func (service *service) SalesSummary(ctx context.Context, owner string) (model.SalesSummary, error) {
	if owner == "" {
		return model.SalesSummary{}, ErrInsufficientData
	}

	return service.report.Sales(ctx, owner)
}

// OrderTotal: сумма позиций плюс доставка минус скидка, в сотых
func OrderTotal(order model.Order) float64 {
	values := make([]any, 0, len(order.Items)+1)
	for _, item := range order.Items {
		values = append(values, money.Mult(item.Quantity, item.UnitPrice))
	}
	values = append(values, order.Delivery)

	return money.Sub(money.Add(values...), order.Discount)
}
