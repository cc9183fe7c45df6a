package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aofbiz/allset/internal/model"
	"github.com/aofbiz/allset/internal/reconcile"
	"github.com/aofbiz/allset/internal/service/courierclient"
	"github.com/aofbiz/allset/internal/service/sessioncache"
	"github.com/aofbiz/allset/internal/store"
)

type SyncResult struct {
	Changed bool                  `json:"changed"`
	Fields  []string              `json:"fields,omitempty"`
	Order   model.Order           `json:"order"`
	Events  []model.TrackingEvent `json:"events"`
	Finance *model.FinanceRecord  `json:"finance,omitempty"`
}

// SyncOrder загружает у курьера трекинг и финансы по заказу,
// сводит их с заказом и сохраняет измененные поля, если они есть.
// При ошибке курьера заказ не меняется.
func (service *service) SyncOrder(ctx context.Context, owner string, id string) (SyncResult, error) {
	if !service.cfg.Courier.Enabled {
		return SyncResult{}, ErrCourierDisabled
	}

	order, err := service.GetOrder(ctx, owner, id)
	if err != nil {
		return SyncResult{}, err
	}
	return service.syncOrder(ctx, order)
}

func (service *service) syncOrder(ctx context.Context, order model.Order) (SyncResult, error) {
	waybill := strings.TrimSpace(order.TrackingNumber)
	if waybill == "" {
		return SyncResult{Order: order}, ErrNoTrackingNumber
	}

	events, finance, err := service.fetchCourier(ctx, waybill)
	if err != nil {
		service.zaplog.Warn("courier fetch failed, order left as is",
			zap.String("order", order.ID),
			zap.String("waybill", waybill),
			zap.Error(err))
		return SyncResult{Order: order}, fmt.Errorf("%w: %w", ErrCourier, err)
	}

	// пока шел запрос к курьеру, заказ могли изменить: сверяем свежую копию
	current, err := service.GetOrder(ctx, order.Owner, order.ID)
	if err != nil {
		return SyncResult{Order: order}, err
	}
	if strings.TrimSpace(current.TrackingNumber) != waybill {
		service.zaplog.Info("tracking number changed during sync, skipped",
			zap.String("order", order.ID),
			zap.String("waybill", waybill))
		return SyncResult{Order: current}, nil
	}

	res := reconcile.Reconcile(current, events, finance, service.now())
	result := SyncResult{
		Changed: res.Changed,
		Fields:  res.Fields,
		Order:   res.Order,
		Events:  events,
		Finance: finance,
	}
	if !res.Changed {
		return result, nil
	}

	result.Order.UpdatedAt = service.now()
	patch := courierPatch(result.Order, res.Fields)
	if err = service.store.OrderPatchCourier(ctx, current.Owner, current.ID, patch); err != nil {
		if errors.Is(err, store.ErrNoRows) {
			err = ErrNotFound
		}
		return SyncResult{Order: current}, err
	}
	service.notifier.OrderSynced(ctx, result.Order, res.Fields)

	return result, nil
}

// courierPatch переносит в патч только поля, измененные сверкой
func courierPatch(order model.Order, fields []string) store.CourierPatch {
	patch := store.CourierPatch{UpdatedAt: order.UpdatedAt}
	for _, field := range fields {
		switch field {
		case reconcile.FieldStatus:
			patch.Status = &order.Status
		case reconcile.FieldPaymentStatus:
			patch.Payment = &order.Payment
		case reconcile.FieldDeliveredDate:
			patch.DeliveredDate = &order.DeliveredDate
		case reconcile.FieldFinanceStatus:
			patch.FinanceStatus = &order.FinanceStatus
		case reconcile.FieldInvoiceNo:
			patch.InvoiceNo = &order.InvoiceNo
		case reconcile.FieldInvoiceRef:
			patch.InvoiceRef = &order.InvoiceRef
		case reconcile.FieldDepositedDate:
			patch.DepositedDate = &order.DepositedDate
		}
	}
	return patch
}

// fetchCourier получает трекинг и финансы параллельно.
// Токен берется из кеша, при отказе в авторизации логинимся заново один раз
func (service *service) fetchCourier(ctx context.Context, waybill string) ([]model.TrackingEvent, *model.FinanceRecord, error) {
	session, cached, err := service.courierSession(ctx, false)
	if err != nil {
		return nil, nil, err
	}

	events, finance, err := service.fetchWithSession(ctx, session, waybill)
	if errors.Is(err, courierclient.ErrUnauthorized) && cached {
		session, _, err = service.courierSession(ctx, true)
		if err != nil {
			return nil, nil, err
		}
		events, finance, err = service.fetchWithSession(ctx, session, waybill)
	}
	return events, finance, err
}

func (service *service) fetchWithSession(ctx context.Context, session courierclient.Session, waybill string) ([]model.TrackingEvent, *model.FinanceRecord, error) {
	var (
		events  []model.TrackingEvent
		finance *model.FinanceRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = service.courier.GetTracking(gctx, session, waybill)
		return err
	})
	g.Go(func() error {
		var err error
		finance, err = service.courier.GetFinanceStatus(gctx, session, waybill)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return events, finance, nil
}

// courierSession возвращает сессию и признак того, что токен взят из кеша.
// refresh - сбросить кешированный токен и залогиниться заново
func (service *service) courierSession(ctx context.Context, refresh bool) (courierclient.Session, bool, error) {
	courier := service.cfg.Courier
	key := sessioncache.Key(courier.Tenant, courier.Email)

	if refresh {
		if err := service.sessions.Delete(ctx, key); err != nil {
			service.zaplog.Warn("session cache delete failed", zap.Error(err))
		}
	} else {
		token, ok, err := service.sessions.Get(ctx, key)
		if err != nil {
			// кеш недоступен - просто логинимся
			service.zaplog.Warn("session cache get failed", zap.Error(err))
		}
		if ok {
			return courierclient.Session{Tenant: courier.Tenant, Token: token}, true, nil
		}
	}

	session, err := service.courier.Login(ctx, courier.Email, courier.Password, courier.Tenant)
	if err != nil {
		return courierclient.Session{}, false, err
	}
	if err = service.sessions.Set(ctx, key, session.Token, service.cfg.SessionTTL); err != nil {
		service.zaplog.Warn("session cache set failed", zap.Error(err))
	}
	return session, false, nil
}
