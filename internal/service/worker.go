package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aofbiz/allset/internal/model"
)

// заказов за один цикл диспетчера
const syncBatchSize = 500

func (service *service) Run(ctx context.Context) error {
	if !service.cfg.Courier.Enabled || service.cfg.SyncInterval <= 0 {
		service.zaplog.Info("background courier sync is off")
		return nil
	}

	workerCount := service.cfg.SyncWorkers
	if workerCount < 1 {
		workerCount = 1
	}
	jobs := make(chan model.Order, workerCount*3)

	var wg sync.WaitGroup
	for i := 1; i <= workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			service.workerLoop(ctx, id, jobs)
		}(i)
	}

	ticker := time.NewTicker(service.cfg.SyncInterval)
	defer ticker.Stop()

	service.zaplog.Info("sync dispatcher started",
		zap.Int("workers", workerCount),
		zap.Duration("interval", service.cfg.SyncInterval))
	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			service.zaplog.Info("sync dispatcher stopped")
			return nil
		case <-ticker.C:
			service.dispatch(ctx, jobs)
		}
	}
}

// dispatch раздает воркерам заказы, ожидающие синхронизации.
// Если очередь заполнена, заказ пропускается до следующего цикла
func (service *service) dispatch(ctx context.Context, jobs chan<- model.Order) {
	orders, err := service.store.OrderListForSync(ctx, syncBatchSize)
	if err != nil {
		service.zaplog.Error("list orders for sync", zap.Error(err))
		return
	}
	if len(orders) == 0 {
		return
	}

	queued := 0
	for _, order := range orders {
		if _, busy := service.inFlight.LoadOrStore(order.ID, struct{}{}); busy {
			continue
		}
		select {
		case jobs <- order:
			queued++
		default:
			service.inFlight.Delete(order.ID)
			service.zaplog.Debug("sync queue is full, order skipped", zap.String("order", order.ID))
		}
	}
	service.zaplog.Debug("sync cycle", zap.Int("found", len(orders)), zap.Int("queued", queued))
}

func (service *service) workerLoop(ctx context.Context, id int, jobs <-chan model.Order) {
	for {
		select {
		case <-ctx.Done():
			return
		case order, ok := <-jobs:
			if !ok {
				return
			}
			service.syncJob(ctx, id, order)
		}
	}
}

func (service *service) syncJob(ctx context.Context, worker int, order model.Order) {
	defer service.inFlight.Delete(order.ID)

	res, err := service.syncOrder(ctx, order)
	switch {
	case err == nil:
		if res.Changed {
			service.zaplog.Info("order synced",
				zap.Int("worker", worker),
				zap.String("order", order.ID),
				zap.Strings("fields", res.Fields))
		}
	case errors.Is(err, ErrCourier), errors.Is(err, context.Canceled):
		// уже залогировано в syncOrder или остановка
	default:
		service.zaplog.Error("order sync failed",
			zap.Int("worker", worker),
			zap.String("order", order.ID),
			zap.Error(err))
	}
}
