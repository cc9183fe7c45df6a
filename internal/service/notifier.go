package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/aofbiz/allset/internal/model"
)

const SyncedMessage = "Order details auto-synced with Courier"

// Notifier сообщает пользователю об автоматическом обновлении заказа
type Notifier interface {
	OrderSynced(ctx context.Context, order model.Order, fields []string)
}

type logNotifier struct {
	zaplog *zap.Logger
}

func NewLogNotifier(zaplog *zap.Logger) Notifier {
	return &logNotifier{zaplog: zaplog}
}

func (n *logNotifier) OrderSynced(_ context.Context, order model.Order, fields []string) {
	n.zaplog.Info(SyncedMessage,
		zap.String("owner", order.Owner),
		zap.String("order", order.ID),
		zap.String("status", order.Status),
		zap.String("paymentStatus", order.Payment),
		zap.Strings("fields", fields))
}
