// Package reconcile сводит локальный заказ с данными курьера.
//
// Reconcile ничего не загружает и не сохраняет: на вход уже полученные
// события трекинга и финансовая запись, на выходе копия заказа с изменениями.
package reconcile

import (
	"strings"
	"time"

	"github.com/aofbiz/allset/internal/model"
)

// Имена полей заказа, которые может изменить сверка
const (
	FieldStatus        = "status"
	FieldPaymentStatus = "paymentStatus"
	FieldDeliveredDate = "deliveredDate"
	FieldFinanceStatus = "courierFinanceStatus"
	FieldInvoiceNo     = "courierInvoiceNo"
	FieldInvoiceRef    = "courierInvoiceRef"
	FieldDepositedDate = "courierDepositedDate"
)

const dateLayout = "2006-01-02"

type Result struct {
	Changed bool
	Order   model.Order
	// Fields - измененные поля в порядке применения
	Fields []string
}

// Reconcile применяет к копии order статус из самого нового события (events[0])
// и поля финансовой записи. now используется как дата доставки,
// если ни одно событие не содержит DELIVERED.
func Reconcile(order model.Order, events []model.TrackingEvent, finance *model.FinanceRecord, now time.Time) Result {
	res := Result{Order: order}

	stage := func(field string, dst *string, value string) bool {
		if *dst == value {
			return false
		}
		*dst = value
		res.Fields = append(res.Fields, field)
		return true
	}

	// Статус: только последнее событие
	var mapped string
	if len(events) > 0 {
		mapped, _ = MapStatus(events[0].Status)
	}
	if mapped != "" {
		stage(FieldStatus, &res.Order.Status, mapped)
	}

	// Финансы: пустое поле в ответе курьера не затирает локальное значение
	if finance != nil {
		financeStaged := false
		for _, f := range []struct {
			name  string
			dst   *string
			value string
		}{
			{FieldFinanceStatus, &res.Order.FinanceStatus, finance.Status},
			{FieldInvoiceNo, &res.Order.InvoiceNo, finance.InvoiceNo},
			{FieldInvoiceRef, &res.Order.InvoiceRef, finance.InvoiceRef},
			{FieldDepositedDate, &res.Order.DepositedDate, finance.DepositedDate},
		} {
			value := strings.TrimSpace(f.value)
			if value == "" {
				continue
			}
			if stage(f.name, f.dst, value) {
				financeStaged = true
			}
		}

		if financeStaged && IsSettled(res.Order.FinanceStatus) {
			stage(FieldPaymentStatus, &res.Order.Payment, model.PaymentStatusPaid)
		}
	}

	// Дата доставки
	if mapped == model.OrderStatusDelivered && strings.TrimSpace(order.DeliveredDate) == "" {
		stage(FieldDeliveredDate, &res.Order.DeliveredDate, deliveredDate(events, now))
	}

	res.Changed = len(res.Fields) > 0
	return res
}

// MapStatus переводит статус курьера в статус заказа.
// Второе значение false - статус не влияет на заказ.
func MapStatus(courierStatus string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(courierStatus)) {
	case "DELIVERED":
		return model.OrderStatusDelivered, true
	case "CANCELLED", "RETURNED":
		return model.OrderStatusCancelled, true
	default:
		return "", false
	}
}

// IsSettled - курьер перечислил деньги по наложенному платежу
func IsSettled(financeStatus string) bool {
	return strings.EqualFold(financeStatus, model.FinanceStatusDeposited) ||
		strings.EqualFold(financeStatus, model.FinanceStatusApproved)
}

func deliveredDate(events []model.TrackingEvent, now time.Time) string {
	for _, e := range events {
		if strings.Contains(strings.ToUpper(e.Status), "DELIVERED") {
			if ts := strings.TrimSpace(e.Timestamp); ts != "" {
				return ts
			}
			break
		}
	}
	return now.Format(dateLayout)
}
