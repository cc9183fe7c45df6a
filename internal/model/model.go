package model

import "time"

// Заказы

type Order struct {
	ID           string      `json:"id"`
	Owner        string      `json:"-"`
	Number       string      `json:"number,omitempty"`
	CustomerName string      `json:"customerName"`
	OrderDate    string      `json:"orderDate,omitempty"`
	OrderSource  string      `json:"orderSource,omitempty"`
	Status       string      `json:"status"`
	Payment      string      `json:"paymentStatus"`
	PayMethod    string      `json:"paymentMethod,omitempty"`
	Items        []OrderItem `json:"orderItems"`
	Delivery     float64     `json:"deliveryCharge"`
	Discount     float64     `json:"discount"`
	TotalPrice   float64     `json:"totalPrice"`
	OrderCourier
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Поля, которые обновляет синхронизация с курьером
type OrderCourier struct {
	TrackingNumber string `json:"trackingNumber,omitempty"`
	DispatchDate   string `json:"dispatchDate,omitempty"`
	DeliveredDate  string `json:"deliveredDate,omitempty"`
	FinanceStatus  string `json:"courierFinanceStatus,omitempty"`
	InvoiceNo      string `json:"courierInvoiceNo,omitempty"`
	InvoiceRef     string `json:"courierInvoiceRef,omitempty"`
	DepositedDate  string `json:"courierDepositedDate,omitempty"`
}

type OrderItem struct {
	ItemID    string  `json:"itemId,omitempty"`
	Name      string  `json:"name,omitempty"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

const (
	OrderStatusNew        = "New Order"
	OrderStatusPending    = "Pending"
	OrderStatusPacked     = "Packed"
	OrderStatusDispatched = "Dispatched"
	OrderStatusDelivered  = "Delivered"
	OrderStatusCancelled  = "Cancelled"
)

const (
	PaymentStatusPending = "Pending"
	PaymentStatusPaid    = "Paid"
)

const (
	FinanceStatusDeposited = "Deposited"
	FinanceStatusApproved  = "Approved"
)

// Данные курьера

// Событие трекинга. Timestamp хранится в том виде, в котором его прислал курьер
type TrackingEvent struct {
	Status    string `json:"status"`
	Code      string `json:"statusCode,omitempty"`
	City      string `json:"city,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Финансовый статус отправления (наложенный платеж).
// Пустое поле - курьер его не прислал
type FinanceRecord struct {
	Status        string `json:"financeStatus,omitempty"`
	InvoiceNo     string `json:"invoiceNo,omitempty"`
	InvoiceRef    string `json:"invoiceRef,omitempty"`
	DepositedDate string `json:"depositedDate,omitempty"`
}

// Отчеты

// Выручка считается только по оплаченным заказам
type SalesSummary struct {
	Revenue          float64        `json:"revenue"`
	RevenueFormatted string         `json:"revenueFormatted"`
	TotalOrders      int            `json:"totalOrders"`
	ByStatus         map[string]int `json:"byStatus"`
	ByChannel        map[string]int `json:"byChannel"`
	TopProducts      []ProductSales `json:"topProducts"`
}

type ProductSales struct {
	Key      string  `json:"key"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}
