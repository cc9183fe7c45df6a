package report

import (
	"context"
	"sort"
	"strings"

	"github.com/aofbiz/allset/internal/model"
	"github.com/aofbiz/allset/internal/money"
)

const (
	defaultChannel  = "Organic"
	unknownProduct  = "Unknown Product"
	topProductsSize = 10
)

type OrderLister interface {
	OrderList(ctx context.Context, owner string) ([]model.Order, error)
}

type Report interface {
	Sales(ctx context.Context, owner string) (model.SalesSummary, error)
}

type report struct {
	store OrderLister
}

func NewReport(store OrderLister) Report {
	report := report{store: store}
	return &report
}

func (report *report) Sales(ctx context.Context, owner string) (model.SalesSummary, error) {
	orders, err := report.store.OrderList(ctx, owner)
	if err != nil {
		return model.SalesSummary{}, err
	}
	return SalesMetrics(orders), nil
}

// SalesMetrics считает сводку продаж по списку заказов
func SalesMetrics(orders []model.Order) model.SalesSummary {
	summary := model.SalesSummary{
		TotalOrders: len(orders),
		ByStatus:    make(map[string]int),
		ByChannel:   make(map[string]int),
	}

	for _, order := range orders {
		if order.Payment == model.PaymentStatusPaid {
			summary.Revenue = money.Add(summary.Revenue, order.TotalPrice)
		}

		summary.ByStatus[order.Status]++

		channel := strings.TrimSpace(order.OrderSource)
		if channel == "" {
			channel = defaultChannel
		}
		summary.ByChannel[channel]++
	}

	summary.RevenueFormatted = money.Format(summary.Revenue)
	summary.TopProducts = TopProducts(orders, topProductsSize)
	return summary
}

// TopProducts группирует позиции по артикулу (или названию, если артикула нет)
// и возвращает limit самых продаваемых по количеству
func TopProducts(orders []model.Order, limit int) []model.ProductSales {
	stats := make(map[string]*model.ProductSales)

	for _, order := range orders {
		for _, item := range order.Items {
			name := strings.TrimSpace(item.Name)
			switch {
			case name != "":
			case item.ItemID != "":
				name = "Product " + item.ItemID
			default:
				name = unknownProduct
			}

			key := item.ItemID
			if key == "" {
				key = name
			}

			ps, ok := stats[key]
			if !ok {
				ps = &model.ProductSales{Key: key, Name: name}
				stats[key] = ps
			}
			ps.Quantity = money.Add(ps.Quantity, item.Quantity)
			ps.Revenue = money.Add(ps.Revenue, money.Mult(item.Quantity, item.UnitPrice))
		}
	}

	products := make([]model.ProductSales, 0, len(stats))
	for _, ps := range stats {
		products = append(products, *ps)
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Quantity != products[j].Quantity {
			return products[i].Quantity > products[j].Quantity
		}
		return products[i].Key < products[j].Key
	})

	if len(products) > limit {
		products = products[:limit]
	}
	return products
}
