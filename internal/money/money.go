// Package money выполняет арифметику над денежными суммами в целых сотых,
// чтобы сложение 0.1 + 0.2 давало ровно 0.3.
//
// Любой нечисловой или отсутствующий аргумент считается нулем, ошибок нет:
// пустые поля форм должны давать число. true считается единицей.
package money

import (
	"encoding/json"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Add складывает значения в сотых и возвращает сумму.
func Add(values ...any) float64 {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(toCents(v))
	}
	return fromCents(sum, 2)
}

func Sub(a, b any) float64 {
	return fromCents(toCents(a).Sub(toCents(b)), 2)
}

// Mult: (a*100 * b*100) / 10000. Точность теряется, если у множителя больше двух знаков после запятой.
func Mult(a, b any) float64 {
	return fromCents(toCents(a).Mul(toCents(b)), 4)
}

// Div делит исходные значения без перевода в сотые. Деление на ноль дает 0.
func Div(a, b any) float64 {
	den := toFloat(b)
	if den == 0 {
		return 0
	}
	return toFloat(a) / den
}

// toCents переводит значение в целые сотые: round(v*100), половина округляется вверх.
// Умножение выполняется во float64, поэтому 1.005 дает 100, а не 101.
// Сотые хранятся в decimal, переполнения int64 нет.
func toCents(v any) decimal.Decimal {
	cents := roundHalfUp(toFloat(v) * 100)
	if math.IsInf(cents, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(cents)
}

func fromCents(cents decimal.Decimal, exp int32) float64 {
	return cents.Shift(-exp).InexactFloat64()
}

// roundHalfUp округляет до целого, половина уходит в сторону +Inf: -0.5 -> 0
func roundHalfUp(f float64) float64 {
	r := math.Floor(f)
	if f-r >= 0.5 {
		r++
	}
	return r
}

func toFloat(v any) float64 {
	d, ok := toDecimal(v)
	if !ok {
		return 0
	}
	return d.InexactFloat64()
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, false
	case bool:
		if n {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	case decimal.Decimal:
		return n, true
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, false
		}
		return *n, true
	case float64:
		return fromFloat(n)
	case float32:
		return fromFloat(float64(n))
	case *float64:
		if n == nil {
			return decimal.Zero, false
		}
		return fromFloat(*n)
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(n)), 0), true
	case uint32:
		return decimal.NewFromInt(int64(n)), true
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0), true
	case json.Number:
		return fromString(string(n))
	case string:
		return fromString(n)
	default:
		return decimal.Zero, false
	}
}

func fromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

func fromString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
