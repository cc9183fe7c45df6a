package money

import "strings"

const currencyPrefix = "Rs. "

// Format выводит сумму в рупиях с индийской группировкой разрядов: Rs. 1,23,456.78
func Format(amount any) string {
	d, _ := toDecimal(amount)
	d = d.Round(2)

	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	return sign + currencyPrefix + groupIndian(intPart) + "." + frac
}

// последние три цифры отдельно, остальные парами
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(append(parts, tail), ",")
}

// Round2 округляет сумму до двух знаков для хранения и вывода.
func Round2(amount any) float64 {
	d, _ := toDecimal(amount)
	return d.Round(2).InexactFloat64()
}
