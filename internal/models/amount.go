package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Amount is a non-negative monetary value in the proposal currency.
type Amount float64

var amountNumberRegex = regexp.MustCompile(`-?\d[\d,\.]*`)

// ParseAmount reads a price the way feeds send it: a bare number, or text
// with a currency marker and thousands separators ("₹1,200.50", "INR 75").
func ParseAmount(text string) (Amount, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("empty amount")
	}
	m := amountNumberRegex.FindString(text)
	if m == "" {
		return 0, fmt.Errorf("no number in amount %q", text)
	}

	clean := strings.ReplaceAll(m, ",", "")
	if comma, dot := strings.LastIndex(m, ","), strings.LastIndex(m, "."); dot >= 0 && comma > dot {
		// European grouping: 1.200,50
		clean = strings.ReplaceAll(strings.ReplaceAll(m, ".", ""), ",", ".")
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse amount: %s", text)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative amount %v", v)
	}
	return Amount(v), nil
}

func (a Amount) Float64() float64 { return float64(a) }

func (a *Amount) UnmarshalJSON(data []byte) error {
	literal, err := numericLiteral(data)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	v, err := ParseAmount(literal)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
