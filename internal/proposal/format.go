package proposal

import (
	"strconv"
	"strings"

	"github.com/david/rfp-desk/internal/models"
)

// Placeholder stands in for any field the upstream record left out.
const Placeholder = "N/A"

// FormatMoney renders v with exactly two decimals behind prefix. No digit
// grouping is applied.
func FormatMoney(prefix string, v float64) string {
	return prefix + strconv.FormatFloat(v, 'f', 2, 64)
}

func formatAmount(prefix string, a *models.Amount) string {
	if a == nil {
		return Placeholder
	}
	return FormatMoney(prefix, a.Float64())
}

// TotalBasePrice sums unit and test price as floats. ok is false when either
// price is missing.
func TotalBasePrice(p models.MatchedProduct) (total float64, ok bool) {
	if p.UnitPrice == nil || p.TestPrice == nil {
		return 0, false
	}
	return p.UnitPrice.Float64() + p.TestPrice.Float64(), true
}

// FormatScore renders a match score according to its source type, or the
// placeholder when the product carried none.
func FormatScore(s *models.Score) string {
	if s == nil {
		return Placeholder
	}
	return s.String()
}

func orPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return Placeholder
	}
	return v
}

// withUnit appends unit to a present value only.
func withUnit(v models.Attr, unit string) string {
	if strings.TrimSpace(string(v)) == "" {
		return Placeholder
	}
	return string(v) + " " + unit
}
