package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Priority is the ranking collaborator's urgency bucket.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ParsePriority maps a feed value onto the enum, case-insensitively.
// Unknown values yield an empty priority.
func ParsePriority(raw string) Priority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	case "low":
		return PriorityLow
	}
	return ""
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var raw string
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = ""
		return nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("priority: %w", err)
	}
	*p = ParsePriority(raw)
	return nil
}

// Score is a match percentage in [0, 100]. Integral is set only for scores
// copied from an integer-valued upstream field, which render as whole values.
type Score struct {
	Value    float64
	Integral bool
}

// ContinuousScore builds a score rendered with one decimal place.
func ContinuousScore(v float64) Score { return Score{Value: v} }

// IntegralScore builds a score rendered as a whole value.
func IntegralScore(v float64) Score { return Score{Value: v, Integral: true} }

// String renders "94%" for integral sources and "94.2%" otherwise.
func (s Score) String() string {
	if s.Integral {
		return strconv.FormatFloat(s.Value, 'f', 0, 64) + "%"
	}
	return strconv.FormatFloat(s.Value, 'f', 1, 64) + "%"
}

func (s Score) MarshalJSON() ([]byte, error) {
	if s.Integral {
		return []byte(strconv.FormatFloat(s.Value, 'f', 0, 64)), nil
	}
	return []byte(strconv.FormatFloat(s.Value, 'f', -1, 64)), nil
}

// UnmarshalJSON decodes a continuous score such as match_percent. It
// accepts a JSON number or a numeric string, optionally with a trailing
// percent sign, and always renders with one decimal.
func (s *Score) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	score, err := ParseScore(data, false)
	if err != nil {
		return err
	}
	*s = score
	return nil
}

// ParseScore decodes a JSON score literal. wholeField marks the dashboard's
// integer-valued match field: its integral literals render as whole values,
// while a fractional literal keeps its decimal so precision is never lost.
func ParseScore(data []byte, wholeField bool) (Score, error) {
	literal, err := numericLiteral(data)
	if err != nil {
		return Score{}, fmt.Errorf("match score: %w", err)
	}
	literal = strings.TrimSuffix(literal, "%")
	v, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return Score{}, fmt.Errorf("match score %q: %w", literal, err)
	}
	if v < 0 || v > 100 {
		return Score{}, fmt.Errorf("match score %v out of range [0, 100]", v)
	}
	return Score{Value: v, Integral: wholeField && !strings.ContainsAny(literal, ".eE")}, nil
}

// Attr is a technical attribute that feeds send either as text or as a
// bare number. The original literal is kept verbatim.
type Attr string

func (a *Attr) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Attr(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("attribute: %w", err)
	}
	*a = Attr(n.String())
	return nil
}

// MatchedProduct is one catalogue item from the ranked list returned for an
// opportunity. Rank order is owned by the upstream collaborator.
type MatchedProduct struct {
	SKU               string   `json:"sku"`
	ProductName       string   `json:"product_name"`
	Category          string   `json:"category"`
	ConductorMaterial Attr     `json:"conductor_material"`
	ConductorSizeSqmm Attr     `json:"conductor_size_sqmm"`
	VoltageRatingKV   Attr     `json:"voltage_rating"`
	Standard          Attr     `json:"standard_iec"`
	UnitPrice         *Amount  `json:"unit_price"`
	TestPrice         *Amount  `json:"test_price"`
	Match             *Score   `json:"match_percent"`
	Priority          Priority `json:"priority,omitempty"`
}

// numericLiteral returns the textual literal of a JSON number or string.
func numericLiteral(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", fmt.Errorf("missing value")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", fmt.Errorf("empty value")
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
