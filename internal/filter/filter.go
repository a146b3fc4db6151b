// Package filter narrows a reconciled opportunity collection for display.
package filter

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/david/rfp-desk/internal/models"
)

// All is the selector value that disables a categorical predicate.
const All = "All"

type Criteria struct {
	Query    string `json:"q" query:"q"`
	Status   string `json:"status" query:"status"`
	Category string `json:"category" query:"category"`
}

// Options are the selector values offered for the current collection.
type Options struct {
	Statuses   []string `json:"statuses"`
	Categories []string `json:"categories"`
}

func selects(selector, value string) bool {
	return selector == "" || selector == All || selector == value
}

// Apply returns the records matching every predicate in c, in input order.
// The query matches case-insensitively as a substring of the title,
// organization or identifier. The input is never modified.
func Apply(records []models.OpportunityRecord, c Criteria) []models.OpportunityRecord {
	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(c.Query))

	out := make([]models.OpportunityRecord, 0, len(records))
	for _, rec := range records {
		if !selects(c.Status, string(rec.Status)) || !selects(c.Category, rec.Category) {
			continue
		}
		if query != "" &&
			!strings.Contains(fold.String(rec.Title), query) &&
			!strings.Contains(fold.String(rec.Organization), query) &&
			!strings.Contains(fold.String(rec.ID), query) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// BuildOptions derives the distinct statuses and categories present in
// records, in first-seen order, each list led by All.
func BuildOptions(records []models.OpportunityRecord) Options {
	opts := Options{Statuses: []string{All}, Categories: []string{All}}
	seenStatus := map[string]bool{}
	seenCategory := map[string]bool{}
	for _, rec := range records {
		if s := string(rec.Status); s != "" && !seenStatus[s] {
			seenStatus[s] = true
			opts.Statuses = append(opts.Statuses, s)
		}
		if c := rec.Category; c != "" && !seenCategory[c] {
			seenCategory[c] = true
			opts.Categories = append(opts.Categories, c)
		}
	}
	return opts
}
