package ingest

import (
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/david/rfp-desk/internal/models"
)

const defaultCategory = "General"

// Enricher fills absent display fields with index-derived defaults and
// resolves each record's lifecycle status. It holds no mutable state; the
// clock is injected so results are reproducible.
type Enricher struct {
	now               func() time.Time
	closingSoonWindow time.Duration
}

func NewEnricher(now func() time.Time, closingSoonWindow time.Duration) *Enricher {
	if now == nil {
		now = time.Now
	}
	return &Enricher{now: now, closingSoonWindow: closingSoonWindow}
}

// Enrich returns rec with every required display field populated. index is
// the record's position within its fetched batch. Present fields are never
// rewritten.
func (e *Enricher) Enrich(rec models.OpportunityRecord, index int) models.OpportunityRecord {
	now := e.now().UTC()
	var filled []string

	if rec.Organization == "" {
		rec.Organization = fmt.Sprintf("Organization %d", index+1)
		filled = append(filled, "organization")
	}
	if rec.Department == "" {
		rec.Department = fmt.Sprintf("Department %d", index+1)
		filled = append(filled, "department")
	}
	if rec.Category == "" {
		rec.Category = defaultCategory
		filled = append(filled, "category")
	}
	if rec.Deadline == "" {
		rec.Deadline = now.AddDate(0, 0, (index+1)*10).Format(isoDate)
		filled = append(filled, "deadline")
	}
	if rec.IssueDate == "" {
		rec.IssueDate = now.AddDate(0, 0, -5).Format(isoDate)
		filled = append(filled, "issue_date")
	}
	if !rec.Status.Valid() {
		decision := ComputeStatusDecision(rec, now, e.closingSoonWindow)
		rec.Status = decision.Status
		rec.StatusReason = decision.Reason
	}
	if len(filled) > 0 {
		rec.Enriched = append(slices.Clip(rec.Enriched), filled...)
	}
	return rec
}

// Batch converts and enriches a fetched feed. Records without an identifier
// cannot be reconciled and are skipped; indices stay positional within the
// original batch.
func (e *Enricher) Batch(raws []RawOpportunity) ([]models.OpportunityRecord, BatchStats) {
	stats := BatchStats{Received: len(raws)}
	fetchedAt := e.now().UTC()
	out := make([]models.OpportunityRecord, 0, len(raws))

	for i, raw := range raws {
		rec := FromRaw(raw)
		if rec.ID == "" {
			stats.Skipped++
			log.Printf("[ingest] skipping record %d (%q): no identifier", i, rec.Title)
			continue
		}
		rec = e.Enrich(rec, i)
		if len(rec.Enriched) > 0 {
			stats.Enriched++
		}
		rec.FetchedAt = fetchedAt
		out = append(out, rec)
	}
	return out, stats
}
