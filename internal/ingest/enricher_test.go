package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david/rfp-desk/internal/models"
)

var fixedNow = time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestEnrich_FillsIndexDerivedDefaults(t *testing.T) {
	e := NewEnricher(fixedClock, DefaultClosingSoonWindow)

	got := e.Enrich(models.OpportunityRecord{ID: "RFP-003", Title: "Cable Supply"}, 2)

	assert.Equal(t, "Organization 3", got.Organization)
	assert.Equal(t, "Department 3", got.Department)
	assert.Equal(t, "General", got.Category)
	assert.Equal(t, "2026-03-14", got.Deadline) // now + 30 days
	assert.Equal(t, "2026-02-07", got.IssueDate)
	assert.Equal(t, models.StatusOpen, got.Status)
	assert.Equal(t, []string{"organization", "department", "category", "deadline", "issue_date"}, got.Enriched)
	assert.True(t, got.HasRequiredFields())
}

func TestEnrich_PresentFieldsPassThrough(t *testing.T) {
	e := NewEnricher(fixedClock, DefaultClosingSoonWindow)
	in := models.OpportunityRecord{
		ID:           "RFP-001",
		Title:        "Cable Supply",
		Organization: "ABC Corp",
		Department:   "Procurement",
		Category:     "Cables",
		IssueDate:    "2026-01-01",
		Deadline:     "2024-12-15",
		Status:       models.StatusWon,
	}

	got := e.Enrich(in, 0)

	assert.Equal(t, in, got)
}

func TestEnrich_Deterministic(t *testing.T) {
	e := NewEnricher(fixedClock, DefaultClosingSoonWindow)
	in := models.OpportunityRecord{ID: "RFP-010", SourceStatusRaw: "posted"}

	first := e.Enrich(in, 4)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Enrich(in, 4))
	}
	assert.Equal(t, models.StatusOpen, first.Status)
	assert.Equal(t, "2026-04-03", first.Deadline) // now + 50 days
}

func TestEnrich_DoesNotAliasInput(t *testing.T) {
	e := NewEnricher(fixedClock, DefaultClosingSoonWindow)
	backing := make([]string, 1, 8)
	backing[0] = "title"
	in := models.OpportunityRecord{ID: "RFP-1", Enriched: backing}

	a := e.Enrich(in, 0)
	_ = append(in.Enriched, "other")

	assert.Equal(t, []string{"title", "organization", "department", "category", "deadline", "issue_date"}, a.Enriched)
}

func TestBatch_TotalityAndSkipping(t *testing.T) {
	payload := `[
		{"rfp_id": "RFP-001", "title": "Cable Supply", "organization": "ABC Corp", "deadline": "2024-12-15"},
		{"title": "No identifier"},
		{"id": "RFP-003", "department": null, "status": "Closing Soon"}
	]`
	var raws []RawOpportunity
	require.NoError(t, json.Unmarshal([]byte(payload), &raws))

	e := NewEnricher(fixedClock, DefaultClosingSoonWindow)
	records, stats := e.Batch(raws)

	require.Len(t, records, 2)
	assert.Equal(t, BatchStats{Received: 3, Skipped: 1, Enriched: 2}, stats)
	for _, rec := range records {
		assert.True(t, rec.HasRequiredFields(), rec.ID)
		assert.Equal(t, fixedNow, rec.FetchedAt)
	}

	assert.Equal(t, models.StatusClosed, records[0].Status)
	// Index stays positional within the fetched batch.
	assert.Equal(t, "Organization 3", records[1].Organization)
	assert.Equal(t, models.StatusClosingSoon, records[1].Status)
}
