package ingest

import (
	"strings"
	"time"

	"github.com/david/rfp-desk/internal/models"
)

// DefaultClosingSoonWindow is how close a deadline must be before an
// otherwise open opportunity is shown as closing soon.
const DefaultClosingSoonWindow = 7 * 24 * time.Hour

type StatusDecision struct {
	Status     models.Status
	Reason     string
	Confidence float64
	DeadlineAt *time.Time
}

// feedStatusHints map free-form feed statuses onto the lifecycle enum. Lists
// are checked in order and hints match whole words only.
var feedStatusHints = []struct {
	status models.Status
	hints  []string
}{
	{models.StatusClosed, []string{"closed", "expired", "cancelled", "canceled", "lapsed", "lost", "no longer accepting"}},
	{models.StatusWon, []string{"won", "awarded", "contract awarded"}},
	{models.StatusSubmitted, []string{"submitted", "proposal sent", "bid submitted"}},
	{models.StatusClosingSoon, []string{"closing soon", "closing", "due soon"}},
	{models.StatusInProgress, []string{"in progress", "under review", "drafting", "evaluating", "shortlisted"}},
	{models.StatusPending, []string{"pending", "on hold", "awaiting"}},
	{models.StatusActive, []string{"active", "live", "published"}},
	{models.StatusOpen, []string{"open", "posted", "new", "accepting bids"}},
}

// ComputeStatusDecision picks the lifecycle status for a record. A status
// supplied by the feed always wins; otherwise the deadline decides.
func ComputeStatusDecision(rec models.OpportunityRecord, now time.Time, window time.Duration) StatusDecision {
	now = now.UTC()
	var deadline *time.Time
	if t, ok := parseDeadline(rec.Deadline); ok {
		deadline = &t
	}

	raw := strings.TrimSpace(rec.SourceStatusRaw)
	if raw != "" {
		for _, s := range models.Statuses {
			if strings.EqualFold(raw, string(s)) {
				return StatusDecision{Status: s, Reason: "source_status", Confidence: 0.99, DeadlineAt: deadline}
			}
		}
		if mapped := mapSourceStatusRaw(raw); mapped != "" {
			return StatusDecision{Status: mapped, Reason: "source_status_hint", Confidence: 0.8, DeadlineAt: deadline}
		}
		return StatusDecision{Status: models.StatusPending, Reason: "unrecognised_source_status", Confidence: 0.3, DeadlineAt: deadline}
	}

	if deadline == nil {
		return StatusDecision{Status: models.StatusPending, Reason: "missing_deadline", Confidence: 0.25}
	}
	if !deadline.After(now) {
		return StatusDecision{Status: models.StatusClosed, Reason: "deadline_passed", Confidence: 0.95, DeadlineAt: deadline}
	}
	if window > 0 && deadline.Sub(now) <= window {
		return StatusDecision{Status: models.StatusClosingSoon, Reason: "deadline_near", Confidence: 0.9, DeadlineAt: deadline}
	}
	return StatusDecision{Status: models.StatusOpen, Reason: "future_deadline", Confidence: 0.93, DeadlineAt: deadline}
}

func mapSourceStatusRaw(raw string) models.Status {
	text := wordBounded(raw)
	if strings.TrimSpace(text) == "" {
		return ""
	}
	for _, group := range feedStatusHints {
		for _, hint := range group.hints {
			if strings.Contains(text, " "+hint+" ") {
				return group.status
			}
		}
	}
	return ""
}
