package ingest

import (
	"testing"
	"time"

	"github.com/david/rfp-desk/internal/models"
)

func TestComputeStatusDecision_SourceStatusWins(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)

	decision := ComputeStatusDecision(models.OpportunityRecord{SourceStatusRaw: "in progress", Deadline: "2020-01-01"}, now, DefaultClosingSoonWindow)
	if decision.Status != models.StatusInProgress {
		t.Fatalf("expected In Progress, got %s", decision.Status)
	}
	if decision.Reason != "source_status" {
		t.Fatalf("expected reason source_status, got %s", decision.Reason)
	}
}

func TestComputeStatusDecision_PastDeadlineClosed(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)

	decision := ComputeStatusDecision(models.OpportunityRecord{Deadline: "2026-02-10"}, now, DefaultClosingSoonWindow)
	if decision.Status != models.StatusClosed {
		t.Fatalf("expected Closed, got %s", decision.Status)
	}
	if decision.Reason != "deadline_passed" {
		t.Fatalf("expected deadline_passed, got %s", decision.Reason)
	}
}

func TestComputeStatusDecision_DeadlineTodayIsClosingSoon(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)

	decision := ComputeStatusDecision(models.OpportunityRecord{Deadline: "2026-02-12"}, now, DefaultClosingSoonWindow)
	if decision.Status != models.StatusClosingSoon {
		t.Fatalf("expected Closing Soon, got %s", decision.Status)
	}
}

func TestComputeStatusDecision_FutureDeadlineOpen(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)

	decision := ComputeStatusDecision(models.OpportunityRecord{Deadline: "2026-03-30"}, now, DefaultClosingSoonWindow)
	if decision.Status != models.StatusOpen {
		t.Fatalf("expected Open, got %s", decision.Status)
	}
	if decision.DeadlineAt == nil || decision.DeadlineAt.Format("2006-01-02") != "2026-03-30" {
		t.Fatalf("expected parsed deadline, got %v", decision.DeadlineAt)
	}
}

func TestComputeStatusDecision_ZeroWindowNeverClosingSoon(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)

	decision := ComputeStatusDecision(models.OpportunityRecord{Deadline: "2026-02-13"}, now, 0)
	if decision.Status != models.StatusOpen {
		t.Fatalf("expected Open, got %s", decision.Status)
	}
}

func TestComputeStatusDecision_MissingDeadlinePending(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)

	decision := ComputeStatusDecision(models.OpportunityRecord{Deadline: "soon-ish"}, now, DefaultClosingSoonWindow)
	if decision.Status != models.StatusPending {
		t.Fatalf("expected Pending, got %s", decision.Status)
	}
	if decision.Reason != "missing_deadline" {
		t.Fatalf("expected missing_deadline, got %s", decision.Reason)
	}
}

func TestComputeStatusDecision_UnknownSourceStatusPending(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)

	decision := ComputeStatusDecision(models.OpportunityRecord{SourceStatusRaw: "mystery", Deadline: "2026-03-30"}, now, DefaultClosingSoonWindow)
	if decision.Status != models.StatusPending {
		t.Fatalf("expected Pending, got %s", decision.Status)
	}
	if decision.Reason != "unrecognised_source_status" {
		t.Fatalf("expected unrecognised_source_status, got %s", decision.Reason)
	}
}

func TestMapSourceStatusRaw(t *testing.T) {
	tests := []struct {
		raw  string
		want models.Status
	}{
		{"CLOSED", models.StatusClosed},
		{"Bid closing soon", models.StatusClosingSoon},
		{"Contract awarded", models.StatusWon},
		{"Proposal sent", models.StatusSubmitted},
		{"under review", models.StatusInProgress},
		{"on hold", models.StatusPending},
		{"Published", models.StatusActive},
		{"posted", models.StatusOpen},
		{"renewal", ""},
		{"delivered", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := mapSourceStatusRaw(tt.raw); got != tt.want {
				t.Fatalf("mapSourceStatusRaw(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
