package reconcile

import (
	"log"
	"time"

	"github.com/david/rfp-desk/internal/models"
)

// Summary carries the aggregate counters shown above the opportunity list.
type Summary struct {
	Total       int `json:"total"`
	Open        int `json:"open"`
	ClosingSoon int `json:"closing_soon"`
	Won         int `json:"won"`
	InProgress  int `json:"in_progress"`
	Submitted   int `json:"submitted"`
}

// Snapshot is the output of one reconciliation cycle. Records belong to the
// snapshot; readers must not modify them.
type Snapshot struct {
	Records []models.OpportunityRecord `json:"records"`
	Summary Summary                    `json:"summary"`
	// LedgerDegraded is set when the ledger could not be fetched and an
	// empty one was used, so Submitted statuses may be stale.
	LedgerDegraded bool      `json:"ledger_degraded"`
	LedgerSize     int       `json:"ledger_size"`
	ReconciledAt   time.Time `json:"reconciled_at"`
}

type Engine struct {
	now func() time.Time
}

func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// Reconcile forces Submitted onto every record whose identifier is in the
// ledger. Order and every other field are preserved; the input slice is not
// modified.
func (e *Engine) Reconcile(records []models.OpportunityRecord, ledger Ledger) Snapshot {
	out := make([]models.OpportunityRecord, len(records))
	for i, rec := range records {
		if ledger.Contains(rec.ID) {
			rec.Status = models.StatusSubmitted
			rec.StatusReason = "ledger"
		}
		out[i] = rec
	}
	return Snapshot{
		Records:      out,
		Summary:      Summarize(out),
		LedgerSize:   ledger.Len(),
		ReconciledAt: e.now().UTC(),
	}
}

// ReconcileFetched reconciles against a ledger fetch result. A failed ledger
// fetch degrades to an empty ledger instead of failing the cycle.
func (e *Engine) ReconcileFetched(records []models.OpportunityRecord, subs []models.SubmissionRecord, ledgerErr error) Snapshot {
	if ledgerErr != nil {
		log.Printf("[reconcile] ledger unavailable, reconciling without overrides: %v", ledgerErr)
		snap := e.Reconcile(records, EmptyLedger())
		snap.LedgerDegraded = true
		return snap
	}
	return e.Reconcile(records, NewLedger(subs))
}

func Summarize(records []models.OpportunityRecord) Summary {
	s := Summary{Total: len(records)}
	for _, rec := range records {
		switch rec.Status {
		case models.StatusOpen:
			s.Open++
		case models.StatusClosingSoon:
			s.ClosingSoon++
		case models.StatusWon:
			s.Won++
		case models.StatusInProgress:
			s.InProgress++
		case models.StatusSubmitted:
			s.Submitted++
		}
	}
	return s
}
