package reconcile

import (
	"sort"
	"strings"

	"github.com/david/rfp-desk/internal/models"
)

// Ledger is the set of opportunity identifiers that already have a submitted
// proposal. The zero value is an empty ledger.
type Ledger struct {
	ids map[string]struct{}
}

func EmptyLedger() Ledger { return Ledger{} }

// NewLedger builds a ledger from the backend's submission records.
func NewLedger(subs []models.SubmissionRecord) Ledger {
	ids := make(map[string]struct{}, len(subs))
	for _, s := range subs {
		if id := strings.TrimSpace(s.RFPID); id != "" {
			ids[id] = struct{}{}
		}
	}
	return Ledger{ids: ids}
}

// LedgerOf builds a ledger from bare identifiers.
func LedgerOf(ids ...string) Ledger {
	subs := make([]models.SubmissionRecord, len(ids))
	for i, id := range ids {
		subs[i] = models.SubmissionRecord{RFPID: id}
	}
	return NewLedger(subs)
}

func (l Ledger) Contains(id string) bool {
	_, ok := l.ids[id]
	return ok
}

func (l Ledger) Len() int { return len(l.ids) }

// IDs returns the members in sorted order.
func (l Ledger) IDs() []string {
	out := make([]string, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
