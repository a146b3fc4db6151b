package ingest

import (
	"encoding/json"

	"github.com/david/rfp-desk/internal/models"
)

// RawOpportunity is an opportunity as a collaborator feed sends it. The three
// feeds disagree on field names (organization vs client, match_percent vs
// match) and any optional field may be missing or null.
type RawOpportunity struct {
	RFPID           models.Attr     `json:"rfp_id"`
	ID              models.Attr     `json:"id"`
	Title           string          `json:"title"`
	Organization    string          `json:"organization"`
	Client          string          `json:"client"`
	Department      string          `json:"department"`
	Category        string          `json:"category"`
	IssueDate       string          `json:"issue_date"`
	Deadline        string          `json:"deadline"`
	Status          string          `json:"status"`
	Description     string          `json:"description"`
	SubmissionEmail string          `json:"submission_email"`
	MatchPercent    json.RawMessage `json:"match_percent"`
	Match           json.RawMessage `json:"match"`
	Priority        string          `json:"priority"`
}

// BatchStats summarises one ingestion pass.
type BatchStats struct {
	Received int `json:"received"`
	Skipped  int `json:"skipped"`
	Enriched int `json:"enriched"`
}
