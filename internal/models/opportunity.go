package models

import "time"

// Status is the lifecycle state of an opportunity after reconciliation.
type Status string

const (
	StatusOpen        Status = "Open"
	StatusActive      Status = "Active"
	StatusInProgress  Status = "In Progress"
	StatusPending     Status = "Pending"
	StatusClosingSoon Status = "Closing Soon"
	StatusSubmitted   Status = "Submitted"
	StatusWon         Status = "Won"
	StatusClosed      Status = "Closed"
)

// Statuses lists every lifecycle value in display order.
var Statuses = []Status{
	StatusOpen,
	StatusActive,
	StatusInProgress,
	StatusPending,
	StatusClosingSoon,
	StatusSubmitted,
	StatusWon,
	StatusClosed,
}

// Valid reports whether s is one of the enumerated lifecycle values.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }

type OpportunityRecord struct {
	ID              string    `json:"rfp_id"`
	Title           string    `json:"title"`
	Organization    string    `json:"organization"`
	Department      string    `json:"department"`
	Category        string    `json:"category"`
	IssueDate       string    `json:"issue_date"`
	Deadline        string    `json:"deadline"`
	Status          Status    `json:"status"`
	SourceStatusRaw string    `json:"source_status_raw,omitempty"`
	StatusReason    string    `json:"status_reason,omitempty"`
	Description     string    `json:"description,omitempty"`
	DescriptionHTML string    `json:"description_html,omitempty"`
	SubmissionEmail string    `json:"submission_email,omitempty"`
	Match           *Score    `json:"match_percent,omitempty"`
	Priority        Priority  `json:"priority,omitempty"`
	Enriched        []string  `json:"enriched_fields,omitempty"` // fields filled by derived defaults
	FetchedAt       time.Time `json:"fetched_at"`
}

// HasRequiredFields reports whether every display field is populated.
func (r OpportunityRecord) HasRequiredFields() bool {
	return r.ID != "" &&
		r.Organization != "" &&
		r.Department != "" &&
		r.Category != "" &&
		r.IssueDate != "" &&
		r.Deadline != "" &&
		r.Status.Valid()
}
