package models

// SubmissionRecord is one entry of the backend's submission ledger. It is
// created by a successful proposal submission and never changes afterwards.
type SubmissionRecord struct {
	RFPID       string `json:"rfp_id"`
	Title       string `json:"title,omitempty"`
	Client      string `json:"client,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
	Match       *Score `json:"match_percent,omitempty"`
	Status      string `json:"status,omitempty"`
	SubmittedAt string `json:"submitted_at,omitempty"`
	ToEmail     string `json:"to_email,omitempty"`
}

// SubmissionRequest is the body of a proposal submission.
type SubmissionRequest struct {
	RFPID        string `json:"rfp_id"`
	RFPTitle     string `json:"rfp_title"`
	Organization string `json:"organization"`
	ProposalText string `json:"proposal_text"`
	FromEmail    string `json:"from_email"`
	ToEmail      string `json:"to_email"`
}
