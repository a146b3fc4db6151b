package session

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/david/rfp-desk/internal/apperr"
	"github.com/david/rfp-desk/internal/backend"
	"github.com/david/rfp-desk/internal/ingest"
	"github.com/david/rfp-desk/internal/models"
	"github.com/david/rfp-desk/internal/pdfexport"
	"github.com/david/rfp-desk/internal/proposal"
)

// ProposalSource is the collaborator surface the desk needs.
type ProposalSource interface {
	FetchMatchedProducts(ctx context.Context, rfpID string) (*backend.MatchResult, error)
	SubmitProposal(ctx context.Context, req models.SubmissionRequest) error
}

type DeskConfig struct {
	FromEmail      string
	DefaultToEmail string
}

type DeskObserver interface {
	ObserveExport(size int, err error)
	ObserveSubmission(err error)
}

type draft struct {
	doc models.ProposalDocument
	rfp models.OpportunityRecord
}

// Desk holds the proposal drafts of one session. Drafts live in memory only
// and are lost when the desk is dropped.
type Desk struct {
	source   ProposalSource
	composer *proposal.Composer
	exporter *pdfexport.Exporter
	cfg      DeskConfig
	now      func() time.Time
	observer DeskObserver

	mu     sync.Mutex
	drafts map[string]*draft
}

type DeskOption func(*Desk)

func WithDeskClock(now func() time.Time) DeskOption {
	return func(d *Desk) { d.now = now }
}

func WithDeskObserver(o DeskObserver) DeskOption {
	return func(d *Desk) { d.observer = o }
}

func NewDesk(source ProposalSource, composer *proposal.Composer, exporter *pdfexport.Exporter, cfg DeskConfig, opts ...DeskOption) *Desk {
	d := &Desk{
		source:   source,
		composer: composer,
		exporter: exporter,
		cfg:      cfg,
		now:      time.Now,
		drafts:   map[string]*draft{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func noDraft(op, rfpID string) error {
	return &apperr.Error{
		Kind:    apperr.KindValidation,
		Op:      op,
		Message: fmt.Sprintf("no proposal composed for %s", rfpID),
		Err:     ErrNoDraft,
	}
}

// Compose fetches the ranked products for rfpID and drafts a proposal from
// the first one. An existing draft for the same opportunity is replaced.
func (d *Desk) Compose(ctx context.Context, rfpID string) (models.ProposalDocument, error) {
	rfpID = strings.TrimSpace(rfpID)
	res, err := d.source.FetchMatchedProducts(ctx, rfpID)
	if err != nil {
		return models.ProposalDocument{}, err
	}
	rfp := ingest.FromRaw(res.RFP)
	switch {
	case rfp.ID == "":
		rfp.ID = rfpID
	case rfp.ID != rfpID:
		return models.ProposalDocument{}, apperr.Upstream("compose",
			fmt.Sprintf("matched products requested for %s but returned for %s", rfpID, rfp.ID))
	}
	doc, err := d.composer.Compose(rfp, res.Products)
	if err != nil {
		return models.ProposalDocument{}, err
	}

	d.mu.Lock()
	d.drafts[rfpID] = &draft{doc: doc, rfp: rfp}
	d.mu.Unlock()
	log.Printf("[desk] composed proposal %s for %s from %s (%d ranked)", doc.ID, rfpID, doc.SKU, len(res.Products))
	return doc, nil
}

// Draft returns the current draft for rfpID.
func (d *Desk) Draft(rfpID string) (models.ProposalDocument, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dr, ok := d.drafts[strings.TrimSpace(rfpID)]
	if !ok {
		return models.ProposalDocument{}, noDraft("draft", rfpID)
	}
	return dr.doc, nil
}

// Drafts lists every draft ordered by opportunity identifier.
func (d *Desk) Drafts() []models.ProposalDocument {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.ProposalDocument, 0, len(d.drafts))
	for _, dr := range d.drafts {
		out = append(out, dr.doc)
	}
	slices.SortFunc(out, func(a, b models.ProposalDocument) int { return strings.Compare(a.RFPID, b.RFPID) })
	return out
}

// Edit replaces the draft body. Identifier, SKU and linkage are kept.
func (d *Desk) Edit(rfpID, body string) (models.ProposalDocument, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dr, ok := d.drafts[strings.TrimSpace(rfpID)]
	if !ok {
		return models.ProposalDocument{}, noDraft("edit", rfpID)
	}
	dr.doc = dr.doc.WithBody(body, d.now().UTC())
	return dr.doc, nil
}

// Export renders the draft as a PDF. The draft is left untouched whether or
// not rendering succeeds, so a failed export can simply be retried.
func (d *Desk) Export(rfpID string) (*pdfexport.Document, error) {
	doc, err := d.Draft(rfpID)
	if err != nil {
		return nil, err
	}
	out, err := d.exporter.Export(pdfexport.FileName(doc.RFPID), doc.Body)
	if d.observer != nil {
		size := 0
		if out != nil {
			size = len(out.Data)
		}
		d.observer.ObserveExport(size, err)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Submit sends the draft body. The destination is to when given, else the
// opportunity's own submission address, else the configured default.
func (d *Desk) Submit(ctx context.Context, rfpID, to string) (models.ProposalDocument, error) {
	const op = "submit"
	key := strings.TrimSpace(rfpID)
	d.mu.Lock()
	dr, ok := d.drafts[key]
	var doc models.ProposalDocument
	var rfp models.OpportunityRecord
	if ok {
		doc, rfp = dr.doc, dr.rfp
	}
	d.mu.Unlock()
	if !ok {
		return models.ProposalDocument{}, d.submitted(noDraft(op, rfpID))
	}
	if strings.TrimSpace(doc.Body) == "" {
		return models.ProposalDocument{}, d.submitted(apperr.Validation(op, "proposal body is empty"))
	}

	dest := firstNonBlank(to, rfp.SubmissionEmail, d.cfg.DefaultToEmail)
	if dest == "" {
		return models.ProposalDocument{}, d.submitted(apperr.Validation(op, "no destination address for "+doc.RFPID))
	}

	req := models.SubmissionRequest{
		RFPID:        doc.RFPID,
		RFPTitle:     doc.RFPTitle,
		Organization: doc.Organization,
		ProposalText: doc.Body,
		FromEmail:    strings.TrimSpace(d.cfg.FromEmail),
		ToEmail:      dest,
	}
	if err := d.source.SubmitProposal(ctx, req); err != nil {
		return models.ProposalDocument{}, d.submitted(err)
	}
	d.submitted(nil)

	at := d.now().UTC()
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.drafts[key]; ok {
		cur.doc.SubmittedAt = &at
		return cur.doc, nil
	}
	doc.SubmittedAt = &at
	return doc, nil
}

func (d *Desk) submitted(err error) error {
	if d.observer != nil {
		d.observer.ObserveSubmission(err)
	}
	return err
}

// Discard drops the draft for rfpID. It reports whether one existed.
func (d *Desk) Discard(rfpID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := strings.TrimSpace(rfpID)
	_, ok := d.drafts[id]
	delete(d.drafts, id)
	return ok
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
