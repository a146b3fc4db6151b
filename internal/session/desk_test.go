package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david/rfp-desk/internal/apperr"
	"github.com/david/rfp-desk/internal/backend/backendtest"
	"github.com/david/rfp-desk/internal/models"
	"github.com/david/rfp-desk/internal/pdfexport"
	"github.com/david/rfp-desk/internal/proposal"
)

type deskRecorder struct {
	mu          sync.Mutex
	exports     []error
	submissions []error
}

func (r *deskRecorder) ObserveExport(_ int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exports = append(r.exports, err)
}

func (r *deskRecorder) ObserveSubmission(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions = append(r.submissions, err)
}

func (h *harness) desk(cfg DeskConfig, opts ...DeskOption) *Desk {
	composer := proposal.NewComposer(proposal.DefaultConfig(), clock)
	exporter := pdfexport.NewExporter(pdfexport.Options{Heading: proposal.Title, VerifyRoundTrip: true, Now: clock})
	return NewDesk(h.client, composer, exporter, cfg, append([]DeskOption{WithDeskClock(clock)}, opts...)...)
}

func TestComposeUsesTopRankedProduct(t *testing.T) {
	h := newHarness(t)
	d := h.desk(DeskConfig{})

	doc, err := d.Compose(context.Background(), "RFP-001")
	require.NoError(t, err)

	assert.Equal(t, "RFP-001", doc.RFPID)
	assert.Equal(t, "SKU-7", doc.SKU)
	assert.Equal(t, fixedNow, doc.GeneratedAt)
	for _, want := range []string{"RFP-001", "94.2%", "₹1050.00", "Department: N/A"} {
		assert.Contains(t, doc.Body, want)
	}

	got, err := d.Draft("RFP-001")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestComposeFailures(t *testing.T) {
	h := newHarness(t)
	d := h.desk(DeskConfig{})
	ctx := context.Background()

	_, err := d.Compose(ctx, "RFP-005")
	assert.ErrorIs(t, err, proposal.ErrNoMatchedProducts)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = d.Compose(ctx, "RFP-404")
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))

	h.fake.Fail("/rfps/:id/matched-products", backendtest.Failure{Status: http.StatusBadGateway})
	_, err = d.Compose(ctx, "RFP-001")
	assert.True(t, apperr.IsRetryable(err))

	assert.Empty(t, d.Drafts())
}

func TestComposeChecksReturnedIdentifier(t *testing.T) {
	h := newHarness(t)
	d := h.desk(DeskConfig{})
	ctx := context.Background()
	products := []backendtest.Row{{"sku": "SKU-9", "unit_price": 10, "test_price": 1}}

	h.fake.SetMatch("RFP-010", backendtest.Match{RFP: backendtest.Row{"rfp_id": "rfp-10", "title": "Other"}, Products: products})
	_, err := d.Compose(ctx, "RFP-010")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))
	assert.Empty(t, d.Drafts())

	h.fake.SetMatch("RFP-011", backendtest.Match{RFP: backendtest.Row{"title": "No identifier"}, Products: products})
	doc, err := d.Compose(ctx, "RFP-011")
	require.NoError(t, err)
	assert.Equal(t, "RFP-011", doc.RFPID)

	got, err := d.Draft(doc.RFPID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
}

func TestDraftMissing(t *testing.T) {
	d := newHarness(t).desk(DeskConfig{})

	_, err := d.Draft("RFP-001")
	assert.ErrorIs(t, err, ErrNoDraft)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = d.Edit("RFP-001", "body")
	assert.ErrorIs(t, err, ErrNoDraft)

	_, err = d.Export("RFP-001")
	assert.ErrorIs(t, err, ErrNoDraft)
}

func TestEditKeepsLinkage(t *testing.T) {
	h := newHarness(t)
	d := h.desk(DeskConfig{})
	orig, err := d.Compose(context.Background(), "RFP-001")
	require.NoError(t, err)

	edited, err := d.Edit("RFP-001", "Revised offer for RFP-001")
	require.NoError(t, err)

	assert.Equal(t, orig.ID, edited.ID)
	assert.Equal(t, orig.RFPID, edited.RFPID)
	assert.Equal(t, orig.SKU, edited.SKU)
	assert.Equal(t, "Revised offer for RFP-001", edited.Body)
	assert.True(t, edited.Edited())
	assert.False(t, orig.Edited())
}

func TestExportRoundTripsDraft(t *testing.T) {
	h := newHarness(t)
	rec := &deskRecorder{}
	d := h.desk(DeskConfig{}, WithDeskObserver(rec))
	_, err := d.Compose(context.Background(), "RFP-001")
	require.NoError(t, err)

	doc, err := d.Export("RFP-001")
	require.NoError(t, err)

	assert.Equal(t, "Proposal_RFP-001.pdf", doc.Filename)
	text, err := pdfexport.ExtractText(doc.Data)
	require.NoError(t, err)
	for _, want := range []string{"RFP ID: RFP-001", "Match Confidence: 94.2%", "Total Base Price: ₹1050.00", "Department: N/A", "• Voltage and resistance parameters"} {
		assert.Contains(t, text, want)
	}
	assert.Equal(t, []error{nil}, rec.exports)
}

func TestFailedExportKeepsDraft(t *testing.T) {
	h := newHarness(t)
	rec := &deskRecorder{}
	d := h.desk(DeskConfig{}, WithDeskObserver(rec))
	_, err := d.Compose(context.Background(), "RFP-001")
	require.NoError(t, err)
	_, err = d.Edit("RFP-001", "broken \xff body")
	require.NoError(t, err)

	_, err = d.Export("RFP-001")
	require.Error(t, err)

	draft, err := d.Draft("RFP-001")
	require.NoError(t, err)
	assert.Equal(t, "broken \xff body", draft.Body)
	require.Len(t, rec.exports, 1)
	assert.Error(t, rec.exports[0])
}

func TestSubmitDestinationPrecedence(t *testing.T) {
	ctx := context.Background()

	t.Run("opportunity address", func(t *testing.T) {
		h := newHarness(t)
		d := h.desk(DeskConfig{FromEmail: "sales@acme.example", DefaultToEmail: "fallback@example.com"})
		_, err := d.Compose(ctx, "RFP-001")
		require.NoError(t, err)

		doc, err := d.Submit(ctx, "RFP-001", "")
		require.NoError(t, err)

		require.NotNil(t, doc.SubmittedAt)
		subs := h.fake.Submissions()
		require.Len(t, subs, 1)
		assert.Equal(t, "tenders@abccorp.example", subs[0].ToEmail)
		assert.Equal(t, "sales@acme.example", subs[0].FromEmail)
		assert.Equal(t, "Cable Supply", subs[0].RFPTitle)
		assert.Equal(t, "ABC Corp", subs[0].Organization)
		assert.Equal(t, doc.Body, subs[0].ProposalText)
	})

	t.Run("explicit address", func(t *testing.T) {
		h := newHarness(t)
		d := h.desk(DeskConfig{DefaultToEmail: "fallback@example.com"})
		_, err := d.Compose(ctx, "RFP-001")
		require.NoError(t, err)

		_, err = d.Submit(ctx, "RFP-001", "override@example.com")
		require.NoError(t, err)
		assert.Equal(t, "override@example.com", h.fake.Submissions()[0].ToEmail)
	})

	t.Run("configured default", func(t *testing.T) {
		h := newHarness(t)
		d := h.desk(DeskConfig{DefaultToEmail: "fallback@example.com"})
		_, err := d.Compose(ctx, "RFP-004")
		require.NoError(t, err)

		_, err = d.Submit(ctx, "RFP-004", "")
		require.NoError(t, err)
		assert.Equal(t, "fallback@example.com", h.fake.Submissions()[0].ToEmail)
	})

	t.Run("no address", func(t *testing.T) {
		h := newHarness(t)
		d := h.desk(DeskConfig{})
		_, err := d.Compose(ctx, "RFP-004")
		require.NoError(t, err)

		_, err = d.Submit(ctx, "RFP-004", " ")
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
		assert.Zero(t, h.fake.Hits("/submit-proposal"))
	})
}

func TestSubmitSendsEditedBody(t *testing.T) {
	h := newHarness(t)
	d := h.desk(DeskConfig{})
	ctx := context.Background()
	_, err := d.Compose(ctx, "RFP-001")
	require.NoError(t, err)
	_, err = d.Edit("RFP-001", "Edited proposal text")
	require.NoError(t, err)

	_, err = d.Submit(ctx, "RFP-001", "")
	require.NoError(t, err)
	assert.Equal(t, "Edited proposal text", h.fake.Submissions()[0].ProposalText)
}

func TestSubmitWithoutDraft(t *testing.T) {
	h := newHarness(t)
	rec := &deskRecorder{}
	d := h.desk(DeskConfig{DefaultToEmail: "fallback@example.com"}, WithDeskObserver(rec))

	_, err := d.Submit(context.Background(), "RFP-001", "")
	assert.ErrorIs(t, err, ErrNoDraft)
	assert.False(t, apperr.IsRetryable(err))
	assert.Zero(t, h.fake.Hits("/submit-proposal"))
	require.Len(t, rec.submissions, 1)
}

func TestSubmitFailureKeepsDraftUnsubmitted(t *testing.T) {
	h := newHarness(t)
	d := h.desk(DeskConfig{})
	ctx := context.Background()
	_, err := d.Compose(ctx, "RFP-001")
	require.NoError(t, err)
	h.fake.Fail("/submit-proposal", backendtest.Failure{Status: http.StatusOK, Message: "mail relay down"})

	_, err = d.Submit(ctx, "RFP-001", "")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "mail relay down"))

	draft, err := d.Draft("RFP-001")
	require.NoError(t, err)
	assert.Nil(t, draft.SubmittedAt)
}

func TestSubmittedOpportunityReconcilesOnNextRefresh(t *testing.T) {
	h := newHarness(t)
	s := h.session(defaultConfig())
	d := h.desk(DeskConfig{})
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))
	require.Equal(t, models.StatusOpen, byID(s.Snapshot().Records)["RFP-001"].Status)

	_, err := d.Compose(ctx, "RFP-001")
	require.NoError(t, err)
	_, err = d.Submit(ctx, "RFP-001", "")
	require.NoError(t, err)

	snap, err := s.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, byID(snap.Records)["RFP-001"].Status)
	assert.Equal(t, 2, snap.Summary.Submitted)
}

func TestDiscard(t *testing.T) {
	h := newHarness(t)
	d := h.desk(DeskConfig{})
	_, err := d.Compose(context.Background(), "RFP-001")
	require.NoError(t, err)
	_, err = d.Compose(context.Background(), "RFP-004")
	require.NoError(t, err)
	require.Len(t, d.Drafts(), 2)
	assert.Equal(t, "RFP-001", d.Drafts()[0].RFPID)

	assert.True(t, d.Discard("RFP-001"))
	assert.False(t, d.Discard("RFP-001"))
	_, err = d.Draft("RFP-001")
	assert.True(t, errors.Is(err, ErrNoDraft))
}
