package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david/rfp-desk/internal/backend"
	"github.com/david/rfp-desk/internal/backend/backendtest"
	"github.com/david/rfp-desk/internal/metrics"
	"github.com/david/rfp-desk/internal/pdfexport"
	"github.com/david/rfp-desk/internal/proposal"
	"github.com/david/rfp-desk/internal/session"
)

var fixedNow = time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type testEnv struct {
	fake   *backendtest.Fake
	server *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fake := backendtest.New(backendtest.SampleFixture())
	upstream := httptest.NewServer(fake)
	t.Cleanup(upstream.Close)

	m := metrics.New()
	client, err := backend.NewClient(backend.Config{
		BaseURL:              upstream.URL,
		Timeout:              2 * time.Second,
		RetryInitialInterval: time.Millisecond,
	}, backend.WithObserver(m))
	require.NoError(t, err)

	sess := session.New(client, session.Config{
		Feed:               backend.FeedScrape,
		ClosingSoonWindow:  7 * 24 * time.Hour,
		ClearBeforeRefresh: true,
	}, session.WithClock(clock), session.WithRefreshObserver(m))
	require.NoError(t, sess.Initialize(context.Background()))
	t.Cleanup(sess.Close)

	desk := session.NewDesk(client,
		proposal.NewComposer(proposal.DefaultConfig(), clock),
		pdfexport.NewExporter(pdfexport.Options{Heading: proposal.Title, VerifyRoundTrip: true, Now: clock}),
		session.DeskConfig{FromEmail: "bids@example.com"},
		session.WithDeskClock(clock), session.WithDeskObserver(m),
	)
	return &testEnv{fake: fake, server: NewServer(sess, desk, m, []string{"http://desk.example"})}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Echo.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestListRFPsAppliesFilters(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/rfps", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, decode(t, rec)["count"])

	rec = env.do(t, http.MethodGet, "/api/v1/rfps?status=Submitted", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["count"])
	records := body["records"].([]any)
	assert.Equal(t, "RFP-002", records[0].(map[string]any)["rfp_id"])

	rec = env.do(t, http.MethodGet, "/api/v1/rfps?q=cable&category=All", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])
}

func TestOptionsAndStats(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/rfps/options", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"statuses":["All","Open","Submitted"],"categories":["All","Cables","Wiring","General"]}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	summary := body["summary"].(map[string]any)
	assert.EqualValues(t, 3, summary["total"])
	assert.EqualValues(t, 1, summary["submitted"])
	assert.Equal(t, false, body["ledger_degraded"])
	assert.Equal(t, true, body["loaded"])
}

func TestRefreshFailureRaisesDismissableBanner(t *testing.T) {
	env := newTestEnv(t)
	env.fake.Fail("/scrape", backendtest.Failure{Status: http.StatusInternalServerError, Message: "scraper down", Times: 10})

	rec := env.do(t, http.MethodPost, "/api/v1/refresh", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "upstream", body["kind"])
	assert.Equal(t, true, body["retryable"])
	assert.Contains(t, body["error"], "scraper down")

	rec = env.do(t, http.MethodGet, "/api/v1/rfps", "")
	assert.EqualValues(t, 3, decode(t, rec)["count"], "previous collection is kept")

	rec = env.do(t, http.MethodGet, "/api/v1/banners", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var banners []session.Banner
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &banners))
	require.Len(t, banners, 1)
	assert.Equal(t, session.OpRefresh, banners[0].Op)

	rec = env.do(t, http.MethodDelete, "/api/v1/banners/"+banners[0].ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/v1/banners/"+banners[0].ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshInBackground(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/refresh?wait=false", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID, _ := decode(t, rec)["job_id"].(string)
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		rec := env.do(t, http.MethodGet, "/api/v1/jobs/"+jobID, "")
		return rec.Code == http.StatusOK && decode(t, rec)["status"] == "completed"
	}, 2*time.Second, 10*time.Millisecond)

	rec = env.do(t, http.MethodGet, "/api/v1/jobs/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/refresh?wait=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmittedLedger(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/submitted", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var subs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subs))
	require.Len(t, subs, 1)
	assert.Equal(t, "RFP-002", subs[0]["rfp_id"])
}

func TestProposalLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/proposals/RFP-001", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode(t, rec)
	assert.Equal(t, "SKU-7", doc["sku"])
	assert.Contains(t, doc["body"], "94.2%")

	rec = env.do(t, http.MethodPut, "/api/v1/proposals/RFP-001", `{"body":"Edited proposal\nTotal: ₹1050.00"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Edited proposal\nTotal: ₹1050.00", decode(t, rec)["body"])

	rec = env.do(t, http.MethodGet, "/api/v1/proposals/RFP-001/pdf", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Proposal_RFP-001.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", rec.Header().Get("X-Page-Count"))
	text, err := pdfexport.ExtractText(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Contains(t, text, "Total: ₹1050.00")

	rec = env.do(t, http.MethodPost, "/api/v1/proposals/RFP-001/submit", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotNil(t, decode(t, rec)["submitted_at"])
	subs := env.fake.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "tenders@abccorp.example", subs[0].ToEmail)
	assert.Equal(t, "bids@example.com", subs[0].FromEmail)

	rec = env.do(t, http.MethodGet, "/api/v1/proposals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var drafts []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &drafts))
	assert.Len(t, drafts, 1)

	rec = env.do(t, http.MethodDelete, "/api/v1/proposals/RFP-001", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/v1/proposals/RFP-001", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation", body["kind"])
	assert.Equal(t, false, body["retryable"])
	rec = env.do(t, http.MethodDelete, "/api/v1/proposals/RFP-001", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitOverridesDestination(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/proposals/RFP-001", "").Code)

	rec := env.do(t, http.MethodPost, "/api/v1/proposals/RFP-001/submit", `{"to_email":"review@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	subs := env.fake.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "review@example.com", subs[0].ToEmail)
}

func TestProposalErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/proposals/RFP-404", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream", decode(t, rec)["kind"])

	rec = env.do(t, http.MethodPost, "/api/v1/proposals/RFP-005", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/proposals/RFP-001/pdf", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/proposals/RFP-001", "").Code)
	rec = env.do(t, http.MethodPut, "/api/v1/proposals/RFP-001", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/proposals/RFP-001", `{"body":"   "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/v1/proposals/RFP-001/submit", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.fake.Submissions())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/proposals/RFP-001", "").Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/proposals/RFP-001/pdf", "").Code)

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `rfpdesk_exports_total{outcome="ok"} 1`)
	assert.Contains(t, body, `rfpdesk_refreshes_total{outcome="ok"} 1`)
	assert.Contains(t, body, "rfpdesk_backend_requests_total")
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitCSV(" a, ,b "))
	assert.Nil(t, splitCSV(""))
}
