// Package backendtest provides an in-process stand-in for the collaborator
// service: the three opportunity feeds, the submission ledger, matched
// products and proposal submission, with per-endpoint failure injection.
package backendtest

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/david/rfp-desk/internal/models"
)

// Row is one JSON object as the collaborator sends it. Rows are kept
// untyped so fixtures can carry the mixed value types real feeds produce.
type Row map[string]any

// Match is the matched-products payload for one opportunity.
type Match struct {
	RFP      Row
	Products []Row
}

type Fixture struct {
	Feeds     map[string][]Row // keyed by endpoint path, e.g. "/scrape"
	Submitted []Row
	Matches   map[string]Match
}

// Failure makes an endpoint misbehave. Times limits how many requests fail;
// zero means every request.
type Failure struct {
	Status    int
	Message   string
	Malformed bool
	Delay     time.Duration
	Times     int
}

type Fake struct {
	e   *echo.Echo
	now func() time.Time

	mu          sync.Mutex
	fx          Fixture
	failures    map[string]*Failure
	hits        map[string]int
	submissions []models.SubmissionRequest
}

func New(fx Fixture) *Fake {
	if fx.Feeds == nil {
		fx.Feeds = map[string][]Row{}
	}
	if fx.Matches == nil {
		fx.Matches = map[string]Match{}
	}
	f := &Fake{
		e:        echo.New(),
		now:      time.Now,
		fx:       fx,
		failures: map[string]*Failure{},
		hits:     map[string]int{},
	}
	f.e.HideBanner = true
	f.e.HidePort = true
	f.routes()
	return f
}

func (f *Fake) routes() {
	for _, path := range []string{"/scrape", "/new-incoming", "/dashboard-rfps"} {
		f.e.GET(path, f.handleFeed)
	}
	f.e.GET("/submitted", f.handleSubmitted)
	f.e.GET("/rfps/:id/matched-products", f.handleMatchedProducts)
	f.e.POST("/submit-proposal", f.handleSubmit)
}

func (f *Fake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.e.ServeHTTP(w, r)
}

// Echo exposes the router so a command can serve it directly.
func (f *Fake) Echo() *echo.Echo { return f.e }

// Fail installs a failure for an endpoint path ("/submitted",
// "/rfps/:id/matched-products", ...).
func (f *Fake) Fail(path string, failure Failure) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if failure.Status == 0 && !failure.Malformed {
		failure.Status = http.StatusOK
	}
	f.failures[path] = &failure
}

// Heal removes every installed failure.
func (f *Fake) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = map[string]*Failure{}
}

// Hits reports how many requests an endpoint path has received.
func (f *Fake) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

// Submissions returns every accepted proposal submission in order.
func (f *Fake) Submissions() []models.SubmissionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SubmissionRequest(nil), f.submissions...)
}

// SetFeed replaces the rows of one feed.
func (f *Fake) SetFeed(path string, rows []Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fx.Feeds[path] = rows
}

// SetMatch replaces the matched-products payload served for id.
func (f *Fake) SetMatch(id string, m Match) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fx.Matches[id] = m
}

// injected applies a pending failure. It reports true when the response
// has been written.
func (f *Fake) injected(c echo.Context, path string) (bool, error) {
	f.mu.Lock()
	f.hits[path]++
	failure, ok := f.failures[path]
	if ok && failure.Times > 0 {
		failure.Times--
		if failure.Times == 0 {
			delete(f.failures, path)
		}
	}
	f.mu.Unlock()
	if !ok {
		return false, nil
	}

	if failure.Delay > 0 {
		select {
		case <-time.After(failure.Delay):
		case <-c.Request().Context().Done():
			return true, nil
		}
	}
	if failure.Malformed {
		return true, c.Blob(http.StatusOK, echo.MIMEApplicationJSON, []byte(`{"success": true, "data": {"unexpected": `))
	}
	if failure.Status == http.StatusOK && failure.Message == "" {
		return false, nil
	}
	msg := failure.Message
	if msg == "" {
		msg = http.StatusText(failure.Status)
	}
	return true, c.JSON(failure.Status, map[string]any{"success": false, "error": msg})
}

func (f *Fake) handleFeed(c echo.Context) error {
	path := c.Path()
	if done, err := f.injected(c, path); done {
		return err
	}
	f.mu.Lock()
	rows := f.fx.Feeds[path]
	f.mu.Unlock()
	if rows == nil {
		rows = []Row{}
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": rows})
}

func (f *Fake) handleSubmitted(c echo.Context) error {
	if done, err := f.injected(c, "/submitted"); done {
		return err
	}
	f.mu.Lock()
	rows := append([]Row{}, f.fx.Submitted...)
	f.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": rows})
}

func (f *Fake) handleMatchedProducts(c echo.Context) error {
	if done, err := f.injected(c, "/rfps/:id/matched-products"); done {
		return err
	}
	id := c.Param("id")
	f.mu.Lock()
	m, ok := f.fx.Matches[id]
	f.mu.Unlock()
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]any{"success": false, "error": "RFP not found"})
	}
	products := m.Products
	if products == nil {
		products = []Row{}
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "rfp": m.RFP, "matched_products": products})
}

func (f *Fake) handleSubmit(c echo.Context) error {
	if done, err := f.injected(c, "/submit-proposal"); done {
		return err
	}
	var req models.SubmissionRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "error": "invalid JSON body"})
	}
	if strings.TrimSpace(req.RFPID) == "" || strings.TrimSpace(req.ProposalText) == "" {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "error": "rfp_id and proposal_text are required"})
	}

	f.mu.Lock()
	f.submissions = append(f.submissions, req)
	f.fx.Submitted = append(f.fx.Submitted, Row{
		"rfp_id":       req.RFPID,
		"title":        req.RFPTitle,
		"client":       req.Organization,
		"status":       string(models.StatusSubmitted),
		"submitted_at": f.now().UTC().Format(time.RFC3339),
		"to_email":     req.ToEmail,
	})
	f.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Proposal submitted"})
}
