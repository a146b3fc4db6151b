package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/david/rfp-desk/internal/apperr"
	"github.com/david/rfp-desk/internal/filter"
	"github.com/david/rfp-desk/internal/metrics"
	"github.com/david/rfp-desk/internal/session"
)

type Server struct {
	Echo    *echo.Echo
	Session *session.Session
	Desk    *session.Desk
	Metrics *metrics.Collectors

	// Background refresh tracking
	jobMu      sync.Mutex
	runningJob *backgroundJob
}

type backgroundJob struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"` // running, completed, failed
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at,omitempty"`
	Result    any                `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	Cancel    context.CancelFunc `json:"-"`
}

const defaultOrigin = "http://localhost:5173"

func NewServer(sess *session.Session, desk *session.Desk, m *metrics.Collectors, corsOrigins []string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := []string{defaultOrigin}
	for _, o := range corsOrigins {
		for _, part := range splitCSV(o) {
			if part != defaultOrigin {
				allowedOrigins = append(allowedOrigins, part)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		ExposeHeaders: []string{echo.HeaderContentDisposition, "X-Page-Count"},
	}))

	s := &Server{
		Echo:    e,
		Session: sess,
		Desk:    desk,
		Metrics: m,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	if s.Metrics != nil {
		s.Echo.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))
	}

	api := s.Echo.Group("/api/v1")
	api.GET("/rfps", s.handleListRFPs)
	api.GET("/rfps/options", s.handleGetOptions)
	api.GET("/stats", s.handleGetStats)
	api.POST("/refresh", s.handleRefresh)
	api.GET("/jobs/:id", s.handleJobStatus)
	api.GET("/banners", s.handleListBanners)
	api.DELETE("/banners/:id", s.handleDismissBanner)
	api.GET("/submitted", s.handleListSubmitted)

	api.GET("/proposals", s.handleListProposals)
	api.POST("/proposals/:id", s.handleComposeProposal)
	api.GET("/proposals/:id", s.handleGetProposal)
	api.PUT("/proposals/:id", s.handleEditProposal)
	api.DELETE("/proposals/:id", s.handleDiscardProposal)
	api.GET("/proposals/:id/pdf", s.handleExportProposal)
	api.POST("/proposals/:id/submit", s.handleSubmitProposal)
}

// fail maps an error onto an HTTP status and a body the frontend can use to
// decide whether to offer a retry.
func fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
		if errors.Is(err, session.ErrNoDraft) {
			status = http.StatusNotFound
		}
	case apperr.KindUpstream, apperr.KindMalformed:
		status = http.StatusBadGateway
	case apperr.KindNetwork:
		status = http.StatusServiceUnavailable
	case apperr.KindRender:
		status = http.StatusInternalServerError
	}
	if errors.Is(err, session.ErrClosed) {
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}

	kind := string(apperr.KindOf(err))
	if kind == "" {
		kind = "internal"
	}
	return c.JSON(status, map[string]any{
		"error":     err.Error(),
		"kind":      kind,
		"retryable": apperr.IsRetryable(err),
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleListRFPs(c echo.Context) error {
	var criteria filter.Criteria
	if err := c.Bind(&criteria); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid query"})
	}
	records := s.Session.View(criteria)
	return c.JSON(http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
		"loading": s.Session.Loading(),
	})
}

func (s *Server) handleGetOptions(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Session.Options())
}

func (s *Server) handleGetStats(c echo.Context) error {
	snap := s.Session.Snapshot()
	return c.JSON(http.StatusOK, map[string]any{
		"summary":         snap.Summary,
		"ledger_degraded": snap.LedgerDegraded,
		"ledger_size":     snap.LedgerSize,
		"reconciled_at":   snap.ReconciledAt,
		"batch":           s.Session.Stats(),
		"loaded":          s.Session.Loaded(),
		"loading":         s.Session.Loading(),
	})
}

// handleRefresh reloads the collection. With wait=false the refresh runs in
// the background and the caller polls /jobs/:id.
func (s *Server) handleRefresh(c echo.Context) error {
	wait := true
	if raw := strings.TrimSpace(c.QueryParam("wait")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "wait must be a boolean"})
		}
		wait = parsed
	}

	if wait {
		snap, err := s.Session.Refresh(c.Request().Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{
			"summary":         snap.Summary,
			"ledger_degraded": snap.LedgerDegraded,
			"reconciled_at":   snap.ReconciledAt,
		})
	}

	s.jobMu.Lock()
	if s.runningJob != nil && s.runningJob.Status == "running" {
		job := s.runningJob
		s.jobMu.Unlock()
		return c.JSON(http.StatusConflict, map[string]any{
			"error":  "A refresh is already running",
			"job_id": job.ID,
		})
	}

	// Detached from the request so the refresh outlives it.
	jobCtx, jobCancel := context.WithTimeout(
		context.WithoutCancel(c.Request().Context()), 5*time.Minute,
	)

	jobID := uuid.New().String()[:8]
	job := &backgroundJob{
		ID:        jobID,
		Status:    "running",
		StartedAt: time.Now(),
		Cancel:    jobCancel,
	}
	s.runningJob = job
	s.jobMu.Unlock()

	go func() {
		defer jobCancel()
		snap, err := s.Session.Refresh(jobCtx)

		s.jobMu.Lock()
		defer s.jobMu.Unlock()
		job.EndedAt = time.Now()
		if err != nil {
			job.Status = "failed"
			job.Error = err.Error()
			log.Printf("[refresh-job %s] failed: %v", jobID, err)
			return
		}
		job.Status = "completed"
		job.Result = map[string]any{
			"summary":         snap.Summary,
			"ledger_degraded": snap.LedgerDegraded,
		}
		log.Printf("[refresh-job %s] completed: total=%d", jobID, snap.Summary.Total)
	}()

	return c.JSON(http.StatusAccepted, map[string]any{
		"message": "Refresh started",
		"job_id":  jobID,
		"poll":    fmt.Sprintf("/api/v1/jobs/%s", jobID),
	})
}

func (s *Server) handleJobStatus(c echo.Context) error {
	queried := c.Param("id")
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	job := s.runningJob
	if job == nil || job.ID != queried {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	resp := map[string]any{
		"id":         job.ID,
		"status":     job.Status,
		"started_at": job.StartedAt,
	}
	if !job.EndedAt.IsZero() {
		resp["ended_at"] = job.EndedAt
		resp["duration"] = job.EndedAt.Sub(job.StartedAt).String()
	}
	if job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListBanners(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Session.Banners())
}

func (s *Server) handleDismissBanner(c echo.Context) error {
	if !s.Session.Dismiss(c.Param("id")) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "banner not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListSubmitted(c echo.Context) error {
	subs, err := s.Session.Submitted(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, subs)
}

func (s *Server) handleListProposals(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Desk.Drafts())
}

func (s *Server) handleComposeProposal(c echo.Context) error {
	doc, err := s.Desk.Compose(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, doc)
}

func (s *Server) handleGetProposal(c echo.Context) error {
	doc, err := s.Desk.Draft(c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

type editRequest struct {
	Body *string `json:"body"`
}

func (s *Server) handleEditProposal(c echo.Context) error {
	var req editRequest
	if err := c.Bind(&req); err != nil || req.Body == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "body is required"})
	}
	doc, err := s.Desk.Edit(c.Param("id"), *req.Body)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) handleDiscardProposal(c echo.Context) error {
	if !s.Desk.Discard(c.Param("id")) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "proposal not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleExportProposal(c echo.Context) error {
	doc, err := s.Desk.Export(c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Response().Header().Set("X-Page-Count", strconv.Itoa(doc.Pages))
	return c.Blob(http.StatusOK, "application/pdf", doc.Data)
}

type submitRequest struct {
	ToEmail string `json:"to_email"`
}

func (s *Server) handleSubmitProposal(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	doc, err := s.Desk.Submit(c.Request().Context(), c.Param("id"), req.ToEmail)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

func splitCSV(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

// Shutdown stops the listener and cancels a running background refresh.
func (s *Server) Shutdown(ctx context.Context) error {
	s.jobMu.Lock()
	if s.runningJob != nil && s.runningJob.Cancel != nil {
		s.runningJob.Cancel()
	}
	s.jobMu.Unlock()
	return s.Echo.Shutdown(ctx)
}
