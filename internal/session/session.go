// Package session owns the reconciled opportunity collection for one logical
// view: it loads it once, refreshes it on demand and reports failures as
// banners instead of tearing the view down.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/david/rfp-desk/internal/backend"
	"github.com/david/rfp-desk/internal/filter"
	"github.com/david/rfp-desk/internal/ingest"
	"github.com/david/rfp-desk/internal/models"
	"github.com/david/rfp-desk/internal/reconcile"
)

var (
	ErrClosed  = errors.New("session closed")
	ErrNoDraft = errors.New("no proposal draft")
)

// Banner operations.
const (
	OpRefresh   = "refresh"
	OpLedger    = "ledger"
	OpSubmitted = "submitted"
)

// Source is the read side of the collaborator.
type Source interface {
	FetchOpportunities(ctx context.Context, feed backend.Feed) ([]ingest.RawOpportunity, error)
	FetchSubmitted(ctx context.Context) ([]models.SubmissionRecord, error)
}

type Config struct {
	Feed               backend.Feed
	ClosingSoonWindow  time.Duration
	ClearBeforeRefresh bool
}

// RefreshObserver is told about every finished refresh.
type RefreshObserver interface {
	ObserveRefresh(snap *reconcile.Snapshot, err error)
}

type Option func(*Session)

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func WithRefreshObserver(o RefreshObserver) Option {
	return func(s *Session) { s.observer = o }
}

type Session struct {
	source   Source
	cfg      Config
	now      func() time.Time
	observer RefreshObserver
	enricher *ingest.Enricher
	engine   *reconcile.Engine

	initOnce sync.Once
	initErr  error

	mu       sync.RWMutex
	snapshot reconcile.Snapshot
	loaded   bool
	stats    ingest.BatchStats
	inFlight int
	closed   bool
	banners  []Banner
}

func New(source Source, cfg Config, opts ...Option) *Session {
	if !cfg.Feed.Valid() {
		cfg.Feed = backend.FeedScrape
	}
	s := &Session{source: source, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.enricher = ingest.NewEnricher(s.now, cfg.ClosingSoonWindow)
	s.engine = reconcile.NewEngine(s.now)
	return s
}

// Initialize performs the initial load. Only the first call fetches; later
// and concurrent calls wait for it and return its result. Use Refresh to
// load again.
func (s *Session) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		_, s.initErr = s.Refresh(ctx)
	})
	return s.initErr
}

// Refresh fetches the ledger and the opportunity feed concurrently, then
// reconciles once both have finished. A ledger failure degrades to an empty
// ledger; a feed failure keeps the previous collection and raises a banner.
// Overlapping refreshes are not merged: whichever finishes last is shown.
func (s *Session) Refresh(ctx context.Context) (reconcile.Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return reconcile.Snapshot{}, ErrClosed
	}
	s.inFlight++
	previous := s.snapshot
	if s.cfg.ClearBeforeRefresh {
		s.snapshot = reconcile.Snapshot{}
	}
	s.mu.Unlock()

	var (
		raws      []ingest.RawOpportunity
		subs      []models.SubmissionRecord
		ledgerErr error
	)
	// The group has no shared context: a ledger failure must not cancel
	// the opportunity fetch.
	var g errgroup.Group
	g.Go(func() error {
		subs, ledgerErr = s.source.FetchSubmitted(ctx)
		return nil
	})
	g.Go(func() error {
		var err error
		raws, err = s.source.FetchOpportunities(ctx, s.cfg.Feed)
		return err
	})
	fetchErr := g.Wait()

	var snap reconcile.Snapshot
	var stats ingest.BatchStats
	if fetchErr == nil {
		var records []models.OpportunityRecord
		records, stats = s.enricher.Batch(raws)
		snap = s.engine.ReconcileFetched(records, subs, ledgerErr)
	}

	s.mu.Lock()
	s.inFlight--
	if s.closed {
		s.mu.Unlock()
		log.Printf("[session] dropping %s response that arrived after close", s.cfg.Feed)
		return reconcile.Snapshot{}, ErrClosed
	}
	if fetchErr != nil {
		if s.cfg.ClearBeforeRefresh && s.snapshot.ReconciledAt.IsZero() {
			s.snapshot = previous
		}
		s.raise(OpRefresh, fetchErr)
		s.mu.Unlock()
		log.Printf("[session] refresh of %s failed: %v", s.cfg.Feed, fetchErr)
		s.observe(nil, fetchErr)
		return reconcile.Snapshot{}, fmt.Errorf("refresh %s: %w", s.cfg.Feed, fetchErr)
	}

	s.clearBanners(OpRefresh)
	if ledgerErr != nil {
		s.raise(OpLedger, fmt.Errorf("submission ledger unavailable, statuses may be stale: %w", ledgerErr))
	} else {
		s.clearBanners(OpLedger)
	}
	s.snapshot = snap
	s.stats = stats
	s.loaded = true
	s.mu.Unlock()

	log.Printf("[session] refreshed %s: %d records (%d skipped, %d enriched), ledger %d, degraded=%t",
		s.cfg.Feed, len(snap.Records), stats.Skipped, stats.Enriched, snap.LedgerSize, snap.LedgerDegraded)
	s.observe(&snap, nil)
	return s.copySnapshot(snap), nil
}

func (s *Session) observe(snap *reconcile.Snapshot, err error) {
	if s.observer != nil {
		s.observer.ObserveRefresh(snap, err)
	}
}

func (s *Session) copySnapshot(snap reconcile.Snapshot) reconcile.Snapshot {
	snap.Records = slices.Clone(snap.Records)
	return snap
}

// Close ends the session. Responses that arrive afterwards are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Snapshot returns the current reconciled collection. Before the first
// successful load, and while a clearing refresh is in flight, it is empty.
func (s *Session) Snapshot() reconcile.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copySnapshot(s.snapshot)
}

// Loaded reports whether a refresh has ever succeeded.
func (s *Session) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Loading reports whether a refresh is in flight.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

// Stats returns the ingestion counters of the last successful refresh.
func (s *Session) Stats() ingest.BatchStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// View applies c to the current collection.
func (s *Session) View(c filter.Criteria) []models.OpportunityRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter.Apply(s.snapshot.Records, c)
}

// Options returns the selector values for the current collection.
func (s *Session) Options() filter.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter.BuildOptions(s.snapshot.Records)
}

// Submitted reads the submission ledger for display.
func (s *Session) Submitted(ctx context.Context) ([]models.SubmissionRecord, error) {
	subs, err := s.source.FetchSubmitted(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.raise(OpSubmitted, err)
		return nil, err
	}
	s.clearBanners(OpSubmitted)
	return subs, nil
}
