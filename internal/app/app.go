// Package app wires the configured collaborator client, session and
// proposal desk together for the server and the command-line tool.
package app

import (
	"fmt"

	"github.com/david/rfp-desk/internal/backend"
	"github.com/david/rfp-desk/internal/config"
	"github.com/david/rfp-desk/internal/metrics"
	"github.com/david/rfp-desk/internal/pdfexport"
	"github.com/david/rfp-desk/internal/proposal"
	"github.com/david/rfp-desk/internal/session"
)

type App struct {
	Config  *config.Config
	Client  *backend.Client
	Session *session.Session
	Desk    *session.Desk
	Metrics *metrics.Collectors
}

// New builds the object graph. Nothing is fetched until the session is
// initialized.
func New(cfg *config.Config) (*App, error) {
	m := metrics.New()
	client, err := backend.NewClient(cfg.BackendClientConfig(), backend.WithObserver(m))
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}

	sess := session.New(client, session.Config{
		Feed:               cfg.FeedName(),
		ClosingSoonWindow:  cfg.ClosingSoonWindow(),
		ClearBeforeRefresh: cfg.Session.ClearBeforeRefresh,
	}, session.WithRefreshObserver(m))

	composer := proposal.NewComposer(cfg.Proposal.Config, nil)
	exporter := pdfexport.NewExporter(pdfexport.Options{
		Heading:         proposal.Title,
		VerifyRoundTrip: cfg.Export.VerifyRoundTrip,
	})
	desk := session.NewDesk(client, composer, exporter, session.DeskConfig{
		FromEmail:      cfg.Proposal.FromEmail,
		DefaultToEmail: cfg.Proposal.DefaultToEmail,
	}, session.WithDeskObserver(m))

	return &App{
		Config:  cfg,
		Client:  client,
		Session: sess,
		Desk:    desk,
		Metrics: m,
	}, nil
}

// Close drops responses that arrive after shutdown.
func (a *App) Close() {
	a.Session.Close()
}
