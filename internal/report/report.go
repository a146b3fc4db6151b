// Package report renders opportunity data as terminal tables.
package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/david/rfp-desk/internal/ingest"
	"github.com/david/rfp-desk/internal/models"
	"github.com/david/rfp-desk/internal/proposal"
	"github.com/david/rfp-desk/internal/reconcile"
)

const titleWidth = 40

func newWriter(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	return t
}

// Opportunities prints one row per record in the given order.
func Opportunities(w io.Writer, records []models.OpportunityRecord) {
	t := newWriter(w)
	t.AppendHeader(table.Row{"RFP ID", "Title", "Organization", "Category", "Deadline", "Status", "Match"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: titleWidth},
		{Number: 3, WidthMax: 28},
		{Number: 7, Align: text.AlignRight},
	})
	for _, rec := range records {
		t.AppendRow(table.Row{rec.ID, rec.Title, rec.Organization, rec.Category, rec.Deadline, rec.Status, proposal.FormatScore(rec.Match)})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Shown", len(records)})
	t.Render()
}

// Summary prints the aggregate counters of a snapshot.
func Summary(w io.Writer, snap reconcile.Snapshot, stats ingest.BatchStats) {
	t := newWriter(w)
	t.SetTitle("Opportunity summary")
	t.AppendHeader(table.Row{"Metric", "Value"})
	s := snap.Summary
	t.AppendRows([]table.Row{
		{"Total RFPs", s.Total},
		{"Open", s.Open},
		{"Closing Soon", s.ClosingSoon},
		{"Won", s.Won},
		{"Active RFPs (In Progress)", s.InProgress},
		{"Proposals Sent", s.Submitted},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Received from feed", stats.Received},
		{"Skipped (no identifier)", stats.Skipped},
		{"Enriched with defaults", stats.Enriched},
		{"Ledger entries", snap.LedgerSize},
	})
	if snap.LedgerDegraded {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Warning", "ledger unavailable; statuses may be stale"})
	}
	t.Render()
}

// Submitted prints the submission ledger.
func Submitted(w io.Writer, subs []models.SubmissionRecord) {
	t := newWriter(w)
	t.AppendHeader(table.Row{"RFP ID", "Title", "Client", "Deadline", "Match", "Submitted At", "Sent To"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: titleWidth}})
	for _, s := range subs {
		t.AppendRow(table.Row{s.RFPID, s.Title, s.Client, s.Deadline, proposal.FormatScore(s.Match), s.SubmittedAt, s.ToEmail})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(subs)})
	t.Render()
}

// Document prints export metadata after a PDF has been written.
func Document(w io.Writer, path string, pages, lines, size int) {
	fmt.Fprintf(w, "wrote %s (%d pages, %d lines, %d bytes)\n", path, pages, lines, size)
}
