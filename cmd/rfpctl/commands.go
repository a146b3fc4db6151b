package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/david/rfp-desk/internal/app"
	"github.com/david/rfp-desk/internal/filter"
	"github.com/david/rfp-desk/internal/pdfexport"
	"github.com/david/rfp-desk/internal/report"
)

// load initializes the session. Degraded states are printed as warnings; a
// failed feed is an error because there is nothing to show.
func load(ctx context.Context, cmd *cobra.Command, a *app.App) error {
	if err := a.Session.Initialize(ctx); err != nil {
		return err
	}
	warn(cmd.ErrOrStderr(), a)
	return nil
}

func warn(w io.Writer, a *app.App) {
	for _, b := range a.Session.Banners() {
		fmt.Fprintf(w, "warning: %s\n", b.Message)
	}
}

func listCmd(g *globals) *cobra.Command {
	var criteria filter.Criteria

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reconciled opportunities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.build()
			if err != nil {
				return err
			}
			defer a.Close()
			if err := load(cmd.Context(), cmd, a); err != nil {
				return err
			}
			report.Opportunities(cmd.OutOrStdout(), a.Session.View(criteria))
			return nil
		},
	}
	cmd.Flags().StringVarP(&criteria.Query, "q", "q", "", "Match title, organization or identifier")
	cmd.Flags().StringVar(&criteria.Status, "status", filter.All, "Only this status")
	cmd.Flags().StringVar(&criteria.Category, "category", filter.All, "Only this category")
	return cmd
}

func statsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show summary counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.build()
			if err != nil {
				return err
			}
			defer a.Close()
			if err := load(cmd.Context(), cmd, a); err != nil {
				return err
			}
			report.Summary(cmd.OutOrStdout(), a.Session.Snapshot(), a.Session.Stats())
			return nil
		},
	}
}

func submittedCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "submitted",
		Short: "Show the submission ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.build()
			if err != nil {
				return err
			}
			defer a.Close()
			subs, err := a.Session.Submitted(cmd.Context())
			if err != nil {
				return err
			}
			report.Submitted(cmd.OutOrStdout(), subs)
			return nil
		},
	}
}

func proposalCmd(g *globals) *cobra.Command {
	var bodyFile string

	cmd := &cobra.Command{
		Use:   "proposal",
		Short: "Compose, export or submit a proposal",
	}
	cmd.PersistentFlags().StringVar(&bodyFile, "body", "", "Replace the composed text with this file")

	// draft composes a proposal and applies the --body override.
	draft := func(cmd *cobra.Command, rfpID string) (*app.App, error) {
		a, err := g.build()
		if err != nil {
			return nil, err
		}
		if _, err := a.Desk.Compose(cmd.Context(), rfpID); err != nil {
			a.Close()
			return nil, err
		}
		if bodyFile != "" {
			body, err := os.ReadFile(bodyFile)
			if err != nil {
				a.Close()
				return nil, fmt.Errorf("read body: %w", err)
			}
			if _, err := a.Desk.Edit(rfpID, string(body)); err != nil {
				a.Close()
				return nil, err
			}
		}
		return a, nil
	}

	show := &cobra.Command{
		Use:   "show <rfp-id>",
		Short: "Print the composed proposal text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := draft(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()
			doc, err := a.Desk.Draft(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), doc.Body)
			return nil
		},
	}

	var outDir string
	export := &cobra.Command{
		Use:   "export <rfp-id>",
		Short: "Render the proposal as PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := draft(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()
			doc, err := a.Desk.Export(args[0])
			if err != nil {
				return err
			}
			path := filepath.Join(outDir, doc.Filename)
			if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			report.Document(cmd.OutOrStdout(), path, doc.Pages, doc.Lines, len(doc.Data))
			return nil
		},
	}
	export.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")

	var to string
	submit := &cobra.Command{
		Use:   "submit <rfp-id>",
		Short: "Send the proposal to the collaborator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := draft(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()
			doc, err := a.Desk.Submit(cmd.Context(), args[0], to)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted proposal %s for %s at %s\n",
				doc.ID, doc.RFPID, doc.SubmittedAt.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
	submit.Flags().StringVar(&to, "to", "", "Destination address (defaults to the RFP's own)")

	cmd.AddCommand(show, export, submit)
	return cmd
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file.pdf>",
		Short: "Extract the text of an exported proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			text, err := pdfexport.ExtractText(data)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
