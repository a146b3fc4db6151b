// Package main provides rfpctl, a terminal client for the RFP desk: it lists
// reconciled opportunities, drafts proposals and exports them as PDF.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/david/rfp-desk/internal/app"
	"github.com/david/rfp-desk/internal/backend"
	"github.com/david/rfp-desk/internal/config"
)

const (
	Version = "0.1.0"
	appName = "rfpctl"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globals struct {
	configPath string
	feed       string
}

// build loads configuration and wires the app. The feed flag overrides the
// configured feed.
func (g *globals) build() (*app.App, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.feed != "" {
		feed, err := backend.ParseFeed(g.feed)
		if err != nil {
			return nil, err
		}
		cfg.Backend.Feed = string(feed)
	}
	return app.New(cfg)
}

func rootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Track RFPs and compose proposals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&g.feed, "feed", "", "Opportunity feed (scrape, new-incoming, dashboard)")

	cmd.AddCommand(
		listCmd(g),
		statsCmd(g),
		submittedCmd(g),
		proposalCmd(g),
		verifyCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}
