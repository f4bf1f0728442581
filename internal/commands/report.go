package commands

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/Dan9191/spending-insights/internal/middleware"
	"github.com/spf13/cobra"
)

func newIngestCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest FILE",
		Short: "Load a CSV file of transactions into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if err := a.open(); err != nil {
				return err
			}
			result, err := a.pipeline.Ingest(cmd.Context(), data)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newSummaryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print counts, totals and top merchants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			summary, err := a.analytics.Summary(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}
}

func newCategoriesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Print spending and income per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			categories, err := a.analytics.Categories(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"categories": categories})
		},
	}
}

func newAnomaliesCommand(a *app) *cobra.Command {
	var z float64

	cmd := &cobra.Command{
		Use:   "anomalies",
		Short: "Print spending that stands out within its category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			threshold := a.cfg.DefaultZ
			if cmd.Flags().Changed("z") {
				if math.IsNaN(z) || math.IsInf(z, 0) {
					return fmt.Errorf("--z must be a finite number")
				}
				threshold = z
			}
			anomalies, err := a.analytics.Anomalies(cmd.Context(), threshold)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"threshold": threshold,
				"anomalies": anomalies,
			})
		},
	}

	cmd.Flags().Float64Var(&z, "z", 0, "z-score threshold (default DEFAULT_Z)")

	return cmd
}

func newTokenCommand(a *app) *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for POST /upload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			if a.cfg.AuthSecret == "" {
				return fmt.Errorf("AUTH_SECRET is not set")
			}
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be positive")
			}
			token, err := middleware.IssueToken(a.cfg.AuthSecret, subject, ttl)
			if err != nil {
				return fmt.Errorf("signing token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "spendctl", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
