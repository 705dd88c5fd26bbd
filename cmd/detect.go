package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/claimlens/claimlens/internal/anomaly"
	"github.com/claimlens/claimlens/internal/db"
)

var (
	detectClientID string
	detectLookback int
	detectThresh   float64
	detectMetrics  []string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Scan recent metric history for anomalies",
	Long: `Buckets each metric's recent history into weekly totals and flags the
latest week when it deviates from the baseline by more than the z-score
threshold. Flagged anomalies are persisted and printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		database, err := db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		stack, err := buildStack(cfg, database, log)
		if err != nil {
			return err
		}
		if err := stack.catalogStore.SeedDefaults(cmd.Context()); err != nil {
			return fmt.Errorf("seeding metric catalog: %w", err)
		}

		opts := anomaly.Options{
			MetricSlugs:  detectMetrics,
			LookbackDays: detectLookback,
			Threshold:    detectThresh,
		}
		if opts.LookbackDays == 0 {
			opts.LookbackDays = cfg.Anomaly.LookbackDays
		}
		if opts.Threshold == 0 {
			opts.Threshold = cfg.Anomaly.Threshold
		}

		events, err := stack.detector.Detect(cmd.Context(), detectClientID, opts)
		if err != nil {
			return fmt.Errorf("detecting anomalies: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No anomalies detected.")
			return nil
		}

		fmt.Printf("%d anomaly(ies) detected:\n\n", len(events))
		for _, ev := range events {
			fmt.Printf("  [%s] %s is %s\n", strings.ToUpper(string(ev.Severity)), ev.MetricSlug, ev.Direction)
			fmt.Printf("        current %.2f vs baseline %.2f ± %.2f (z-score %.2f)\n\n",
				ev.CurrentValue, ev.BaselineMean, ev.BaselineStdDev, ev.ZScore)
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().StringVar(&detectClientID, "client", "", "Client ID to scan (required)")
	detectCmd.Flags().IntVar(&detectLookback, "lookback", 0, "Days of history to scan (default from config)")
	detectCmd.Flags().Float64Var(&detectThresh, "threshold", 0, "Z-score threshold (default from config)")
	detectCmd.Flags().StringSliceVar(&detectMetrics, "metrics", nil, "Metric slugs to scan (default all active)")
	detectCmd.MarkFlagRequired("client")
	rootCmd.AddCommand(detectCmd)
}
