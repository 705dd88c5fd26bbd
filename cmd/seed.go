package cmd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/claimlens/claimlens/internal/db"
	"github.com/claimlens/claimlens/internal/intent"
)

var (
	seedClientID string
	seedCount    int
	seedDays     int
	seedRandom   int64
)

var (
	seedStatuses  = []string{"open", "in_review", "approved", "denied", "closed"}
	seedTypes     = []string{"auto", "property", "liability", "workers_comp", "medical"}
	seedRegions   = []string{"west", "east", "midwest", "south"}
	seedAdjusters = []string{"rivera", "chen", "okafor", "dubois", "nakamura", "silva"}
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with synthetic claims for development",
	Long: `Generates deterministic synthetic claims spread over the recent past so
the analytics API and anomaly detection have data to work with. Running
with the same --seed value produces the same dataset.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, err := db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		rng := rand.New(rand.NewSource(seedRandom))
		now := time.Now().UTC()

		tx, err := database.Begin()
		if err != nil {
			return fmt.Errorf("starting transaction: %w", err)
		}
		defer tx.Rollback()

		stmt, err := tx.Prepare(`
			INSERT INTO claims (id, client_id, claim_number, status, claim_type, region, adjuster, amount_paid, opened_at, closed_at, sla_breached, reopened)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(client_id, claim_number) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for i := 0; i < seedCount; i++ {
			status := seedStatuses[rng.Intn(len(seedStatuses))]
			opened := now.AddDate(0, 0, -rng.Intn(seedDays))

			var closedAt any
			var amount float64
			if status == "closed" || status == "approved" || status == "denied" {
				resolution := 1 + rng.Intn(21)
				closed := opened.AddDate(0, 0, resolution)
				if closed.After(now) {
					closed = now
				}
				closedAt = closed.Format(intent.DateLayout)
				if status != "denied" {
					amount = float64(500+rng.Intn(20000)) + rng.Float64()
				}
			}

			breached := 0
			if rng.Float64() < 0.15 {
				breached = 1
			}
			reopened := 0
			if rng.Float64() < 0.05 {
				reopened = 1
			}

			_, err := stmt.Exec(
				uuid.NewString(),
				seedClientID,
				fmt.Sprintf("CLM-%06d", i+1),
				status,
				seedTypes[rng.Intn(len(seedTypes))],
				seedRegions[rng.Intn(len(seedRegions))],
				seedAdjusters[rng.Intn(len(seedAdjusters))],
				amount,
				opened.Format(intent.DateLayout),
				closedAt,
				breached,
				reopened,
			)
			if err != nil {
				return fmt.Errorf("inserting claim %d: %w", i, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing seed data: %w", err)
		}

		fmt.Printf("Seeded %d claims for client %q over the last %d days.\n", seedCount, seedClientID, seedDays)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedClientID, "client", "demo", "Client ID to seed claims for")
	seedCmd.Flags().IntVar(&seedCount, "count", 500, "Number of claims to generate")
	seedCmd.Flags().IntVar(&seedDays, "days", 120, "How far back to spread opened dates")
	seedCmd.Flags().Int64Var(&seedRandom, "seed", 42, "Random seed for deterministic output")
	rootCmd.AddCommand(seedCmd)
}
