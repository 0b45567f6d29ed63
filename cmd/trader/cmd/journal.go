package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rustyeddy/tradesim/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query a SQLite journal",
	Long: `Inspect runs stored in a SQLite journal.

Examples:
  trader journal report <run-id> --db ./trader.sqlite
  trader journal executions <run-id>
  trader journal equity <run-id> --day 2024-01-02`,
}

var journalReportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Print the org-mode report of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJournal(args[0], func(j *journal.SQLite) error {
			rec, err := j.GetRun(args[0])
			if err != nil {
				return err
			}
			return rec.WriteReport(os.Stdout)
		})
	},
}

var journalExecutionsCmd = &cobra.Command{
	Use:   "executions <run-id>",
	Short: "List the executions of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJournal(args[0], func(j *journal.SQLite) error {
			recs, err := j.ListExecutions(args[0])
			if err != nil {
				return err
			}
			for _, r := range recs {
				fmt.Printf("%s  %-10s %8s @ %.4f %s  realized=%.2f  %s\n",
					r.Time.Format(time.RFC3339), r.Symbol, r.Size, r.Price, r.Currency, r.Realized, r.OrderID)
			}
			return nil
		})
	},
}

var journalEquityCmd = &cobra.Command{
	Use:   "equity <run-id>",
	Short: "List equity snapshots of a run for one day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := dayBounds(time.UTC, journalDay)
		if err != nil {
			return fmt.Errorf("date: %w", err)
		}
		return withJournal(args[0], func(j *journal.SQLite) error {
			recs, err := j.ListEquityBetween(args[0], start, end)
			if err != nil {
				return err
			}
			for _, r := range recs {
				fmt.Printf("%s  equity=%.2f cash=%.2f exposure=%.2f %s\n",
					r.Time.Format(time.RFC3339), r.Equity, r.Cash, r.Exposure, r.Currency)
			}
			return nil
		})
	},
}

var (
	journalDB  string
	journalDay string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalReportCmd, journalExecutionsCmd, journalEquityCmd)

	journalCmd.PersistentFlags().StringVar(&journalDB, "db", "./trader.sqlite", "path to SQLite journal DB")
	journalEquityCmd.Flags().StringVar(&journalDay, "day", time.Now().UTC().Format("2006-01-02"), "day as YYYY-MM-DD (UTC)")
}

func withJournal(runID string, fn func(*journal.SQLite) error) error {
	j, err := journal.NewSQLite(journalDB, runID)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()
	return fn(j)
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.Add(24 * time.Hour), nil
}
