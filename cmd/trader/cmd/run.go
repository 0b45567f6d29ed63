package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/internal/logging"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation from a config file",
	Long: `Replay the configured data files through the simulated broker.

The config file specifies the account, pricing model, data files, policy
and journal.

Example:
  trader run -f run.yaml`,
	RunE: runRun,
}

var (
	runConfigPath string
	runDryRun     bool
	runReport     bool
	runID         string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "file", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "build the run but do not play it")
	runCmd.Flags().BoolVar(&runReport, "report", false, "print an org-mode run report")
	runCmd.Flags().StringVar(&runID, "run-id", "", "run id for the journal (default generated)")
	_ = runCmd.MarkFlagRequired("file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	fmt.Printf("Running simulation with config: %s\n", runConfigPath)
	fmt.Printf("  Account: %s (%s)\n", cfg.Account.ID, cfg.Account.Currency)
	fmt.Printf("  Policy: %s\n", cfg.Policy.Name)
	fmt.Println()

	if runDryRun {
		if _, err := backtest.FromConfig(cfg, nil, log); err != nil {
			return err
		}
		fmt.Println("✓ Dry run: configuration builds")
		return nil
	}

	j, id, err := backtest.OpenJournal(cfg.Journal, runID)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	if j != nil {
		defer j.Close()
	}

	r, err := backtest.FromConfig(cfg, j, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := r.Run(ctx)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	fmt.Println()
	res.Print(os.Stdout)

	rec := res.Record(id, cfg.Policy.Name, datasetName(cfg))
	if sq, ok := j.(*journal.SQLite); ok {
		if err := sq.RecordRun(rec); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}
	if runReport {
		fmt.Println()
		if err := rec.WriteReport(os.Stdout); err != nil {
			return err
		}
	}

	switch cfg.Journal.Type {
	case "csv":
		fmt.Printf("\nResults saved to:\n  - %s\n  - %s\n", cfg.Journal.ExecutionsFile, cfg.Journal.EquityFile)
	case "sqlite":
		fmt.Printf("\nResults saved to: %s (run %s)\n", cfg.Journal.DBPath, id)
	}
	return nil
}

func datasetName(cfg *config.Config) string {
	paths := make([]string, 0, len(cfg.Feed.Files))
	for _, f := range cfg.Feed.Files {
		paths = append(paths, f.Path)
	}
	return strings.Join(paths, ",")
}
