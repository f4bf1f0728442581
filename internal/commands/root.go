package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Dan9191/spending-insights/internal/categorize"
	"github.com/Dan9191/spending-insights/internal/config"
	"github.com/Dan9191/spending-insights/internal/ingest"
	"github.com/Dan9191/spending-insights/internal/repository"
	"github.com/Dan9191/spending-insights/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app holds what the subcommands share once the store is open
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	store     repository.Store
	pipeline  *ingest.Pipeline
	analytics *service.Analytics
}

// NewRootCommand creates the root CLI command with all subcommands registered.
// Configuration comes from the same environment variables as the API server.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "spendctl",
		Short: "Ingest transactions and inspect spending from the command line",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	rootCmd.AddCommand(
		newIngestCommand(a),
		newSummaryCommand(a),
		newCategoriesCommand(a),
		newAnomaliesCommand(a),
		newTokenCommand(a),
	)

	return rootCmd
}

// loadConfig reads the environment and sets up logging on stderr
func (a *app) loadConfig() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	a.cfg = cfg
	a.log = log
	return nil
}

// open connects to the configured store
func (a *app) open() error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	if a.store != nil {
		return nil
	}
	store, err := repository.Open(a.cfg.StoreDriver, a.cfg.DBConn, a.log)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", a.cfg.StoreDriver, err)
	}
	a.store = store
	a.pipeline = ingest.NewPipeline(store, categorize.New(), a.log)
	a.analytics = service.NewAnalytics(store, a.log)
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
