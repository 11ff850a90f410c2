// Package cli implements the juris command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/core/ports/driving"
	"github.com/custodia-labs/juris/internal/logger"
)

// version is set at build time.
var version = "dev"

// Engine is the provider-backed part of the application, built only by
// commands that ingest or answer questions.
type Engine struct {
	Query  driving.QueryEngine
	Runner driving.IngestRunner

	// Watcher is nil when the source cannot report changes.
	Watcher driven.Watcher

	// Close releases the providers.
	Close func() error
}

// ProviderCheck is the result of pinging one provider.
type ProviderCheck struct {
	Name string
	Err  error
}

// Services are the application services behind the commands.
type Services struct {
	Settings driving.SettingsService
	Status   driving.StatusService
	Entities driving.EntityService

	// OpenEngine builds the engine from the current settings.
	OpenEngine func(ctx context.Context) (*Engine, error)

	// CheckProviders pings every configured provider.
	CheckProviders func(ctx context.Context) ([]ProviderCheck, error)
}

var (
	settingsService driving.SettingsService
	statusService   driving.StatusService
	entityService   driving.EntityService
	openEngine      func(ctx context.Context) (*Engine, error)
	checkProviders  func(ctx context.Context) ([]ProviderCheck, error)
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "juris",
	Short: "Ask questions about a legal case file",
	Long: `juris ingests the documents of a case file (procès-verbaux, reports,
expert opinions), summarises them, maps the people and organisations they
cite, and answers questions with citations to the source documents.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress and provider calls")
}

// SetServices injects the application services.
func SetServices(s Services) {
	settingsService = s.Settings
	statusService = s.Status
	entityService = s.Entities
	openEngine = s.OpenEngine
	checkProviders = s.CheckProviders
}

// Execute runs the root command.
func Execute(ctx context.Context, v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.ExecuteContext(ctx)
}

// withEngine builds the engine, runs fn and closes the engine.
func withEngine(ctx context.Context, fn func(*Engine) error) error {
	if openEngine == nil {
		return errors.New("engine not configured")
	}
	engine, err := openEngine(ctx)
	if err != nil {
		return err
	}
	if engine.Close != nil {
		defer engine.Close() //nolint:errcheck
	}
	return fn(engine)
}
