// Package cli provides the cobra command tree for the deep researcher.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/deep-researcher/internal/adapters/driving/watch"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
	"github.com/custodia-labs/deep-researcher/internal/logger"
)

// version is set by the binary at build time.
var version = "dev"

// Global flags.
var (
	configDir string
	verbose   bool
)

// Services holds the application services commands drive.
type Services struct {
	Indexes       driving.IndexManager
	Ingest        driving.IngestService
	Researcher    driving.Researcher
	Conversations driving.ConversationService

	// Corpus decides which files the watcher reacts to.
	Corpus watch.Corpus

	// DataDir is the resolved corpus directory.
	DataDir string

	// Reasoner names the reasoning strategy in use.
	Reasoner string

	// Warnings are non-fatal problems found while wiring, such as an
	// unreachable LLM.
	Warnings []string

	// Close releases stores and provider clients.
	Close func() error
}

// Bootstrap builds services for a configuration directory. Settings are
// loaded for every command; the full service graph only for commands
// that need it, so a broken provider never blocks `config set`.
type Bootstrap interface {
	Settings(configDir string) (driving.SettingsService, driven.ConfigStore, error)
	Services(ctx context.Context, configDir string) (*Services, error)
}

var (
	bootstrap       Bootstrap
	settingsService driving.SettingsService
	configStore     driven.ConfigStore
	services        *Services

	// servicesBuilt is true when services came from bootstrap and must be closed.
	servicesBuilt bool
)

var rootCmd = &cobra.Command{
	Use:   "deep-researcher",
	Short: "Multi-step research over a local document corpus",
	Long: `deep-researcher indexes a directory of text and Markdown files and answers
questions about them by decomposing each question into sub-queries,
retrieving evidence for each and synthesising an answer.

Follow-up questions within a session are rewritten using earlier turns.`,
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRun,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		"configuration and state directory (default ~/.deep-researcher)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetBootstrap installs the service factory used by commands.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// Execute runs the root command and releases any services it built.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if cerr := closeServices(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func persistentPreRun(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetOutput(cmd.ErrOrStderr())

	if settingsService != nil || bootstrap == nil {
		return nil
	}
	settings, store, err := bootstrap.Settings(configDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	settingsService, configStore = settings, store
	return nil
}

// requireServices returns the service graph, building it on first use.
func requireServices(cmd *cobra.Command) (*Services, error) {
	if services != nil {
		return services, nil
	}
	if bootstrap == nil {
		return nil, errors.New("services not configured")
	}

	svc, err := bootstrap.Services(commandContext(cmd), configDir)
	if err != nil {
		return nil, err
	}
	for _, w := range svc.Warnings {
		logger.Warn("%s", w)
	}
	services, servicesBuilt = svc, true
	return services, nil
}

// requireSettings returns the settings service.
func requireSettings() (driving.SettingsService, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	return settingsService, nil
}

func closeServices() error {
	if !servicesBuilt || services == nil {
		return nil
	}
	svc := services
	services, servicesBuilt = nil, false
	if svc.Close == nil {
		return nil
	}
	return svc.Close()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
