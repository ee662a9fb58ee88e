// Package cli provides the qmsrag command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
	"github.com/custodia-labs/qms-rag/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services injected by main. Commands fail with a clear error when the
// service they need is nil.
var (
	indexService     driving.IndexService
	retrievalService driving.RetrievalService
	askService       driving.AskService
	procedureService driving.ProcedureService
	settingsService  driving.SettingsService
)

// Services groups the driving ports used by the commands.
type Services struct {
	Index      driving.IndexService
	Retrieval  driving.RetrievalService
	Ask        driving.AskService
	Procedures driving.ProcedureService
	Settings   driving.SettingsService
}

// Options carries the global flags to the bootstrap.
type Options struct {
	// ConfigPath overrides ~/.qmsrag/config.toml.
	ConfigPath string

	// Ephemeral keeps collections in memory for this invocation only.
	Ephemeral bool
}

// Bootstrap builds the services for one invocation. The returned func
// releases them and may be nil.
type Bootstrap func(ctx context.Context, opts Options) (*Services, func(), error)

var (
	bootstrap Bootstrap
	release   func()
)

// annotationNoServices marks commands that run without the bootstrap.
const annotationNoServices = "qmsrag/no-services"

var rootCmd = &cobra.Command{
	Use:   "qmsrag",
	Short: "Grounded answers from ISO 13485 quality documentation",
	Long: `qmsrag answers questions about an ISO 13485:2016 quality management system.

It indexes your QMS documents (PDF, DOCX, text and procedure JSON) into a
persisted vector collection, retrieves the relevant procedures and passages
for each question, and asks a language model to answer strictly from that
context. When the documents do not contain the answer, it says so.

Get started:
  qmsrag settings show
  qmsrag index build ./docs
  qmsrag ask "How long must quality records be retained?"`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Print debug output to stderr")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.qmsrag/config.toml)")
	rootCmd.PersistentFlags().Bool("ephemeral", false, "Keep collections in memory for this run only")
}

// SetServices injects the services used by the commands.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	indexService = s.Index
	retrievalService = s.Retrieval
	askService = s.Ask
	procedureService = s.Procedures
	settingsService = s.Settings
}

// SetBootstrap registers the function that builds services once the
// global flags are parsed.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command and releases any services it built.
func Execute(ctx context.Context) error {
	defer func() {
		if release != nil {
			release()
			release = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("getting verbose flag: %w", err)
	}
	logger.SetVerbose(verbose)

	if bootstrap == nil || cmd.Annotations[annotationNoServices] != "" {
		return nil
	}

	var opts Options
	if opts.ConfigPath, err = cmd.Flags().GetString("config"); err != nil {
		return fmt.Errorf("getting config flag: %w", err)
	}
	if opts.Ephemeral, err = cmd.Flags().GetBool("ephemeral"); err != nil {
		return fmt.Errorf("getting ephemeral flag: %w", err)
	}

	services, cleanup, err := bootstrap(cmd.Context(), opts)
	if err != nil {
		return err
	}
	SetServices(services)
	release = cleanup
	return nil
}

// indexHint prints how to create a missing collection and returns err.
func indexHint(cmd *cobra.Command, err error) error {
	if errors.Is(err, domain.ErrIndexNotFound) {
		cmd.PrintErrln("Run 'qmsrag index build <paths>' to create the collection.")
	}
	return err
}

// warnMissingIndex tells the user when vector retrieval will contribute
// nothing because the collection was never built.
func warnMissingIndex(cmd *cobra.Command, opts driving.RetrieveOptions) {
	if indexService == nil || (opts.Mode != "" && !opts.Mode.UsesVectors()) {
		return
	}
	_, err := indexService.Status(cmd.Context(), opts.Collection)
	if errors.Is(err, domain.ErrIndexNotFound) {
		cmd.PrintErrln("Note: no vector collection found; answering from procedures only.")
		cmd.PrintErrln("Run 'qmsrag index build <paths>' to index your documents.")
	}
}
