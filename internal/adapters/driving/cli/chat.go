package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qms-rag/internal/adapters/driving/tui"
)

var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"tui"},
	Short:   "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface.

Ask questions and read grounded answers with their sources, browse the
procedure catalogue and edit settings, all with keyboard navigation.

Controls:
  Enter    - Ask / Select
  PgUp/Dn  - Scroll the transcript
  Ctrl+L   - Clear the transcript
  Esc      - Back to menu
  ?        - Help
  Ctrl+C   - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	addRetrieveFlags(chatCmd)
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panicked: %v", r)
		}
	}()

	if askService == nil {
		return errors.New("ask service not configured")
	}

	opts, err := retrieveOptions(cmd)
	if err != nil {
		return err
	}
	warnMissingIndex(cmd, opts)

	app, err := tui.NewApp(tui.NewPorts(askService, procedureService, settingsService))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context()).WithOptions(opts)

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
