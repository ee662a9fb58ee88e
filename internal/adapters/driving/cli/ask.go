package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
)

const snippetLength = 240

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed documents",
	Long: `Answer a question strictly from the indexed ISO 13485 documentation.

A proc_id or clause number in the question (PROC_8_2_2, 8.2.2, 7.3) is
looked up directly. Otherwise the procedure catalogue is searched by
keyword and the vector collection by similarity, and the best items are
handed to the language model as the only allowed context.

Answers cite their sources. When the context does not contain the answer
the fixed fallback sentence is returned instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Show the context retrieved for a query",
	Long: `Run retrieval only and print the procedures and passages that would be
used to answer the query. No language model is called.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func init() {
	addRetrieveFlags(askCmd)
	askCmd.Flags().Bool("plain", false, "Print the answer without markdown rendering")
	addRetrieveFlags(retrieveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(retrieveCmd)
}

func addRetrieveFlags(cmd *cobra.Command) {
	cmd.Flags().Int("k", 0, "Maximum number of items (default from settings)")
	cmd.Flags().StringP("mode", "m", "", "Retrieval mode: keyword, vector or hybrid")
	cmd.Flags().String("strategy", "", "Vector ranking: similarity or mmr")
	cmd.Flags().Int("fetch-k", 0, "Candidate pool size for mmr")
	cmd.Flags().Float64("lambda", 0, "MMR relevance weight in (0,1]")
	cmd.Flags().StringP("collection", "c", "", "Collection name (default from settings)")
	cmd.Flags().Bool("json", false, "Output as JSON")
}

func retrieveOptions(cmd *cobra.Command) (driving.RetrieveOptions, error) {
	var opts driving.RetrieveOptions
	var err error

	if opts.K, err = cmd.Flags().GetInt("k"); err != nil {
		return opts, fmt.Errorf("getting k flag: %w", err)
	}
	if opts.FetchK, err = cmd.Flags().GetInt("fetch-k"); err != nil {
		return opts, fmt.Errorf("getting fetch-k flag: %w", err)
	}
	if opts.Lambda, err = cmd.Flags().GetFloat64("lambda"); err != nil {
		return opts, fmt.Errorf("getting lambda flag: %w", err)
	}
	if opts.Collection, err = cmd.Flags().GetString("collection"); err != nil {
		return opts, fmt.Errorf("getting collection flag: %w", err)
	}

	mode, err := cmd.Flags().GetString("mode")
	if err != nil {
		return opts, fmt.Errorf("getting mode flag: %w", err)
	}
	opts.Mode = domain.RetrievalMode(strings.ToLower(mode))
	if opts.Mode != "" && !opts.Mode.IsValid() {
		return opts, fmt.Errorf("%w: unknown mode %q (want keyword, vector or hybrid)", domain.ErrInvalidInput, mode)
	}

	strategy, err := cmd.Flags().GetString("strategy")
	if err != nil {
		return opts, fmt.Errorf("getting strategy flag: %w", err)
	}
	opts.Strategy = domain.SearchStrategy(strings.ToLower(strategy))
	if opts.Strategy != "" && !opts.Strategy.IsValid() {
		return opts, fmt.Errorf("%w: unknown strategy %q (want similarity or mmr)", domain.ErrInvalidInput, strategy)
	}

	if opts.K < 0 || opts.FetchK < 0 {
		return opts, fmt.Errorf("%w: k and fetch-k must not be negative", domain.ErrInvalidInput)
	}
	return opts, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askService == nil {
		return errors.New("ask service not configured")
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	opts, err := retrieveOptions(cmd)
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json") //nolint:errcheck // flag is registered above
	plain, _ := cmd.Flags().GetBool("plain")     //nolint:errcheck // flag is registered above

	if !jsonOutput {
		warnMissingIndex(cmd, opts)
	}

	res, err := askService.Ask(cmd.Context(), question, opts)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, res.Answer)
	}

	renderMarkdown(cmd, answerMarkdown(res.Answer), plain)
	return nil
}

func answerMarkdown(a *domain.Answer) string {
	if a == nil {
		return domain.FallbackAnswer
	}
	if a.Fallback || len(a.Sources) == 0 {
		return a.Text
	}

	var b strings.Builder
	b.WriteString(a.Text)
	b.WriteString("\n\nSources:\n")
	for _, src := range a.Sources {
		fmt.Fprintf(&b, "  - %s\n", src)
	}
	return strings.TrimRight(b.String(), "\n")
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	query := strings.TrimSpace(strings.Join(args, " "))
	opts, err := retrieveOptions(cmd)
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json") //nolint:errcheck // flag is registered above

	if !jsonOutput {
		warnMissingIndex(cmd, opts)
	}

	res, err := retrievalService.Retrieve(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, res)
	}

	if res.IsEmpty() {
		cmd.Println("No relevant context found.")
		return nil
	}

	if res.Match != "" {
		cmd.Printf("Path: %s (match: %s)\n", res.Path, res.Match)
	} else {
		cmd.Printf("Path: %s\n", res.Path)
	}
	cmd.Printf("Results: %d\n\n", len(res.Items))

	for i, item := range res.Items {
		cmd.Printf("%d. [%s] %s\n", i+1, item.Kind, item.Source)
		if item.Score > 0 {
			cmd.Printf("   Score: %.3f\n", item.Score)
		}
		cmd.Printf("   %s\n\n", snippet(item.Content, snippetLength))
	}
	return nil
}

// snippet flattens whitespace and truncates to n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// renderMarkdown prints md through glamour when stdout is a terminal and
// plain output was not requested.
func renderMarkdown(cmd *cobra.Command, md string, plain bool) {
	out := cmd.OutOrStdout()
	width, ok := terminalWidth(out)
	if plain || !ok {
		fmt.Fprintln(out, md)
		return
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(min(width, 100)),
	)
	if err != nil {
		fmt.Fprintln(out, md)
		return
	}
	rendered, err := r.Render(md)
	if err != nil {
		fmt.Fprintln(out, md)
		return
	}
	fmt.Fprint(out, rendered)
}

func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 80, true
	}
	return width, true
}
