package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
)

var errNoProcedures = errors.New("procedure catalogue not configured (set procedures.path)")

var procedureCmd = &cobra.Command{
	Use:     "procedure",
	Aliases: []string{"proc"},
	Short:   "Browse the QMS procedure catalogue",
	Long: `Look up the curated ISO 13485 procedures loaded from the procedure JSON file
configured in procedures.path.`,
}

var procedureGetCmd = &cobra.Command{
	Use:   "get [proc_id]",
	Short: "Show one procedure",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcedureGet,
}

var procedureFindCmd = &cobra.Command{
	Use:   "find [term]",
	Short: "Find procedures by keyword",
	Long: `Find procedures whose title, description or keywords contain
the term, ignoring case.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcedureFind,
}

var procedureListCmd = &cobra.Command{
	Use:   "list",
	Short: "List procedures",
	Args:  cobra.NoArgs,
	RunE:  runProcedureList,
}

var procedureSectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "Show the section hierarchy",
	Args:  cobra.NoArgs,
	RunE:  runProcedureSections,
}

func init() {
	for _, c := range []*cobra.Command{procedureGetCmd, procedureFindCmd, procedureListCmd, procedureSectionsCmd} {
		c.Flags().Bool("json", false, "Output as JSON")
	}
	procedureGetCmd.Flags().Bool("plain", false, "Print without markdown rendering")
	procedureListCmd.Flags().String("clause", "", "Only procedures whose requirement starts with this clause (e.g. 8.2)")
	procedureListCmd.Flags().String("sort", "", "Sort by id, title or requirement")

	procedureCmd.AddCommand(procedureGetCmd)
	procedureCmd.AddCommand(procedureFindCmd)
	procedureCmd.AddCommand(procedureListCmd)
	procedureCmd.AddCommand(procedureSectionsCmd)
	rootCmd.AddCommand(procedureCmd)
}

func runProcedureGet(cmd *cobra.Command, args []string) error {
	if procedureService == nil {
		return errNoProcedures
	}

	p, err := procedureService.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get procedure: %w", err)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput { //nolint:errcheck // flag is registered in init
		return printJSON(cmd, p)
	}

	plain, _ := cmd.Flags().GetBool("plain") //nolint:errcheck // flag is registered in init
	renderMarkdown(cmd, procedureService.Format(*p), plain)
	return nil
}

func runProcedureFind(cmd *cobra.Command, args []string) error {
	if procedureService == nil {
		return errNoProcedures
	}

	term := strings.TrimSpace(strings.Join(args, " "))
	return printProcedures(cmd, procedureService.Find(term))
}

func runProcedureList(cmd *cobra.Command, _ []string) error {
	if procedureService == nil {
		return errNoProcedures
	}

	clause, _ := cmd.Flags().GetString("clause") //nolint:errcheck // flag is registered in init
	sortBy, _ := cmd.Flags().GetString("sort")   //nolint:errcheck // flag is registered in init

	sort := driving.ProcedureSort(strings.ToLower(sortBy))
	switch sort {
	case "", driving.SortByID, driving.SortByTitle, driving.SortByRequirement:
	default:
		return fmt.Errorf("%w: unknown sort %q (want id, title or requirement)", domain.ErrInvalidInput, sortBy)
	}

	return printProcedures(cmd, procedureService.List(driving.ListOptions{Clause: clause, SortBy: sort}))
}

func printProcedures(cmd *cobra.Command, procs []domain.Procedure) error {
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput { //nolint:errcheck // flag is registered in init
		if procs == nil {
			procs = []domain.Procedure{}
		}
		return printJSON(cmd, procs)
	}

	if len(procs) == 0 {
		cmd.Println("No procedures found.")
		return nil
	}

	cmd.Printf("Procedures (%d):\n", len(procs))
	for _, p := range procs {
		cmd.Printf("  %-14s %-8s %s\n", p.ProcID, p.Requirement, p.Title)
	}
	return nil
}

func runProcedureSections(cmd *cobra.Command, _ []string) error {
	if procedureService == nil {
		return errNoProcedures
	}

	sections := procedureService.Sections()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput { //nolint:errcheck // flag is registered in init
		return printJSON(cmd, sections)
	}

	for _, sec := range sections {
		cmd.Printf("%s %s\n", sec.SectionID, sec.SectionName)
		for _, p := range sec.Procedures {
			cmd.Printf("    %s  %s\n", p.ProcID, p.Title)
		}
		for _, sub := range sec.Subsections {
			cmd.Printf("  %s %s\n", sub.SubsectionID, sub.SubsectionName)
			for _, p := range sub.Procedures {
				cmd.Printf("    %s  %s\n", p.ProcID, p.Title)
			}
		}
	}
	return nil
}
