package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage vector collections",
	Long: `Build, refresh and inspect the persisted vector collections that back
semantic retrieval.

A collection is built once from a set of documents and reused on later runs.
Nothing is rebuilt automatically: when sources change, 'index status' reports
the collection as stale and 'index refresh' rebuilds it.`,
}

var indexBuildCmd = &cobra.Command{
	Use:   "build [paths...]",
	Short: "Build a collection from documents",
	Long: `Ingest files or directories into a collection.

Paths may be glob patterns such as 'docs/**/*.pdf'. Directories are walked
recursively and unsupported files are skipped. If the collection already
exists it is loaded as is unless --force is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndexBuild,
}

var indexRefreshCmd = &cobra.Command{
	Use:   "refresh [paths...]",
	Short: "Rebuild a collection",
	Long: `Rebuild a collection unconditionally. Without paths, the sources recorded
in the collection manifest are ingested again.`,
	RunE: runIndexRefresh,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a collection and whether its sources changed",
	Args:  cobra.NoArgs,
	RunE:  runIndexStatus,
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted collections",
	Args:  cobra.NoArgs,
	RunE:  runIndexList,
}

var indexDeleteCmd = &cobra.Command{
	Use:   "delete [collection]",
	Short: "Delete a persisted collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexDelete,
}

func init() {
	for _, c := range []*cobra.Command{indexBuildCmd, indexRefreshCmd, indexStatusCmd} {
		c.Flags().StringP("collection", "c", "", "Collection name (default from settings)")
	}
	for _, c := range []*cobra.Command{indexBuildCmd, indexRefreshCmd, indexStatusCmd, indexListCmd} {
		c.Flags().Bool("json", false, "Output as JSON")
	}
	indexBuildCmd.Flags().BoolP("force", "f", false, "Rebuild even if the collection exists")

	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexRefreshCmd)
	indexCmd.AddCommand(indexStatusCmd)
	indexCmd.AddCommand(indexListCmd)
	indexCmd.AddCommand(indexDeleteCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	collection, _ := cmd.Flags().GetString("collection") //nolint:errcheck // flag is registered in init
	force, _ := cmd.Flags().GetBool("force")             //nolint:errcheck // flag is registered in init

	report, err := indexService.Build(cmd.Context(), driving.BuildRequest{
		Collection: collection,
		Paths:      args,
		Force:      force,
	})
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	return printBuildReport(cmd, report)
}

func runIndexRefresh(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	collection, _ := cmd.Flags().GetString("collection") //nolint:errcheck // flag is registered in init

	paths := args
	if len(paths) == 0 {
		status, err := indexService.Status(cmd.Context(), collection)
		if err != nil {
			return indexHint(cmd, fmt.Errorf("refresh failed: %w", err))
		}
		paths = status.Manifest.Sources
		if len(paths) == 0 {
			return fmt.Errorf("%w: collection %q records no sources; pass paths explicitly",
				domain.ErrInvalidInput, status.Manifest.Name)
		}
	}

	report, err := indexService.Refresh(cmd.Context(), driving.BuildRequest{
		Collection: collection,
		Paths:      paths,
		Force:      true,
	})
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	return printBuildReport(cmd, report)
}

func printBuildReport(cmd *cobra.Command, report *driving.BuildReport) error {
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput { //nolint:errcheck // flag is registered in init
		return printJSON(cmd, report)
	}

	m := report.Manifest
	if report.Reused {
		cmd.Printf("Loaded existing collection %q (%d chunks).\n", m.Name, m.ChunkCount)
		cmd.Println("Use --force or 'qmsrag index refresh' to rebuild it.")
		return nil
	}

	cmd.Printf("Built collection %q\n", m.Name)
	cmd.Printf("  Documents:  %d\n", m.DocumentCount)
	cmd.Printf("  Chunks:     %d\n", m.ChunkCount)
	cmd.Printf("  Dimensions: %d\n", m.Dimensions)
	cmd.Printf("  Model:      %s\n", m.EmbeddingModel)

	if len(report.Skipped) > 0 {
		cmd.Printf("\nSkipped %d unsupported files:\n", len(report.Skipped))
		for _, path := range report.Skipped {
			cmd.Printf("  - %s\n", path)
		}
	}
	return nil
}

func runIndexStatus(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	collection, _ := cmd.Flags().GetString("collection") //nolint:errcheck // flag is registered in init
	jsonOutput, _ := cmd.Flags().GetBool("json")         //nolint:errcheck // flag is registered in init

	status, err := indexService.Status(cmd.Context(), collection)
	if err != nil {
		return indexHint(cmd, fmt.Errorf("status failed: %w", err))
	}

	if jsonOutput {
		return printJSON(cmd, status)
	}

	m := status.Manifest
	state := "fresh"
	if status.Stale {
		state = "stale (run 'qmsrag index refresh')"
	}
	loaded := "no"
	if status.Loaded {
		loaded = "yes"
	}

	cmd.Printf("Collection: %s\n", m.Name)
	cmd.Printf("  Model:      %s\n", m.EmbeddingModel)
	cmd.Printf("  Dimensions: %d\n", m.Dimensions)
	cmd.Printf("  Documents:  %d\n", m.DocumentCount)
	cmd.Printf("  Chunks:     %d\n", m.ChunkCount)
	cmd.Printf("  Created:    %s\n", m.CreatedAt.Local().Format(time.DateTime))
	cmd.Printf("  Loaded:     %s\n", loaded)
	cmd.Printf("  Sources:    %s\n", state)
	for _, src := range m.Sources {
		cmd.Printf("    - %s\n", src)
	}
	return nil
}

func runIndexList(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	jsonOutput, _ := cmd.Flags().GetBool("json") //nolint:errcheck // flag is registered in init

	manifests, err := indexService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, manifests)
	}

	if len(manifests) == 0 {
		cmd.Println("No collections. Run 'qmsrag index build <paths>' to create one.")
		return nil
	}

	cmd.Printf("Collections (%d):\n", len(manifests))
	for _, m := range manifests {
		cmd.Printf("  %-24s %6d chunks  %-24s %s\n",
			m.Name, m.ChunkCount, m.EmbeddingModel, m.CreatedAt.Local().Format(time.DateOnly))
	}
	return nil
}

func runIndexDelete(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	if err := indexService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	cmd.Printf("Deleted collection %q\n", args[0])
	return nil
}
