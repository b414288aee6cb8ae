package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and maintain the vector index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build [dir]",
	Short: "Ingest a directory and build a fresh index",
	Long: `Ingests every .txt and .md file under the directory (default: the
configured data directory), drops stored documents that are gone, and
builds a fresh index. Files that fail to ingest are reported and skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndexBuild,
}

var indexAddCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Add or update one file",
	Long: `Ingests one file. A new document is appended to the index; a changed
document triggers a rebuild.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexAdd,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Re-embed every stored chunk",
	Long:  `Rebuilds the index from the chunk store. Use after changing the embedding provider or metric.`,
	Args:  cobra.NoArgs,
	RunE:  runIndexRebuild,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runIndexStats,
}

func init() {
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexAddCmd)
	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexStatsCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	dir := svc.DataDir
	if len(args) == 1 {
		dir = args[0]
	}

	report, err := svc.Indexes.BuildFromDir(commandContext(cmd), dir)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	out := cmd.OutOrStdout()
	st := newStyles(out)
	counts := map[string]int{}
	for _, o := range report.Outcomes {
		counts[string(o.Status)]++
	}
	fmt.Fprintf(out, "%s %d documents, %d chunks (%d new, %d changed, %d unchanged)\n",
		st.Success.Render("Indexed"), len(report.Outcomes), report.ChunkCount(),
		counts["new"], counts["changed"], counts["unchanged"])

	if len(report.Failed) > 0 {
		uris := make([]string, 0, len(report.Failed))
		for uri := range report.Failed {
			uris = append(uris, uri)
		}
		sort.Strings(uris)
		fmt.Fprintln(out, st.Warning.Render(fmt.Sprintf("%d files failed:", len(uris))))
		for _, uri := range uris {
			fmt.Fprintf(out, "  %s: %v\n", uri, report.Failed[uri])
		}
	}
	return nil
}

func runIndexAdd(cmd *cobra.Command, args []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	outcome, err := svc.Indexes.AddFile(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("index add failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d chunks)\n",
		outcome.Status, outcome.Document.URI, len(outcome.Chunks))
	return nil
}

func runIndexRebuild(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	idx, err := svc.Indexes.Rebuild(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("index rebuild failed: %w", err)
	}

	stats := idx.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt index: %d entries, dimension %d\n", stats.Entries, stats.Dimension)
	return nil
}

func runIndexStats(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	stats, err := svc.Indexes.Stats(commandContext(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	st := newStyles(out)
	fmt.Fprintln(out, st.Title.Render("Index"))
	fmt.Fprintf(out, "  Entries:   %d\n", stats.Entries)
	fmt.Fprintf(out, "  Dimension: %d\n", stats.Dimension)
	if stats.Metric != "" {
		fmt.Fprintf(out, "  Metric:    %s\n", stats.Metric.Description())
	}
	fmt.Fprintln(out, st.Title.Render("Chunk store"))
	fmt.Fprintf(out, "  Documents: %d\n", stats.Documents)
	fmt.Fprintf(out, "  Chunks:    %d\n", stats.Chunks)
	if stats.Entries != stats.Chunks {
		fmt.Fprintln(out, st.Warning.Render("  Index is stale; run 'deep-researcher index rebuild'."))
	}
	return nil
}
