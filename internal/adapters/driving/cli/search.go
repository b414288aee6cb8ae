package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

var (
	searchK      int
	searchJSON   bool
	searchFile   string
	searchDedupe bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Embeds the query and returns the k most similar chunks from the index.
No reasoning is performed; use 'research' for multi-step answers.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "k", "k", 5, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVar(&searchFile, "file", "", "only return chunks from the file with this URI")
	searchCmd.Flags().BoolVar(&searchDedupe, "dedupe", false, "drop results with identical text")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	opts := domain.SearchOptions{K: searchK, Dedupe: searchDedupe}
	if searchFile != "" {
		opts.Filter = domain.FilterByMetadata(domain.MetaURI, searchFile)
	}

	results, err := svc.Researcher.Search(commandContext(cmd), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	printResults(cmd, newStyles(cmd.OutOrStdout()), results)
	return nil
}

type searchResultJSON struct {
	Rank       int     `json:"rank"`
	Score      float64 `json:"score"`
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	URI        string  `json:"uri"`
	Content    string  `json:"content"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	out := make([]searchResultJSON, len(results))
	for i, r := range results {
		out[i] = searchResultJSON{
			Rank:       r.Rank,
			Score:      r.Score,
			ChunkID:    r.ChunkID,
			DocumentID: r.Chunk.DocumentID,
			Title:      r.Chunk.MetadataString(domain.MetaTitle),
			URI:        r.Chunk.MetadataString(domain.MetaURI),
			Content:    r.Chunk.Content,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
