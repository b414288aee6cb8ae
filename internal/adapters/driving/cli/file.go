package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Manage indexed files",
}

var fileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runFileList,
}

var fileRemoveCmd = &cobra.Command{
	Use:   "remove [uri-or-id]",
	Short: "Remove a document and rebuild the index",
	Long: `Removes a document from the chunk store and rebuilds the index without it.
The argument is the document URI shown by 'file list' or its id. The file
on disk is not touched.`,
	Args: cobra.ExactArgs(1),
	RunE: runFileRemove,
}

func init() {
	fileCmd.AddCommand(fileListCmd)
	fileCmd.AddCommand(fileRemoveCmd)
	rootCmd.AddCommand(fileCmd)
}

func runFileList(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	docs, err := svc.Ingest.Documents(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	out := cmd.OutOrStdout()
	st := newStyles(out)
	if len(docs) == 0 {
		fmt.Fprintln(out, st.Muted.Render("No documents indexed."))
		return nil
	}

	for i := range docs {
		fmt.Fprintf(out, "  %s  %s\n", docs[i].URI, st.Muted.Render(docs[i].ID))
	}
	fmt.Fprintf(out, "\nTotal: %d documents\n", len(docs))
	return nil
}

func runFileRemove(cmd *cobra.Command, args []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	id, err := resolveDocumentID(cmd, svc, args[0])
	if err != nil {
		return err
	}
	if err := svc.Indexes.RemoveDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to remove %s: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
	return nil
}

// resolveDocumentID accepts either a stored document id or a URI.
func resolveDocumentID(cmd *cobra.Command, svc *Services, ref string) (string, error) {
	docs, err := svc.Ingest.Documents(commandContext(cmd))
	if err != nil {
		return "", fmt.Errorf("failed to list documents: %w", err)
	}
	for i := range docs {
		if docs[i].ID == ref || docs[i].URI == ref {
			return docs[i].ID, nil
		}
	}
	return "", fmt.Errorf("%w: no document %q", domain.ErrNotFound, ref)
}
