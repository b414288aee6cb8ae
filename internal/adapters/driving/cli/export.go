package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/deep-researcher/internal/adapters/driving/export"
)

var (
	exportSession string
	exportFormat  string
	exportOutput  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the latest answer of a session",
	Long: `Writes a research report for the most recent turn of a session.
Recorded turns keep the query, rewritten query and answer; run 'research
--export' to include sub-queries and retrieved chunks.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportSession, "session", "s", "", "session id (required)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "report format: md or html")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "report file path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	if exportSession == "" {
		return errors.New("--session is required")
	}
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	turns, err := svc.Conversations.Recent(commandContext(cmd), exportSession, 1)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		return fmt.Errorf("no turns recorded for session %s", exportSession)
	}

	path, err := writeReport(export.FromTurn(turns[0], time.Now()), format, exportOutput)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
	return nil
}
