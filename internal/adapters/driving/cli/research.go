package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/deep-researcher/internal/adapters/driving/export"
	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
	"github.com/custodia-labs/deep-researcher/internal/ids"
)

var (
	researchSession   string
	researchMaxSteps  int
	researchK         int
	researchThreshold float64
	researchExport    string
	researchOutput    string
	researchTrace     bool
)

var researchCmd = &cobra.Command{
	Use:   "research [question]",
	Short: "Answer a question with multi-step retrieval",
	Long: `Decomposes the question into sub-queries, retrieves evidence for each,
judges whether the evidence is sufficient and synthesises an answer.

Pass --session to continue a conversation; follow-up questions are
rewritten using earlier turns. Without --session a new session is started
and its id is printed.`,
	Example: `  deep-researcher research "What did Leonardo paint?"
  deep-researcher research --session 3f2a... "Where is it now?" --export md`,
	Args: cobra.ExactArgs(1),
	RunE: runResearch,
}

func init() {
	f := researchCmd.Flags()
	f.StringVarP(&researchSession, "session", "s", "", "conversation session id")
	f.IntVar(&researchMaxSteps, "max-steps", 0, "maximum reasoning steps (default from config)")
	f.IntVarP(&researchK, "k", "k", 0, "results per sub-query (default from config)")
	f.Float64Var(&researchThreshold, "threshold", 0, "minimum similarity for evidence (default from config)")
	f.StringVar(&researchExport, "export", "", "also write a report: md or html")
	f.StringVarP(&researchOutput, "output", "o", "", "report file path (default research_report_<time>.<ext>)")
	f.BoolVar(&researchTrace, "trace", true, "print the reasoning steps")
	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	var format export.Format
	if researchExport != "" {
		var err error
		if format, err = export.ParseFormat(researchExport); err != nil {
			return err
		}
	}

	cfg, err := researchConfig(cmd)
	if err != nil {
		return err
	}

	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	sessionID := researchSession
	if sessionID == "" {
		sessionID = ids.Session()
	}

	answer, err := svc.Researcher.Ask(commandContext(cmd), sessionID, args[0], cfg)
	if err != nil {
		return fmt.Errorf("research failed: %w", err)
	}

	printAnswer(cmd, svc, sessionID, answer)

	if format != "" {
		path, err := writeReport(export.FromAnswer(answer, time.Now()), format, researchOutput)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
	}
	return nil
}

// researchConfig merges configured loop bounds with flag overrides.
func researchConfig(cmd *cobra.Command) (domain.ResearchConfig, error) {
	cfg := domain.DefaultResearchConfig()
	if settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return cfg, fmt.Errorf("failed to get settings: %w", err)
		}
		cfg = settings.Research
	}

	flags := cmd.Flags()
	if flags.Changed("max-steps") {
		cfg.MaxSteps = researchMaxSteps
	}
	if flags.Changed("k") {
		cfg.KPerStep = researchK
	}
	if flags.Changed("threshold") {
		cfg.SimilarityThreshold = researchThreshold
	}
	return cfg, cfg.Validate()
}

func printAnswer(cmd *cobra.Command, svc *Services, sessionID string, answer *driving.Answer) {
	out := cmd.OutOrStdout()
	st := newStyles(out)
	res := answer.Result

	if answer.Turn != nil && answer.Turn.RewrittenQuery != answer.Turn.Query {
		fmt.Fprintf(out, "%s %s\n\n", st.Muted.Render("Rewritten:"), answer.Turn.RewrittenQuery)
	}
	if researchTrace {
		printTrace(cmd, st, res)
	}

	fmt.Fprintln(out, st.Title.Render("Answer"))
	fmt.Fprintln(out, st.Answer.Render(res.Answer))
	fmt.Fprintln(out)

	if len(res.Evidence) > 0 {
		fmt.Fprintln(out, st.Title.Render("Sources"))
		seen := make(map[string]bool)
		for _, ev := range res.Evidence {
			label := chunkLabel(ev.Chunk)
			if seen[label] {
				continue
			}
			seen[label] = true
			fmt.Fprintf(out, "  - %s\n", label)
		}
		fmt.Fprintln(out)
	}

	meta := "session " + sessionID
	if svc.Reasoner != "" {
		meta += ", reasoner " + svc.Reasoner
	}
	fmt.Fprintln(out, st.Muted.Render(meta))
}

// writeReport renders and writes a report, returning the path written.
func writeReport(report export.Report, format export.Format, path string) (string, error) {
	data, err := export.Render(report, format)
	if err != nil {
		return "", err
	}
	if path == "" {
		path = export.Filename(format, report.GeneratedAt)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
