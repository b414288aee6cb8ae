package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	historySession  string
	historyLimit    int
	historySessions bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show conversation history",
	Long: `Shows the turns of a research session, oldest first.
With --sessions, lists known sessions, most recently active first.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historySession, "session", "s", "", "session id")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "maximum number of turns to show")
	historyCmd.Flags().BoolVar(&historySessions, "sessions", false, "list sessions instead of turns")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if !historySessions && historySession == "" {
		return errors.New("specify --session <id> or --sessions")
	}

	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	st := newStyles(out)

	if historySessions {
		sessions, err := svc.Conversations.Sessions(ctx)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Fprintln(out, st.Muted.Render("No sessions yet."))
			return nil
		}
		for _, s := range sessions {
			fmt.Fprintf(out, "  %s  %d turns  %s\n", s.SessionID, s.Turns,
				st.Muted.Render(s.LastActivity.Local().Format(time.DateTime)))
		}
		return nil
	}

	turns, err := svc.Conversations.Recent(ctx, historySession, historyLimit)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		fmt.Fprintf(out, "No turns recorded for session %s.\n", historySession)
		return nil
	}

	for _, t := range turns {
		fmt.Fprintf(out, "%s %s\n", st.Subtitle.Render(fmt.Sprintf("[%d]", t.Index+1)), t.Query)
		if t.RewrittenQuery != "" && t.RewrittenQuery != t.Query {
			fmt.Fprintf(out, "    %s\n", st.Muted.Render("rewritten: "+t.RewrittenQuery))
		}
		fmt.Fprintf(out, "    %s\n", snippet(t.Answer, 200))
		fmt.Fprintf(out, "    %s\n\n", st.Muted.Render(t.Timestamp.Local().Format(time.DateTime)))
	}
	return nil
}
