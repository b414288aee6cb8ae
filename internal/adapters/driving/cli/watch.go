package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/deep-researcher/internal/adapters/driving/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index in sync with the data directory",
	Long: `Watches the data directory and re-ingests files as they are created,
edited or deleted. Bursts of events are coalesced. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce,
		"quiet period before changes are applied")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}
	if svc.Corpus == nil {
		return errors.New("watch: no corpus configured")
	}

	out := cmd.OutOrStdout()
	st := newStyles(out)
	w := watch.New(svc.DataDir, svc.Corpus, svc.Indexes,
		watch.WithDebounce(watchDebounce),
		watch.WithOnChange(func(c watch.Change) {
			switch {
			case c.Err != nil:
				fmt.Fprintf(out, "%s %s: %v\n", st.Error.Render("failed"), c.Path, c.Err)
			case c.Type == watch.ChangeDeleted:
				fmt.Fprintf(out, "%s %s\n", st.Warning.Render("removed"), c.Path)
			default:
				fmt.Fprintf(out, "%s %s\n", st.Success.Render(string(c.Status)), c.Path)
			}
		}),
	)

	fmt.Fprintf(out, "Watching %s\n", svc.DataDir)
	return w.Run(commandContext(cmd))
}
