package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		if short, _ := cmd.Flags().GetBool("short"); short {
			fmt.Fprintln(out, version)
			return nil
		}
		fmt.Fprintf(out, "deep-researcher version %s\n", version)
		fmt.Fprintf(out, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		if rev := vcsRevision(); rev != "" {
			fmt.Fprintf(out, "  commit: %s\n", rev)
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("short", false, "print the version only")
	rootCmd.AddCommand(versionCmd)
}

// vcsRevision returns the first 12 characters of the commit the binary
// was built from, or "" outside a module-aware build.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value[:min(12, len(s.Value))]
		}
	}
	return ""
}
