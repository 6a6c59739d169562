package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/wonny/delaycast/internal/artifact"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "버전 정보",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "delaycast %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		fmt.Fprintf(w, "artifact format %s v%d, %s\n", artifact.SchemaTag, artifact.FormatVersion, runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
