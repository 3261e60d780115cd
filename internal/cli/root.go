// Package cli wires configuration, capture sources, and sinks into the
// screenwatch commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "screenwatch",
	Short: "Background screen activity monitor",
	Long: `screenwatch periodically captures configured displays and the focused
window, deduplicates frames with a perceptual hash, and stores or reports
only the frames that show new activity.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
