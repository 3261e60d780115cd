package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/screenwatch/screenwatch/internal/screen"
)

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "List attached displays and their source ids",
	Run: func(cmd *cobra.Command, args []string) {
		displays := screen.ListDisplays()
		if len(displays) == 0 {
			fmt.Println("no displays attached")
			return
		}
		for _, id := range displays {
			fmt.Println(id)
		}
	},
}

func init() {
	rootCmd.AddCommand(monitorsCmd)
}
