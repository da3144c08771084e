package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the local activity journal",
	Long:  `Display locally journaled mutation outcomes, newest first.`,
	Run:   runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "n", "n", 20, "Limit the number of entries to show")
}

func runHistory(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	activities, err := c.Journal.List(historyLimit)
	if err != nil {
		exitError("failed to read activity journal: %v", err)
	}

	if len(activities) == 0 {
		fmt.Println("No activity yet")
		return
	}

	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	for _, a := range activities {
		yellow.Printf("%s  ", a.Timestamp.Format("Jan 2 15:04:05"))
		fmt.Printf("%-12s %-14s ", a.Action, a.Target)
		if a.Outcome == "confirmed" {
			green.Print(a.Outcome)
		} else {
			red.Print(a.Outcome)
		}
		if a.Detail != "" {
			fmt.Printf("  %q", a.Detail)
		}
		if a.Error != "" {
			fmt.Printf("  (%s)", a.Error)
		}
		fmt.Println()
	}
}
