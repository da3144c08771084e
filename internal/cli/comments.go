package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var commentsCmd = &cobra.Command{
	Use:   "comments <post-id>",
	Short: "Show a post's comment thread",
	Args:  cobra.ExactArgs(1),
	Run:   runComments,
}

func runComments(cmd *cobra.Command, args []string) {
	c := initFullContext()
	defer c.Close()

	ctx := context.Background()
	id := findPost(ctx, c, args[0])
	comments := primeComments(ctx, c, id.ID)

	if len(comments) == 0 {
		fmt.Println("No comments yet")
		return
	}

	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	for _, cm := range comments {
		yellow.Printf("%s ", shortID(cm.ID))
		cyan.Printf("@%s", cm.User.Username)
		fmt.Printf("  %s\n", cm.CreatedAt.Format("Mon Jan 2 15:04"))
		fmt.Printf("  %s\n", cm.Text)
		for _, r := range cm.Replies {
			fmt.Print("    ")
			cyan.Printf("@%s", r.User.Username)
			fmt.Printf("  %s\n", r.Text)
		}
		fmt.Println()
	}
}
