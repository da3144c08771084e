package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dovydasv/reel/internal/models"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Browse the feed",
	Long:  `Fetch and display the feed, newest first.`,
	Run:   runFeed,
}

var (
	feedPages    int
	feedPageSize int
)

func init() {
	feedCmd.Flags().IntVarP(&feedPages, "pages", "p", 1, "Number of pages to fetch")
	feedCmd.Flags().IntVar(&feedPageSize, "page-size", 0, "Posts per page (defaults to the configured page size)")
}

func runFeed(cmd *cobra.Command, args []string) {
	c := initFullContext()
	defer c.Close()

	ctx := context.Background()
	pageSize := feedPageSize
	if pageSize <= 0 {
		pageSize = c.Config.PageSize
	}

	if err := c.Feed.LoadInitial(ctx, pageSize); err != nil {
		exitError("failed to load feed: %v", err)
	}
	for p := 1; p < feedPages && !c.Feed.EndReached(); p++ {
		if err := c.Feed.LoadMore(ctx); err != nil {
			exitError("failed to load feed: %v", err)
		}
	}

	posts := c.Feed.Posts()
	if len(posts) == 0 {
		fmt.Println("The feed is empty")
		return
	}

	for i, id := range posts {
		printPost(c, i, id)
	}
}

func printPost(c *cmdContext, index int, id models.Identity) {
	fields, ok := c.Cache.Read(id)
	if !ok {
		return
	}

	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	yellow.Printf("[%d] %s", index, shortID(id.ID))
	if user, ok := fields[models.FieldUser].(models.UserRef); ok {
		cyan.Printf("  @%s", user.Username)
	}
	if mt, ok := fields[models.FieldMediaType].(models.MediaType); ok {
		fmt.Printf("  (%s)", mt)
	}
	fmt.Println()

	if caption, ok := fields[models.FieldCaption].(string); ok && caption != "" {
		fmt.Printf("    %s\n", caption)
	}

	likeCount, _ := fields[models.FieldLikeCount].(int)
	commentCount, _ := fields[models.FieldCommentCount].(int)
	line := fmt.Sprintf("    %d likes, %d comments", likeCount, commentCount)
	if ratings, ok := fields[models.FieldRatings].([]models.Rating); ok && len(ratings) > 0 {
		line += fmt.Sprintf(", rated %.1f by %d", models.AverageRating(ratings), len(ratings))
	}
	fmt.Println(line)
}
