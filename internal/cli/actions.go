package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dovydasv/reel/internal/models"
)

var likeCmd = &cobra.Command{
	Use:   "like <post-id>",
	Short: "Toggle a like on a post",
	Args:  cobra.ExactArgs(1),
	Run:   runLike,
}

var rateCmd = &cobra.Command{
	Use:   "rate <post-id> <stars>",
	Short: "Rate a post from 1 to 5 stars",
	Args:  cobra.ExactArgs(2),
	Run:   runRate,
}

var commentCmd = &cobra.Command{
	Use:   "comment <post-id> <text>...",
	Short: "Comment on a post",
	Args:  cobra.MinimumNArgs(2),
	Run:   runComment,
}

var replyCmd = &cobra.Command{
	Use:   "reply <post-id> <comment-id> <text>...",
	Short: "Reply to a comment",
	Args:  cobra.MinimumNArgs(3),
	Run:   runReply,
}

func runLike(cmd *cobra.Command, args []string) {
	c := initFullContext()
	defer c.Close()
	user := c.requireAuth()

	ctx := context.Background()
	id := findPost(ctx, c, args[0])

	done, err := c.Coordinator.ToggleLike(ctx, id.ID)
	if err != nil {
		exitError("%v", err)
	}
	if err := awaitOutcome(done); err != nil {
		exitError("like not applied: %v", err)
	}

	fields, _ := c.Cache.Read(id)
	likes, _ := fields[models.FieldLikes].([]models.UserRef)
	liked := false
	for _, l := range likes {
		if l.ID == user.ID {
			liked = true
			break
		}
	}
	if liked {
		color.New(color.FgGreen).Printf("Liked %s (%d likes)\n", shortID(id.ID), len(likes))
	} else {
		fmt.Printf("Unliked %s (%d likes)\n", shortID(id.ID), len(likes))
	}
}

func runRate(cmd *cobra.Command, args []string) {
	c := initFullContext()
	defer c.Close()
	c.requireAuth()

	stars, err := strconv.Atoi(args[1])
	if err != nil {
		exitError("invalid rating %q: expected a number from 1 to 5", args[1])
	}

	ctx := context.Background()
	id := findPost(ctx, c, args[0])

	done, err := c.Coordinator.SetRating(ctx, id.ID, stars)
	if err != nil {
		exitError("%v", err)
	}
	if err := awaitOutcome(done); err != nil {
		exitError("rating not applied: %v", err)
	}

	fields, _ := c.Cache.Read(id)
	ratings, _ := fields[models.FieldRatings].([]models.Rating)
	color.New(color.FgGreen).Printf("Rated %s %d stars (now %.1f across %d ratings)\n",
		shortID(id.ID), stars, models.AverageRating(ratings), len(ratings))
}

func runComment(cmd *cobra.Command, args []string) {
	c := initFullContext()
	defer c.Close()
	c.requireAuth()

	ctx := context.Background()
	id := findPost(ctx, c, args[0])
	text := strings.Join(args[1:], " ")

	_, done, err := c.Coordinator.AddComment(ctx, id.ID, text)
	if err != nil {
		exitError("%v", err)
	}
	if err := awaitOutcome(done); err != nil {
		exitError("comment not posted: %v", err)
	}

	color.New(color.FgGreen).Printf("Commented on %s\n", shortID(id.ID))
}

func runReply(cmd *cobra.Command, args []string) {
	c := initFullContext()
	defer c.Close()
	c.requireAuth()

	ctx := context.Background()
	postID := findPost(ctx, c, args[0])

	var commentID string
	for _, cm := range primeComments(ctx, c, postID.ID) {
		if strings.HasPrefix(cm.ID, args[1]) {
			commentID = cm.ID
			break
		}
	}
	if commentID == "" {
		exitError("comment %s not found on post %s", args[1], shortID(postID.ID))
	}

	text := strings.Join(args[2:], " ")
	_, done, err := c.Coordinator.AddReply(ctx, commentID, text)
	if err != nil {
		exitError("%v", err)
	}
	if err := awaitOutcome(done); err != nil {
		exitError("reply not posted: %v", err)
	}

	color.New(color.FgGreen).Printf("Replied to %s\n", shortID(commentID))
}
