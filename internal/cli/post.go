package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dovydasv/reel/internal/models"
	"github.com/dovydasv/reel/internal/remote"
)

var postCmd = &cobra.Command{
	Use:   "post <media-url>",
	Short: "Publish a new post",
	Args:  cobra.ExactArgs(1),
	Run:   runPost,
}

var (
	postCaption   string
	postMediaType string
)

func init() {
	postCmd.Flags().StringVarP(&postCaption, "caption", "c", "", "Caption text")
	postCmd.Flags().StringVarP(&postMediaType, "type", "t", "video", "Media type: image or video")
}

func runPost(cmd *cobra.Command, args []string) {
	c := initFullContext()
	defer c.Close()
	c.requireAuth()

	mt := models.MediaType(postMediaType)
	if mt != models.MediaImage && mt != models.MediaVideo {
		exitError("invalid media type %q: expected image or video", postMediaType)
	}

	post, err := c.API.CreatePost(context.Background(), remote.CreatePostInput{
		MediaURL:  args[0],
		MediaType: mt,
		Caption:   postCaption,
	})
	if err != nil {
		exitError("failed to publish post: %v", err)
	}

	c.Coordinator.Seed(post.Identity(), post.Fields())
	color.New(color.FgGreen).Printf("Published %s\n", shortID(post.ID))
}
