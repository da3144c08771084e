// Package cli implements the command-line interface for reel.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dovydasv/reel/internal/cache"
	"github.com/dovydasv/reel/internal/config"
	"github.com/dovydasv/reel/internal/feed"
	"github.com/dovydasv/reel/internal/models"
	"github.com/dovydasv/reel/internal/mutate"
	"github.com/dovydasv/reel/internal/remote"
	"github.com/dovydasv/reel/internal/session"
	"github.com/dovydasv/reel/internal/store"
)

// cmdContext holds common resources for CLI commands.
type cmdContext struct {
	Config      *config.Config
	KV          *store.KV
	Journal     *store.ActivityLog
	Cache       *cache.EntityCache
	Session     *session.Holder
	API         remote.API
	Coordinator *mutate.Coordinator
	Feed        *feed.Session
}

// Close releases resources held by cmdContext.
func (c *cmdContext) Close() {
	if c.Journal != nil {
		c.Journal.Close()
	}
	if c.KV != nil {
		c.KV.Close()
	}
}

// initContext initializes config and the local stores (no API).
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	kv, err := store.OpenKV(cfg.CredentialsPath())
	if err != nil {
		exitError("failed to open credential store: %v", err)
	}

	journal, err := store.OpenActivityLog(cfg.JournalPath())
	if err != nil {
		kv.Close()
		exitError("failed to open activity journal: %v", err)
	}

	entityCache := cache.New()
	holder := session.NewHolder(entityCache, kv)

	return &cmdContext{
		Config:  cfg,
		KV:      kv,
		Journal: journal,
		Cache:   entityCache,
		Session: holder,
	}
}

// initFullContext initializes config, stores, the API client, the
// mutation coordinator, and a feed session.
func initFullContext() *cmdContext {
	c := initContext()

	gql := remote.NewClient(c.Config.ServerURL, c.Session)
	gql.SetTimeout(c.Config.Timeout())
	c.API = remote.NewRetryClient(remote.NewAPIClient(gql), nil)
	c.Coordinator = mutate.New(c.Cache, c.API, c.Session, c.Journal)
	c.Feed = feed.NewSession(c.Coordinator, c.API)

	return c
}

// requireAuth exits unless a session is active.
func (c *cmdContext) requireAuth() models.User {
	user, ok := c.Session.CurrentUser()
	if !ok {
		c.Close()
		exitError("not logged in (run 'reel login' first)")
	}
	return user
}

var rootCmd = &cobra.Command{
	Use:   "reel",
	Short: "A terminal client for the reel media feed",
	Long: `reel is a terminal client for the reel media sharing service.
Browse the feed, like and rate posts, and hold comment threads,
with every action applied locally first and reconciled against
the server in the background.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(likeCmd)
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(replyCmd)
	rootCmd.AddCommand(commentsCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(historyCmd)
}

// exitError prints an error and exits.
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortID returns first 8 characters of an ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// findPost pages through the feed until a post whose ID starts with the
// given prefix is cached, and returns its full identity.
func findPost(ctx context.Context, c *cmdContext, idPrefix string) models.Identity {
	if err := c.Feed.LoadInitial(ctx, c.Config.PageSize); err != nil {
		exitError("failed to load feed: %v", err)
	}
	for {
		for _, id := range c.Feed.Posts() {
			if strings.HasPrefix(id.ID, idPrefix) {
				return id
			}
		}
		if c.Feed.EndReached() {
			exitError("post %s not found", idPrefix)
		}
		if err := c.Feed.LoadMore(ctx); err != nil {
			exitError("failed to load feed: %v", err)
		}
	}
}

// primeComments fetches a post's comment thread into the cache and
// returns it.
func primeComments(ctx context.Context, c *cmdContext, postID string) []models.Comment {
	comments, err := c.API.GetPostComments(ctx, postID)
	if err != nil {
		exitError("failed to load comments: %v", err)
	}
	for _, cm := range comments {
		c.Coordinator.Seed(cm.Identity(), cm.Fields())
		replyIDs := make([]models.Identity, 0, len(cm.Replies))
		for _, r := range cm.Replies {
			c.Coordinator.Seed(r.Identity(), r.Fields())
			replyIDs = append(replyIDs, r.Identity())
		}
		c.Coordinator.Seed(cm.Identity(), map[string]any{models.FieldReplies: replyIDs})
	}
	return comments
}

// awaitOutcome blocks until the background reconciliation settles.
func awaitOutcome(done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-time.After(30 * time.Second):
		return fmt.Errorf("timed out waiting for server confirmation")
	}
}
