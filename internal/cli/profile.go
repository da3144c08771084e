package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dovydasv/reel/internal/remote"
)

var profileCmd = &cobra.Command{
	Use:   "profile [user-id]",
	Short: "Show or update a profile",
	Long: `Display a user's profile and posts. With no argument, shows the
logged-in user. The update flags change the logged-in user's profile.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runProfile,
}

var (
	profileUsername string
	profileEmail    string
	profileBio      string
	profileAvatar   string
)

func init() {
	profileCmd.Flags().StringVar(&profileUsername, "username", "", "Set a new username")
	profileCmd.Flags().StringVar(&profileEmail, "email", "", "Set a new email address")
	profileCmd.Flags().StringVar(&profileBio, "bio", "", "Set a new bio")
	profileCmd.Flags().StringVar(&profileAvatar, "avatar", "", "Set a new avatar URL")
}

func runProfile(cmd *cobra.Command, args []string) {
	c := initFullContext()
	defer c.Close()

	ctx := context.Background()

	input := remote.ProfileInput{
		Username: profileUsername,
		Email:    profileEmail,
		Bio:      profileBio,
		Avatar:   profileAvatar,
	}
	if input != (remote.ProfileInput{}) {
		updateProfile(ctx, c, input)
		return
	}

	userID := ""
	if len(args) == 1 {
		userID = args[0]
	} else {
		userID = c.requireAuth().ID
	}

	profile, err := c.API.GetUser(ctx, userID)
	if err != nil {
		exitError("failed to load profile: %v", err)
	}
	c.Coordinator.Seed(profile.User.Identity(), profile.User.Fields())

	cyan := color.New(color.FgCyan)
	cyan.Printf("@%s", profile.User.Username)
	fmt.Printf("  <%s>\n", profile.User.Email)
	if profile.User.Bio != "" {
		fmt.Printf("%s\n", profile.User.Bio)
	}
	fmt.Printf("%d posts\n", len(profile.Posts))

	for i, p := range profile.Posts {
		c.Coordinator.Seed(p.Identity(), p.Fields())
		fmt.Printf("  [%d] %s  %s\n", i, shortID(p.ID), p.Caption)
	}
}

func updateProfile(ctx context.Context, c *cmdContext, input remote.ProfileInput) {
	c.requireAuth()

	user, err := c.API.UpdateProfile(ctx, input)
	if err != nil {
		exitError("failed to update profile: %v", err)
	}

	// Refresh the held session so later commands see the new identity.
	c.Session.SetSession(c.Session.Token(), user)
	color.New(color.FgGreen).Printf("Profile updated: @%s\n", user.Username)
}
