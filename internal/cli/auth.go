package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <email> <password>",
	Short: "Log in and store the session",
	Args:  cobra.ExactArgs(2),
	Run:   runLogin,
}

var signupCmd = &cobra.Command{
	Use:   "signup <username> <email> <password>",
	Short: "Create an account and log in",
	Args:  cobra.ExactArgs(3),
	Run:   runSignup,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Args:  cobra.NoArgs,
	Run:   runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	Run:   runWhoami,
}

func runLogin(cmd *cobra.Command, args []string) {
	c := initFullContext()
	defer c.Close()

	payload, err := c.API.Login(context.Background(), args[0], args[1])
	if err != nil {
		exitError("login failed: %v", err)
	}

	c.Session.SetSession(payload.Token, payload.User)
	color.New(color.FgGreen).Printf("Logged in as %s\n", payload.User.Username)
}

func runSignup(cmd *cobra.Command, args []string) {
	c := initFullContext()
	defer c.Close()

	payload, err := c.API.Register(context.Background(), args[0], args[1], args[2])
	if err != nil {
		exitError("signup failed: %v", err)
	}

	c.Session.SetSession(payload.Token, payload.User)
	color.New(color.FgGreen).Printf("Welcome, %s\n", payload.User.Username)
}

func runLogout(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	if !c.Session.Active() {
		fmt.Println("Not logged in")
		return
	}
	c.Session.Clear()
	fmt.Println("Logged out")
}

func runWhoami(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	user, ok := c.Session.CurrentUser()
	if !ok {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("%s <%s>\n", user.Username, user.Email)
}
