// Command reel is the terminal client for the reel media feed.
package main

import (
	"os"

	"github.com/dovydasv/reel/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
