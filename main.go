package main

import (
	"os"

	"github.com/rentabot/rentabot/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
