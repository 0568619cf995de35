package main

import (
	"os"

	"webform-store/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := cli.RootCommand().Execute(); err != nil {
		return 1
	}
	return 0
}
