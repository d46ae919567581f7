package main

import (
	"os"

	"github.com/statsig-io/ruid/internal/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
