package main

import (
	"os"

	"github.com/anime-shed/comicvault-grader/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
