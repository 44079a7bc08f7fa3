package main

import (
	"os"

	"github.com/shikhr/opdroid/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
