package main

import (
	"os"

	"github.com/Dan9191/spending-insights/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
