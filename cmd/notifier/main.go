package main

import (
	"os"

	"github.com/bnema/repo-digest-notifier/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
