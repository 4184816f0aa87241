// Package main provides the entry point for the pmfuse CLI tool.
package main

import (
	"os"

	"github.com/astriolab/pmfuse/cmd/pmfuse/app"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	application, err := app.New(version, commit, date, builtBy)
	if err != nil {
		app.ExitOnError(err)
	}

	// Signal-aware context so a long reduction stops between iterations
	ctx, cancel := app.Context()
	defer cancel()

	app.ExitOnError(application.Execute(ctx, os.Args[1:]))
}
