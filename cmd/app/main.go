// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"pageratings/internal/config"
)

func main() {
	cmd := &cli.Command{
		Name:  "pageratings",
		Usage: "Manage page ratings: submissions, activation, moderation queries",
		Flags: config.Flags(),
		Commands: []*cli.Command{
			submitCommand(),
			activateCommand(),
			expireCommand(),
			listCommand(),
			statsCommand(),
			migrateCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
