// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"

	"pageratings/internal/cache"
	"pageratings/internal/config"
	"pageratings/internal/database"
	"pageratings/internal/repository"
	"pageratings/internal/services/email"
	"pageratings/internal/services/ratings"
	"pageratings/internal/verification"
)

// app bundles the wired collaborators for one command invocation.
type app struct {
	cfg     *config.Config
	db      *sqlx.DB
	service *ratings.Service
}

// newApp builds the engine with explicitly injected dependencies from the
// resolved configuration. Migrations run as part of the database open.
func newApp(cmd *cli.Command) (*app, error) {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	repo := repository.New(db)

	var codes verification.Lookup
	if cfg.Ratings.VerificationFile != "" {
		delimiter := ','
		if cfg.Ratings.VerificationDelimiter != "" {
			delimiter = []rune(cfg.Ratings.VerificationDelimiter)[0]
		}
		codes = verification.NewFileLookup(cfg.Ratings.VerificationFile, delimiter)
	}

	var mailer email.Mailer
	if cfg.SMTP.Host != "" {
		mailer, err = email.NewSMTPMailer(&cfg.SMTP)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	} else {
		mailer = logMailer{}
	}

	var store cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		store, err = cache.NewRedis(cfg.Cache.RedisAddr, time.Duration(cfg.Cache.TTLSecs)*time.Second)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	default:
		store = cache.NewMemory()
	}

	service := ratings.New(repo, codes, mailer, store, ratings.Options{
		MinStars:           cfg.Ratings.MinStars,
		MaxStars:           cfg.Ratings.MaxStars,
		PagesLimit:         cfg.Ratings.PagesLimit,
		ActivationTokenTTL: time.Duration(cfg.Ratings.ActivationTokenExpire) * time.Second,
		Moderation:         cfg.Ratings.Moderation,
		ActivationURL:      cfg.Ratings.ActivationURL,
		CacheSalt:          cfg.Cache.Salt,
	})

	return &app{cfg: cfg, db: db, service: service}, nil
}

func (a *app) close() {
	_ = a.db.Close()
}

// logMailer is the transport used when no SMTP host is configured. It keeps
// local development working without a relay.
type logMailer struct{}

func (logMailer) Send(_ context.Context, toAddr, _, subject, body string) error {
	slog.Info("no SMTP host configured, logging email instead", "to", toAddr, "subject", subject)
	fmt.Println(body)
	return nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func submitCommand() *cli.Command {
	return &cli.Command{
		Name:  "submit",
		Usage: "Submit a rating for a page",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "page", Usage: "Page route being rated", Required: true},
			&cli.IntFlag{Name: "stars", Usage: "Star value", Required: true},
			&cli.StringFlag{Name: "email", Usage: "Submitter email address", Required: true},
			&cli.StringFlag{Name: "author", Usage: "Submitter display name", Required: true},
			&cli.StringFlag{Name: "title", Usage: "Review title"},
			&cli.StringFlag{Name: "review", Usage: "Review text"},
			&cli.StringFlag{Name: "lang", Usage: "Submission locale"},
			&cli.StringFlag{Name: "code", Usage: "Pre-issued verification code"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			rating, err := a.service.SubmitRating(ctx, ratings.Submission{
				Page:             cmd.String("page"),
				Stars:            int(cmd.Int("stars")),
				Email:            cmd.String("email"),
				Author:           cmd.String("author"),
				Title:            cmd.String("title"),
				Review:           cmd.String("review"),
				Lang:             cmd.String("lang"),
				VerificationCode: cmd.String("code"),
			})
			if err != nil {
				return err
			}

			slog.Info("rating stored", "id", rating.ID, "page", rating.Page, "state", rating.State().String())
			return printJSON(rating)
		},
	}
}

func activateCommand() *cli.Command {
	return &cli.Command{
		Name:  "activate",
		Usage: "Activate a rating via its emailed token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "token", Usage: "Activation token from the email link", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			rating, outcome, err := a.service.ActivateByToken(ctx, cmd.String("token"))
			if err != nil {
				return err
			}

			slog.Info("activation handled", "outcome", outcome.String(), "page", rating.Page)
			fmt.Printf("%s: %s\n", outcome, rating.Page)
			return nil
		},
	}
}

func expireCommand() *cli.Command {
	return &cli.Command{
		Name:  "expire",
		Usage: "Expire ratings by page and email, or by verification code",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "page", Usage: "Page route"},
			&cli.StringFlag{Name: "email", Usage: "Submitter email address"},
			&cli.StringFlag{Name: "code", Usage: "Verification code to revoke"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			page, emailAddr, code := cmd.String("page"), cmd.String("email"), cmd.String("code")
			if code == "" && (page == "" || emailAddr == "") {
				return errors.New("either --code or both --page and --email are required")
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if code != "" {
				return a.service.ExpireAllRatingsByVerificationCode(ctx, code)
			}
			return a.service.ExpireAllRatings(ctx, page, emailAddr)
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the active, moderated ratings of a page",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "page", Usage: "Page route", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			list, err := a.service.GetActiveModeratedRatings(ctx, cmd.String("page"))
			if err != nil {
				return err
			}
			return printJSON(list)
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show the aggregated rating results of a page",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "page", Usage: "Page route", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			results, err := a.service.GetRatingResults(ctx, cmd.String("page"))
			if err != nil {
				return err
			}
			return printJSON(results)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending schema migrations and print the store version",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "down", Usage: "Roll back the last migration instead"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if cmd.Bool("down") {
				if err := database.MigrateDown(a.db.DB); err != nil {
					return err
				}
			}

			version, err := database.Version(a.db.DB)
			if err != nil {
				return err
			}
			fmt.Printf("schema version %d\n", version)
			return nil
		},
	}
}
