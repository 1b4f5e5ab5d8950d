// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

// runWithArgs parses the given CLI args and returns the resulting config.
func runWithArgs(t *testing.T, args ...string) *Config {
	t.Helper()

	var cfg *Config
	cmd := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg = NewFromCLI(cmd)
			return nil
		},
	}

	err := cmd.Run(context.Background(), append([]string{"test"}, args...))
	require.NoError(t, err)
	require.NotNil(t, cfg)
	return cfg
}

func TestNewFromCLI_Defaults(t *testing.T) {
	cfg := runWithArgs(t)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "./data/ratings.db", cfg.Database.DSN)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.True(t, cfg.SMTP.TLS)
	assert.Equal(t, 1, cfg.Ratings.MinStars)
	assert.Equal(t, 5, cfg.Ratings.MaxStars)
	assert.Equal(t, 0, cfg.Ratings.PagesLimit)
	assert.Equal(t, 604800, cfg.Ratings.ActivationTokenExpire)
	assert.False(t, cfg.Ratings.Moderation)
	assert.Equal(t, ",", cfg.Ratings.VerificationDelimiter)
	assert.Equal(t, "memory", cfg.Cache.Backend)
}

func TestNewFromCLI_Overrides(t *testing.T) {
	cfg := runWithArgs(t,
		"--log-level", "debug",
		"--pages-limit", "2",
		"--activation-token-expire", "0",
		"--moderation",
		"--cache-backend", "redis",
	)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 2, cfg.Ratings.PagesLimit)
	assert.Equal(t, 0, cfg.Ratings.ActivationTokenExpire)
	assert.True(t, cfg.Ratings.Moderation)
	assert.Equal(t, "redis", cfg.Cache.Backend)
}

func TestNewFromCLI_GeneratesCacheSalt(t *testing.T) {
	cfg := runWithArgs(t)

	assert.NotEmpty(t, cfg.Cache.Salt)
}

func TestNewFromCLI_KeepsConfiguredCacheSalt(t *testing.T) {
	cfg := runWithArgs(t, "--cache-salt", "fixed-salt")

	assert.Equal(t, "fixed-salt", cfg.Cache.Salt)
}
