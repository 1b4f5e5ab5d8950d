// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"github.com/google/uuid"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Log      LogConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Ratings  RatingsConfig
	Cache    CacheConfig
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

type RatingsConfig struct { //nolint:govet // fieldalignment not critical for config structs
	MinStars              int
	MaxStars              int
	PagesLimit            int    // 0 means unlimited
	ActivationTokenExpire int    // seconds, 0 means no email confirmation
	Moderation            bool   // new ratings start hidden until approved
	ActivationURL         string // base URL for activation links
	VerificationFile      string // path to the code list, empty disables codes
	VerificationDelimiter string
}

type CacheConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Backend   string // memory, redis
	Salt      string // generation salt, rotated to flush all entries
	RedisAddr string
	TTLSecs   int // staleness safety net on the redis backend
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		Ratings: RatingsConfig{
			MinStars:              int(cmd.Int("min-stars")),
			MaxStars:              int(cmd.Int("max-stars")),
			PagesLimit:            int(cmd.Int("pages-limit")),
			ActivationTokenExpire: int(cmd.Int("activation-token-expire")),
			Moderation:            cmd.Bool("moderation"),
			ActivationURL:         cmd.String("activation-url"),
			VerificationFile:      cmd.String("verification-file"),
			VerificationDelimiter: cmd.String("verification-delimiter"),
		},
		Cache: CacheConfig{
			Backend:   cmd.String("cache-backend"),
			Salt:      cmd.String("cache-salt"),
			RedisAddr: cmd.String("cache-redis-addr"),
			TTLSecs:   int(cmd.Int("cache-ttl")),
		},
	}

	// Without a configured salt every start gets a fresh cache generation.
	if cfg.Cache.Salt == "" {
		cfg.Cache.Salt = uuid.NewString()
	}

	return cfg
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/ratings.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address for activation emails",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		&cli.IntFlag{
			Name:    "min-stars",
			Value:   1,
			Usage:   "Lowest accepted star value",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MIN_STARS"), toml.TOML("ratings.min_stars", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-stars",
			Value:   5,
			Usage:   "Highest accepted star value",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_STARS"), toml.TOML("ratings.max_stars", configFile)),
		},
		&cli.IntFlag{
			Name:    "pages-limit",
			Value:   0,
			Usage:   "Maximum distinct pages one identity may rate (0 = unlimited)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PAGES_LIMIT"), toml.TOML("ratings.pages_limit", configFile)),
		},
		&cli.IntFlag{
			Name:    "activation-token-expire",
			Value:   604800, // 7 days in seconds
			Usage:   "Activation token lifetime in seconds (0 = no email confirmation)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ACTIVATION_TOKEN_EXPIRE"), toml.TOML("ratings.activation_token_expire", configFile)),
		},
		&cli.BoolFlag{
			Name:    "moderation",
			Usage:   "Hold new ratings for moderation",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MODERATION"), toml.TOML("ratings.moderation", configFile)),
		},
		&cli.StringFlag{
			Name:    "activation-url",
			Value:   "http://localhost/ratings/activate",
			Usage:   "Base URL for activation links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ACTIVATION_URL"), toml.TOML("ratings.activation_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "verification-file",
			Usage:   "Path to the verification code list (empty disables codes)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("VERIFICATION_FILE"), toml.TOML("ratings.verification_file", configFile)),
		},
		&cli.StringFlag{
			Name:    "verification-delimiter",
			Value:   ",",
			Usage:   "Field delimiter of the verification code list",
			Sources: cli.NewValueSourceChain(cli.EnvVar("VERIFICATION_DELIMITER"), toml.TOML("ratings.verification_delimiter", configFile)),
		},
		&cli.StringFlag{
			Name:    "cache-backend",
			Value:   "memory",
			Usage:   "Cache backend (memory, redis)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CACHE_BACKEND"), toml.TOML("cache.backend", configFile)),
		},
		&cli.StringFlag{
			Name:    "cache-salt",
			Usage:   "Cache generation salt (generated when empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CACHE_SALT"), toml.TOML("cache.salt", configFile)),
		},
		&cli.StringFlag{
			Name:    "cache-redis-addr",
			Value:   "localhost:6379",
			Usage:   "Redis address for the redis cache backend",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CACHE_REDIS_ADDR"), toml.TOML("cache.redis_addr", configFile)),
		},
		&cli.IntFlag{
			Name:    "cache-ttl",
			Value:   300,
			Usage:   "Cache TTL safety net in seconds (redis backend)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CACHE_TTL"), toml.TOML("cache.ttl", configFile)),
		},
	}
}
