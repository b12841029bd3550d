package cmd

import (
	"fmt"
	"os"

	"socialfeed/api"
	"socialfeed/config"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "socialfeed",
		Usage: "A client for the social feed API",
		Description: `Browse the social feed, like, comment on and share posts, and look
		at user profiles. All data lives behind the feed API; socialfeed only renders it.

		"socialfeed serve" starts a web client with infinite scrolling, the other
		commands work in the terminal.

		Flags can generally be set via environment variables, e.g.:

		--api-url => SOCIALFEED_API_URL=http://localhost:8000
		--user => SOCIALFEED_USER=u01
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file (default: ./socialfeed.toml when present)",
				EnvVars: []string{"SOCIALFEED_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "api-url",
				Aliases: []string{"a"},
				Usage:   "Base URL of the feed API",
				EnvVars: []string{"SOCIALFEED_API_URL"},
			},
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "User id engagement actions are performed as",
				EnvVars: []string{"SOCIALFEED_USER"},
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Posts per feed page (1-50)",
				EnvVars: []string{"SOCIALFEED_LIMIT"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "Timeout for each feed API request",
				EnvVars: []string{"SOCIALFEED_TIMEOUT"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"SOCIALFEED_LOG_LEVEL"},
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := log.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			feedCmd(),
			profileCmd(),
			likeCmd(),
			shareCmd(),
			commentCmd(),
			browseCmd(),
			tailCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

// Execute runs the command line application with the process arguments
func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig layers flags and environment variables on top of the config file
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(ctx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if ctx.IsSet("api-url") {
		cfg.API.URL = ctx.String("api-url")
	}
	if ctx.IsSet("user") {
		cfg.Feed.CurrentUser = ctx.String("user")
	}
	if ctx.IsSet("limit") {
		cfg.Feed.PageSize = ctx.Int("limit")
	}
	if ctx.IsSet("timeout") {
		cfg.API.Timeout = config.Duration{Duration: ctx.Duration("timeout")}
	}
	if ctx.IsSet("port") {
		cfg.Server.Port = ctx.Int("port")
	}
	if ctx.IsSet("hostname") {
		cfg.Server.Hostname = ctx.String("hostname")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newClient(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.API.URL, api.WithTimeout(cfg.API.Timeout.Duration))
}

// logToStderr keeps stdout clean for data output
func logToStderr() {
	log.SetOutput(os.Stderr)
}

