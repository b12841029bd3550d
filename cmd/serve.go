package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialfeed/feed"
	"socialfeed/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web client",
		Description: `Starts the socialfeed web client.

Renders the feed and profile pages from the feed API, loads more posts as the
reader scrolls, and sends likes, comments and shares to the API as the
configured user. With --live the feed head is polled and open pages are told
when new posts arrive.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				EnvVars: []string{"SOCIALFEED_PORT"},
			},
			&cli.StringFlag{
				Name:    "hostname",
				Aliases: []string{"n"},
				Usage:   "The hostname where the server is running",
				EnvVars: []string{"SOCIALFEED_HOSTNAME"},
			},
			&cli.BoolFlag{
				Name:    "live",
				Value:   true,
				Usage:   "Poll the feed and notify open pages about new posts",
				EnvVars: []string{"SOCIALFEED_LIVE"},
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Value:   feed.DefaultPollInterval,
				Usage:   "How often the feed head is polled for new posts",
				EnvVars: []string{"SOCIALFEED_POLL_INTERVAL"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			client := newClient(cfg)

			runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			var bc *server.Broadcaster
			if ctx.Bool("live") {
				bc = server.NewBroadcaster()
				watcher := feed.NewWatcher(client, cfg.Feed.PageSize, ctx.Duration("poll-interval"))
				go watchFeed(runCtx, watcher, bc)
			}

			app := server.Server(&server.ServerConfig{
				Hostname:    cfg.Server.Hostname,
				API:         client,
				CurrentUser: cfg.Feed.CurrentUser,
				PageSize:    cfg.Feed.PageSize,
				Broadcaster: bc,
			})

			go func() {
				<-runCtx.Done()
				log.Info("Gracefully shutting down...")
				if bc != nil {
					bc.Shutdown()
				}
				if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
					log.Errorf("Shutdown failed: %v", err)
				}
			}()

			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			log.WithFields(log.Fields{
				"addr":     addr,
				"hostname": cfg.Server.Hostname,
				"api":      client.Host(),
				"user":     cfg.Feed.CurrentUser,
			}).Info("Starting server")

			if err := app.Listen(addr); err != nil {
				return fmt.Errorf("server failed: %w", err)
			}

			log.Info("Done!")
			return nil
		},
	}
}

// watchFeed broadcasts posts that appear after startup
func watchFeed(ctx context.Context, watcher *feed.Watcher, bc *server.Broadcaster) {
	// The current head of the feed is not news
	if _, err := watcher.Poll(ctx); err != nil {
		log.Warnf("Initial feed poll failed: %v", err)
	}
	if err := watcher.Run(ctx, bc.BroadcastNewPost); err != nil && ctx.Err() == nil {
		log.Errorf("Feed watcher stopped: %v", err)
	}
}
