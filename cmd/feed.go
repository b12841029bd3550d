package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"socialfeed/feed"
	"socialfeed/models"

	"github.com/urfave/cli/v2"
)

func feedCmd() *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Print the feed",
		Description: `Prints the newest posts of the feed, one page at a time, following the
cursor returned by the API until --pages pages are printed or the feed ends.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "pages",
				Value: 1,
				Usage: "Number of pages to print",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print each post as a single line of JSON",
			},
		},
		Action: func(ctx *cli.Context) error {
			logToStderr()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			pager := feed.NewPager(newClient(cfg), cfg.Feed.PageSize)
			if err := pager.Fill(ctx.Context, max(ctx.Int("pages"), 1)); err != nil {
				return err
			}

			w := ctx.App.Writer
			for _, item := range pager.Items() {
				if ctx.Bool("json") {
					if err := printJSON(w, item); err != nil {
						return err
					}
					continue
				}
				printPost(w, item)
			}

			if !ctx.Bool("json") {
				if pager.HasMore() {
					fmt.Fprintf(w, "More posts after cursor %s\n", pager.NextCursor())
				} else {
					fmt.Fprintln(w, "You are all caught up")
				}
			}
			return nil
		},
	}
}

func profileCmd() *cli.Command {
	return &cli.Command{
		Name:      "profile",
		Usage:     "Print a user profile and its posts",
		ArgsUsage: "<profile-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the profile response as JSON",
			},
		},
		Action: func(ctx *cli.Context) error {
			logToStderr()
			id := ctx.Args().First()
			if id == "" {
				return errors.New("please specify a profile id")
			}

			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			resp, err := newClient(cfg).FetchProfile(ctx.Context, id)
			if err != nil {
				return fmt.Errorf("could not fetch profile %s: %w", id, err)
			}

			if ctx.Bool("json") {
				return printJSON(ctx.App.Writer, resp)
			}
			printProfile(ctx.App.Writer, resp)
			return nil
		},
	}
}

func tailCmd() *cli.Command {
	return &cli.Command{
		Name:  "tail",
		Usage: "Print new posts as they appear",
		Description: `Polls the head of the feed and prints every post not seen before as a
single line of JSON. Use a tool like jq to process the output.

Prints all other log messages to stderr.`,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Value: feed.DefaultPollInterval,
				Usage: "Time between polls",
			},
		},
		Action: func(ctx *cli.Context) error {
			logToStderr()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			runCtx, cancel := context.WithCancel(runCtx)
			defer cancel()

			// A failed write usually means the reader went away
			var writeErr error
			watcher := feed.NewWatcher(newClient(cfg), cfg.Feed.PageSize, ctx.Duration("interval"))
			err = watcher.Run(runCtx, func(post models.PostWithAuthor) {
				if writeErr != nil {
					return
				}
				if writeErr = printJSON(ctx.App.Writer, post); writeErr != nil {
					cancel()
				}
			})
			if writeErr != nil {
				return fmt.Errorf("failed to write post: %w", writeErr)
			}
			if runCtx.Err() != nil {
				return nil
			}
			return err
		},
	}
}
