package cmd

import (
	"errors"
	"fmt"
	"strings"

	"socialfeed/feed"
	"socialfeed/models"

	"github.com/urfave/cli/v2"
)

func likeCmd() *cli.Command {
	return &cli.Command{
		Name:      "like",
		Usage:     "Like a post, or remove your like if it is already liked",
		ArgsUsage: "<post-id>",
		Action: engageAction(func(ctx *cli.Context, e *feed.Engagement, postID string) (*models.InteractionResponse, error) {
			return e.Like(ctx.Context, postID)
		}),
	}
}

func shareCmd() *cli.Command {
	return &cli.Command{
		Name:      "share",
		Usage:     "Share a post",
		ArgsUsage: "<post-id>",
		Action: engageAction(func(ctx *cli.Context, e *feed.Engagement, postID string) (*models.InteractionResponse, error) {
			return e.Share(ctx.Context, postID)
		}),
	}
}

func commentCmd() *cli.Command {
	return &cli.Command{
		Name:      "comment",
		Usage:     "Comment on a post",
		ArgsUsage: "<post-id> <text...>",
		Action: engageAction(func(ctx *cli.Context, e *feed.Engagement, postID string) (*models.InteractionResponse, error) {
			text := strings.Join(ctx.Args().Tail(), " ")
			return e.Comment(ctx.Context, postID, text)
		}),
	}
}

type engageFunc func(ctx *cli.Context, e *feed.Engagement, postID string) (*models.InteractionResponse, error)

func engageAction(run engageFunc) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		logToStderr()
		postID := ctx.Args().First()
		if postID == "" {
			return errors.New("please specify a post id")
		}

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}

		e := feed.NewEngagement(newClient(cfg), cfg.Feed.CurrentUser, nil)
		resp, err := run(ctx, e, postID)
		if err != nil {
			return err
		}

		printInteraction(ctx, resp)
		return nil
	}
}

func printInteraction(ctx *cli.Context, resp *models.InteractionResponse) {
	w := ctx.App.Writer
	if resp.LikedByUser != nil {
		if *resp.LikedByUser {
			fmt.Fprintf(w, "Liked %s\n", resp.Post.Id)
		} else {
			fmt.Fprintf(w, "Unliked %s\n", resp.Post.Id)
		}
	}
	if resp.NewComment != nil {
		fmt.Fprintf(w, "Commented on %s: %s\n", resp.Post.Id, resp.NewComment.Text)
	}
	fmt.Fprintf(w, "%s  [%s]\n", counts(resp.Post), resp.Post.Id)
}
