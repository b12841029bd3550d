package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"socialfeed/feed"
	"socialfeed/models"

	"github.com/cqroot/prompt"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
)

const (
	choiceLoadMore = "Load more"
	choiceRefresh  = "Refresh"
	choiceQuit     = "Quit"

	actionLike    = "Like"
	actionShare   = "Share"
	actionComment = "Comment"
	actionProfile = "View profile"
	actionBack    = "Back"
)

// asker is the part of an interactive prompt browse needs
type asker interface {
	Choose(question string, choices []string) (string, error)
	Input(question string) (string, error)
}

type promptAsker struct{}

func (promptAsker) Choose(question string, choices []string) (string, error) {
	return prompt.New().Ask(question).Choose(choices)
}

func (promptAsker) Input(question string) (string, error) {
	return prompt.New().Ask(question).Input("")
}

type profileFetcher interface {
	FetchProfile(ctx context.Context, profileID string) (*models.ProfileResponse, error)
}

func browseCmd() *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Browse the feed interactively",
		Description: `Shows the feed as a list to pick posts from. Pick a post to like, share
or comment on it, or to open the author's profile. The feed is fetched again
after every action so the counts are current.`,
		Action: func(ctx *cli.Context) error {
			logToStderr()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			client := newClient(cfg)
			pager := feed.NewPager(client, cfg.Feed.PageSize)
			b := &browser{
				w:        ctx.App.Writer,
				ask:      promptAsker{},
				pager:    pager,
				engage:   feed.NewEngagement(client, cfg.Feed.CurrentUser, pager),
				profiles: client,
			}
			return b.run(ctx.Context)
		},
	}
}

type browser struct {
	w        io.Writer
	ask      asker
	pager    *feed.Pager
	engage   *feed.Engagement
	profiles profileFetcher
}

func (b *browser) run(ctx context.Context) error {
	if err := b.pager.Load(ctx); err != nil {
		return err
	}

	for {
		items := b.pager.Items()
		labels := lo.Map(items, func(item models.PostWithAuthor, _ int) string {
			return postLabel(item)
		})
		byLabel := lo.SliceToMap(items, func(item models.PostWithAuthor) (string, models.PostWithAuthor) {
			return postLabel(item), item
		})

		choices := labels
		if b.pager.HasMore() {
			choices = append(choices, choiceLoadMore)
		}
		choices = append(choices, choiceRefresh, choiceQuit)

		choice, err := b.ask.Choose("Feed", choices)
		if errors.Is(err, prompt.ErrUserQuit) {
			return nil
		}
		if err != nil {
			return err
		}

		switch choice {
		case choiceQuit:
			return nil
		case choiceLoadMore:
			if _, err := b.pager.LoadMore(ctx); err != nil {
				fmt.Fprintf(b.w, "Could not load more posts: %v\n", err)
			}
		case choiceRefresh:
			if err := b.pager.Refresh(ctx); err != nil {
				fmt.Fprintf(b.w, "Could not refresh the feed: %v\n", err)
			}
		default:
			item, ok := byLabel[choice]
			if !ok {
				continue
			}
			if err := b.post(ctx, item); err != nil {
				if errors.Is(err, prompt.ErrUserQuit) {
					return nil
				}
				fmt.Fprintf(b.w, "Error: %v\n", err)
			}
		}
	}
}

// post handles the actions for a single post
func (b *browser) post(ctx context.Context, item models.PostWithAuthor) error {
	printPost(b.w, item)

	action, err := b.ask.Choose("Action", []string{actionLike, actionShare, actionComment, actionProfile, actionBack})
	if err != nil {
		return err
	}

	var resp *models.InteractionResponse
	switch action {
	case actionLike:
		resp, err = b.engage.Like(ctx, item.Id)
	case actionShare:
		resp, err = b.engage.Share(ctx, item.Id)
	case actionComment:
		text, inputErr := b.ask.Input("Comment")
		if inputErr != nil {
			return inputErr
		}
		resp, err = b.engage.Comment(ctx, item.Id, text)
		if errors.Is(err, feed.ErrEmptyComment) {
			fmt.Fprintln(b.w, "Nothing to post")
			return nil
		}
	case actionProfile:
		profile, err := b.profiles.FetchProfile(ctx, item.AuthorId)
		if err != nil {
			return err
		}
		printProfile(b.w, profile)
		return nil
	default:
		return nil
	}

	if resp != nil {
		fmt.Fprintf(b.w, "%s  [%s]\n", counts(resp.Post), resp.Post.Id)
	}
	return err
}

func postLabel(item models.PostWithAuthor) string {
	return fmt.Sprintf("[%s] %s: %s (%s)", item.Id, item.Author.DisplayName, truncate(item.Text, 48), counts(item.Post))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
