package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"socialfeed/models"

	"github.com/dustin/go-humanize"
)

func ago(p models.Post) string {
	t, err := p.CreatedTime()
	if err != nil {
		return p.CreatedAt
	}
	return humanize.Time(t)
}

func counts(p models.Post) string {
	return fmt.Sprintf("❤️ %s  💬 %s  🔁 %s",
		humanize.Comma(p.LikeCount),
		humanize.Comma(p.CommentCount),
		humanize.Comma(p.ShareCount),
	)
}

func printPost(w io.Writer, item models.PostWithAuthor) {
	fmt.Fprintf(w, "%s @%s · %s  [%s]\n", item.Author.DisplayName, item.Author.Handle, ago(item.Post), item.Id)
	for _, line := range strings.Split(item.Text, "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintf(w, "  %s\n\n", counts(item.Post))
}

func printProfile(w io.Writer, resp *models.ProfileResponse) {
	p := resp.Profile
	fmt.Fprintf(w, "%s @%s\n", p.DisplayName, p.Handle)
	if p.Bio != nil && *p.Bio != "" {
		fmt.Fprintf(w, "%s\n", *p.Bio)
	}
	fmt.Fprintf(w, "%s posts\n\n", humanize.Comma(int64(len(resp.Posts))))
	for _, post := range resp.Posts {
		printPost(w, models.PostWithAuthor{Post: post, Author: p})
	}
}

// printJSON writes v as a single line of JSON
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
