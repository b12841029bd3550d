package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"socialfeed/models"

	log "github.com/sirupsen/logrus"
)

// ErrEmptyComment is returned for comments that are blank after trimming
var ErrEmptyComment = errors.New("comment text is empty")

// Interactor performs engagement actions against the API
type Interactor interface {
	LikePost(ctx context.Context, postID, userID string) (*models.InteractionResponse, error)
	CommentPost(ctx context.Context, postID, userID, text string) (*models.InteractionResponse, error)
	SharePost(ctx context.Context, postID, userID string) (*models.InteractionResponse, error)
}

// Engagement runs likes, comments and shares as the current user and
// revalidates the pager afterwards so counts come from the API.
type Engagement struct {
	api   Interactor
	user  string
	pager *Pager
}

// NewEngagement binds actions to user. pager may be nil when there is no feed to refresh.
func NewEngagement(api Interactor, user string, pager *Pager) *Engagement {
	return &Engagement{api: api, user: user, pager: pager}
}

func (e *Engagement) Like(ctx context.Context, postID string) (*models.InteractionResponse, error) {
	return e.run(ctx, "like", postID, func() (*models.InteractionResponse, error) {
		return e.api.LikePost(ctx, postID, e.user)
	})
}

func (e *Engagement) Share(ctx context.Context, postID string) (*models.InteractionResponse, error) {
	return e.run(ctx, "share", postID, func() (*models.InteractionResponse, error) {
		return e.api.SharePost(ctx, postID, e.user)
	})
}

// Comment posts text as a comment. Blank text returns ErrEmptyComment without calling the API.
func (e *Engagement) Comment(ctx context.Context, postID, text string) (*models.InteractionResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyComment
	}
	return e.run(ctx, "comment", postID, func() (*models.InteractionResponse, error) {
		return e.api.CommentPost(ctx, postID, e.user, text)
	})
}

func (e *Engagement) run(ctx context.Context, action, postID string, call func() (*models.InteractionResponse, error)) (*models.InteractionResponse, error) {
	resp, err := call()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", action, postID, err)
	}

	log.WithFields(log.Fields{
		"action": action,
		"post":   postID,
		"user":   e.user,
	}).Info("Engagement action")

	if e.pager != nil {
		if err := e.pager.Refresh(ctx); err != nil {
			return resp, err
		}
	}
	return resp, nil
}
