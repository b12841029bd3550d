package feed

import (
	"context"
	"time"

	"socialfeed/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const DefaultPollInterval = 15 * time.Second

// Watcher polls the head of the feed and reports posts it has not seen
type Watcher struct {
	fetcher  Fetcher
	limit    int
	interval time.Duration
	seen     map[string]struct{}

	// newBackOff is swapped in tests
	newBackOff func() backoff.BackOff
}

func NewWatcher(fetcher Fetcher, limit int, interval time.Duration) *Watcher {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	w := &Watcher{
		fetcher:  fetcher,
		limit:    limit,
		interval: interval,
		seen:     map[string]struct{}{},
	}
	w.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = interval
		b.MaxInterval = 10 * interval
		b.Multiplier = 1.5
		b.MaxElapsedTime = 0 // Never give up
		return b
	}
	return w
}

// Poll fetches the first page once and returns unseen posts, oldest first.
// The seen set is bounded by the page size.
func (w *Watcher) Poll(ctx context.Context) ([]models.PostWithAuthor, error) {
	page, err := w.fetcher.FetchFeed(ctx, "", w.limit)
	if err != nil {
		return nil, err
	}

	fresh := lo.Filter(page.Items, func(item models.PostWithAuthor, _ int) bool {
		_, ok := w.seen[item.Id]
		return !ok
	})
	fresh = lo.UniqBy(fresh, func(item models.PostWithAuthor) string {
		return item.Id
	})
	// Only the current head is remembered; posts that fell off it never come back
	w.seen = lo.SliceToMap(page.Items, func(item models.PostWithAuthor) (string, struct{}) {
		return item.Id, struct{}{}
	})
	return lo.Reverse(fresh), nil
}

// Seen returns how many post ids the watcher remembers
func (w *Watcher) Seen() int {
	return len(w.seen)
}

// Run polls until ctx is cancelled, calling emit for each new post. Failed polls
// are spaced out with exponential backoff.
func (w *Watcher) Run(ctx context.Context, emit func(models.PostWithAuthor)) error {
	b := w.newBackOff()

	for {
		wait := w.interval
		posts, err := w.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			wait = b.NextBackOff()
			log.WithFields(log.Fields{
				"error": err,
				"retry": wait,
			}).Warn("Feed poll failed")
		} else {
			b.Reset()
			for _, post := range posts {
				emit(post)
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
