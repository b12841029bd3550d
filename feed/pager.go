// Package feed holds the client side of feed pagination: a cursor pager that
// loads pages on demand and revalidates them after mutations.
package feed

import (
	"context"
	"fmt"
	"sync"

	"socialfeed/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// DefaultPageSize matches the API default
const DefaultPageSize = 20

// Fetcher loads a single page of the feed
type Fetcher interface {
	FetchFeed(ctx context.Context, cursor string, limit int) (*models.FeedResponse, error)
}

// Pager accumulates feed pages. Page 0 is fetched without a cursor and page i with
// the next cursor of page i-1. A page without a next cursor ends the feed.
type Pager struct {
	fetcher Fetcher
	limit   int

	// refreshing serializes Refresh calls
	refreshing sync.Mutex

	mu         sync.RWMutex
	pages      []*models.FeedResponse
	loading    chan struct{} // closed when the in-flight grow finishes
	validating int           // Refresh calls in progress
}

func NewPager(fetcher Fetcher, limit int) *Pager {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return &Pager{fetcher: fetcher, limit: limit}
}

// Load fetches the first page unless one is already loaded
func (p *Pager) Load(ctx context.Context) error {
	_, err := p.grow(ctx, 1)
	return err
}

// LoadMore fetches one more page. It returns false without fetching when the feed
// has ended or another fetch is in flight.
func (p *Pager) LoadMore(ctx context.Context) (bool, error) {
	p.mu.RLock()
	n := len(p.pages)
	p.mu.RUnlock()
	return p.grow(ctx, n+1)
}

// Fill loads pages until n pages are loaded or the feed ends
func (p *Pager) Fill(ctx context.Context, n int) error {
	for {
		p.mu.RLock()
		done := len(p.pages) >= n || !p.hasMoreLocked()
		p.mu.RUnlock()
		if done {
			return nil
		}

		loaded, err := p.LoadMore(ctx)
		if err != nil {
			return err
		}
		if !loaded {
			return nil
		}
	}
}

// grow fetches the next page if fewer than size pages are loaded
func (p *Pager) grow(ctx context.Context, size int) (bool, error) {
	p.mu.Lock()
	if p.validatingLocked() || len(p.pages) >= size || !p.hasMoreLocked() {
		p.mu.Unlock()
		return false, nil
	}
	done := make(chan struct{})
	p.loading = done
	cursor := p.cursorLocked()
	index := len(p.pages)
	p.mu.Unlock()

	page, err := p.fetcher.FetchFeed(ctx, cursor, p.limit)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = nil
	close(done)
	if err != nil {
		log.WithFields(log.Fields{
			"page":   index,
			"cursor": cursor,
			"error":  err,
		}).Warn("Failed to load feed page")
		return false, fmt.Errorf("load page %d: %w", index, err)
	}
	p.pages = append(p.pages, page)
	return true, nil
}

// Refresh re-fetches every loaded page, chaining the new cursors from page 0.
// A page load in flight is awaited first so its page is revalidated too.
// The pages are swapped in only when all fetches succeed.
func (p *Pager) Refresh(ctx context.Context) error {
	p.refreshing.Lock()
	defer p.refreshing.Unlock()

	p.mu.Lock()
	p.validating++
	loading := p.loading
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.validating--
		p.mu.Unlock()
	}()

	if loading != nil {
		select {
		case <-loading:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.mu.RLock()
	size := max(len(p.pages), 1)
	p.mu.RUnlock()

	pages := make([]*models.FeedResponse, 0, size)
	cursor := ""
	for i := 0; i < size; i++ {
		page, err := p.fetcher.FetchFeed(ctx, cursor, p.limit)
		if err != nil {
			return fmt.Errorf("refresh page %d: %w", i, err)
		}
		pages = append(pages, page)
		cursor = page.Cursor()
		if cursor == "" {
			break
		}
	}

	p.mu.Lock()
	p.pages = pages
	p.mu.Unlock()

	log.WithFields(log.Fields{
		"pages": len(pages),
	}).Debug("Refreshed feed")
	return nil
}

// Items returns the posts of all loaded pages in feed order
func (p *Pager) Items() []models.PostWithAuthor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return lo.FlatMap(p.pages, func(page *models.FeedResponse, _ int) []models.PostWithAuthor {
		return page.Items
	})
}

// Pages returns a copy of the loaded pages
func (p *Pager) Pages() []*models.FeedResponse {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*models.FeedResponse(nil), p.pages...)
}

// NextCursor returns the cursor of the last loaded page
func (p *Pager) NextCursor() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cursorLocked()
}

// HasMore reports whether another page can be loaded
func (p *Pager) HasMore() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hasMoreLocked()
}

func (p *Pager) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.pages)
}

// Validating reports whether a page load or a refresh is in flight
func (p *Pager) Validating() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.validatingLocked()
}

func (p *Pager) validatingLocked() bool {
	return p.loading != nil || p.validating > 0
}

func (p *Pager) cursorLocked() string {
	if len(p.pages) == 0 {
		return ""
	}
	return p.pages[len(p.pages)-1].Cursor()
}

func (p *Pager) hasMoreLocked() bool {
	return len(p.pages) == 0 || p.cursorLocked() != ""
}
