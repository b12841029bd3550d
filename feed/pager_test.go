package feed_test

import (
	"context"
	"errors"
	"fmt"
	"socialfeed/api"
	"socialfeed/api/apitest"
	"socialfeed/feed"
	"socialfeed/models"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(items []models.PostWithAuthor) []string {
	return lo.Map(items, func(item models.PostWithAuthor, _ int) string {
		return item.Id
	})
}

func TestPagerLoadsPagesInCursorOrder(t *testing.T) {
	srv := apitest.NewServer(4, 12)
	defer srv.Close()

	pager := feed.NewPager(api.NewClient(srv.URL), 5)
	ctx := context.Background()

	assert.True(t, pager.HasMore())
	assert.Equal(t, 0, pager.Size())

	require.NoError(t, pager.Load(ctx))
	require.NoError(t, pager.Load(ctx)) // already loaded, no new request
	assert.Equal(t, 1, srv.Count("GET /feed"))
	assert.Equal(t, []string{"p012", "p011", "p010", "p009", "p008"}, ids(pager.Items()))
	assert.Equal(t, "p008", pager.NextCursor())

	loaded, err := pager.LoadMore(ctx)
	require.NoError(t, err)
	assert.True(t, loaded)

	loaded, err = pager.LoadMore(ctx)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Len(t, pager.Items(), 12)
	assert.False(t, pager.HasMore())
	assert.Equal(t, "", pager.NextCursor())

	// End of feed: no further requests
	loaded, err = pager.LoadMore(ctx)
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.Equal(t, 3, srv.Count("GET /feed"))
	assert.Equal(t, "GET /feed?cursor=p003&limit=5", srv.Requests[2])
}

func TestPagerFill(t *testing.T) {
	srv := apitest.NewServer(2, 30)
	defer srv.Close()

	pager := feed.NewPager(api.NewClient(srv.URL), 10)
	require.NoError(t, pager.Fill(context.Background(), 2))
	assert.Equal(t, 2, pager.Size())
	assert.Len(t, pager.Items(), 20)

	// More pages than the feed holds stops at the end
	require.NoError(t, pager.Fill(context.Background(), 10))
	assert.Equal(t, 3, pager.Size())
	assert.False(t, pager.HasMore())
}

func TestPagerEmptyFeed(t *testing.T) {
	srv := apitest.NewServer(1, 0)
	defer srv.Close()

	pager := feed.NewPager(api.NewClient(srv.URL), 10)
	require.NoError(t, pager.Fill(context.Background(), 3))
	assert.Equal(t, 1, pager.Size())
	assert.Empty(t, pager.Items())
	assert.False(t, pager.HasMore())
}

func TestPagerLoadErrorKeepsPages(t *testing.T) {
	srv := apitest.NewServer(2, 20)
	defer srv.Close()

	pager := feed.NewPager(api.NewClient(srv.URL), 10)
	ctx := context.Background()
	require.NoError(t, pager.Load(ctx))

	srv.FailNext = 1
	loaded, err := pager.LoadMore(ctx)
	require.Error(t, err)
	assert.False(t, loaded)
	assert.Equal(t, 500, api.StatusCode(err))
	assert.Equal(t, 1, pager.Size())
	assert.False(t, pager.Validating())

	loaded, err = pager.LoadMore(ctx)
	require.NoError(t, err)
	assert.True(t, loaded)
}

func TestPagerRefreshRevalidatesAllPages(t *testing.T) {
	srv := apitest.NewServer(2, 20)
	defer srv.Close()

	pager := feed.NewPager(api.NewClient(srv.URL), 5)
	ctx := context.Background()
	require.NoError(t, pager.Fill(ctx, 3))
	require.Equal(t, "p006", pager.NextCursor())

	srv.AddPost(models.Post{Id: "p999", AuthorId: "u01", Text: "fresh", CreatedAt: "2024-06-01T00:00:00Z"})

	require.NoError(t, pager.Refresh(ctx))
	assert.Equal(t, 3, pager.Size())
	items := pager.Items()
	assert.Equal(t, "p999", items[0].Id)
	assert.Len(t, items, 15)
	// Cursors were chained from the refreshed pages, so nothing is duplicated
	assert.Len(t, lo.Uniq(ids(items)), 15)
	assert.Equal(t, "p007", pager.NextCursor())
}

func TestPagerRefreshFailureKeepsOldPages(t *testing.T) {
	srv := apitest.NewServer(2, 20)
	defer srv.Close()

	pager := feed.NewPager(api.NewClient(srv.URL), 5)
	ctx := context.Background()
	require.NoError(t, pager.Fill(ctx, 2))
	before := ids(pager.Items())

	srv.FailNext = 1
	srv.FailStatus = 503
	err := pager.Refresh(ctx)
	require.Error(t, err)
	assert.Equal(t, 503, api.StatusCode(err))
	assert.Equal(t, before, ids(pager.Items()))
	assert.False(t, pager.Validating())
}

func TestPagerRefreshOnEmptyPagerLoadsFirstPage(t *testing.T) {
	srv := apitest.NewServer(2, 8)
	defer srv.Close()

	pager := feed.NewPager(api.NewClient(srv.URL), 5)
	require.NoError(t, pager.Refresh(context.Background()))
	assert.Equal(t, 1, pager.Size())
	assert.Len(t, pager.Items(), 5)
}

// blockingFetcher holds every fetch until release is closed
type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func (f *blockingFetcher) FetchFeed(ctx context.Context, cursor string, limit int) (*models.FeedResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	f.started <- struct{}{}
	<-f.release
	next := fmt.Sprintf("c%d", limit)
	return &models.FeedResponse{Items: []models.PostWithAuthor{}, NextCursor: &next}, nil
}

func TestPagerLoadMoreWhileValidatingIsNoop(t *testing.T) {
	f := &blockingFetcher{started: make(chan struct{}, 1), release: make(chan struct{})}
	pager := feed.NewPager(f, 3)

	done := make(chan error)
	go func() {
		done <- pager.Load(context.Background())
	}()
	<-f.started
	assert.True(t, pager.Validating())

	loaded, err := pager.LoadMore(context.Background())
	require.NoError(t, err)
	assert.False(t, loaded)

	close(f.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, 1, pager.Size())
}

type failingFetcher struct{}

func (failingFetcher) FetchFeed(context.Context, string, int) (*models.FeedResponse, error) {
	return nil, errors.New("boom")
}

func TestPagerFillPropagatesError(t *testing.T) {
	pager := feed.NewPager(failingFetcher{}, 0)
	err := pager.Fill(context.Background(), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 0, pager.Size())
}

// gateFetcher serves a three page feed and holds each fetch until the test
// releases its cursor
type gateFetcher struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	started chan string
}

func newGateFetcher() *gateFetcher {
	return &gateFetcher{gates: map[string]chan struct{}{}, started: make(chan string, 4)}
}

func (f *gateFetcher) gate(cursor string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.gates[cursor]; !ok {
		f.gates[cursor] = make(chan struct{})
	}
	return f.gates[cursor]
}

func (f *gateFetcher) release(cursor string) {
	f.gate(cursor) <- struct{}{}
}

func (f *gateFetcher) FetchFeed(ctx context.Context, cursor string, limit int) (*models.FeedResponse, error) {
	f.started <- cursor
	<-f.gate(cursor)

	next := map[string]string{"": "x", "x": "y"}[cursor]
	page := &models.FeedResponse{Items: []models.PostWithAuthor{{Post: models.Post{Id: "after-" + cursor}}}}
	if next != "" {
		page.NextCursor = &next
	}
	return page, nil
}

func TestPagerRefreshWaitsForLoadMore(t *testing.T) {
	f := newGateFetcher()
	pager := feed.NewPager(f, 1)
	ctx := context.Background()

	loadDone := make(chan error)
	go func() { loadDone <- pager.Load(ctx) }()
	require.Equal(t, "", <-f.started)
	f.release("")
	require.NoError(t, <-loadDone)

	type result struct {
		loaded bool
		err    error
	}
	moreDone := make(chan result)
	go func() {
		loaded, err := pager.LoadMore(ctx)
		moreDone <- result{loaded, err}
	}()
	require.Equal(t, "x", <-f.started)

	refreshDone := make(chan error)
	go func() { refreshDone <- pager.Refresh(ctx) }()

	loaded, err := pager.LoadMore(ctx)
	require.NoError(t, err)
	assert.False(t, loaded)

	f.release("x")
	more := <-moreDone
	require.NoError(t, more.err)
	assert.True(t, more.loaded)

	// The refresh covers the page the load just appended
	require.Equal(t, "", <-f.started)
	assert.True(t, pager.Validating())
	loaded, err = pager.LoadMore(ctx)
	require.NoError(t, err)
	assert.False(t, loaded)

	f.release("")
	require.Equal(t, "x", <-f.started)
	f.release("x")
	require.NoError(t, <-refreshDone)

	assert.Equal(t, 2, pager.Size())
	assert.Equal(t, []string{"after-", "after-x"}, ids(pager.Items()))
	assert.Equal(t, "y", pager.NextCursor())
	assert.False(t, pager.Validating())
}
