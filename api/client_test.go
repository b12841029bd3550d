package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"socialfeed/api"
	"socialfeed/api/apitest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchFeedPaginates(t *testing.T) {
	srv := apitest.NewServer(3, 25)
	defer srv.Close()

	client := api.NewClient(srv.URL + "/")
	ctx := context.Background()

	first, err := client.FetchFeed(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, first.Items, 10)
	assert.Equal(t, "p025", first.Items[0].Id)
	assert.Equal(t, "p016", first.Cursor())
	assert.Equal(t, first.Items[0].AuthorId, first.Items[0].Author.Id)

	second, err := client.FetchFeed(ctx, first.Cursor(), 10)
	require.NoError(t, err)
	assert.Equal(t, "p015", second.Items[0].Id)

	third, err := client.FetchFeed(ctx, second.Cursor(), 10)
	require.NoError(t, err)
	assert.Len(t, third.Items, 5)
	assert.Nil(t, third.NextCursor)

	assert.Equal(t, []string{
		"GET /feed?limit=10",
		"GET /feed?cursor=p016&limit=10",
		"GET /feed?cursor=p006&limit=10",
	}, srv.Requests)
}

func TestFetchProfile(t *testing.T) {
	srv := apitest.NewServer(3, 9)
	defer srv.Close()

	client := api.NewClient(srv.URL)
	resp, err := client.FetchProfile(context.Background(), "u02")
	require.NoError(t, err)
	assert.Equal(t, "user02", resp.Profile.Handle)
	assert.Len(t, resp.Posts, 3)
	for _, p := range resp.Posts {
		assert.Equal(t, "u02", p.AuthorId)
	}

	_, err = client.FetchProfile(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
	assert.EqualError(t, err, "request failed: 404")

	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Profile not found", se.Detail)
}

func TestInteractions(t *testing.T) {
	srv := apitest.NewServer(2, 5)
	defer srv.Close()

	client := api.NewClient(srv.URL)
	ctx := context.Background()

	liked, err := client.LikePost(ctx, "p003", "u01")
	require.NoError(t, err)
	require.NotNil(t, liked.LikedByUser)
	assert.True(t, *liked.LikedByUser)
	assert.Equal(t, int64(1), liked.Post.LikeCount)

	unliked, err := client.LikePost(ctx, "p003", "u01")
	require.NoError(t, err)
	assert.False(t, *unliked.LikedByUser)
	assert.Equal(t, int64(0), unliked.Post.LikeCount)

	commented, err := client.CommentPost(ctx, "p003", "u01", "nice")
	require.NoError(t, err)
	require.NotNil(t, commented.NewComment)
	assert.Equal(t, "nice", commented.NewComment.Text)
	assert.Equal(t, int64(1), commented.Post.CommentCount)

	shared, err := client.SharePost(ctx, "p003", "u02")
	require.NoError(t, err)
	assert.Equal(t, int64(1), shared.Post.ShareCount)

	for _, call := range []func() error{
		func() error { _, err := client.LikePost(ctx, "missing", "u01"); return err },
		func() error { _, err := client.CommentPost(ctx, "missing", "u01", "x"); return err },
		func() error { _, err := client.SharePost(ctx, "missing", "u01"); return err },
	} {
		assert.True(t, api.IsNotFound(call()))
	}
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL)

	ctx := api.WithRequestID(context.Background(), "req-123")
	status, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "no-store", got.Get("Cache-Control"))
	assert.Equal(t, "req-123", got.Get("X-Request-Id"))

	_, err = client.Health(context.Background())
	require.NoError(t, err)
	assert.Len(t, got.Get("X-Request-Id"), 36)
}

func TestStatusErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := api.NewClient(srv.URL).FetchFeed(context.Background(), "", 20)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, api.StatusCode(err))
	assert.False(t, api.IsNotFound(err))
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, api.WithTimeout(50*time.Millisecond))
	_, err := client.FetchFeed(context.Background(), "", 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, api.StatusCode(err))
}
