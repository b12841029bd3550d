package models_test

import (
	"encoding/json"
	"socialfeed/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileAvatar(t *testing.T) {
	empty := ""
	url := "https://example.com/a.svg"

	assert.Equal(t, models.DefaultAvatar, models.Profile{}.Avatar())
	assert.Equal(t, models.DefaultAvatar, models.Profile{AvatarUrl: &empty}.Avatar())
	assert.Equal(t, url, models.Profile{AvatarUrl: &url}.Avatar())
}

func TestPostCreatedTime(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Time
		wantErr  bool
	}{
		{
			name:     "rfc3339 with zone",
			value:    "2024-05-01T10:00:00Z",
			expected: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:     "fractional seconds",
			value:    "2024-05-01T10:00:00.123456Z",
			expected: time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC),
		},
		{
			name:     "missing zone",
			value:    "2024-05-01T10:00:00.5",
			expected: time.Date(2024, 5, 1, 10, 0, 0, 500000000, time.UTC),
		},
		{
			name:    "garbage",
			value:   "yesterday",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := models.Post{CreatedAt: tt.value}.CreatedTime()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "got %s", got)
		})
	}
}

func TestFeedResponseDecoding(t *testing.T) {
	body := `{
		"items": [{
			"id": "p100", "author_id": "u01", "text": "hello", "created_at": "2024-05-01T10:00:00Z",
			"like_count": 3, "comment_count": 1, "share_count": 0,
			"author": {"id": "u01", "handle": "user01", "display_name": "User 01", "bio": null}
		}],
		"next_cursor": "p100"
	}`

	var page models.FeedResponse
	require.NoError(t, json.Unmarshal([]byte(body), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "p100", page.Cursor())
	assert.Equal(t, "user01", page.Items[0].Author.Handle)
	assert.Equal(t, int64(3), page.Items[0].LikeCount)
	assert.Nil(t, page.Items[0].Author.Bio)

	var last models.FeedResponse
	require.NoError(t, json.Unmarshal([]byte(`{"items": [], "next_cursor": null}`), &last))
	assert.Equal(t, "", last.Cursor())

	var nilPage *models.FeedResponse
	assert.Equal(t, "", nilPage.Cursor())
}
