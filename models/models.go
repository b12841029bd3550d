package models

import (
	"strings"
	"time"
)

// DefaultAvatar is served from the embedded static assets
const DefaultAvatar = "/static/avatar.svg"

// Profile of a feed user
type Profile struct {
	Id          string  `json:"id"`
	Handle      string  `json:"handle"`
	DisplayName string  `json:"display_name"`
	Bio         *string `json:"bio,omitempty"`
	AvatarUrl   *string `json:"avatar_url,omitempty"`
}

// Avatar returns the avatar URL or the bundled placeholder
func (p Profile) Avatar() string {
	if p.AvatarUrl == nil || strings.TrimSpace(*p.AvatarUrl) == "" {
		return DefaultAvatar
	}
	return *p.AvatarUrl
}

// Post model with engagement counters as reported by the API
type Post struct {
	Id           string `json:"id"`
	AuthorId     string `json:"author_id"`
	Text         string `json:"text"`
	CreatedAt    string `json:"created_at"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
	ShareCount   int64  `json:"share_count"`
}

// CreatedTime parses CreatedAt. Timestamps without a zone are treated as UTC.
func (p Post) CreatedTime() (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, p.CreatedAt); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05.999999999", p.CreatedAt, time.UTC)
}

type PostWithAuthor struct {
	Post
	Author Profile `json:"author"`
}

type Comment struct {
	Id        string `json:"id"`
	PostId    string `json:"post_id"`
	UserId    string `json:"user_id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// FeedResponse is one page of the feed. NextCursor is nil on the last page.
type FeedResponse struct {
	Items      []PostWithAuthor `json:"items"`
	NextCursor *string          `json:"next_cursor"`
}

// Cursor returns the next cursor or the empty string
func (f *FeedResponse) Cursor() string {
	if f == nil || f.NextCursor == nil {
		return ""
	}
	return *f.NextCursor
}

type ProfileResponse struct {
	Profile Profile `json:"profile"`
	Posts   []Post  `json:"posts"`
}

type LikeRequest struct {
	UserId string `json:"user_id"`
}

type CommentRequest struct {
	UserId string `json:"user_id"`
	Text   string `json:"text"`
}

type ShareRequest struct {
	UserId string `json:"user_id"`
}

// InteractionResponse is returned by all engagement endpoints
type InteractionResponse struct {
	Post        Post     `json:"post"`
	LikedByUser *bool    `json:"liked_by_user,omitempty"`
	NewComment  *Comment `json:"new_comment,omitempty"`
}
