package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"socialfeed/models"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
	log "github.com/sirupsen/logrus"
)

const DefaultAPIBase = "http://localhost:8000"

const DefaultTimeout = 10 * time.Second

type requestIDKey struct{}

// WithRequestID attaches a request id that is forwarded to the feed API
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// Client talks to the feed API over JSON/HTTP
type Client struct {
	host    string
	http    *http.Client
	timeout time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the pooled default client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithTimeout bounds every call made by the client
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.timeout = d
	}
}

func NewClient(host string, opts ...Option) *Client {
	if host == "" {
		host = DefaultAPIBase
	}
	c := &Client{
		host:    strings.TrimRight(host, "/"),
		http:    cleanhttp.DefaultPooledClient(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Host returns the base URL the client was configured with
func (c *Client) Host() string {
	return c.host
}

// FetchFeed returns one page of the feed. An empty cursor requests the first page.
func (c *Client) FetchFeed(ctx context.Context, cursor string, limit int) (*models.FeedResponse, error) {
	params := url.Values{}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	params.Set("limit", strconv.Itoa(limit))

	var out models.FeedResponse
	if err := c.do(ctx, http.MethodGet, "/feed?"+params.Encode(), "/feed", nil, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []models.PostWithAuthor{}
	}
	return &out, nil
}

// FetchProfile returns a profile together with the posts it authored
func (c *Client) FetchProfile(ctx context.Context, profileID string) (*models.ProfileResponse, error) {
	var out models.ProfileResponse
	if err := c.do(ctx, http.MethodGet, "/profiles/"+url.PathEscape(profileID), "/profiles/:id", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LikePost toggles the like of userID on the post
func (c *Client) LikePost(ctx context.Context, postID, userID string) (*models.InteractionResponse, error) {
	return c.interact(ctx, postID, "like", models.LikeRequest{UserId: userID})
}

func (c *Client) CommentPost(ctx context.Context, postID, userID, text string) (*models.InteractionResponse, error) {
	return c.interact(ctx, postID, "comment", models.CommentRequest{UserId: userID, Text: text})
}

func (c *Client) SharePost(ctx context.Context, postID, userID string) (*models.InteractionResponse, error) {
	return c.interact(ctx, postID, "share", models.ShareRequest{UserId: userID})
}

// Health returns the status reported by the API health endpoint
func (c *Client) Health(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/healthz", "/healthz", nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *Client) interact(ctx context.Context, postID, action string, body interface{}) (*models.InteractionResponse, error) {
	var out models.InteractionResponse
	path := fmt.Sprintf("/posts/%s/%s", url.PathEscape(postID), action)
	if err := c.do(ctx, http.MethodPost, path, "/posts/:id/"+action, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs a single request. route is the templated path used for metrics.
func (c *Client) do(ctx context.Context, method, path, route string, body interface{}, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.host+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("X-Request-Id", requestID(ctx))

	start := time.Now()
	code := "error"
	defer func() {
		observe(method, route, code, time.Since(start))
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithFields(log.Fields{
			"method": method,
			"path":   path,
			"error":  err,
		}).Warn("Feed API request failed")
		return fmt.Errorf("%s %s: %w", method, route, err)
	}
	defer resp.Body.Close()
	code = strconv.Itoa(resp.StatusCode)

	log.WithFields(log.Fields{
		"method":  method,
		"path":    path,
		"status":  resp.StatusCode,
		"latency": time.Since(start),
	}).Debug("Feed API request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(method, path, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", route, err)
	}
	return nil
}
