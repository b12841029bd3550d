// Package apitest provides an in-memory feed API for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"socialfeed/models"
)

// Server is a fake feed API backed by memory. Posts are ordered newest first and
// the cursor is the id of the last post on a page.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	profiles map[string]models.Profile
	posts    map[string]*models.Post
	ordered  []string
	likes    map[string]map[string]bool
	shares   map[string]map[string]bool
	comments map[string][]models.Comment

	// Requests records "METHOD path" for every request served
	Requests []string
	// RequestIDs records the X-Request-Id header of every request
	RequestIDs []string
	// FailNext makes the next n requests answer with FailStatus
	FailNext   int
	FailStatus int
}

// NewServer starts a fake API seeded with numProfiles users and numPosts posts
func NewServer(numProfiles, numPosts int) *Server {
	s := &Server{
		profiles:   map[string]models.Profile{},
		posts:      map[string]*models.Post{},
		likes:      map[string]map[string]bool{},
		shares:     map[string]map[string]bool{},
		comments:   map[string][]models.Comment{},
		FailStatus: http.StatusInternalServerError,
	}
	s.seed(numProfiles, numPosts)
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *Server) seed(numProfiles, numPosts int) {
	for i := 1; i <= numProfiles; i++ {
		id := fmt.Sprintf("u%02d", i)
		bio := fmt.Sprintf("This is bio for User %02d.", i)
		avatar := fmt.Sprintf("https://avatars.example/%s.svg", id)
		s.profiles[id] = models.Profile{
			Id:          id,
			Handle:      fmt.Sprintf("user%02d", i),
			DisplayName: fmt.Sprintf("User %02d", i),
			Bio:         &bio,
			AvatarUrl:   &avatar,
		}
	}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := numPosts; i >= 1; i-- {
		id := fmt.Sprintf("p%03d", i)
		s.posts[id] = &models.Post{
			Id:        id,
			AuthorId:  fmt.Sprintf("u%02d", (i-1)%max(numProfiles, 1)+1),
			Text:      fmt.Sprintf("Post number %d", i),
			CreatedAt: now.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
		}
		s.ordered = append(s.ordered, id)
		s.likes[id] = map[string]bool{}
		s.shares[id] = map[string]bool{}
	}
}

// AddPost puts a new post at the head of the feed
func (s *Server) AddPost(post models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := post
	s.posts[p.Id] = &p
	s.ordered = append([]string{p.Id}, s.ordered...)
	s.likes[p.Id] = map[string]bool{}
	s.shares[p.Id] = map[string]bool{}
}

// Post returns a copy of the stored post
func (s *Server) Post(id string) models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.posts[id]
}

// Count returns how many requests matched the "METHOD path-prefix" pattern
func (s *Server) Count(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.Requests {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Requests = append(s.Requests, r.Method+" "+r.URL.RequestURI())
	s.RequestIDs = append(s.RequestIDs, r.Header.Get("X-Request-Id"))

	if s.FailNext > 0 {
		s.FailNext--
		writeError(w, s.FailStatus, "Injected failure")
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/healthz":
		writeJSON(w, map[string]string{"status": "ok"})
	case r.Method == http.MethodGet && r.URL.Path == "/feed":
		s.feed(w, r)
	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "profiles":
		s.profile(w, parts[1])
	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "posts":
		s.interact(w, r, parts[1], parts[2])
	default:
		writeError(w, http.StatusNotFound, "Not Found")
	}
}

func (s *Server) feed(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 50 {
			writeError(w, http.StatusUnprocessableEntity, "limit must be between 1 and 50")
			return
		}
		limit = n
	}

	start := 0
	if cursor := r.URL.Query().Get("cursor"); cursor != "" {
		for i, id := range s.ordered {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(s.ordered))

	page := models.FeedResponse{Items: []models.PostWithAuthor{}}
	for _, id := range s.ordered[start:end] {
		post := s.posts[id]
		page.Items = append(page.Items, models.PostWithAuthor{Post: *post, Author: s.profiles[post.AuthorId]})
	}
	if end < len(s.ordered) && end > start {
		next := s.ordered[end-1]
		page.NextCursor = &next
	}
	writeJSON(w, page)
}

func (s *Server) profile(w http.ResponseWriter, id string) {
	profile, ok := s.profiles[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Profile not found")
		return
	}
	resp := models.ProfileResponse{Profile: profile, Posts: []models.Post{}}
	for _, pid := range s.ordered {
		if s.posts[pid].AuthorId == id {
			resp.Posts = append(resp.Posts, *s.posts[pid])
		}
	}
	writeJSON(w, resp)
}

func (s *Server) interact(w http.ResponseWriter, r *http.Request, postID, action string) {
	post, ok := s.posts[postID]
	if !ok {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}

	var body models.CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserId == "" {
		writeError(w, http.StatusUnprocessableEntity, "user_id is required")
		return
	}

	resp := models.InteractionResponse{}
	switch action {
	case "like":
		users := s.likes[postID]
		liked := !users[body.UserId]
		if liked {
			users[body.UserId] = true
		} else {
			delete(users, body.UserId)
		}
		post.LikeCount = int64(len(users))
		resp.LikedByUser = &liked
	case "share":
		s.shares[postID][body.UserId] = true
		post.ShareCount = int64(len(s.shares[postID]))
	case "comment":
		c := models.Comment{
			Id:        fmt.Sprintf("c%s-%d", postID, len(s.comments[postID])+1),
			PostId:    postID,
			UserId:    body.UserId,
			Text:      body.Text,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		s.comments[postID] = append(s.comments[postID], c)
		post.CommentCount = int64(len(s.comments[postID]))
		resp.NewComment = &c
	default:
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	resp.Post = *post
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
