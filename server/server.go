package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"socialfeed/api"
	"socialfeed/feed"
	"socialfeed/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// MaxPages bounds how many feed pages a single request may restore
const MaxPages = 20

// FeedAPI is the subset of the API client the web client needs
type FeedAPI interface {
	feed.Fetcher
	feed.Interactor
	FetchProfile(ctx context.Context, profileID string) (*models.ProfileResponse, error)
	Health(ctx context.Context) (string, error)
}

type ServerConfig struct {

	// The hostname to use for the server
	Hostname string

	// Client for the feed API
	API FeedAPI

	// The user engagement actions are performed as
	CurrentUser string

	// Posts per feed page
	PageSize int

	// Broadcaster for new post events, optional
	Broadcaster *Broadcaster
}

// Returns a fiber.App instance serving the web client
func Server(config *ServerConfig) *fiber.App {
	views := newRenderer()

	app := fiber.New(fiber.Config{
		AppName:               "socialfeed",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			message := "Something went wrong"
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
				message = fe.Message
			}
			if status >= fiber.StatusInternalServerError {
				log.WithFields(log.Fields{
					"path":  c.Path(),
					"error": err,
				}).Error("Request failed")
			}
			return views.render(c, status, "error", errorView{
				Title:   http.StatusText(status),
				Status:  status,
				Message: message,
			})
		},
	})

	app.Use(recover.New())

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		observeRequest(c.Method(), c.Route().Path, status, latency)

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  status,
			"latency": latency,
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			// Event streams must not be buffered by the compressor
			return strings.HasSuffix(c.Path(), "/events")
		},
	}))

	h := &handlers{config: config, views: views}

	app.Get("/", h.home)
	app.Get("/feed/page", h.page)
	app.Get("/feed/events", func(c *fiber.Ctx) error {
		if config.Broadcaster == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return config.Broadcaster.streamEvents(c)
	})
	app.Get("/profile/:id", h.profile)
	app.Post("/posts/:id/:action", h.engage)
	app.Get("/healthz", h.health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Use("/static", filesystem.New(filesystem.Config{
		Browse:     false,
		Root:       http.FS(static),
		PathPrefix: "/static",
		MaxAge:     3600,
	}))

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Page not found")
	})

	return app
}

type handlers struct {
	config *ServerConfig
	views  *renderer
}

// requestContext forwards the request id to the feed API
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if id, ok := c.Locals("requestid").(string); ok {
		ctx = api.WithRequestID(ctx, id)
	}
	return ctx
}

// upstreamError maps feed API failures to responses: 404 passes through, everything else is a bad gateway
func upstreamError(err error, what string) error {
	if api.IsNotFound(err) {
		return fiber.NewError(fiber.StatusNotFound, what+" not found")
	}
	return fiber.NewError(fiber.StatusBadGateway, fmt.Sprintf("Could not reach the feed service: %v", err))
}

// pagesParam reads a page count and clamps it to 1..MaxPages
func pagesParam(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return min(n, MaxPages)
}

func (h *handlers) home(c *fiber.Ctx) error {
	pages := pagesParam(c.Query("pages", "1"))

	pager := feed.NewPager(h.config.API, h.config.PageSize)
	if err := pager.Fill(requestContext(c), pages); err != nil {
		return upstreamError(err, "Feed")
	}

	log.WithFields(log.Fields{
		"pages": pager.Size(),
		"posts": len(pager.Items()),
	}).Debug("Rendering feed")

	return h.views.render(c, fiber.StatusOK, "feed", feedView{
		Items:      pager.Items(),
		NextCursor: pager.NextCursor(),
		Pages:      max(pager.Size(), 1),
	})
}

// page renders the cards of the page following cursor, for infinite scroll
func (h *handlers) page(c *fiber.Ctx) error {
	cursor := c.Query("cursor")
	if cursor == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing cursor")
	}
	pages := pagesParam(c.Query("pages", "2"))

	resp, err := h.config.API.FetchFeed(requestContext(c), cursor, h.config.PageSize)
	if err != nil {
		return upstreamError(err, "Feed page")
	}

	next := resp.Cursor()
	if pages >= MaxPages {
		// Deeper pages could not be restored after a redirect
		next = ""
	}

	return h.views.render(c, fiber.StatusOK, "page", feedView{
		Items:      resp.Items,
		NextCursor: next,
		Pages:      pages,
	})
}

func (h *handlers) profile(c *fiber.Ctx) error {
	resp, err := h.config.API.FetchProfile(requestContext(c), c.Params("id"))
	if err != nil {
		return upstreamError(err, "Profile")
	}

	return h.views.render(c, fiber.StatusOK, "profile", profileView{
		Title:   resp.Profile.DisplayName,
		Profile: resp.Profile,
		Posts:   resp.Posts,
	})
}

// engage runs an engagement action and redirects back so the feed is fetched again
func (h *handlers) engage(c *fiber.Ctx) error {
	postID := c.Params("id")
	pages := pagesParam(c.FormValue("pages", "1"))
	ctx := requestContext(c)

	engagement := feed.NewEngagement(h.config.API, h.config.CurrentUser, nil)

	var err error
	switch c.Params("action") {
	case "like":
		_, err = engagement.Like(ctx, postID)
	case "share":
		_, err = engagement.Share(ctx, postID)
	case "comment":
		_, err = engagement.Comment(ctx, postID, c.FormValue("text"))
	default:
		return fiber.NewError(fiber.StatusNotFound, "Unknown action")
	}

	if err != nil && !errors.Is(err, feed.ErrEmptyComment) {
		return upstreamError(err, "Post")
	}

	return c.Redirect(fmt.Sprintf("/?pages=%d#post-%s", pages, postID), fiber.StatusSeeOther)
}

func (h *handlers) health(c *fiber.Ctx) error {
	status, err := h.config.API.Health(requestContext(c))
	if err != nil {
		status = err.Error()
	}
	return c.JSON(fiber.Map{
		"status": "ok",
		"api":    status,
	})
}
