package server

import (
	"bytes"
	"embed"
	"html/template"

	"socialfeed/models"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed static/*
var static embed.FS

type cardView struct {
	Item  models.PostWithAuthor
	Pages int
}

type feedView struct {
	Title      string
	Items      []models.PostWithAuthor
	NextCursor string
	Pages      int
}

type profileView struct {
	Title   string
	Profile models.Profile
	Posts   []models.Post
}

type errorView struct {
	Title   string
	Status  int
	Message string
}

var funcs = template.FuncMap{
	"ago": func(p models.Post) string {
		t, err := p.CreatedTime()
		if err != nil {
			return p.CreatedAt
		}
		return humanize.Time(t)
	},
	"count": func(n int64) string {
		return humanize.Comma(n)
	},
	"card": func(item models.PostWithAuthor, pages int) cardView {
		return cardView{Item: item, Pages: pages}
	},
}

// renderer holds one template set per page so every page can define "content"
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() *renderer {
	base := template.Must(template.New("").Funcs(funcs).ParseFS(templates, "templates/layout.html"))

	r := &renderer{pages: map[string]*template.Template{}}
	for _, name := range []string{"feed", "page", "profile", "error"} {
		t := template.Must(base.Clone())
		r.pages[name] = template.Must(t.ParseFS(templates, "templates/"+name+".html"))
	}
	return r
}

// render executes a full page, or the bare fragment for "page"
func (r *renderer) render(c *fiber.Ctx, status int, name string, data interface{}) error {
	entry := "layout"
	if name == "page" {
		entry = "fragment"
	}

	var buf bytes.Buffer
	if err := r.pages[name].ExecuteTemplate(&buf, entry, data); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(status).Send(buf.Bytes())
}
