// Package demosite serves a small static site whose pages share a layout
// with a main content region and a navigation region.
package demosite

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Page is one document of the site.
type Page struct {
	Path  string
	Title string
	Body  template.HTML
}

// Pages is the default site content.
var Pages = []Page{
	{
		Path:  "/",
		Title: "Home",
		Body: `<h1>Home</h1>
<p>Welcome. This site is built from static files.</p>
<p>Read <a href="/about" id="home-about">about us</a> or <a href="contact" id="home-contact">get in touch</a>.</p>`,
	},
	{
		Path:  "/about",
		Title: "About",
		Body: `<h1>About</h1>
<p>We write small tools for the terminal.</p>
<ul>
<li><a href="/" id="about-home">Back home</a></li>
<li><a href="https://example.com/" id="about-external">Elsewhere</a></li>
<li><a href="#team" id="about-team">Jump to the team</a></li>
</ul>
<h2 id="team">Team</h2>
<p>Two people and a cat.</p>`,
	},
	{
		Path:  "/contact",
		Title: "Contact",
		Body: `<h1>Contact</h1>
<table>
<tr><th>Channel</th><th>Address</th></tr>
<tr><td>Mail</td><td>hello@site.test</td></tr>
</table>
<p><a href="/missing" id="contact-missing">A broken link</a></p>`,
	},
}

var layout = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Page.Title}} | {{.Site}}</title>
</head>
<body>
<header>
<nav role="navigation">
{{range .Nav}}<a href="{{.Path}}">{{.Title}}</a>
{{end}}</nav>
</header>
<main role="main">
{{.Page.Body}}
</main>
<footer><p>{{.Site}}</p></footer>
</body>
</html>
`))

// Site renders pages through the shared layout.
type Site struct {
	Name   string
	pages  []Page
	logger *slog.Logger
}

// New creates a site over pages. A nil logger uses slog.Default.
func New(name string, pages []Page, logger *slog.Logger) *Site {
	if logger == nil {
		logger = slog.Default()
	}
	return &Site{Name: name, pages: pages, logger: logger}
}

// Render returns the full document for p.
func (s *Site) Render(p Page) ([]byte, error) {
	var buf bytes.Buffer
	err := layout.Execute(&buf, struct {
		Site string
		Page Page
		Nav  []Page
	}{s.Name, p, s.pages})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Handler returns the router serving every page.
func (s *Site) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	for _, p := range s.pages {
		r.Get(p.Path, s.serve(p))
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		body, err := s.Render(Page{Title: "Not found", Body: `<h1>Not found</h1>`})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write(body)
	})
	return r
}

func (s *Site) serve(p Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := s.Render(p)
		if err != nil {
			s.logger.Error("render failed", "path", p.Path, "error", err)
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body)
	}
}

func (s *Site) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
