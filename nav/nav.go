// Package nav is the navigation controller: it intercepts same-origin link
// clicks, fetches the target page, swaps the content region in place, and
// keeps the history stack in step so back/forward replays cached markup.
package nav

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"swapnav/dom"
	"swapnav/extract"
	"swapnav/fetcher"
	"swapnav/history"
)

// EventNavigated is the type of the event dispatched on the document after
// every successful content swap, including cache replays.
const EventNavigated = "swapnav:navigated"

// Navigated is the detail of an EventNavigated event.
type Navigated struct {
	URL       string `json:"url"`
	PushState bool   `json:"pushState"`
}

// Document is the part of the host page the controller touches besides the
// content region.
type Document interface {
	Title() string
	SetTitle(title string)
	ScrollOffset() (x, y float64)
	ScrollTo(x, y float64)
	Dispatch(ev dom.Event)
	QueryAll(selector string) ([]*html.Node, error)
	// Edit runs fn with exclusive access to node attributes.
	Edit(fn func())
}

// Region is the content region. Only its inner markup is ever replaced.
type Region interface {
	InnerHTML() string
	SetInnerHTML(markup string) error
	SetPending(on bool)
}

// Config selects the regions the controller manages.
type Config struct {
	MainContentSelector string
	NavigationSelector  string
	// Sanitize passes fetched content through extract.DefaultPolicy.
	Sanitize bool
}

// DefaultConfig returns the selectors used when none are configured.
func DefaultConfig() Config {
	return Config{
		MainContentSelector: `[role="main"]`,
		NavigationSelector:  `[role="navigation"]`,
	}
}

func (cfg Config) withDefaults() Config {
	if cfg.MainContentSelector == "" {
		cfg.MainContentSelector = DefaultConfig().MainContentSelector
	}
	return cfg
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithErrorHandler registers fn to observe every absorbed navigation error.
func WithErrorHandler(fn func(url string, err error)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.onError = fn
		}
	}
}

// WithNavigationHook registers fn to receive the navigation regions after
// every completed navigation so they can be reinitialized.
func WithNavigationHook(fn func(regions []*html.Node)) Option {
	return func(c *Controller) { c.navHooks = append(c.navHooks, fn) }
}

type mode int

const (
	modePush mode = iota
	modeReplay
	modeReload
)

// flight is the single in-flight navigation.
type flight struct {
	id     uuid.UUID
	url    string
	ctx    context.Context
	cancel context.CancelFunc
}

// Controller drives navigation for one page. Its methods may be called from
// several goroutines; at most one fetch is in flight at a time.
type Controller struct {
	doc       Document
	region    Region
	store     *history.Store
	fetcher   fetcher.Fetcher
	extractor *extract.Extractor
	cfg       Config
	logger    *slog.Logger
	onError   func(url string, err error)
	navHooks  []func([]*html.Node)

	mu          sync.Mutex
	enabled     bool
	current     string // URL whose content is displayed
	lastOrdinal int
	flight      *flight
	listeners   []func(Navigated)
}

// Attach boots a controller on page. When the page has no content region
// the returned controller is inert: every handler is a no-op.
func Attach(page *dom.Page, stack history.Stack, f fetcher.Fetcher, cfg Config, opts ...Option) (*Controller, error) {
	cfg = cfg.withDefaults()
	region, err := page.Region(cfg.MainContentSelector)
	if errors.Is(err, dom.ErrNoContentRegion) {
		c := newController(nil, nil, stack, f, cfg, opts)
		c.logger.Info("content region not found, navigation disabled", "selector", cfg.MainContentSelector)
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	return New(page, region, stack, f, cfg, opts...)
}

// New creates an enabled controller over an explicit document and region.
// The active history slot is replaced with the initial entry.
func New(doc Document, region Region, stack history.Stack, f fetcher.Fetcher, cfg Config, opts ...Option) (*Controller, error) {
	c := newController(doc, region, stack, f, cfg, opts)

	var policy *bluemonday.Policy
	if cfg.Sanitize {
		policy = extract.DefaultPolicy()
	}
	ex, err := extract.New(c.cfg.MainContentSelector, policy)
	if err != nil {
		return nil, err
	}
	c.extractor = ex

	c.current = c.store.Location()
	markup := region.InnerHTML()
	x, y := doc.ScrollOffset()
	initial := history.Entry{
		Location: c.current,
		Title:    doc.Title(),
		Content:  &markup,
		Scroll:   history.Offset{X: x, Y: y},
		Initial:  true,
	}
	if err := c.store.ReplaceCurrent(initial); err != nil {
		return nil, err
	}
	c.enabled = true

	if p, ok := stack.(interface{ OnPopState(func()) }); ok {
		p.OnPopState(func() { c.HandlePopState(context.Background()) })
	}
	c.mu.Lock()
	c.markCurrent()
	c.mu.Unlock()
	return c, nil
}

func newController(doc Document, region Region, stack history.Stack, f fetcher.Fetcher, cfg Config, opts []Option) *Controller {
	c := &Controller{
		doc:     doc,
		region:  region,
		store:   history.NewStore(stack),
		fetcher: f,
		cfg:     cfg.withDefaults(),
		logger:  slog.Default(),
		onError: func(string, error) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnNavigate registers fn for every completed navigation.
func (c *Controller) OnNavigate(fn func(Navigated)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Enabled reports whether a content region was found at startup.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Navigating reports whether a fetch is in flight.
func (c *Controller) Navigating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flight != nil
}

// Current returns the URL whose content is displayed.
func (c *Controller) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Location returns the history stack's active URL.
func (c *Controller) Location() string {
	return c.store.Location()
}

// LastOrdinal returns the ordinal of the entry the controller believes is
// active.
func (c *Controller) LastOrdinal() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOrdinal
}
