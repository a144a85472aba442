package nav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"swapnav/dom"
	"swapnav/extract"
	"swapnav/fetcher"
	"swapnav/history"
	"swapnav/links"
)

// Navigate loads target into the content region. With push set a new
// history entry is added and the viewport scrolls to the top. Replaying the
// URL that is already displayed without push does nothing. Failures leave
// the page and history untouched and are reported only to the error
// handler and the log.
func (c *Controller) Navigate(ctx context.Context, target string, push bool) {
	m := modeReplay
	if push {
		m = modePush
	}
	c.navigate(ctx, target, m)
}

// Reload re-fetches the displayed URL and refreshes the active entry's
// cached content.
func (c *Controller) Reload(ctx context.Context) {
	c.navigate(ctx, c.Current(), modeReload)
}

func (c *Controller) navigate(ctx context.Context, target string, m mode) {
	f := c.begin(ctx, target, m)
	if f == nil {
		return
	}
	defer f.cancel()

	logger := c.logger.With("nav_id", f.id.String(), "url", target, "push", m == modePush)
	logger.Debug("navigation started")

	content, err := c.load(f.ctx, target)
	ev, err := c.commit(f, target, m, content, err, logger)
	if err != nil {
		c.fail(target, err, logger)
	}
	if ev != nil {
		c.emit(*ev)
	}
}

// begin claims the in-flight slot for target. It returns nil when the
// request is dropped.
func (c *Controller) begin(ctx context.Context, target string, m mode) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return nil
	}
	if m == modeReplay && target == c.current {
		return nil
	}
	if c.flight != nil {
		if c.flight.url == target {
			c.logger.Debug("navigation already in flight", "url", target)
			return nil
		}
		c.logger.Debug("superseding navigation", "url", c.flight.url, "by", target)
		c.flight.cancel()
	}

	fctx, cancel := context.WithCancel(ctx)
	c.flight = &flight{id: uuid.New(), url: target, ctx: fctx, cancel: cancel}
	c.region.SetPending(true)
	return c.flight
}

func (c *Controller) load(ctx context.Context, target string) (*extract.Content, error) {
	res, err := c.fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	return c.extractor.Extract(res.HTML)
}

// commit applies a finished load. A superseded flight writes nothing and
// returns (nil, nil). When the content was swapped but no history entry
// could be pushed, both the event (with PushState false) and the error are
// returned.
func (c *Controller) commit(f *flight, target string, m mode, content *extract.Content, loadErr error, logger *slog.Logger) (*Navigated, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.flight != f {
		logger.Debug("navigation superseded")
		return nil, nil
	}
	c.flight = nil
	c.region.SetPending(false)

	if loadErr != nil {
		return nil, loadErr
	}
	if err := c.region.SetInnerHTML(content.Markup); err != nil {
		return nil, err
	}
	c.doc.SetTitle(content.Title)
	c.current = target

	var pushed bool
	var pushErr error
	switch m {
	case modePush:
		c.saveScroll(logger)
		markup := content.Markup
		entry := history.Entry{
			Location: target,
			Title:    content.Title,
			Content:  &markup,
			Ordinal:  c.lastOrdinal + 1,
		}
		pushErr = c.store.Push(entry)
		if pushErr != nil {
			// Traversal back to an entry without content refetches it.
			logger.Warn("history rejected cached content, pushing without it", "error", pushErr)
			entry.Content = nil
			pushErr = c.store.Push(entry)
		}
		if pushErr == nil {
			c.lastOrdinal = entry.Ordinal
			pushed = true
		}
		c.doc.ScrollTo(0, 0)
	case modeReload:
		c.refreshActive(content, logger)
	}

	c.markCurrent()
	logger.Info("navigated", "title", content.Title, "ordinal", c.lastOrdinal, "pushed", pushed)
	return &Navigated{URL: target, PushState: pushed}, pushErr
}

// saveScroll records the live scroll offset on the active entry before a
// new one is pushed over it.
func (c *Controller) saveScroll(logger *slog.Logger) {
	active, err := c.store.Active()
	if err != nil || active == nil {
		return
	}
	x, y := c.doc.ScrollOffset()
	active.Scroll = history.Offset{X: x, Y: y}
	if err := c.store.ReplaceCurrent(*active); err != nil {
		logger.Warn("saving scroll position", "error", err)
	}
}

func (c *Controller) refreshActive(content *extract.Content, logger *slog.Logger) {
	active, err := c.store.Active()
	if err != nil || active == nil {
		return
	}
	markup := content.Markup
	active.Content = &markup
	active.Title = content.Title
	if err := c.store.ReplaceCurrent(*active); err != nil {
		logger.Warn("refreshing history entry", "error", err)
	}
}

func (c *Controller) fail(target string, err error, logger *slog.Logger) {
	logger.Warn("navigation failed", "kind", errorKind(err), "error", err)
	c.onError(target, err)
}

func errorKind(err error) string {
	var httpErr *fetcher.HTTPError
	var netErr *fetcher.NetworkError
	var notFound *extract.ContentNotFoundError
	switch {
	case errors.As(err, &httpErr):
		return "http"
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &notFound):
		return "content_not_found"
	case errors.Is(err, history.ErrStateTooLarge):
		return "history"
	}
	return "other"
}

// Traverse makes entry, the record the history stack surfaced, the
// displayed page. Cached content is restored without fetching; a nil entry
// or one without content falls back to a live fetch.
func (c *Controller) Traverse(ctx context.Context, entry *history.Entry) {
	if entry == nil {
		c.Navigate(ctx, c.store.Location(), false)
		return
	}

	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return
	}
	c.lastOrdinal = entry.Ordinal
	if !entry.HasContent() {
		c.mu.Unlock()
		c.Navigate(ctx, entry.Location, false)
		return
	}

	if c.flight != nil {
		c.logger.Debug("superseding navigation", "url", c.flight.url, "by", entry.Location)
		c.flight.cancel()
		c.flight = nil
	}
	c.region.SetPending(false)
	if err := c.region.SetInnerHTML(*entry.Content); err != nil {
		c.mu.Unlock()
		c.fail(entry.Location, fmt.Errorf("restoring cached content: %w", err), c.logger)
		return
	}
	c.doc.SetTitle(entry.Title)
	c.doc.ScrollTo(entry.Scroll.X, entry.Scroll.Y)
	c.current = entry.Location
	c.markCurrent()
	c.mu.Unlock()

	c.logger.Info("restored from history", "url", entry.Location, "ordinal", entry.Ordinal)
	c.emit(Navigated{URL: entry.Location, PushState: false})
}

// HandlePopState reads the active record after a history traversal and
// hands it to Traverse. An unreadable record is treated as absent.
func (c *Controller) HandlePopState(ctx context.Context) {
	entry, err := c.store.Active()
	if err != nil {
		c.logger.Warn("reading history entry", "url", c.store.Location(), "error", err)
		c.onError(c.store.Location(), err)
		entry = nil
	}
	c.Traverse(ctx, entry)
}

// HandleClick intercepts clicks on same-origin anchors. External anchors
// are hardened to open in a new tab and otherwise left to the host, as are
// fragment links, modified clicks, and download links.
func (c *Controller) HandleClick(ctx context.Context, ev *dom.ClickEvent) {
	if ev == nil || ev.DefaultPrevented() || ev.Modified() || !c.Enabled() {
		return
	}
	var anchor *html.Node
	var href string
	c.doc.Edit(func() {
		anchor = dom.ClosestAnchor(ev.Target)
		if anchor == nil {
			return
		}
		if _, ok := dom.Attr(anchor, "download"); ok {
			anchor = nil
			return
		}
		href, _ = dom.Attr(anchor, "href")
	})
	if anchor == nil {
		return
	}

	base, err := url.Parse(c.store.Location())
	if err != nil {
		c.logger.Debug("unparseable location", "url", c.store.Location(), "error", err)
		return
	}
	res, err := links.Classify(base, href)
	if err != nil {
		c.logger.Debug("unparseable link", "href", href, "error", err)
		return
	}

	switch res.Kind {
	case links.Internal:
		ev.PreventDefault()
		c.Navigate(ctx, res.URL.String(), true)
	case links.External:
		c.doc.Edit(func() { links.Harden(anchor) })
	}
}

// markCurrent flags anchors in the navigation regions that point at the
// displayed page with aria-current="page". Callers hold c.mu.
func (c *Controller) markCurrent() {
	if c.cfg.NavigationSelector == "" {
		return
	}
	regions, err := c.doc.QueryAll(c.cfg.NavigationSelector)
	if err != nil {
		c.logger.Debug("querying navigation regions", "error", err)
		return
	}
	base, err := url.Parse(c.current)
	if err != nil {
		return
	}
	current := withoutFragment(base)
	c.doc.Edit(func() {
		for _, region := range regions {
			for _, a := range dom.Anchors(region) {
				href, _ := dom.Attr(a, "href")
				res, err := links.Classify(base, href)
				if err == nil && res.Kind != links.External && withoutFragment(res.URL) == current {
					dom.SetAttr(a, "aria-current", "page")
				} else {
					dom.RemoveAttr(a, "aria-current")
				}
			}
		}
	})
}

func withoutFragment(u *url.URL) string {
	v := *u
	v.Fragment, v.RawFragment = "", ""
	return v.String()
}

// emit announces a completed navigation on the document, to OnNavigate
// listeners, and to navigation hooks. Called without c.mu held.
func (c *Controller) emit(ev Navigated) {
	c.doc.Dispatch(dom.Event{Type: EventNavigated, Detail: ev})

	c.mu.Lock()
	listeners := append([]func(Navigated){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}

	if len(c.navHooks) == 0 || c.cfg.NavigationSelector == "" {
		return
	}
	regions, err := c.doc.QueryAll(c.cfg.NavigationSelector)
	if err != nil {
		return
	}
	for _, hook := range c.navHooks {
		hook(regions)
	}
}
