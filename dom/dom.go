// Package dom holds the live page a navigation controller mutates: an HTML
// tree with a title, a scroll position, and document-level events.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoContentRegion is returned when the page has no element matching the
// content selector.
var ErrNoContentRegion = errors.New("dom: no content region")

// Event is dispatched on the page for external listeners.
type Event struct {
	Type   string
	Detail any
}

// Page is a parsed HTML document that stays live across navigations.
type Page struct {
	mu        sync.Mutex
	root      *html.Node
	scrollX   float64
	scrollY   float64
	listeners []func(Event)
	pending   map[*html.Node]savedStyle
}

// savedStyle is the style attribute a region had before it went pending.
type savedStyle struct {
	val string
	ok  bool
}

// Parse reads an HTML document into a Page.
func Parse(r io.Reader) (*Page, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	return &Page{root: root}, nil
}

// ParseString is Parse for an in-memory document.
func ParseString(s string) (*Page, error) {
	return Parse(strings.NewReader(s))
}

// QueryAll returns every element matching selector in document order.
func (p *Page) QueryAll(selector string) ([]*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("compiling selector %q: %w", selector, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return sel.MatchAll(p.root), nil
}

// Query returns the first element matching selector, or nil.
func (p *Page) Query(selector string) (*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("compiling selector %q: %w", selector, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return sel.MatchFirst(p.root), nil
}

// Region returns the content region matched by selector.
func (p *Page) Region(selector string) (*Region, error) {
	n, err := p.Query(selector)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNoContentRegion
	}
	return &Region{page: p, node: n}, nil
}

// Title returns the text of the document's <title>.
func (p *Page) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := findElement(p.root, atom.Title)
	if t == nil {
		return ""
	}
	return strings.TrimSpace(Text(t))
}

// SetTitle replaces the document title, creating <title> if needed.
func (p *Page) SetTitle(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := findElement(p.root, atom.Title)
	if t == nil {
		head := findElement(p.root, atom.Head)
		if head == nil {
			return
		}
		t = &html.Node{Type: html.ElementNode, DataAtom: atom.Title, Data: "title"}
		head.AppendChild(t)
	}
	removeChildren(t)
	t.AppendChild(&html.Node{Type: html.TextNode, Data: title})
}

// ScrollOffset returns the viewport's scroll coordinates.
func (p *Page) ScrollOffset() (x, y float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrollX, p.scrollY
}

// ScrollTo moves the viewport.
func (p *Page) ScrollTo(x, y float64) {
	p.mu.Lock()
	p.scrollX, p.scrollY = x, y
	p.mu.Unlock()
}

// AddEventListener registers fn for every dispatched event.
func (p *Page) AddEventListener(fn func(Event)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// Dispatch delivers ev to all listeners. Listeners run on the caller's
// goroutine, outside the page lock.
func (p *Page) Dispatch(ev Event) {
	p.mu.Lock()
	listeners := append([]func(Event){}, p.listeners...)
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// Edit runs fn with exclusive access to the tree. Reading or changing node
// attributes while other goroutines use the page must happen inside fn.
// fn must not call other Page or Region methods.
func (p *Page) Edit(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn()
}

// Attr is the locked form of the package-level Attr.
func (p *Page) Attr(n *html.Node, key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Attr(n, key)
}

// HTML serializes the whole document.
func (p *Page) HTML() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var buf bytes.Buffer
	_ = html.Render(&buf, p.root)
	return buf.String()
}

// Region is the single subtree whose inner markup is swapped on navigation.
// The element itself is never replaced.
type Region struct {
	page *Page
	node *html.Node
}

// Node returns the region's element.
func (r *Region) Node() *html.Node { return r.node }

// InnerHTML serializes the region's children.
func (r *Region) InnerHTML() string {
	r.page.mu.Lock()
	defer r.page.mu.Unlock()
	return innerHTML(r.node)
}

// SetInnerHTML replaces the region's children with the parsed markup.
func (r *Region) SetInnerHTML(markup string) error {
	r.page.mu.Lock()
	defer r.page.mu.Unlock()
	nodes, err := html.ParseFragment(strings.NewReader(markup), r.node)
	if err != nil {
		return fmt.Errorf("parsing content markup: %w", err)
	}
	removeChildren(r.node)
	for _, n := range nodes {
		r.node.AppendChild(n)
	}
	return nil
}

// SetPending toggles the in-flight indicator: reduced opacity and
// aria-busy on the region element.
func (r *Region) SetPending(on bool) {
	p := r.page
	p.mu.Lock()
	defer p.mu.Unlock()
	saved, pending := p.pending[r.node]
	if on == pending {
		return
	}

	if on {
		val, ok := Attr(r.node, "style")
		if p.pending == nil {
			p.pending = make(map[*html.Node]savedStyle)
		}
		p.pending[r.node] = savedStyle{val: val, ok: ok}

		style := strings.TrimSpace(val)
		if style != "" && !strings.HasSuffix(style, ";") {
			style += ";"
		}
		if style != "" {
			style += " "
		}
		SetAttr(r.node, "style", style+"opacity: 0.5;")
		SetAttr(r.node, "aria-busy", "true")
		return
	}

	delete(p.pending, r.node)
	if saved.ok {
		SetAttr(r.node, "style", saved.val)
	} else {
		RemoveAttr(r.node, "style")
	}
	RemoveAttr(r.node, "aria-busy")
}

// Pending reports whether the in-flight indicator is shown.
func (r *Region) Pending() bool {
	r.page.mu.Lock()
	defer r.page.mu.Unlock()
	_, ok := r.page.pending[r.node]
	return ok
}

func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

func removeChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

// findElement finds the first element with the given atom.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
