// Package links classifies clicked anchors as same-origin or external.
package links

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Kind identifies how a link should be treated.
type Kind int

const (
	// Internal links share the current document's host and are intercepted.
	Internal Kind = iota
	// External links point at another host and open in a new tab.
	External
	// Fragment links only change the fragment of the current document.
	Fragment
)

func (k Kind) String() string {
	switch k {
	case Internal:
		return "internal"
	case External:
		return "external"
	case Fragment:
		return "fragment"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Result is the outcome of classifying a link.
type Result struct {
	Kind Kind
	URL  *url.URL // href resolved against the base
}

// Classify resolves href against base and decides how it should be handled.
// Same-origin means the hosts (host:port, default ports dropped) are equal;
// scheme, path and query are not considered.
func Classify(base *url.URL, href string) (Result, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return Result{}, fmt.Errorf("parsing href %q: %w", href, err)
	}
	target := base.ResolveReference(ref)

	if !strings.EqualFold(host(target), host(base)) {
		return Result{Kind: External, URL: target}, nil
	}
	if target.Fragment != "" && sameDocument(base, target) {
		return Result{Kind: Fragment, URL: target}, nil
	}
	return Result{Kind: Internal, URL: target}, nil
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
}

// host returns u's host the way location.host shows it: the port is left
// out when it is the scheme's default.
func host(u *url.URL) string {
	port := u.Port()
	if port == "" || port == defaultPorts[strings.ToLower(u.Scheme)] {
		h := u.Hostname()
		if strings.Contains(h, ":") {
			return "[" + h + "]"
		}
		return h
	}
	return u.Host
}

// sameDocument reports whether a and b differ only by fragment.
func sameDocument(a, b *url.URL) bool {
	return a.Scheme == b.Scheme &&
		a.EscapedPath() == b.EscapedPath() &&
		a.RawQuery == b.RawQuery
}

// Harden makes an external anchor open in a new tab without a reference
// back to the opening page. It reads and writes the anchor's attributes, so
// callers sharing the tree must hold its lock (dom.Page.Edit).
func Harden(anchor *html.Node) {
	setAttr(anchor, "target", "_blank")

	rel := strings.Fields(getAttr(anchor, "rel"))
	for _, want := range []string{"noopener", "noreferrer"} {
		if !containsFold(rel, want) {
			rel = append(rel, want)
		}
	}
	setAttr(anchor, "rel", strings.Join(rel, " "))
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
