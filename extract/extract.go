// Package extract locates the content region inside a fetched page.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/microcosm-cc/bluemonday"
)

// Content is the part of a fetched page that gets swapped in.
type Content struct {
	Markup string // inner markup of the matched region
	Title  string
}

// ContentNotFoundError reports a page that has no element matching the
// content selector.
type ContentNotFoundError struct {
	Selector string
}

func (e *ContentNotFoundError) Error() string {
	return fmt.Sprintf("no element matches content selector %q", e.Selector)
}

// Extractor pulls the content region out of raw HTML.
type Extractor struct {
	Selector string
	// Policy, when set, sanitizes the extracted markup.
	Policy *bluemonday.Policy

	sel cascadia.Selector
}

// New compiles selector and returns an Extractor for it.
func New(selector string, policy *bluemonday.Policy) (*Extractor, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("compiling content selector %q: %w", selector, err)
	}
	return &Extractor{Selector: selector, Policy: policy, sel: sel}, nil
}

// Extract parses raw and returns the inner markup of the first element
// matching the selector along with the document title.
func (e *Extractor) Extract(raw string) (*Content, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	region := doc.FindMatcher(e.sel).First()
	if region.Length() == 0 {
		return nil, &ContentNotFoundError{Selector: e.Selector}
	}

	markup, err := region.Html()
	if err != nil {
		return nil, fmt.Errorf("serializing content region: %w", err)
	}
	if e.Policy != nil {
		markup = e.Policy.Sanitize(markup)
	}

	return &Content{
		Markup: markup,
		Title:  strings.TrimSpace(doc.Find("head title").First().Text()),
	}, nil
}

// DefaultPolicy is the sanitizing policy used when content sanitizing is
// enabled: user-generated-content rules plus the attributes static site
// generators rely on for styling and accessibility.
func DefaultPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id", "class", "role").Globally()
	p.AllowDataAttributes()
	p.AllowAttrs("aria-label", "aria-hidden", "aria-current", "aria-describedby").Globally()
	return p
}
