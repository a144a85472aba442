// Package fetcher retrieves page HTML over plain HTTP or a headless browser.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result contains the fetched HTML and metadata.
type Result struct {
	HTML        string
	FinalURL    string // URL after following redirects
	Status      int
	UsedBrowser bool
	FetchTime   time.Duration
}

// Fetcher retrieves the HTML document at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Result, error)
}

// Options configures the fetcher behavior.
type Options struct {
	UserAgent      string
	TimeoutSeconds int
	ChromePath     string // Path to Chrome binary (empty = auto-detect)
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		UserAgent:      "swapnav/1.0",
		TimeoutSeconds: 30,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.UserAgent == "" {
		o.UserAgent = d.UserAgent
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = d.TimeoutSeconds
	}
	return o
}

// Timeout returns the configured timeout duration.
func (o Options) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// HTTPError reports a response whose status is not 2xx.
type HTTPError struct {
	URL    string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetching %s: status %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

// NetworkError reports a transport failure before a response was received.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTP fetches pages with a plain net/http client (fast, low bandwidth).
type HTTP struct {
	client *http.Client
	opts   Options
}

// NewHTTP creates an HTTP fetcher. A nil client gets one with the
// configured timeout.
func NewHTTP(client *http.Client, opts Options) *HTTP {
	opts = opts.withDefaults()
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout()}
	}
	return &HTTP{client: client, opts: opts}
}

// Fetch issues a GET for url. Non-2xx responses fail with *HTTPError and
// transport failures with *NetworkError. There are no retries.
func (f *HTTP) Fetch(ctx context.Context, url string) (*Result, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &HTTPError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("reading response: %w", err)}
	}

	return &Result{
		HTML:      string(body),
		FinalURL:  resp.Request.URL.String(),
		Status:    resp.StatusCode,
		FetchTime: time.Since(start),
	}, nil
}
