package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Browser fetches pages through headless Chrome so script-rendered markup
// is captured. Slower than HTTP; useful for sites that build their content
// region client-side.
type Browser struct {
	opts Options
}

// NewBrowser creates a headless Chrome fetcher.
func NewBrowser(opts Options) *Browser {
	return &Browser{opts: opts.withDefaults()}
}

// userDataDir returns a persistent directory for Chrome user data.
func userDataDir() string {
	dir, _ := os.UserCacheDir()
	return filepath.Join(dir, "swapnav-chrome-profile")
}

// Fetch navigates headless Chrome to url and returns the rendered document.
// The status of the main document response decides success the same way
// HTTP.Fetch does.
func (b *Browser) Fetch(ctx context.Context, url string) (*Result, error) {
	start := time.Now()

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.opts.UserAgent),
		chromedp.UserDataDir(userDataDir()),
	}
	if b.opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.opts.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	// Browser fetches get extra time on top of the configured timeout.
	runCtx, cancel := context.WithTimeout(allocCtx, b.opts.Timeout()+15*time.Second)
	defer cancel()

	runCtx, cancel = chromedp.NewContext(runCtx)
	defer cancel()

	var (
		mu     sync.Mutex
		status int
	)
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		mu.Lock()
		if status == 0 {
			status = int(resp.Response.Status)
		}
		mu.Unlock()
	})

	var html, finalURL string
	err := chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("browser fetch: %w", err)}
	}

	mu.Lock()
	code := status
	mu.Unlock()
	if code != 0 && (code < 200 || code > 299) {
		return nil, &HTTPError{URL: url, Status: code}
	}

	return &Result{
		HTML:        html,
		FinalURL:    finalURL,
		Status:      code,
		UsedBrowser: true,
		FetchTime:   time.Since(start),
	}, nil
}
