package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapnav/demosite"
	"swapnav/dom"
	"swapnav/fetcher"
	"swapnav/history"
	"swapnav/nav"
	"swapnav/render"
)

func newTestSession(t *testing.T) (*session, *bytes.Buffer, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(demosite.New("Demo", demosite.Pages, logger).Handler())
	t.Cleanup(srv.Close)

	f := fetcher.NewHTTP(srv.Client(), fetcher.DefaultOptions())
	res, err := f.Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	page, err := dom.ParseString(res.HTML)
	require.NoError(t, err)

	stack := history.NewMemoryStack(res.FinalURL)
	ctrl, err := nav.Attach(page, stack, f, nav.DefaultConfig(), nav.WithLogger(logger))
	require.NoError(t, err)

	var out bytes.Buffer
	return &session{
		ctrl:     ctrl,
		page:     page,
		stack:    stack,
		selector: `[role="main"]`,
		md:       render.NewMarkdown(),
		out:      &out,
		width:    60,
	}, &out, srv.URL
}

func TestSessionCommands(t *testing.T) {
	t.Parallel()

	s, out, base := newTestSession(t)
	ctx := context.Background()

	s.exec(ctx, "links")
	assert.Contains(t, out.String(), "about us")

	out.Reset()
	s.exec(ctx, "follow 1")
	assert.Equal(t, base+"/about", s.ctrl.Current())
	assert.Contains(t, out.String(), "# About")

	out.Reset()
	s.exec(ctx, "follow 2")
	assert.Contains(t, out.String(), "external link")

	s.exec(ctx, "open /contact")
	assert.Equal(t, base+"/contact", s.ctrl.Current())

	s.exec(ctx, "back")
	assert.Equal(t, base+"/about", s.ctrl.Current())

	out.Reset()
	s.exec(ctx, "history")
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "*"), "second entry active: %q", lines)

	out.Reset()
	s.exec(ctx, "follow 99")
	assert.Contains(t, out.String(), "no link 99")

	assert.False(t, s.exec(ctx, "bogus"), "unknown command should not end the session")
	assert.True(t, s.exec(ctx, "quit"))
}

func TestSessionLoopEndsOnEOF(t *testing.T) {
	t.Parallel()

	s, _, base := newTestSession(t)
	err := s.loop(context.Background(), strings.NewReader("open /about\nreload\n"))
	require.NoError(t, err)
	assert.Equal(t, base+"/about", s.ctrl.Current())
}
