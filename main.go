// Swapnav browses a static site from the terminal by swapping the main
// content region of the first page it loads, the way the in-page navigation
// controller does in a browser.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	neturl "net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/go-json-experiment/json"
	"golang.org/x/net/html"

	"swapnav/config"
	"swapnav/dom"
	"swapnav/fetcher"
	"swapnav/history"
	"swapnav/nav"
	"swapnav/render"
)

func main() {
	url := ""
	cfgPath := ""
	events := false
	initConfig := false

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "-c", "--config":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "error: -c needs a path")
				os.Exit(2)
			}
			i++
			cfgPath = args[i]
		case "--events":
			events = true
		case "--init-config":
			initConfig = true
		case "-h", "--help":
			printUsage()
			return
		default:
			if url == "" {
				url = arg
			}
		}
	}

	// Generate default config and exit
	if initConfig {
		fmt.Print(config.DefaultTOML())
		return
	}

	if url == "" {
		printUsage()
		os.Exit(2)
	}

	if err := run(url, cfgPath, events); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Swapnav - in-page navigation for static sites

Usage: swapnav [options] <url>

Options:
  -c, --config PATH  Config file (TOML or YAML)
  --events           Print a JSON line for every completed navigation
  --init-config      Output default config (redirect to ~/.config/swapnav/config.toml)
  -h, --help         Show this help

Examples:
  swapnav http://127.0.0.1:8080/
  swapnav --events -c site.yaml https://example.com/docs/
  swapnav --init-config > ~/.config/swapnav/config.toml`)
}

func run(startURL, cfgPath string, events bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	var f fetcher.Fetcher
	if cfg.Fetcher.UseBrowser {
		f = fetcher.NewBrowser(cfg.FetcherOptions())
	} else {
		f = fetcher.NewHTTP(nil, cfg.FetcherOptions())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res, err := f.Fetch(ctx, startURL)
	if err != nil {
		return fmt.Errorf("loading %s: %w", startURL, err)
	}
	page, err := dom.ParseString(res.HTML)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", res.FinalURL, err)
	}
	logger.Debug("loaded start page", "url", res.FinalURL, "status", res.Status, "browser", res.UsedBrowser, "time", res.FetchTime)

	stack := history.NewMemoryStack(res.FinalURL)
	ctrl, err := nav.Attach(page, stack, f, cfg.Nav(),
		nav.WithLogger(logger),
		nav.WithErrorHandler(func(url string, err error) {
			fmt.Fprintf(os.Stderr, "navigation to %s failed: %v\n", url, err)
		}))
	if err != nil {
		return err
	}
	if !ctrl.Enabled() {
		fmt.Fprintf(os.Stderr, "no content region matches %q; links will not be followed\n", cfg.Content.MainSelector)
	}

	if events {
		ctrl.OnNavigate(func(ev nav.Navigated) {
			b, err := json.Marshal(ev)
			if err != nil {
				logger.Warn("encoding event", "error", err)
				return
			}
			fmt.Fprintln(os.Stdout, string(b))
		})
	}

	s := &session{
		ctrl:     ctrl,
		page:     page,
		stack:    stack,
		selector: cfg.Content.MainSelector,
		md:       render.NewMarkdown(),
		out:      os.Stdout,
		width:    render.Width(os.Stdout),
	}
	s.show()
	return s.loop(ctx, os.Stdin)
}

// session holds the state of one interactive browsing session.
type session struct {
	ctrl     *nav.Controller
	page     *dom.Page
	stack    *history.MemoryStack
	selector string
	md       *render.Markdown
	out      io.Writer
	width    int
}

func (s *session) loop(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		fmt.Fprint(s.out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if s.exec(ctx, line) {
				return nil
			}
		}
	}
}

// exec runs one command and reports whether the session should end.
func (s *session) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch cmd, args := fields[0], fields[1:]; cmd {
	case "links", "l":
		s.links()
	case "follow", "f":
		if len(args) != 1 {
			fmt.Fprintln(s.out, "usage: follow N")
			return false
		}
		s.follow(ctx, args[0])
	case "open", "o":
		if len(args) != 1 {
			fmt.Fprintln(s.out, "usage: open URL")
			return false
		}
		s.ctrl.Navigate(ctx, s.resolve(args[0]), true)
		s.show()
	case "back", "b":
		if !s.stack.Back() {
			fmt.Fprintln(s.out, "no previous page")
			return false
		}
		s.show()
	case "forward":
		if !s.stack.Forward() {
			fmt.Fprintln(s.out, "no next page")
			return false
		}
		s.show()
	case "show", "s":
		s.show()
	case "history", "h":
		for i, u := range s.stack.URLs() {
			marker := " "
			if i == s.stack.Index() {
				marker = "*"
			}
			fmt.Fprintf(s.out, "%s %d  %s\n", marker, i, u)
		}
	case "reload", "r":
		s.ctrl.Reload(ctx)
		s.show()
	case "help", "?":
		fmt.Fprintln(s.out, `links          list links in the content region
follow N       click link N
open URL       navigate to URL
back, forward  traverse history
show           print the content region
history        list history entries
reload         refetch the current page
quit           exit`)
	case "quit", "q", "exit":
		return true
	default:
		fmt.Fprintf(s.out, "unknown command %q (try help)\n", cmd)
	}
	return false
}

func (s *session) region() *dom.Region {
	r, err := s.page.Region(s.selector)
	if err != nil {
		return nil
	}
	return r
}

func (s *session) links() {
	r := s.region()
	if r == nil {
		fmt.Fprintln(s.out, "no content region")
		return
	}
	s.page.Edit(func() {
		for i, a := range dom.Anchors(r.Node()) {
			href, _ := dom.Attr(a, "href")
			fmt.Fprintf(s.out, "%3d  %s%s%s  %s%s%s\n", i+1, render.Bold, dom.Text(a), render.Reset, render.Dim, href, render.Reset)
		}
	})
}

func (s *session) follow(ctx context.Context, arg string) {
	n, err := strconv.Atoi(arg)
	r := s.region()
	if err != nil || r == nil {
		fmt.Fprintf(s.out, "no link %s\n", arg)
		return
	}
	var anchors []*html.Node
	s.page.Edit(func() { anchors = dom.Anchors(r.Node()) })
	if n < 1 || n > len(anchors) {
		fmt.Fprintf(s.out, "no link %d (have %d)\n", n, len(anchors))
		return
	}

	a := anchors[n-1]
	ev := &dom.ClickEvent{Target: a}
	s.ctrl.HandleClick(ctx, ev)
	if !ev.DefaultPrevented() {
		href, _ := s.page.Attr(a, "href")
		if target, _ := s.page.Attr(a, "target"); target == "_blank" {
			fmt.Fprintf(s.out, "external link, open in a browser: %s\n", href)
		} else {
			fmt.Fprintf(s.out, "link not followed: %s\n", href)
		}
		return
	}
	s.show()
}

func (s *session) resolve(ref string) string {
	base, err := neturl.Parse(s.ctrl.Current())
	if err != nil {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

func (s *session) show() {
	r := s.region()
	if r == nil {
		return
	}
	md, err := s.md.Convert(r.InnerHTML(), s.ctrl.Current())
	if err != nil {
		fmt.Fprintf(s.out, "rendering: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "\n%s%s%s\n%s%s%s\n\n", render.Bold, s.page.Title(), render.Reset, render.Dim, s.ctrl.Current(), render.Reset)
	for _, line := range render.Wrap(md, s.width) {
		fmt.Fprintln(s.out, line)
	}
	fmt.Fprintln(s.out)
}
