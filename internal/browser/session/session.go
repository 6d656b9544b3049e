// internal/browser/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagestudy/internal/browser/dom"
	"github.com/xkilldash9x/pagestudy/internal/config"
	"github.com/xkilldash9x/pagestudy/internal/locator"
	"github.com/xkilldash9x/pagestudy/internal/study"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session is closed")

// Session drives one Chrome tab over the DevTools protocol. It supplies the
// live markup a study.Cache studies and answers visibility queries the cache
// cannot.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    config.BrowserConfig

	mu     sync.Mutex
	closed bool
}

var _ dom.PagePrimitives = (*Session)(nil)

// NewSession launches a browser according to cfg and opens a tab in it. The
// browser lives until Close is called or parentCtx is canceled.
func NewSession(parentCtx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sessionID := uuid.New().String()
	log := logger.Named("session").With(zap.String("session_id", sessionID))

	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, allocatorOptions(cfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Sugar().Debugf),
		chromedp.WithErrorf(log.Sugar().Debugf),
	)
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	// Running no actions starts the browser and attaches the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	log.Debug("Browser session started.", zap.Bool("headless", cfg.Headless))
	return &Session{
		id:     sessionID,
		ctx:    tabCtx,
		cancel: cancel,
		logger: log,
		cfg:    cfg,
	}, nil
}

// allocatorOptions builds the exec allocator flags for cfg.
func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	for _, arg := range cfg.Args {
		if name, value, ok := parseFlag(arg); ok {
			opts = append(opts, chromedp.Flag(name, value))
		}
	}
	return opts
}

// parseFlag turns a command line switch such as "--no-sandbox" or
// "--lang=en-US" into a chromedp flag. A switch without a value is true.
func parseFlag(arg string) (string, interface{}, bool) {
	arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
	if arg == "" {
		return "", nil, false
	}
	name, value, found := strings.Cut(arg, "=")
	if !found {
		return name, true, true
	}
	return name, value, true
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// run executes actions in the tab, bounded by both ctx and the session.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads targetURL and waits for the document to be ready.
func (s *Session) Navigate(ctx context.Context, targetURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	s.logger.Debug("Navigating.", zap.String("url", targetURL))
	if err := s.run(navCtx, chromedp.Navigate(targetURL), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", targetURL, err)
	}
	return nil
}

// GetDOMSnapshot returns the serialized markup of the current document.
func (s *Session) GetDOMSnapshot(ctx context.Context) (io.Reader, error) {
	snapCtx, cancel := context.WithTimeout(ctx, s.cfg.SnapshotTimeout)
	defer cancel()

	var markup string
	if err := s.run(snapCtx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("failed to capture DOM snapshot: %w", err)
	}
	return strings.NewReader(markup), nil
}

// Refresher binds GetDOMSnapshot to ctx for use with study.Cache.BeginSection.
func (s *Session) Refresher(ctx context.Context) study.RefreshFunc {
	return func() (io.Reader, error) {
		return s.GetDOMSnapshot(ctx)
	}
}

// Study captures the current document into cache.
func (s *Session) Study(ctx context.Context, cache *study.Cache, keepClean bool) error {
	content, err := s.GetDOMSnapshot(ctx)
	if err != nil {
		return err
	}
	return cache.Study(content, keepClean)
}

// CountMatches reports how many elements the locator selects in the live
// page without waiting for any to appear. A dom= locator counts at most one.
func (s *Session) CountMatches(ctx context.Context, raw string) (int, error) {
	plan := queryPlan(locator.Parse(raw))
	if len(plan) == 0 {
		return 0, fmt.Errorf("locator %q has no live query", raw)
	}

	for _, c := range plan {
		n, err := s.count(ctx, c)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return n, nil
		}
	}
	return 0, nil
}

func (s *Session) count(ctx context.Context, c candidate) (int, error) {
	if c.mode == modeScript {
		var present bool
		if err := s.run(ctx, chromedp.Evaluate(presenceScript(c.selector), &present)); err != nil {
			return 0, fmt.Errorf("failed to evaluate %q: %w", c.selector, err)
		}
		if present {
			return 1, nil
		}
		return 0, nil
	}

	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(c.selector, &nodes, c.option(), chromedp.AtLeast(0))); err != nil {
		return 0, fmt.Errorf("failed to query %q: %w", c.selector, err)
	}
	return len(nodes), nil
}

// IsVisible reports whether the element the locator selects is rendered,
// waiting up to the configured visibility timeout. Errors count as not
// visible.
func (s *Session) IsVisible(ctx context.Context, raw string) bool {
	visCtx, cancel := context.WithTimeout(ctx, s.cfg.VisibilityTimeout)
	defer cancel()

	for _, c := range queryPlan(locator.Parse(raw)) {
		if c.mode == modeScript {
			var visible bool
			if err := s.run(visCtx, chromedp.Evaluate(visibilityScript(c.selector), &visible)); err != nil {
				s.logger.Debug("Visibility script failed.", zap.String("locator", raw), zap.Error(err))
				return false
			}
			return visible
		}

		// Only wait on the first candidate that exists.
		n, err := s.count(visCtx, c)
		if err != nil {
			s.logger.Debug("Visibility query failed.", zap.String("locator", raw), zap.Error(err))
			return false
		}
		if n == 0 {
			continue
		}
		if err := s.run(visCtx, chromedp.WaitVisible(c.selector, c.option())); err != nil {
			s.logger.Debug("Element did not become visible.",
				zap.String("locator", raw), zap.Stringer("mode", c.mode), zap.Error(err))
			return false
		}
		return true
	}
	return false
}

// Close shuts the tab and the browser. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	s.logger.Debug("Browser session closed.")
	return nil
}
