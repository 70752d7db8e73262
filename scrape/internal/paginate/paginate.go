// Package paginate implements the "load more" fetch loop that drives a
// browser session through successive timeline pages.
//
// The mirror has no reliable end-of-results signal, so inability to make
// progress (no cursor link, a page that adds nothing, a failed follow-up
// navigation) is a normal stopping condition and the engine returns
// whatever it accumulated. Only a failure to load the very first page is
// a hard error.
package paginate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/hazyhaar/gazouille/scrape/internal/extract"
)

// ErrNotReady is returned when the initial page loaded but its readiness
// probe rejected the markup (e.g. a profile page without a profile card).
var ErrNotReady = errors.New("paginate: page structure not ready")

// Navigator is the browser-session capability the engine drives. One
// Navigator belongs to exactly one Run at a time; it has a single
// navigable page and a single DOM.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) ([]byte, error)
}

// StopReason records why the accumulating loop ended. All reasons are
// terminal-success states.
type StopReason string

const (
	StopTarget   StopReason = "target_reached"
	StopNoCursor StopReason = "no_cursor"
	StopStalled  StopReason = "stalled"
	StopNavError StopReason = "navigation_error"
)

// Config configures an Engine.
type Config struct {
	// FirstSettle is the wait after the initial navigation. Front-loaded
	// and longer than later pages to cover first paint and client-side
	// rendering. Default: 5s; negative disables the wait.
	FirstSettle time.Duration
	// NextSettle is the wait after each cursor navigation. Default: 3s;
	// negative disables the wait.
	NextSettle time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.FirstSettle == 0 {
		c.FirstSettle = 5 * time.Second
	}
	if c.NextSettle == 0 {
		c.NextSettle = 3 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Result is what one Run accumulated.
type Result struct {
	// Items is the outer HTML of every timeline item seen, in fetch order.
	// May overshoot the target by up to one page: the target is only
	// checked between pages.
	Items []string
	// FirstPage is the full markup of the initial page, which carries
	// page chrome (profile card, photo rail) absent from Items.
	FirstPage []byte
	// Pages is the number of pages that contributed items. Starts at 1.
	Pages int
	Stop  StopReason
}

// Engine runs the pagination loop against one Navigator.
type Engine struct {
	nav Navigator
	cfg Config
}

// New creates an Engine.
func New(nav Navigator, cfg Config) *Engine {
	cfg.defaults()
	return &Engine{nav: nav, cfg: cfg}
}

// Run loads startURL and follows cursor links until target items have
// accumulated or the loop hits a terminal condition. The optional ready
// probe is applied to the initial markup; rejection is a hard failure
// (ErrNotReady). The initial navigation gets a single retry on transport
// failure; content-level absences are never retried.
func (e *Engine) Run(ctx context.Context, startURL string, target int, ready func([]byte) bool) (*Result, error) {
	log := e.cfg.Logger

	if err := e.nav.Navigate(ctx, startURL); err != nil {
		log.Warn("paginate: initial navigation failed, retrying once", "url", startURL, "error", err)
		if err := e.nav.Navigate(ctx, startURL); err != nil {
			return nil, fmt.Errorf("paginate: initial load %s: %w", startURL, err)
		}
	}
	if err := e.settle(ctx, e.cfg.FirstSettle); err != nil {
		return nil, fmt.Errorf("paginate: initial settle: %w", err)
	}
	markup, err := e.nav.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("paginate: initial capture: %w", err)
	}
	if ready != nil && !ready(markup) {
		return nil, ErrNotReady
	}

	res := &Result{
		Items:     extract.TimelineItems(markup),
		FirstPage: markup,
		Pages:     1,
	}
	current, _ := url.Parse(startURL)
	log.Debug("paginate: initial page loaded", "url", startURL, "items", len(res.Items))

	for len(res.Items) < target {
		next := extract.CursorURL(markup, current)
		if next == "" {
			res.Stop = StopNoCursor
			log.Debug("paginate: no cursor link, stopping", "items", len(res.Items))
			return res, nil
		}

		if err := e.nav.Navigate(ctx, next); err != nil {
			res.Stop = StopNavError
			log.Warn("paginate: cursor navigation failed, keeping accumulated items",
				"url", next, "items", len(res.Items), "error", err)
			return res, nil
		}
		if err := e.settle(ctx, e.cfg.NextSettle); err != nil {
			res.Stop = StopNavError
			return res, nil
		}
		markup, err = e.nav.HTML(ctx)
		if err != nil {
			res.Stop = StopNavError
			log.Warn("paginate: capture failed, keeping accumulated items",
				"url", next, "items", len(res.Items), "error", err)
			return res, nil
		}
		if u, perr := url.Parse(next); perr == nil {
			current = u
		}

		before := len(res.Items)
		res.Items = append(res.Items, extract.TimelineItems(markup)...)
		if len(res.Items) <= before {
			res.Stop = StopStalled
			log.Debug("paginate: page added nothing, stopping", "items", len(res.Items))
			return res, nil
		}
		res.Pages++
		log.Debug("paginate: page loaded", "page", res.Pages, "items", len(res.Items))
	}

	res.Stop = StopTarget
	return res, nil
}

// settle waits for client-side rendering, honouring ctx cancellation.
func (e *Engine) settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
