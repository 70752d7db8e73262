package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// Tab is one exclusive browser session: a single navigable page driven by
// exactly one scrape at a time. It satisfies the pagination engine's
// Navigator interface.
type Tab struct {
	page    *rod.Page
	manager *Manager
}

// NewTab creates a fresh stealth page.
func (m *Manager) NewTab() (*Tab, error) {
	b, err := m.handle()
	if err != nil {
		return nil, err
	}
	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	return &Tab{page: page, manager: m}, nil
}

// Navigate loads a URL and waits for the load event, bounded by the
// manager's navigation timeout and the caller's ctx.
func (t *Tab) Navigate(ctx context.Context, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, t.manager.cfg.NavTimeout)
	defer cancel()

	if err := t.page.Context(navCtx).Navigate(pageURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := t.page.Context(navCtx).WaitLoad(); err != nil {
		// The settle delay downstream covers slow-rendering pages; a load
		// event timeout alone is not a transport failure.
		t.manager.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	return nil
}

// HTML serialises the current DOM as outer HTML.
func (t *Tab) HTML(ctx context.Context) ([]byte, error) {
	res, err := t.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("browser: get DOM: %w", err)
	}
	return []byte(res.Value.Str()), nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.page != nil {
		return t.page.Close()
	}
	return nil
}
