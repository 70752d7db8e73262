package browser

import (
	"context"
	"log/slog"
	"sync"
)

// Pool bounds the number of concurrently open scrape sessions. Each
// in-flight scrape holds one slot and one fresh tab; requests beyond the
// pool size wait in Acquire until a slot frees or their context expires.
type Pool struct {
	mgr    *Manager
	slots  chan struct{}
	logger *slog.Logger
}

// NewPool creates a Pool of at most size concurrent sessions.
func NewPool(mgr *Manager, size int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		mgr:    mgr,
		slots:  make(chan struct{}, size),
		logger: logger,
	}
}

// Acquire blocks until a session slot is available, then opens a fresh
// tab. The returned release func closes the tab and frees the slot; it is
// idempotent and must be called on every exit path.
func (p *Pool) Acquire(ctx context.Context) (*Tab, func(), error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}

	tab, err := p.mgr.NewTab()
	if err != nil {
		<-p.slots
		return nil, nil, err
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := tab.Close(); err != nil {
				p.logger.Warn("browser: tab close", "error", err)
			}
			<-p.slots
		})
	}
	return tab, release, nil
}

// InFlight reports the number of sessions currently held.
func (p *Pool) InFlight() int {
	return len(p.slots)
}
