package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/gazouille/cache"
	"github.com/hazyhaar/gazouille/mirror"
	"github.com/hazyhaar/gazouille/scrape/internal/browser"
	"github.com/hazyhaar/gazouille/scrape/internal/extract"
	"github.com/hazyhaar/gazouille/scrape/internal/paginate"
)

// SessionPool hands out exclusive browser sessions. Implemented by the
// rod-backed pool in production and faked in tests.
type SessionPool interface {
	Acquire(ctx context.Context) (paginate.Navigator, func(), error)
}

// CacheSink receives raw artifacts and metadata entries. The service
// only ever writes to it.
type CacheSink interface {
	SaveHTML(pageURL string, markup []byte) (string, error)
	Log(ctx context.Context, e *cache.Entry) error
}

// StartBrowser launches Chrome per cfg and returns the bounded session
// pool plus a shutdown func that must run on every exit path.
func StartBrowser(cfg *Config, logger *slog.Logger) (SessionPool, func() error, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.defaults()
	mgr := browser.NewManager(browser.Config{
		RemoteURL:  cfg.Browser.Remote,
		NavTimeout: time.Duration(cfg.Browser.NavTimeout),
		Logger:     logger,
	})
	if err := mgr.Start(); err != nil {
		return nil, nil, err
	}
	pool := browser.NewPool(mgr, cfg.Browser.MaxSessions, logger)
	return rodSessions{pool}, mgr.Close, nil
}

type rodSessions struct{ pool *browser.Pool }

func (r rodSessions) Acquire(ctx context.Context) (paginate.Navigator, func(), error) {
	tab, release, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	return tab, release, nil
}

// Service binds the session pool, pagination engine, extractor, and
// cache sink into the two public scrape operations. All per-call state
// lives on the stack of the call; a Service is safe for concurrent use.
type Service struct {
	cfg      *Config
	sessions SessionPool
	sink     CacheSink
	logger   *slog.Logger
}

// New creates a scrape Service.
func New(cfg *Config, sessions SessionPool, sink CacheSink, logger *slog.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, sessions: sessions, sink: sink, logger: logger}
}

// Search scrapes tweet search results for req. The returned FetchStats
// is populated on every path, including failures.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]Tweet, FetchStats, error) {
	stats := FetchStats{RequestedCount: req.MaxTweets}

	include, err := parseFilters(req.IncludeFilters)
	if err != nil {
		return nil, stats, err
	}
	exclude, err := parseFilters(req.ExcludeFilters)
	if err != nil {
		return nil, stats, err
	}

	pageURL := mirror.SearchURL(req.Query, include, exclude, req.Since, req.Until)

	res, err := s.paginate(ctx, pageURL, req.MaxTweets, nil)
	if err != nil {
		return nil, stats, err
	}
	stats.TotalItemsFetched = len(res.Items)
	stats.PagesLoaded = res.Pages
	stats.StopReason = string(res.Stop)

	combined := extract.WrapTimeline(res.Items)
	tweets := extract.SearchTweets(combined)
	if tweets == nil {
		tweets = []Tweet{}
	}

	s.persist(ctx, &cache.Entry{
		Kind:  "search",
		Query: req.Query,
		URL:   pageURL,
	}, combined, map[string]any{
		"include_filters": req.IncludeFilters,
		"exclude_filters": req.ExcludeFilters,
		"since":           req.Since,
		"until":           req.Until,
		"total_tweets":    len(tweets),
		"requested":       req.MaxTweets,
		"pages_loaded":    res.Pages,
		"stop_reason":     string(res.Stop),
	})

	s.logger.Info("scrape: search done",
		"query", req.Query, "tweets", len(tweets),
		"pages", res.Pages, "stop", res.Stop)
	return tweets, stats, nil
}

// Profile scrapes a profile card plus up to maxTweets timeline records.
// maxTweets == 0 fetches the profile only. Stats on the reply is always
// populated so callers can tell "zero tweets" from "fetch failed".
func (s *Service) Profile(ctx context.Context, username string, maxTweets int) (*ProfileReply, error) {
	reply := &ProfileReply{Stats: FetchStats{RequestedCount: maxTweets}}
	pageURL := mirror.ProfileURL(username)

	res, err := s.paginate(ctx, pageURL, maxTweets, extract.HasProfileCard)
	if err != nil {
		if errors.Is(err, paginate.ErrNotReady) {
			return reply, fmt.Errorf("%w: %s", ErrProfileUnavailable, username)
		}
		return reply, err
	}
	reply.Stats.TotalItemsFetched = len(res.Items)
	reply.Stats.PagesLoaded = res.Pages
	reply.Stats.StopReason = string(res.Stop)

	card, rail, ok := extract.ProfileCard(res.FirstPage)
	if !ok {
		return reply, fmt.Errorf("%w: %s", ErrProfileUnavailable, username)
	}

	combined := extract.WrapTimeline(res.Items)
	reply.Result = &ProfileResult{
		Profile: card,
		Tweets:  extract.ProfileTimeline(combined, maxTweets, card),
		Media:   rail,
	}

	s.persist(ctx, &cache.Entry{
		Kind:  "profile",
		Query: mirror.CleanUsername(username),
		URL:   pageURL,
	}, combined, map[string]any{
		"username":     mirror.CleanUsername(username),
		"total_tweets": len(reply.Result.Tweets),
		"requested":    maxTweets,
		"pages_loaded": res.Pages,
		"stop_reason":  string(res.Stop),
	})

	s.logger.Info("scrape: profile done",
		"username", reply.Result.Profile.Username,
		"tweets", len(reply.Result.Tweets), "pages", res.Pages, "stop", res.Stop)
	return reply, nil
}

// paginate acquires a session, runs the fetch engine against startURL,
// and releases the session on every exit path. The configured deadline
// bounds the whole call.
func (s *Service) paginate(ctx context.Context, startURL string, target int, ready func([]byte) bool) (*paginate.Result, error) {
	if s.cfg.Paging.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.Paging.Deadline))
		defer cancel()
	}

	nav, release, err := s.sessions.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("scrape: acquire session: %w", err)
	}
	defer release()

	engine := paginate.New(nav, paginate.Config{
		FirstSettle: time.Duration(s.cfg.Paging.FirstSettle),
		NextSettle:  time.Duration(s.cfg.Paging.NextSettle),
		Logger:      s.logger,
	})
	res, err := engine.Run(ctx, startURL, target, ready)
	if err != nil {
		if errors.Is(err, paginate.ErrNotReady) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrInitialLoad, err)
	}
	return res, nil
}

// persist writes the artifact and metadata entry. Failures are logged,
// not propagated: the scraped records are already in hand and the sink
// is a side effect.
func (s *Service) persist(ctx context.Context, entry *cache.Entry, markup []byte, params map[string]any) {
	if s.sink == nil {
		return
	}
	path, err := s.sink.SaveHTML(entry.URL, markup)
	if err != nil {
		s.logger.Warn("scrape: artifact save failed", "url", entry.URL, "error", err)
	}
	entry.ArtifactPath = path
	if b, err := json.Marshal(params); err == nil {
		entry.Params = string(b)
	}
	if err := s.sink.Log(ctx, entry); err != nil {
		s.logger.Warn("scrape: metadata log failed", "url", entry.URL, "error", err)
	}
}

func parseFilters(raw []string) ([]mirror.Filter, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]mirror.Filter, 0, len(raw))
	for _, r := range raw {
		f, err := mirror.ParseFilter(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, r)
		}
		out = append(out, f)
	}
	return out, nil
}
