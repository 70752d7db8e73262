package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// Scraper is the narrow surface the HTTP handlers need; Service
// satisfies it, tests stub it.
type Scraper interface {
	Search(ctx context.Context, req SearchRequest) ([]Tweet, FetchStats, error)
	Profile(ctx context.Context, username string, maxTweets int) (*ProfileReply, error)
}

const (
	searchMaxDefault = 50
	maxTweetsCeiling = 1000
)

// RegisterRoutes mounts the scrape API on r.
func RegisterRoutes(r chi.Router, svc Scraper, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{svc: svc, logger: logger}

	r.Get("/", h.liveness)
	r.Get("/api/search", h.search)
	r.Get("/api/user/{username}", h.profile)
}

type handlers struct {
	svc    Scraper
	logger *slog.Logger
}

func (h *handlers) liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "gazouille",
	})
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing_parameter", "q is required and must be non-empty")
		return
	}

	include := filterList(q["include_filters"])
	exclude := filterList(q["exclude_filters"])

	since, ok := dateParam(q.Get("since"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "since must be a YYYY-MM-DD date")
		return
	}
	until, ok := dateParam(q.Get("until"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "until must be a YYYY-MM-DD date")
		return
	}

	maxTweets, ok := intParam(q.Get("max_tweets"), searchMaxDefault, 1, maxTweetsCeiling)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "max_tweets must be an integer in [1,1000]")
		return
	}

	req := SearchRequest{
		Query:          query,
		IncludeFilters: include,
		ExcludeFilters: exclude,
		Since:          since,
		Until:          until,
		MaxTweets:      maxTweets,
	}

	results, _, err := h.svc.Search(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	default:
		// The mirror treats a failed search and an empty one uniformly;
		// callers get an empty-results payload either way.
		h.logger.Warn("api: search failed", "query", query, "error", err)
		results = []Tweet{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query": query,
		"filters": map[string]any{
			"include": include,
			"exclude": exclude,
		},
		"date_range": map[string]any{
			"since": orNull(since),
			"until": orNull(until),
		},
		"max_tweets": maxTweets,
		"results":    results,
	})
}

func (h *handlers) profile(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(chi.URLParam(r, "username"))
	if username == "" {
		writeError(w, http.StatusBadRequest, "missing_parameter", "username is required")
		return
	}

	maxTweets, ok := intParam(r.URL.Query().Get("max_tweets"), 0, 0, maxTweetsCeiling)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "max_tweets must be an integer in [0,1000]")
		return
	}

	reply, err := h.svc.Profile(r.Context(), username, maxTweets)
	if err != nil {
		status := http.StatusBadGateway
		code := "fetch_failed"
		if errors.Is(err, ErrProfileUnavailable) {
			status = http.StatusNotFound
			code = "profile_unavailable"
		}
		var stats FetchStats
		if reply != nil {
			stats = reply.Stats
		}
		h.logger.Warn("api: profile failed", "username", username, "error", err)
		writeJSON(w, status, map[string]any{
			"error":   code,
			"message": err.Error(),
			"stats":   stats,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profile": reply.Result.Profile,
		"tweets":  reply.Result.Tweets,
		"media":   reply.Result.Media,
		"stats":   reply.Stats,
	})
}

// filterList flattens repeated and comma-separated filter parameters.
// Validation happens in the service against the recognized set.
func filterList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func dateParam(v string) (string, bool) {
	if v == "" {
		return "", true
	}
	if _, err := time.Parse("2006-01-02", v); err != nil {
		return "", false
	}
	return v, true
}

func intParam(v string, def, min, max int) (int, bool) {
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min || n > max {
		return 0, false
	}
	return n, true
}

func orNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
