package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

// stubScraper records the last request and replays canned responses.
type stubScraper struct {
	lastSearch *SearchRequest
	lastUser   string
	lastMax    int
	tweets     []Tweet
	searchErr  error
	reply      *ProfileReply
	profileErr error
}

func (s *stubScraper) Search(_ context.Context, req SearchRequest) ([]Tweet, FetchStats, error) {
	s.lastSearch = &req
	return s.tweets, FetchStats{TotalItemsFetched: len(s.tweets), PagesLoaded: 1, RequestedCount: req.MaxTweets}, s.searchErr
}

func (s *stubScraper) Profile(_ context.Context, username string, maxTweets int) (*ProfileReply, error) {
	s.lastUser = username
	s.lastMax = maxTweets
	return s.reply, s.profileErr
}

func newTestServer(t *testing.T, svc Scraper) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	RegisterRoutes(r, svc, nil)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: status %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type: got %q", ct)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestLiveness(t *testing.T) {
	srv := newTestServer(t, &stubScraper{})
	body := getJSON(t, srv.URL+"/", http.StatusOK)
	if body["status"] != "ok" || body["service"] != "gazouille" {
		t.Errorf("got %v", body)
	}
}

func TestSearchEndpoint(t *testing.T) {
	stub := &stubScraper{tweets: []Tweet{
		{ID: "1", AuthorUsername: "jack", Content: "hello"},
	}}
	srv := newTestServer(t, stub)

	body := getJSON(t, srv.URL+
		"/api/search?q=golang&include_filters=media,images&exclude_filters=replies"+
		"&since=2024-01-01&until=2024-02-01&max_tweets=10", http.StatusOK)

	req := stub.lastSearch
	if req == nil {
		t.Fatal("service never called")
	}
	if req.Query != "golang" || req.MaxTweets != 10 {
		t.Errorf("request: got %+v", req)
	}
	if len(req.IncludeFilters) != 2 || req.IncludeFilters[0] != "media" || req.IncludeFilters[1] != "images" {
		t.Errorf("include filters: got %v (comma form should split)", req.IncludeFilters)
	}
	if len(req.ExcludeFilters) != 1 || req.ExcludeFilters[0] != "replies" {
		t.Errorf("exclude filters: got %v", req.ExcludeFilters)
	}
	if req.Since != "2024-01-01" || req.Until != "2024-02-01" {
		t.Errorf("dates: got %q %q", req.Since, req.Until)
	}

	if body["query"] != "golang" {
		t.Errorf("echo query: got %v", body["query"])
	}
	results, ok := body["results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("results: got %v", body["results"])
	}
	first := results[0].(map[string]any)
	if first["id"] != "1" || first["author_username"] != "jack" {
		t.Errorf("result record: got %v", first)
	}
}

func TestSearchEndpoint_RepeatedFilterParams(t *testing.T) {
	stub := &stubScraper{}
	srv := newTestServer(t, stub)

	getJSON(t, srv.URL+"/api/search?q=x&include_filters=media&include_filters=images", http.StatusOK)
	if got := stub.lastSearch.IncludeFilters; len(got) != 2 {
		t.Errorf("repeated params: got %v", got)
	}
}

func TestSearchEndpoint_Validation(t *testing.T) {
	srv := newTestServer(t, &stubScraper{})

	cases := []struct {
		name, url, code string
	}{
		{"missing q", "/api/search", "missing_parameter"},
		{"blank q", "/api/search?q=%20%20", "missing_parameter"},
		{"bad since", "/api/search?q=x&since=01-01-2024", "invalid_parameter"},
		{"bad until", "/api/search?q=x&until=notadate", "invalid_parameter"},
		{"max too small", "/api/search?q=x&max_tweets=0", "invalid_parameter"},
		{"max too large", "/api/search?q=x&max_tweets=1001", "invalid_parameter"},
		{"max not a number", "/api/search?q=x&max_tweets=ten", "invalid_parameter"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := getJSON(t, srv.URL+tc.url, http.StatusBadRequest)
			if body["error"] != tc.code {
				t.Errorf("error code: got %v, want %q", body["error"], tc.code)
			}
		})
	}
}

func TestSearchEndpoint_InvalidFilterFromService(t *testing.T) {
	stub := &stubScraper{searchErr: fmt.Errorf("%w: bogus", ErrInvalidFilter)}
	srv := newTestServer(t, stub)

	body := getJSON(t, srv.URL+"/api/search?q=x&include_filters=bogus", http.StatusBadRequest)
	if body["error"] != "invalid_filter" {
		t.Errorf("error code: got %v", body["error"])
	}
}

func TestSearchEndpoint_FetchFailureYieldsEmptyResults(t *testing.T) {
	// WHAT: A failed search responds 200 with empty results, not an error.
	// WHY: Callers cannot distinguish a mirror outage from zero matches,
	// and the upstream behaves the same way.
	stub := &stubScraper{searchErr: fmt.Errorf("%w: boom", ErrInitialLoad)}
	srv := newTestServer(t, stub)

	body := getJSON(t, srv.URL+"/api/search?q=golang", http.StatusOK)
	results, ok := body["results"].([]any)
	if !ok {
		t.Fatalf("results: got %T, want array", body["results"])
	}
	if len(results) != 0 {
		t.Errorf("results: got %v, want empty", results)
	}
}

func TestSearchEndpoint_Defaults(t *testing.T) {
	stub := &stubScraper{}
	srv := newTestServer(t, stub)

	body := getJSON(t, srv.URL+"/api/search?q=x", http.StatusOK)
	if stub.lastSearch.MaxTweets != 50 {
		t.Errorf("default max_tweets: got %d, want 50", stub.lastSearch.MaxTweets)
	}
	dr := body["date_range"].(map[string]any)
	if dr["since"] != nil || dr["until"] != nil {
		t.Errorf("date_range: got %v, want nulls", dr)
	}
}

func TestProfileEndpoint(t *testing.T) {
	stub := &stubScraper{reply: &ProfileReply{
		Result: &ProfileResult{
			Profile: Profile{Username: "jack", DisplayName: "Jack"},
			Tweets:  []Tweet{{ID: "1", AuthorUsername: "jack"}},
			Media:   []string{"https://pbs.twimg.com/media/a.jpg"},
		},
		Stats: FetchStats{TotalItemsFetched: 1, PagesLoaded: 1, RequestedCount: 10, StopReason: "no_cursor"},
	}}
	srv := newTestServer(t, stub)

	body := getJSON(t, srv.URL+"/api/user/jack?max_tweets=10", http.StatusOK)
	if stub.lastUser != "jack" || stub.lastMax != 10 {
		t.Errorf("service call: got %q %d", stub.lastUser, stub.lastMax)
	}

	profile := body["profile"].(map[string]any)
	if profile["username"] != "jack" {
		t.Errorf("profile: got %v", profile)
	}
	stats := body["stats"].(map[string]any)
	if stats["stop_reason"] != "no_cursor" {
		t.Errorf("stats: got %v", stats)
	}
	if tweets := body["tweets"].([]any); len(tweets) != 1 {
		t.Errorf("tweets: got %v", tweets)
	}
}

func TestProfileEndpoint_DefaultIsCardOnly(t *testing.T) {
	stub := &stubScraper{reply: &ProfileReply{Result: &ProfileResult{}}}
	srv := newTestServer(t, stub)

	getJSON(t, srv.URL+"/api/user/jack", http.StatusOK)
	if stub.lastMax != 0 {
		t.Errorf("default max_tweets: got %d, want 0", stub.lastMax)
	}
}

func TestProfileEndpoint_Validation(t *testing.T) {
	srv := newTestServer(t, &stubScraper{})

	body := getJSON(t, srv.URL+"/api/user/jack?max_tweets=-1", http.StatusBadRequest)
	if body["error"] != "invalid_parameter" {
		t.Errorf("error code: got %v", body["error"])
	}
	body = getJSON(t, srv.URL+"/api/user/jack?max_tweets=1001", http.StatusBadRequest)
	if body["error"] != "invalid_parameter" {
		t.Errorf("error code: got %v", body["error"])
	}
}

func TestProfileEndpoint_NotFound(t *testing.T) {
	stub := &stubScraper{
		reply:      &ProfileReply{Stats: FetchStats{RequestedCount: 10}},
		profileErr: fmt.Errorf("%w: ghost", ErrProfileUnavailable),
	}
	srv := newTestServer(t, stub)

	body := getJSON(t, srv.URL+"/api/user/ghost?max_tweets=10", http.StatusNotFound)
	if body["error"] != "profile_unavailable" {
		t.Errorf("error code: got %v", body["error"])
	}
	stats := body["stats"].(map[string]any)
	if stats["requested_count"] != float64(10) {
		t.Errorf("stats: got %v", stats)
	}
}

func TestProfileEndpoint_FetchFailure(t *testing.T) {
	stub := &stubScraper{
		reply:      &ProfileReply{},
		profileErr: fmt.Errorf("%w: tab crashed", ErrInitialLoad),
	}
	srv := newTestServer(t, stub)

	body := getJSON(t, srv.URL+"/api/user/jack", http.StatusBadGateway)
	if body["error"] != "fetch_failed" {
		t.Errorf("error code: got %v", body["error"])
	}
}
