// Package scrape drives a headless browser through the mirror site's
// paginated timelines and normalizes the markup into tweet and profile
// records.
//
// One Service owns a bounded pool of browser sessions. Each Search or
// Profile call acquires an exclusive session, walks "load more" cursors
// until the target count or a terminal pagination condition is reached,
// extracts records from the accumulated markup, and persists the raw
// artifact plus one metadata entry to the cache sink.
package scrape

import "github.com/hazyhaar/gazouille/scrape/internal/extract"

// Re-export extractor record types for the public API.
type (
	Tweet         = extract.Tweet
	Counts        = extract.Counts
	Profile       = extract.Profile
	ProfileCounts = extract.ProfileCounts
	ProfileResult = extract.ProfileResult
)

// FetchStats reports what one scrape call actually did, regardless of
// success. Callers use it to tell "zero results" from "fetch failed"
// from "partially failed".
type FetchStats struct {
	TotalItemsFetched int    `json:"total_items_fetched"`
	PagesLoaded       int    `json:"pages_loaded"`
	RequestedCount    int    `json:"requested_count"`
	StopReason        string `json:"stop_reason,omitempty"`
}

// SearchRequest carries the parameters of one search scrape.
type SearchRequest struct {
	Query          string
	IncludeFilters []string
	ExcludeFilters []string
	Since          string // YYYY-MM-DD, optional
	Until          string // YYYY-MM-DD, optional
	MaxTweets      int
}

// ProfileReply is the outcome of a Profile call. Result is nil when the
// profile page could not be fetched; Stats is always populated.
type ProfileReply struct {
	Result *ProfileResult `json:"result"`
	Stats  FetchStats     `json:"stats"`
}
