// Package mirror holds the vocabulary of the scraped mirror site: base
// hosts, search filters, URL construction, and the small pure helpers
// (stat parsing, image-proxy rewriting, status-id extraction) shared by
// the extraction pipeline.
//
// Everything in this package is pure and I/O-free.
package mirror

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// BaseURL is the mirror front end being scraped.
	BaseURL = "https://nitter.net"
	// ImageHost is the origin image CDN that the mirror proxies under /pic/.
	ImageHost = "https://pbs.twimg.com"
	// PermalinkHost is the canonical host used for cross-site tweet links.
	PermalinkHost = "https://x.com"
)

// Filter is one of the mirror's recognized search filters.
type Filter string

const (
	FilterNativeRetweets Filter = "nativeretweets"
	FilterMedia          Filter = "media"
	FilterVideos         Filter = "videos"
	FilterNews           Filter = "news"
	FilterVerified       Filter = "verified"
	FilterNativeVideo    Filter = "native_video"
	FilterReplies        Filter = "replies"
	FilterLinks          Filter = "links"
	FilterImages         Filter = "images"
	FilterSafe           Filter = "safe"
	FilterQuote          Filter = "quote"
	FilterProVideo       Filter = "pro_video"
)

var knownFilters = map[Filter]bool{
	FilterNativeRetweets: true,
	FilterMedia:          true,
	FilterVideos:         true,
	FilterNews:           true,
	FilterVerified:       true,
	FilterNativeVideo:    true,
	FilterReplies:        true,
	FilterLinks:          true,
	FilterImages:         true,
	FilterSafe:           true,
	FilterQuote:          true,
	FilterProVideo:       true,
}

// ParseFilter validates a raw filter name.
func ParseFilter(raw string) (Filter, error) {
	f := Filter(strings.TrimSpace(raw))
	if !knownFilters[f] {
		return "", fmt.Errorf("mirror: unknown filter %q", raw)
	}
	return f, nil
}

// SearchURL builds the mirror's tweet-search URL. Parameters appear in
// insertion order: f, q, include filters, exclude filters, since, until.
// Encoding is handled by net/url; order is kept deterministic by building
// the query string by hand rather than through url.Values (whose Encode
// sorts keys).
func SearchURL(query string, include, exclude []Filter, since, until string) string {
	var b strings.Builder
	b.WriteString(BaseURL)
	b.WriteString("/search?f=tweets&q=")
	b.WriteString(url.QueryEscape(query))

	for _, f := range include {
		b.WriteString("&f-")
		b.WriteString(string(f))
		b.WriteString("=on")
	}
	for _, f := range exclude {
		b.WriteString("&e-")
		b.WriteString(string(f))
		b.WriteString("=on")
	}
	if since != "" {
		b.WriteString("&since=")
		b.WriteString(url.QueryEscape(since))
	}
	if until != "" {
		b.WriteString("&until=")
		b.WriteString(url.QueryEscape(until))
	}
	return b.String()
}

// ProfileURL returns the profile timeline page for a username.
func ProfileURL(username string) string {
	return BaseURL + "/" + url.PathEscape(CleanUsername(username)) + "/search"
}

// OriginImage rewrites a mirror image-proxy URL back to the origin CDN.
// Both absolute ("<base>/pic/...") and page-relative ("/pic/...") forms
// are recognized; anything else passes through unchanged, which makes the
// function idempotent. Percent-decoding is best effort: undecodable input
// is kept as-is.
func OriginImage(raw string) string {
	var rest string
	switch {
	case strings.HasPrefix(raw, BaseURL+"/pic/"):
		rest = strings.TrimPrefix(raw, BaseURL+"/pic/")
	case strings.HasPrefix(raw, "/pic/"):
		rest = strings.TrimPrefix(raw, "/pic/")
	default:
		return raw
	}
	if dec, err := url.QueryUnescape(rest); err == nil {
		rest = dec
	}
	return ImageHost + "/" + strings.TrimPrefix(rest, "/")
}

// ParseStat converts a human-formatted count ("1,234", "12.3K", "1.5M",
// "2.3B") to an integer. Empty, whitespace-only, digit-free, or malformed
// input yields 0; ParseStat never fails.
//
// The arithmetic stays in int64 the whole way: going through float64 loses
// exactness on values like 2.3B.
func ParseStat(raw string) int64 {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0
	}

	var mult int64 = 1
	switch s[len(s)-1] {
	case 'K', 'k':
		mult = 1e3
		s = s[:len(s)-1]
	case 'M', 'm':
		mult = 1e6
		s = s[:len(s)-1]
	case 'B', 'b':
		mult = 1e9
		s = s[:len(s)-1]
	}
	s = strings.TrimSpace(s)

	if !strings.ContainsAny(s, "0123456789") {
		return 0
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	var total int64
	if intPart != "" {
		n, err := strconv.ParseInt(intPart, 10, 64)
		if err != nil || n < 0 {
			return 0
		}
		total = n * mult
	}
	// Fractional digits only matter while the magnitude scale has room;
	// everything past that is truncated.
	for _, r := range fracPart {
		if r < '0' || r > '9' {
			return 0
		}
		mult /= 10
		total += int64(r-'0') * mult
	}
	return total
}

// CleanUsername strips the leading @ sigil from a raw handle.
func CleanUsername(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "@")
}

// StatusID extracts the status id from an internal permalink of the form
// "/<user>/status/<id>#m". Returns "" when no status segment is present.
func StatusID(href string) string {
	_, after, ok := strings.Cut(href, "/status/")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(after, "#")
	id, _, _ = strings.Cut(id, "?")
	return id
}

// Permalink builds the canonical cross-site URL for a tweet. Either part
// may be empty, in which case the permalink is empty too.
func Permalink(username, id string) string {
	if username == "" || id == "" {
		return ""
	}
	return PermalinkHost + "/" + CleanUsername(username) + "/status/" + id
}
