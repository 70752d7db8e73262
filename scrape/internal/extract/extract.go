// Package extract converts scraped timeline markup into normalized tweet
// and profile records.
//
// The mirror's markup is heterogeneous: promoted items lack author fields,
// counts disappear when zero, and media nodes are optional. Every lookup
// in this package therefore resolves to a documented default instead of
// failing; a missing node is normal input, not an error.
package extract

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hazyhaar/gazouille/mirror"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

const (
	itemSelector       = ".timeline-item"
	placeholderClass   = "show-more"
	cursorMarker       = "cursor="
	loadNewestLinkText = "Load newest"
)

// textPolicy flattens tweet content to guaranteed plain text. The mirror
// nests links, emoji images, and card markup inside .tweet-content.
var textPolicy = bluemonday.StrictPolicy()

// parse builds a goquery document from raw markup. Returns nil on
// unparseable input (html.Parse is lenient, so this is rare).
func parse(markup []byte) *goquery.Document {
	node, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return nil
	}
	return goquery.NewDocumentFromNode(node)
}

// SearchTweets extracts search-style records from one or more pages of
// timeline markup. Pagination placeholders are skipped; items missing
// either the username or display-name field (promoted content) are
// dropped silently. No deduplication is applied: search pages have not
// been observed to overlap the way profile timelines do.
func SearchTweets(markup []byte) []Tweet {
	doc := parse(markup)
	if doc == nil {
		return nil
	}

	var tweets []Tweet
	doc.Find(itemSelector).Each(func(_ int, item *goquery.Selection) {
		if item.HasClass(placeholderClass) {
			return
		}
		username, uok := text(item, ".username")
		fullname, fok := text(item, ".fullname")
		if !uok || !fok {
			return
		}
		tweets = append(tweets, tweetFrom(item, username, fullname))
	})
	return tweets
}

// ProfileData extracts the profile card and up to tweetLimit timeline
// records. Nil markup means the fetch itself failed and nil is returned
// so callers can distinguish that from a profile with zero tweets.
//
// Timeline items are deduplicated by status id within this call: the
// mirror's profile pagination returns overlapping pages. Items with no
// extractable id are exempt (an empty id cannot collide). Collection
// stops as soon as tweetLimit distinct tweets have been accumulated.
// tweetLimit == 0 skips the timeline walk entirely.
func ProfileData(markup []byte, tweetLimit int) *ProfileResult {
	if len(bytes.TrimSpace(markup)) == 0 {
		return nil
	}
	doc := parse(markup)
	if doc == nil {
		return nil
	}

	res := &ProfileResult{
		Profile: profileCard(doc),
		Tweets:  []Tweet{},
		Media:   railMedia(doc),
	}
	if tweetLimit == 0 {
		return res
	}
	res.Tweets = timelineTweets(doc, tweetLimit, res.Profile)
	return res
}

// ProfileCard extracts just the profile card and photo-rail media.
// present is false when the card root never rendered, which the callers
// treat as a failed load rather than an empty profile.
func ProfileCard(markup []byte) (p Profile, rail []string, present bool) {
	doc := parse(markup)
	if doc == nil {
		return Profile{}, nil, false
	}
	if doc.Find(".profile-card").Length() == 0 {
		return Profile{}, nil, false
	}
	return profileCard(doc), railMedia(doc), true
}

// ProfileTimeline extracts up to limit deduplicated timeline records from
// markup, with fallback supplying the author identity for items that omit
// their own. Semantics match the timeline half of ProfileData.
func ProfileTimeline(markup []byte, limit int, fallback Profile) []Tweet {
	if limit == 0 {
		return []Tweet{}
	}
	doc := parse(markup)
	if doc == nil {
		return []Tweet{}
	}
	return timelineTweets(doc, limit, fallback)
}

func timelineTweets(doc *goquery.Document, limit int, fallback Profile) []Tweet {
	tweets := []Tweet{}
	seen := make(map[string]bool)
	doc.Find(itemSelector).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if item.HasClass(placeholderClass) {
			return true
		}
		href, _ := attr(item, ".tweet-link", "href")
		if id := mirror.StatusID(href); id != "" {
			if seen[id] {
				return true
			}
			seen[id] = true
		}

		// Profile timelines carry the author fields on each item too, but
		// the profile card is the fallback identity for stripped-down items.
		username := textOr(item, ".username", fallback.Username)
		fullname := textOr(item, ".fullname", fallback.DisplayName)
		tweets = append(tweets, tweetFrom(item, username, fullname))
		return len(tweets) < limit
	})
	return tweets
}

// HasProfileCard reports whether the profile-card root rendered. The
// profile page has no other reliable readiness signal.
func HasProfileCard(markup []byte) bool {
	doc := parse(markup)
	return doc != nil && doc.Find(".profile-card").Length() > 0
}

// CursorURL finds the "load more" pagination link and resolves it against
// the page's own URL. The "load newest" variant at the top of the
// timeline is not a forward cursor and is skipped. Returns "" when the
// page carries no forward cursor.
func CursorURL(markup []byte, base *url.URL) string {
	doc := parse(markup)
	if doc == nil {
		return ""
	}

	var out string
	doc.Find("." + placeholderClass + " a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok || !strings.Contains(href, cursorMarker) {
			return true
		}
		if strings.Contains(a.Text(), loadNewestLinkText) {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		if base != nil {
			out = base.ResolveReference(ref).String()
		} else {
			out = href
		}
		return false
	})
	return out
}

// TimelineItems returns the outer HTML of every non-placeholder timeline
// item in document order. The pagination engine accumulates these across
// pages and the cache sink persists their concatenation.
func TimelineItems(markup []byte) []string {
	doc := parse(markup)
	if doc == nil {
		return nil
	}

	var items []string
	doc.Find(itemSelector).Each(func(_ int, item *goquery.Selection) {
		if item.HasClass(placeholderClass) {
			return
		}
		if h, err := goquery.OuterHtml(item); err == nil {
			items = append(items, h)
		}
	})
	return items
}

// WrapTimeline rebuilds a single timeline document from accumulated item
// markup, mirroring the container the items were lifted from.
func WrapTimeline(items []string) []byte {
	var b bytes.Buffer
	b.WriteString(`<div class="timeline">` + "\n")
	for _, it := range items {
		b.WriteString(it)
		b.WriteByte('\n')
	}
	b.WriteString(`</div>`)
	return b.Bytes()
}

func tweetFrom(item *goquery.Selection, username, fullname string) Tweet {
	href, _ := attr(item, ".tweet-link", "href")
	id := mirror.StatusID(href)
	user := mirror.CleanUsername(username)

	t := Tweet{
		ID:                id,
		AuthorUsername:    user,
		AuthorDisplayName: strings.TrimSpace(fullname),
		Content:           plainText(item.Find(".tweet-content").First()),
		PostedAt:          textOr(item, ".tweet-date a", ""),
		Permalink:         mirror.Permalink(user, id),
		Media:             itemMedia(item),
	}
	t.Counts.Replies = statBeside(item, ".icon-comment")
	t.Counts.Reposts = statBeside(item, ".icon-retweet")
	t.Counts.Likes = statBeside(item, ".icon-heart")

	if rb := item.Find(".retweet-header div").First(); rb.Length() > 0 {
		t.IsRepost = true
		t.RepostedBy = strings.TrimSpace(rb.Text())
	}
	if rt := item.Find(".tweet-body .replying-to a").First(); rt.Length() > 0 {
		t.IsReply = true
		t.ReplyTarget = strings.TrimSpace(rt.Text())
	}
	if av, ok := attr(item, ".tweet-avatar img", "src"); ok {
		t.AuthorAvatar = mirror.OriginImage(av)
	}
	return t
}

func profileCard(doc *goquery.Document) Profile {
	p := Profile{
		Username:    mirror.CleanUsername(textOr(doc.Selection, ".profile-card-username", "")),
		DisplayName: textOr(doc.Selection, ".profile-card-fullname", ""),
		Bio:         textOr(doc.Selection, ".profile-bio p", ""),
		Location:    textOr(doc.Selection, ".profile-location span:nth-of-type(2)", ""),
	}
	joined := textOr(doc.Selection, ".profile-joindate span", "")
	p.Joined = strings.TrimSpace(strings.TrimPrefix(joined, "Joined"))

	p.Counts.Tweets = mirror.ParseStat(textOr(doc.Selection, ".posts .profile-stat-num", ""))
	p.Counts.Following = mirror.ParseStat(textOr(doc.Selection, ".following .profile-stat-num", ""))
	p.Counts.Followers = mirror.ParseStat(textOr(doc.Selection, ".followers .profile-stat-num", ""))
	p.Counts.Likes = mirror.ParseStat(textOr(doc.Selection, ".likes .profile-stat-num", ""))
	p.Counts.Media = railCount(textOr(doc.Selection, ".photo-rail-header", ""))

	if av, ok := attr(doc.Selection, ".profile-card-avatar img", "src"); ok {
		p.AvatarURL = mirror.OriginImage(av)
	}
	if bn, ok := attr(doc.Selection, ".profile-banner img", "src"); ok {
		p.BannerURL = mirror.OriginImage(bn)
	}
	return p
}

// railCount parses the leading token of the "<count> Photos and videos"
// rail header. Any shape surprise yields 0.
func railCount(header string) int64 {
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return 0
	}
	return mirror.ParseStat(fields[0])
}

func railMedia(doc *goquery.Document) []string {
	var media []string
	doc.Find(".photo-rail-grid a img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok {
			media = append(media, mirror.OriginImage(src))
		}
	})
	return media
}

func itemMedia(item *goquery.Selection) []string {
	media := []string{}
	item.Find(".attachment.image img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok {
			media = append(media, mirror.OriginImage(src))
		}
	})
	return media
}

func statBeside(item *goquery.Selection, iconSelector string) int64 {
	icon := item.Find(iconSelector).First()
	if icon.Length() == 0 {
		return 0
	}
	return mirror.ParseStat(icon.Parent().Text())
}

// plainText flattens a selection's inner HTML to plain text, stripping
// any nested markup the mirror embeds in content nodes.
func plainText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	raw, err := s.Html()
	if err != nil {
		return strings.TrimSpace(s.Text())
	}
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(raw)))
}
