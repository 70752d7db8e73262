package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The lookup helpers below are the single place where "node might not be
// there" is handled; missing nodes resolve to explicit defaults here,
// not at call sites.

// text returns the trimmed text of the first node matching selector and
// whether such a node exists.
func text(root *goquery.Selection, selector string) (string, bool) {
	s := root.Find(selector).First()
	if s.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(s.Text()), true
}

// textOr is text with a typed default.
func textOr(root *goquery.Selection, selector, def string) string {
	if v, ok := text(root, selector); ok {
		return v
	}
	return def
}

// attr returns the named attribute of the first node matching selector
// and whether both node and attribute exist.
func attr(root *goquery.Selection, selector, name string) (string, bool) {
	s := root.Find(selector).First()
	if s.Length() == 0 {
		return "", false
	}
	return s.Attr(name)
}
