package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7Sortable(t *testing.T) {
	gen := UUIDv7()
	a, b := gen(), gen()
	if a == b {
		t.Fatal("two generated IDs collided")
	}
	// v7 embeds a millisecond timestamp in the leading bits, so IDs
	// generated in order sort in order.
	if a > b {
		t.Errorf("IDs not time-sortable: %q > %q", a, b)
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("scrape_", Default)
	id := gen()
	if !strings.HasPrefix(id, "scrape_") {
		t.Errorf("got %q, want scrape_ prefix", id)
	}
	if _, err := Parse(strings.TrimPrefix(id, "scrape_")); err != nil {
		t.Errorf("suffix not a UUID: %v", err)
	}
}

func TestParse_Rejects(t *testing.T) {
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Fatal("want error")
	}
}
