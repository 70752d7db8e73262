package scrape

import "errors"

// ErrInitialLoad is returned when the first navigation of a scrape fails;
// this is the only hard failure the pipeline produces once a session is
// acquired.
var ErrInitialLoad = errors.New("scrape: initial page load failed")

// ErrProfileUnavailable is returned when the profile page loaded but the
// profile card never rendered (suspended account, wrong username, or the
// mirror serving an error shell).
var ErrProfileUnavailable = errors.New("scrape: profile card not present")

// ErrInvalidFilter is returned by the HTTP boundary when a filter name is
// not part of the recognized set.
var ErrInvalidFilter = errors.New("scrape: invalid filter")
