package biz

import (
	"context"
	"iter"
	"time"
)

// Link is the single persisted entity: one url bound to one shortcode.
type Link struct {
	URL       string
	Shortcode string
	CreatedAt time.Time
	HitCount  int64
}

// ListedLink is a Link enriched for display with its absolute short URL.
type ListedLink struct {
	Link
	ShortURL string
}

// Resolution is the result of following a shortcode.
type Resolution struct {
	URL      string
	HitCount int64
}

// LinkStore owns the url<->shortcode bijection, the hit counters and the
// creation-time index. Implementations live in the data layer.
//
// Every method talks to the backend directly; backend failures are reported
// as ErrStoreUnavailable.
type LinkStore interface {
	// ShortcodeForURL returns the code bound to url, or "" when url is unknown.
	ShortcodeForURL(ctx context.Context, url string) (string, error)

	// ShortcodeExists reports whether code is bound to any url.
	ShortcodeExists(ctx context.Context, code string) (bool, error)

	// GetLink returns the link for code, or nil when code is unknown.
	GetLink(ctx context.Context, code string) (*Link, error)

	// CreateLink binds url to code and indexes it by creation time in a single
	// atomic step. It returns ErrLinkConflict when url is bound to another code
	// or code to another url at commit time. Replaying an existing pair is a
	// no-op that returns nil.
	CreateLink(ctx context.Context, url, code string) error

	// IncrementHitCount atomically adds one hit and returns the new count.
	// Unknown codes yield ErrUnknownShortcode.
	IncrementHitCount(ctx context.Context, code string) (int64, error)

	// ListByCreationDesc streams every link, newest first. The sequence reads
	// the backend lazily in pages and stops at the first error.
	ListByCreationDesc(ctx context.Context) iter.Seq2[*Link, error]

	// Ping checks backend reachability.
	Ping(ctx context.Context) error
}
