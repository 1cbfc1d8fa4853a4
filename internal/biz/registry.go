package biz

import (
	"context"
	"errors"
	"iter"
	"net/url"

	"github.com/go-kratos/kratos/v2/log"

	"shorturl/internal/conf"
)

// generatedCreateAttempts bounds how often a generated code may lose the race
// against a concurrent writer before Create gives up.
const generatedCreateAttempts = 3

// LinkRegistry implements create, resolve, stats and list on top of a
// LinkStore. It keeps no state between calls; all coordination between
// concurrent requests happens in the store.
type LinkRegistry struct {
	store  LinkStore
	gen    *ShortcodeGenerator
	format *ShortcodeFormat
	base   *url.URL
	log    *log.Helper
}

// NewLinkRegistry wires a registry. An unparsable base URL is a configuration
// error.
func NewLinkRegistry(store LinkStore, gen *ShortcodeGenerator, format *ShortcodeFormat, c *conf.App, logger log.Logger) (*LinkRegistry, error) {
	raw := ""
	if c != nil {
		raw = c.ShorturlBase
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &LinkRegistry{
		store:  store,
		gen:    gen,
		format: format,
		base:   base,
		log:    log.NewHelper(log.With(logger, "module", "biz/registry")),
	}, nil
}

// Create returns the shortcode bound to rawURL, creating the link if needed.
// rawURL must already have passed URL validation.
//
// A url that is already registered keeps its code, even when a different
// desired code is passed.
func (r *LinkRegistry) Create(ctx context.Context, rawURL, desired string) (string, error) {
	existing, err := r.store.ShortcodeForURL(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return existing, nil
	}

	if desired != "" {
		return r.createWithCode(ctx, rawURL, desired)
	}
	return r.createGenerated(ctx, rawURL)
}

func (r *LinkRegistry) createWithCode(ctx context.Context, rawURL, code string) (string, error) {
	if err := r.format.Validate(code); err != nil {
		return "", err
	}

	for attempt := 0; attempt < 2; attempt++ {
		link, err := r.store.GetLink(ctx, code)
		if err != nil {
			return "", err
		}
		if link != nil && link.URL != rawURL {
			return "", ErrShortcodeInUse
		}

		err = r.store.CreateLink(ctx, rawURL, code)
		if err == nil {
			r.log.WithContext(ctx).Infof("link created: %s -> %s", code, rawURL)
			return code, nil
		}
		if !errors.Is(err, ErrLinkConflict) {
			return "", err
		}

		// Lost a race. The url may have been registered meanwhile.
		existing, err := r.store.ShortcodeForURL(ctx, rawURL)
		if err != nil {
			return "", err
		}
		if existing != "" {
			return existing, nil
		}
		r.log.WithContext(ctx).Debugf("create conflict on desired code %s, attempt %d", code, attempt+1)
	}

	return "", ErrShortcodeInUse
}

func (r *LinkRegistry) createGenerated(ctx context.Context, rawURL string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < generatedCreateAttempts; attempt++ {
		code, err := r.gen.Generate(ctx, r.store.ShortcodeExists)
		if err != nil {
			return "", err
		}

		err = r.store.CreateLink(ctx, rawURL, code)
		if err == nil {
			r.log.WithContext(ctx).Infof("link created: %s -> %s", code, rawURL)
			return code, nil
		}
		if !errors.Is(err, ErrLinkConflict) {
			return "", err
		}
		lastErr = err

		// A concurrent create for the same url wins; hand its code back.
		existing, err := r.store.ShortcodeForURL(ctx, rawURL)
		if err != nil {
			return "", err
		}
		if existing != "" {
			return existing, nil
		}
		r.log.WithContext(ctx).Debugf("create conflict on generated code %s, attempt %d", code, attempt+1)
	}

	return "", ErrStoreUnavailable.WithCause(lastErr)
}

// Resolve follows code and records one hit.
func (r *LinkRegistry) Resolve(ctx context.Context, code string) (*Resolution, error) {
	link, err := r.store.GetLink(ctx, code)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrUnknownShortcode
	}

	count, err := r.store.IncrementHitCount(ctx, code)
	if err != nil {
		return nil, err
	}

	return &Resolution{URL: link.URL, HitCount: count}, nil
}

// Stats returns the hit count of code without touching it.
func (r *LinkRegistry) Stats(ctx context.Context, code string) (int64, error) {
	link, err := r.store.GetLink(ctx, code)
	if err != nil {
		return 0, err
	}
	if link == nil {
		return 0, ErrUnknownShortcode
	}
	return link.HitCount, nil
}

// List streams every link, newest first, with its absolute short URL.
func (r *LinkRegistry) List(ctx context.Context) iter.Seq2[*ListedLink, error] {
	return func(yield func(*ListedLink, error) bool) {
		for link, err := range r.store.ListByCreationDesc(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(&ListedLink{Link: *link, ShortURL: r.ShortURL(link.Shortcode)}, nil) {
				return
			}
		}
	}
}

// ShortURL joins the configured base with code the way a browser resolves a
// relative reference, so "http://sho.rt/" + "abc" gives "http://sho.rt/abc".
func (r *LinkRegistry) ShortURL(code string) string {
	return r.base.ResolveReference(&url.URL{Path: code}).String()
}
