package biz

import (
	"github.com/go-kratos/kratos/v2/errors"
)

// Reasons carried by registry errors. They are stable and safe to match on
// from clients.
const (
	ReasonInvalidURL             = "INVALID_URL"
	ReasonInvalidShortcodeFormat = "INVALID_SHORTCODE_FORMAT"
	ReasonShortcodeInUse         = "SHORTCODE_IN_USE"
	ReasonUnknownShortcode       = "UNKNOWN_SHORTCODE"
	ReasonStoreUnavailable       = "STORE_UNAVAILABLE"
	ReasonGenerationExhausted    = "GENERATION_EXHAUSTED"
	ReasonLinkConflict           = "LINK_CONFLICT"
)

var (
	ErrInvalidURL             = errors.BadRequest(ReasonInvalidURL, "Malformed URL")
	ErrInvalidShortcodeFormat = errors.BadRequest(ReasonInvalidShortcodeFormat, "Invalid shortcode")
	ErrShortcodeInUse         = errors.BadRequest(ReasonShortcodeInUse, "Shortcode in use")
	ErrUnknownShortcode       = errors.NotFound(ReasonUnknownShortcode, "Unknown shortcode")
	ErrStoreUnavailable       = errors.ServiceUnavailable(ReasonStoreUnavailable, "Link store unavailable")
	ErrGenerationExhausted    = errors.InternalServer(ReasonGenerationExhausted, "Shortcode space exhausted")

	// ErrLinkConflict is returned by LinkStore.CreateLink when the url or the
	// shortcode is already bound to something else. The registry resolves it
	// and it is never returned to callers.
	ErrLinkConflict = errors.Conflict(ReasonLinkConflict, "url or shortcode already linked")
)

// StoreError wraps a backend failure as ErrStoreUnavailable. A nil err stays nil
// and errors that already carry a registry reason pass through untouched.
func StoreError(err error) error {
	if err == nil {
		return nil
	}
	if se := new(errors.Error); errors.As(err, &se) {
		return err
	}
	return ErrStoreUnavailable.WithCause(err)
}
