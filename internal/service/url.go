package service

import (
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"shorturl/internal/biz"
)

// MaxURLLength bounds the urls accepted for shortening.
const MaxURLLength = 2048

// ValidURL reports whether raw is an absolute http(s) url worth shortening.
func ValidURL(raw string) bool {
	if err := validation.Validate(raw,
		validation.Required,
		validation.Length(1, MaxURLLength),
		is.URL,
	); err != nil {
		return false
	}

	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}

func checkURL(raw string) error {
	if !ValidURL(raw) {
		return biz.ErrInvalidURL
	}
	return nil
}
