package biz

import (
	"context"
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"shorturl/internal/conf"
)

const (
	DefaultShortcodeLength   = 6
	DefaultShortcodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	DefaultShortcodeFormat   = `^[a-z0-9-]{3,32}$`

	// DefaultMaxGenerateAttempts bounds the sampling loop. Hitting it means the
	// configured space alphabet^length is (nearly) full.
	DefaultMaxGenerateAttempts = 1000
)

// ExistsFunc reports whether a candidate shortcode is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// ShortcodeGenerator samples random codes until one is free.
type ShortcodeGenerator struct {
	length      int
	alphabet    string
	maxAttempts int
}

// NewShortcodeGenerator builds a generator from the app config, falling back
// to 6 lowercase alphanumerics.
func NewShortcodeGenerator(c *conf.App) *ShortcodeGenerator {
	g := &ShortcodeGenerator{
		length:      DefaultShortcodeLength,
		alphabet:    DefaultShortcodeAlphabet,
		maxAttempts: DefaultMaxGenerateAttempts,
	}
	if c != nil {
		if c.ShortcodeLength > 0 {
			g.length = c.ShortcodeLength
		}
		if c.ShortcodeAlphabet != "" {
			g.alphabet = c.ShortcodeAlphabet
		}
		if c.ShortcodeMaxAttempts > 0 {
			g.maxAttempts = c.ShortcodeMaxAttempts
		}
	}
	return g
}

// Length returns the length of generated codes.
func (g *ShortcodeGenerator) Length() int {
	return g.length
}

// Generate draws candidates until exists reports one as free. Errors from
// exists are returned as is; running out of attempts yields
// ErrGenerationExhausted.
func (g *ShortcodeGenerator) Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := gonanoid.Generate(g.alphabet, g.length)
		if err != nil {
			return "", fmt.Errorf("generate shortcode: %w", err)
		}

		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}

	return "", ErrGenerationExhausted.WithMetadata(map[string]string{
		"attempts": fmt.Sprint(g.maxAttempts),
	})
}

// ShortcodeFormat validates caller supplied shortcodes.
type ShortcodeFormat struct {
	pattern *regexp.Regexp
}

// NewShortcodeFormat compiles the configured pattern.
func NewShortcodeFormat(c *conf.App) (*ShortcodeFormat, error) {
	expr := DefaultShortcodeFormat
	if c != nil && c.ShortcodeFormat != "" {
		expr = c.ShortcodeFormat
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("shortcode format %q: %w", expr, err)
	}
	return &ShortcodeFormat{pattern: re}, nil
}

// Validate returns ErrInvalidShortcodeFormat when code does not match.
func (f *ShortcodeFormat) Validate(code string) error {
	if err := validation.Validate(code,
		validation.Required,
		validation.Match(f.pattern),
	); err != nil {
		return ErrInvalidShortcodeFormat.WithMetadata(map[string]string{
			"format": f.pattern.String(),
		})
	}
	return nil
}

// String returns the pattern, for error messages.
func (f *ShortcodeFormat) String() string {
	return f.pattern.String()
}
