package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "http", raw: "http://example.com", want: true},
		{name: "https with path and query", raw: "https://example.com/a/b?c=d#e", want: true},
		{name: "with port", raw: "http://example.com:8080/x", want: true},
		{name: "empty", raw: "", want: false},
		{name: "no scheme", raw: "example.com", want: false},
		{name: "ftp scheme", raw: "ftp://example.com/file", want: false},
		{name: "javascript", raw: "javascript:alert(1)", want: false},
		{name: "relative", raw: "/just/a/path", want: false},
		{name: "garbage", raw: "not a url", want: false},
		{name: "too long", raw: "https://example.com/" + strings.Repeat("a", MaxURLLength), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidURL(tt.raw))
		})
	}
}
