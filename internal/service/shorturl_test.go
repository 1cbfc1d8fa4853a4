package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorturl/internal/biz"
	"shorturl/internal/conf"
	"shorturl/internal/data"
)

const testBase = "http://sho.rt/"

func newTestService(t *testing.T) *ShorturlService {
	t.Helper()

	d, cleanup, err := data.NewData(&conf.Data{Store: data.StoreMemory}, log.DefaultLogger)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	app := &conf.App{ShorturlBase: testBase}
	format, err := biz.NewShortcodeFormat(app)
	require.NoError(t, err)
	registry, err := biz.NewLinkRegistry(
		data.NewLinkStore(d, log.DefaultLogger),
		biz.NewShortcodeGenerator(app),
		format,
		app,
		log.DefaultLogger,
	)
	require.NoError(t, err)
	return NewShorturlService(registry, log.DefaultLogger)
}

func newTestHTTPServer(t *testing.T) *khttp.Server {
	t.Helper()
	srv := khttp.NewServer()
	RegisterShorturlHTTPServer(srv, newTestService(t))
	return srv
}

func postForm(srv http.Handler, values url.Values, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func get(srv http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestShorturlService_CreateLink(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	reply, err := svc.CreateLink(ctx, &CreateLinkRequest{URL: "https://example.com/a"})
	require.NoError(t, err)
	assert.Regexp(t, `^http://sho\.rt/[a-z0-9]{6}$`, reply.ShortURL)

	again, err := svc.CreateLink(ctx, &CreateLinkRequest{URL: "https://example.com/a"})
	require.NoError(t, err)
	assert.Equal(t, reply.ShortURL, again.ShortURL)

	custom, err := svc.CreateLink(ctx, &CreateLinkRequest{URL: "https://example.com/b", Shortcode: "custom1"})
	require.NoError(t, err)
	assert.Equal(t, "http://sho.rt/custom1", custom.ShortURL)

	_, err = svc.CreateLink(ctx, &CreateLinkRequest{URL: "https://example.com/c", Shortcode: "custom1"})
	assert.True(t, errors.Is(err, biz.ErrShortcodeInUse))

	_, err = svc.CreateLink(ctx, &CreateLinkRequest{URL: "example.com"})
	assert.True(t, errors.Is(err, biz.ErrInvalidURL))
}

func TestShorturlService_ResolveAndStats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateLink(ctx, &CreateLinkRequest{URL: "https://example.com/a", Shortcode: "abc"})
	require.NoError(t, err)

	res, err := svc.ResolveLink(ctx, &ResolveLinkRequest{Shortcode: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", res.URL)
	assert.Equal(t, int64(1), res.HitCount)

	location, code := res.Redirect()
	assert.Equal(t, "https://example.com/a", location)
	assert.Equal(t, http.StatusTemporaryRedirect, code)

	stats, err := svc.GetLinkStats(ctx, &GetLinkStatsRequest{Shortcode: "abc"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"abc": 1}, stats.Body())

	_, err = svc.ResolveLink(ctx, &ResolveLinkRequest{Shortcode: "doesnotexist"})
	assert.True(t, errors.Is(err, biz.ErrUnknownShortcode))
	_, err = svc.GetLinkStats(ctx, &GetLinkStatsRequest{Shortcode: "doesnotexist"})
	assert.True(t, errors.Is(err, biz.ErrUnknownShortcode))
}

func TestHTTP_CreateLink_Negotiation(t *testing.T) {
	srv := newTestHTTPServer(t)
	form := url.Values{"url": {"https://example.com/a"}, "shortcode": {"abc"}}

	rr := postForm(srv, form, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "http://sho.rt/abc", rr.Body.String())

	rr = postForm(srv, form, "application/json")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	var shortURL string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &shortURL))
	assert.Equal(t, "http://sho.rt/abc", shortURL)
}

func TestHTTP_CreateLink_Errors(t *testing.T) {
	srv := newTestHTTPServer(t)

	rr := postForm(srv, url.Values{"url": {"https://example.com/a"}, "shortcode": {"abc"}}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	tests := []struct {
		name string
		form url.Values
	}{
		{name: "missing url", form: url.Values{}},
		{name: "malformed url", form: url.Values{"url": {"not a url"}}},
		{name: "invalid shortcode", form: url.Values{"url": {"https://example.com/b"}, "shortcode": {"NO!"}}},
		{name: "shortcode in use", form: url.Values{"url": {"https://example.com/b"}, "shortcode": {"abc"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postForm(srv, tt.form, "")
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestHTTP_ResolveLink(t *testing.T) {
	srv := newTestHTTPServer(t)
	rr := postForm(srv, url.Values{"url": {"https://example.com/a?q=1"}, "shortcode": {"abc"}}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = get(srv, "/abc")
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Equal(t, "https://example.com/a?q=1", rr.Header().Get("Location"))

	rr = get(srv, "/abc+")
	assert.Equal(t, http.StatusOK, rr.Code)
	var stats map[string]int64
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, map[string]int64{"abc": 1}, stats)

	assert.Equal(t, http.StatusNotFound, get(srv, "/nope").Code)
	assert.Equal(t, http.StatusNotFound, get(srv, "/nope+").Code)
}

func TestHTTP_ListLinks(t *testing.T) {
	srv := newTestHTTPServer(t)

	rr := get(srv, "/")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	for _, code := range []string{"one", "two", "three"} {
		form := url.Values{"url": {"https://example.com/" + code}, "shortcode": {code}}
		require.Equal(t, http.StatusOK, postForm(srv, form, "").Code)
	}
	get(srv, "/two")

	rr = get(srv, "/")
	assert.Equal(t, http.StatusOK, rr.Code)

	var links []LinkInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &links))
	require.Len(t, links, 3)
	assert.Equal(t, []string{"three", "two", "one"}, []string{links[0].Shortcode, links[1].Shortcode, links[2].Shortcode})
	assert.Equal(t, "https://example.com/two", links[1].URL)
	assert.Equal(t, "http://sho.rt/two", links[1].ShortURL)
	assert.Equal(t, int64(1), links[1].Count)
	assert.False(t, links[1].CreatedAt.IsZero())
}

func TestAcceptsJSON(t *testing.T) {
	tests := []struct {
		accept string
		want   bool
	}{
		{accept: "", want: false},
		{accept: "text/plain", want: false},
		{accept: "*/*", want: false},
		{accept: "application/json", want: true},
		{accept: "application/json; charset=utf-8", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.accept != "" {
				r.Header.Set("Accept", tt.accept)
			}
			assert.Equal(t, tt.want, AcceptsJSON(r))
		})
	}
}
