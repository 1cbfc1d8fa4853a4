package server

import (
	"io"
	nethttp "net/http"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/uuid"

	"shorturl/internal/biz"
	"shorturl/internal/conf"
	"shorturl/internal/service"
)

// RequestIDHeader carries the id of a request in both directions.
const RequestIDHeader = "X-Request-ID"

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, shorturl *service.ShorturlService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			logging.Server(logger),
		),
		http.Filter(RequestID),
		http.ErrorEncoder(ErrorEncoder),
	}
	if c.Http != nil {
		if c.Http.Network != "" {
			opts = append(opts, http.Network(c.Http.Network))
		}
		if c.Http.Addr != "" {
			opts = append(opts, http.Address(c.Http.Addr))
		}
		if c.Http.Timeout.Duration > 0 {
			opts = append(opts, http.Timeout(c.Http.Timeout.AsDuration()))
		}
	}
	srv := http.NewServer(opts...)
	service.RegisterShorturlHTTPServer(srv, shorturl)
	return srv
}

// RequestID propagates the caller's X-Request-ID or assigns a fresh one.
func RequestID(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// ErrorEncoder writes errors as the plain reason text with the status of the
// error, or as the kratos JSON body when the client asked for JSON.
func ErrorEncoder(w nethttp.ResponseWriter, r *nethttp.Request, err error) {
	if service.AcceptsJSON(r) {
		http.DefaultErrorEncoder(w, r, err)
		return
	}

	se := errors.FromError(err)
	body := se.Message
	if se.Reason == biz.ReasonInvalidShortcodeFormat {
		if format := se.Metadata["format"]; format != "" {
			body += " (" + format + ")"
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(int(se.Code))
	_, _ = io.WriteString(w, body)
}
