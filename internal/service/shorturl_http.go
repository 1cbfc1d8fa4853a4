package service

import (
	"context"
	nethttp "net/http"

	"github.com/go-kratos/kratos/v2/transport/http"
)

const (
	OperationShorturlListLinks    = "/shorturl.v1.Shorturl/ListLinks"
	OperationShorturlCreateLink   = "/shorturl.v1.Shorturl/CreateLink"
	OperationShorturlGetLinkStats = "/shorturl.v1.Shorturl/GetLinkStats"
	OperationShorturlResolveLink  = "/shorturl.v1.Shorturl/ResolveLink"
)

type ShorturlHTTPServer interface {
	CreateLink(context.Context, *CreateLinkRequest) (*CreateLinkReply, error)
	GetLinkStats(context.Context, *GetLinkStatsRequest) (*GetLinkStatsReply, error)
	ListLinks(context.Context, *ListLinksRequest) (*ListLinksReply, error)
	ResolveLink(context.Context, *ResolveLinkRequest) (*ResolveLinkReply, error)
}

// RegisterShorturlHTTPServer mounts the link routes. The stats route has to
// be registered before the redirect route, which would otherwise swallow the
// trailing "+".
func RegisterShorturlHTTPServer(s *http.Server, srv ShorturlHTTPServer) {
	r := s.Route("/")
	r.GET("/", listLinksHandler(srv))
	r.POST("/", createLinkHandler(srv))
	r.GET("/{shortcode}+", getLinkStatsHandler(srv))
	r.GET("/{shortcode}", resolveLinkHandler(srv))
}

// AcceptsJSON reports whether the client asked for a JSON response.
func AcceptsJSON(r *nethttp.Request) bool {
	codec, ok := http.CodecForRequest(r, "Accept")
	return ok && codec.Name() == "json"
}

func listLinksHandler(srv ShorturlHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in ListLinksRequest
		http.SetOperation(ctx, OperationShorturlListLinks)
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return srv.ListLinks(ctx, req.(*ListLinksRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*ListLinksReply)
		return ctx.JSON(200, reply.Links)
	}
}

func createLinkHandler(srv ShorturlHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in CreateLinkRequest
		if err := ctx.BindForm(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationShorturlCreateLink)
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return srv.CreateLink(ctx, req.(*CreateLinkRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*CreateLinkReply)
		if AcceptsJSON(ctx.Request()) {
			return ctx.JSON(200, reply.ShortURL)
		}
		return ctx.String(200, reply.ShortURL)
	}
}

func getLinkStatsHandler(srv ShorturlHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in GetLinkStatsRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationShorturlGetLinkStats)
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return srv.GetLinkStats(ctx, req.(*GetLinkStatsRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*GetLinkStatsReply)
		return ctx.JSON(200, reply.Body())
	}
}

func resolveLinkHandler(srv ShorturlHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in ResolveLinkRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationShorturlResolveLink)
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return srv.ResolveLink(ctx, req.(*ResolveLinkRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*ResolveLinkReply)
		return ctx.Result(200, reply)
	}
}
