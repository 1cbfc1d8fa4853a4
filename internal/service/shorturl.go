package service

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/samber/lo"

	"shorturl/internal/biz"
)

type CreateLinkRequest struct {
	URL       string `json:"url"`
	Shortcode string `json:"shortcode"`
}

type CreateLinkReply struct {
	ShortURL string `json:"shorturl"`
}

type ResolveLinkRequest struct {
	Shortcode string `json:"shortcode"`
}

// ResolveLinkReply redirects the client; the kratos response encoder
// recognises the Redirect method.
type ResolveLinkReply struct {
	URL      string `json:"url"`
	HitCount int64  `json:"count"`
}

func (r *ResolveLinkReply) Redirect() (string, int) {
	return r.URL, 307
}

type GetLinkStatsRequest struct {
	Shortcode string `json:"shortcode"`
}

type GetLinkStatsReply struct {
	Shortcode string
	HitCount  int64
}

// Body renders the stats as {"<code>": count}.
func (r *GetLinkStatsReply) Body() map[string]int64 {
	return map[string]int64{r.Shortcode: r.HitCount}
}

type ListLinksRequest struct{}

type ListLinksReply struct {
	Links []*LinkInfo
}

type LinkInfo struct {
	URL       string    `json:"url"`
	ShortURL  string    `json:"shorturl"`
	Shortcode string    `json:"shortcode"`
	Count     int64     `json:"count"`
	CreatedAt time.Time `json:"created_at"`
}

// ShorturlService adapts the link registry to the transport layer.
type ShorturlService struct {
	registry *biz.LinkRegistry
	log      *log.Helper
}

func NewShorturlService(registry *biz.LinkRegistry, logger log.Logger) *ShorturlService {
	return &ShorturlService{
		registry: registry,
		log:      log.NewHelper(log.With(logger, "module", "service/shorturl")),
	}
}

func (s *ShorturlService) CreateLink(ctx context.Context, req *CreateLinkRequest) (*CreateLinkReply, error) {
	if err := checkURL(req.URL); err != nil {
		return nil, err
	}

	code, err := s.registry.Create(ctx, req.URL, req.Shortcode)
	if err != nil {
		return nil, err
	}
	return &CreateLinkReply{ShortURL: s.registry.ShortURL(code)}, nil
}

func (s *ShorturlService) ResolveLink(ctx context.Context, req *ResolveLinkRequest) (*ResolveLinkReply, error) {
	res, err := s.registry.Resolve(ctx, req.Shortcode)
	if err != nil {
		return nil, err
	}
	return &ResolveLinkReply{URL: res.URL, HitCount: res.HitCount}, nil
}

func (s *ShorturlService) GetLinkStats(ctx context.Context, req *GetLinkStatsRequest) (*GetLinkStatsReply, error) {
	count, err := s.registry.Stats(ctx, req.Shortcode)
	if err != nil {
		return nil, err
	}
	return &GetLinkStatsReply{Shortcode: req.Shortcode, HitCount: count}, nil
}

func (s *ShorturlService) ListLinks(ctx context.Context, _ *ListLinksRequest) (*ListLinksReply, error) {
	var listed []*biz.ListedLink
	for l, err := range s.registry.List(ctx) {
		if err != nil {
			return nil, err
		}
		listed = append(listed, l)
	}

	links := lo.Map(listed, func(l *biz.ListedLink, _ int) *LinkInfo {
		return &LinkInfo{
			URL:       l.URL,
			ShortURL:  l.ShortURL,
			Shortcode: l.Shortcode,
			Count:     l.HitCount,
			CreatedAt: l.CreatedAt.UTC(),
		}
	})
	return &ListLinksReply{Links: links}, nil
}
