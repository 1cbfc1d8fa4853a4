package data

import (
	"context"
	"errors"
	"iter"
	"strconv"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"

	"shorturl/internal/biz"
)

// Compile-time interface check
var _ biz.LinkStore = (*redisLinkStore)(nil)

const redisPageSize = 100

// createLinkScript writes the three entries of a link, or nothing.
//
//	KEYS[1] url->code hash, KEYS[2] code record hash, KEYS[3] creation zset
//	ARGV[1] url, ARGV[2] code, ARGV[3] created_at in ms
//
// Returns 1 when the pair is stored (or already was), 0 on conflict.
var createLinkScript = redis.NewScript(`
local bound = redis.call('HGET', KEYS[1], ARGV[1])
if bound then
  if bound == ARGV[2] then
    return 1
  end
  return 0
end
if redis.call('EXISTS', KEYS[2]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[2], 'url', ARGV[1], 'count', 0, 'created_at', ARGV[3])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
return 1
`)

// incrementHitScript bumps the counter of an existing record only, so an
// unknown code never leaves a stray hash behind. Replies nil when absent.
var incrementHitScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return false
end
return redis.call('HINCRBY', KEYS[1], 'count', 1)
`)

// linkHash is the layout of <namespace>:c:<code>.
type linkHash struct {
	URL       string `redis:"url"`
	Count     int64  `redis:"count"`
	CreatedAt int64  `redis:"created_at"`
}

// redisLinkStore keeps links under a namespace prefix:
//
//	<ns>:u          hash  url -> code
//	<ns>:c:<code>   hash  {url, count, created_at}
//	<ns>:a          zset  url scored by created_at ms
type redisLinkStore struct {
	rdb       *redis.Client
	namespace string
	pageSize  int64
	now       func() time.Time
	log       *log.Helper
}

func newRedisLinkStore(rdb *redis.Client, namespace string, logger log.Logger) *redisLinkStore {
	return &redisLinkStore{
		rdb:       rdb,
		namespace: namespace,
		pageSize:  redisPageSize,
		now:       time.Now,
		log:       log.NewHelper(log.With(logger, "module", "data/redis")),
	}
}

func (s *redisLinkStore) urlsKey() string {
	return s.namespace + ":u"
}

func (s *redisLinkStore) codeKey(code string) string {
	return s.namespace + ":c:" + code
}

func (s *redisLinkStore) indexKey() string {
	return s.namespace + ":a"
}

func (s *redisLinkStore) ShortcodeForURL(ctx context.Context, url string) (string, error) {
	code, err := s.rdb.HGet(ctx, s.urlsKey(), url).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", biz.StoreError(err)
	}
	return code, nil
}

func (s *redisLinkStore) ShortcodeExists(ctx context.Context, code string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.codeKey(code)).Result()
	if err != nil {
		return false, biz.StoreError(err)
	}
	return n == 1, nil
}

func (s *redisLinkStore) GetLink(ctx context.Context, code string) (*biz.Link, error) {
	var h linkHash
	if err := s.rdb.HGetAll(ctx, s.codeKey(code)).Scan(&h); err != nil {
		return nil, biz.StoreError(err)
	}
	if h.URL == "" {
		return nil, nil
	}
	return h.link(code), nil
}

func (s *redisLinkStore) CreateLink(ctx context.Context, url, code string) error {
	keys := []string{s.urlsKey(), s.codeKey(code), s.indexKey()}
	stored, err := createLinkScript.Run(ctx, s.rdb, keys, url, code, s.now().UnixMilli()).Int()
	if err != nil {
		return biz.StoreError(err)
	}
	if stored == 0 {
		return biz.ErrLinkConflict
	}
	return nil
}

func (s *redisLinkStore) IncrementHitCount(ctx context.Context, code string) (int64, error) {
	count, err := incrementHitScript.Run(ctx, s.rdb, []string{s.codeKey(code)}).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, biz.ErrUnknownShortcode
	}
	if err != nil {
		return 0, biz.StoreError(err)
	}
	return count, nil
}

func (s *redisLinkStore) ListByCreationDesc(ctx context.Context) iter.Seq2[*biz.Link, error] {
	return func(yield func(*biz.Link, error) bool) {
		// Pages are cut on score boundaries: the tie group at the end of a full
		// page is read whole, and the next page starts strictly below it. Inserts
		// made meanwhile cannot shift entries across pages.
		upper := "+inf"
		for {
			page, full, err := s.indexPage(ctx, upper)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(page) == 0 {
				return
			}

			links, err := s.loadPage(ctx, page)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, l := range links {
				if !yield(l, nil) {
					return
				}
			}
			if !full {
				return
			}
			upper = "(" + formatScore(page[len(page)-1].Score)
		}
	}
}

// indexPage reads up to pageSize index entries scored at or below upper. When the
// page is full, its trailing tie group is replaced by every entry with that
// score, so callers can continue strictly below it.
func (s *redisLinkStore) indexPage(ctx context.Context, upper string) (page []redis.Z, full bool, err error) {
	page, err = s.rdb.ZRevRangeByScoreWithScores(ctx, s.indexKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   upper,
		Count: s.pageSize,
	}).Result()
	if err != nil {
		return nil, false, biz.StoreError(err)
	}
	if int64(len(page)) < s.pageSize {
		return page, false, nil
	}

	last := page[len(page)-1].Score
	cut := len(page) - 1
	for cut > 0 && page[cut-1].Score == last {
		cut--
	}

	bound := formatScore(last)
	ties, err := s.rdb.ZRevRangeByScoreWithScores(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: bound,
		Max: bound,
	}).Result()
	if err != nil {
		return nil, false, biz.StoreError(err)
	}
	return append(page[:cut:cut], ties...), true, nil
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// loadPage resolves index members (urls) to their records in two round trips.
func (s *redisLinkStore) loadPage(ctx context.Context, page []redis.Z) ([]*biz.Link, error) {
	urls := make([]string, len(page))
	for i, z := range page {
		urls[i], _ = z.Member.(string)
	}

	codes, err := s.rdb.HMGet(ctx, s.urlsKey(), urls...).Result()
	if err != nil {
		return nil, biz.StoreError(err)
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(codes))
	for i, c := range codes {
		code, _ := c.(string)
		cmds[i] = pipe.HGetAll(ctx, s.codeKey(code))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, biz.StoreError(err)
	}

	links := make([]*biz.Link, 0, len(cmds))
	for i, cmd := range cmds {
		var h linkHash
		if err := cmd.Scan(&h); err != nil {
			return nil, biz.StoreError(err)
		}
		if h.URL == "" {
			s.log.WithContext(ctx).Warnf("index entry %q has no record", urls[i])
			continue
		}
		code, _ := codes[i].(string)
		links = append(links, h.link(code))
	}
	return links, nil
}

func (s *redisLinkStore) Ping(ctx context.Context) error {
	return biz.StoreError(s.rdb.Ping(ctx).Err())
}

func (h linkHash) link(code string) *biz.Link {
	return &biz.Link{
		URL:       h.URL,
		Shortcode: code,
		HitCount:  h.Count,
		CreatedAt: time.UnixMilli(h.CreatedAt).UTC(),
	}
}
