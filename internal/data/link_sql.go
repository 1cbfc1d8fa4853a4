package data

import (
	"context"
	stdsql "database/sql"
	"errors"
	"iter"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"shorturl/internal/biz"
)

// Compile-time interface check
var _ biz.LinkStore = (*sqlLinkStore)(nil)

const sqlPageSize = 100

// sqlLinkStore keeps one row per link. The row itself is the url->code entry,
// the code->record entry and the creation index entry, so a single INSERT is
// the atomic create.
type sqlLinkStore struct {
	drv      *entsql.Driver
	table    string
	pageSize int
	now      func() time.Time
	log      *log.Helper
}

func newSQLLinkStore(drv *entsql.Driver, namespace string, logger log.Logger) *sqlLinkStore {
	return &sqlLinkStore{
		drv:      drv,
		table:    linksTableName(namespace),
		pageSize: sqlPageSize,
		now:      time.Now,
		log:      log.NewHelper(log.With(logger, "module", "data/sql")),
	}
}

type linkRow struct {
	id   int64
	link *biz.Link
}

func (s *sqlLinkStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.drv.Dialect())
}

func (s *sqlLinkStore) ShortcodeForURL(ctx context.Context, url string) (string, error) {
	b := s.builder()
	t := b.Table(s.table)
	query, args := b.Select(t.C(columnShortcode)).
		From(t).
		Where(entsql.EQ(t.C(columnURL), url)).
		Query()

	var code string
	found, err := s.queryOne(ctx, query, args, &code)
	if err != nil || !found {
		return "", err
	}
	return code, nil
}

func (s *sqlLinkStore) ShortcodeExists(ctx context.Context, code string) (bool, error) {
	b := s.builder()
	t := b.Table(s.table)
	query, args := b.Select(t.C(columnID)).
		From(t).
		Where(entsql.EQ(t.C(columnShortcode), code)).
		Query()

	var id int64
	return s.queryOne(ctx, query, args, &id)
}

func (s *sqlLinkStore) GetLink(ctx context.Context, code string) (*biz.Link, error) {
	b := s.builder()
	t := b.Table(s.table)
	query, args := b.Select(t.Columns(columnURL, columnHitCount, columnCreatedAt)...).
		From(t).
		Where(entsql.EQ(t.C(columnShortcode), code)).
		Query()

	var (
		url       string
		hits      int64
		createdAt int64
	)
	found, err := s.queryOne(ctx, query, args, &url, &hits, &createdAt)
	if err != nil || !found {
		return nil, err
	}
	return &biz.Link{
		URL:       url,
		Shortcode: code,
		HitCount:  hits,
		CreatedAt: time.UnixMilli(createdAt).UTC(),
	}, nil
}

func (s *sqlLinkStore) CreateLink(ctx context.Context, url, code string) error {
	query, args := s.builder().Insert(s.table).
		Columns(columnURL, columnShortcode, columnHitCount, columnCreatedAt).
		Values(url, code, 0, s.now().UnixMilli()).
		Query()

	err := s.drv.Exec(ctx, query, args, nil)
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return biz.StoreError(err)
	}

	// Either the same pair was written concurrently, which is fine, or one
	// side is bound elsewhere.
	existing, lookupErr := s.ShortcodeForURL(ctx, url)
	if lookupErr != nil {
		return lookupErr
	}
	if existing == code {
		return nil
	}
	return biz.ErrLinkConflict
}

func (s *sqlLinkStore) IncrementHitCount(ctx context.Context, code string) (count int64, err error) {
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return 0, biz.StoreError(err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.WithContext(ctx).Errorf("rollback failed: %v", rbErr)
			}
		}
	}()

	b := s.builder()
	update, args := b.Update(s.table).
		Add(columnHitCount, 1).
		Where(entsql.EQ(columnShortcode, code)).
		Query()

	var res stdsql.Result
	if err = tx.Exec(ctx, update, args, &res); err != nil {
		return 0, biz.StoreError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, biz.StoreError(err)
	}
	if affected == 0 {
		err = biz.ErrUnknownShortcode
		return 0, err
	}

	t := b.Table(s.table)
	query, args := b.Select(t.C(columnHitCount)).
		From(t).
		Where(entsql.EQ(t.C(columnShortcode), code)).
		Query()

	var rows entsql.Rows
	if err = tx.Query(ctx, query, args, &rows); err != nil {
		return 0, biz.StoreError(err)
	}
	if !rows.Next() {
		rows.Close()
		err = biz.ErrUnknownShortcode
		return 0, err
	}
	if err = rows.Scan(&count); err != nil {
		rows.Close()
		return 0, biz.StoreError(err)
	}
	rows.Close()

	if err = tx.Commit(); err != nil {
		return 0, biz.StoreError(err)
	}
	return count, nil
}

func (s *sqlLinkStore) ListByCreationDesc(ctx context.Context) iter.Seq2[*biz.Link, error] {
	return func(yield func(*biz.Link, error) bool) {
		var cursor *linkRow
		for {
			page, err := s.listPage(ctx, cursor)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, row := range page {
				if !yield(row.link, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			cursor = &page[len(page)-1]
		}
	}
}

// listPage reads the page after cursor in (created_at, id) descending order.
// Rows inserted after the first page sort above the cursor and are not seen.
func (s *sqlLinkStore) listPage(ctx context.Context, cursor *linkRow) ([]linkRow, error) {
	b := s.builder()
	t := b.Table(s.table)
	sel := b.Select(t.Columns(columnID, columnURL, columnShortcode, columnHitCount, columnCreatedAt)...).
		From(t)
	if cursor != nil {
		created := cursor.link.CreatedAt.UnixMilli()
		sel.Where(entsql.Or(
			entsql.LT(t.C(columnCreatedAt), created),
			entsql.And(
				entsql.EQ(t.C(columnCreatedAt), created),
				entsql.LT(t.C(columnID), cursor.id),
			),
		))
	}
	query, args := sel.
		OrderBy(entsql.Desc(t.C(columnCreatedAt)), entsql.Desc(t.C(columnID))).
		Limit(s.pageSize).
		Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, biz.StoreError(err)
	}
	defer rows.Close()

	page := make([]linkRow, 0, s.pageSize)
	for rows.Next() {
		var (
			row       linkRow
			link      biz.Link
			createdAt int64
		)
		if err := rows.Scan(&row.id, &link.URL, &link.Shortcode, &link.HitCount, &createdAt); err != nil {
			return nil, biz.StoreError(err)
		}
		link.CreatedAt = time.UnixMilli(createdAt).UTC()
		row.link = &link
		page = append(page, row)
	}
	if err := rows.Err(); err != nil {
		return nil, biz.StoreError(err)
	}
	return page, nil
}

func (s *sqlLinkStore) Ping(ctx context.Context) error {
	return biz.StoreError(s.drv.DB().PingContext(ctx))
}

// queryOne scans the first row into dest and reports whether there was one.
func (s *sqlLinkStore) queryOne(ctx context.Context, query string, args []any, dest ...any) (bool, error) {
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return false, biz.StoreError(err)
	}
	defer rows.Close()

	if !rows.Next() {
		return false, biz.StoreError(rows.Err())
	}
	if err := rows.Scan(dest...); err != nil {
		return false, biz.StoreError(err)
	}
	return true, nil
}

func isUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
