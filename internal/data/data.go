package data

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"

	"shorturl/internal/biz"
	"shorturl/internal/conf"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(NewData, NewLinkStore)

// Backend names accepted in data.store.
const (
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite3"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

const defaultNamespace = "shorturl"

// Data holds the connection to the configured backend. Exactly one of rdb and
// db is set unless the memory store is used.
type Data struct {
	store     string
	namespace string
	rdb       *redis.Client
	db        *entsql.Driver
}

// NewData opens the backend named by c.Store. The returned cleanup closes it.
func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "data"))

	d := &Data{
		store:     c.Store,
		namespace: c.Namespace,
	}
	if d.store == "" {
		d.store = StoreRedis
	}
	if d.namespace == "" {
		d.namespace = defaultNamespace
	}

	switch d.store {
	case StoreRedis:
		d.rdb = newRedisClient(c.Redis)
	case StoreSQLite, StorePostgres:
		if c.Database == nil || c.Database.Source == "" {
			return nil, nil, fmt.Errorf("data: %s store needs data.database.source", d.store)
		}
		drv, err := openDatabase(context.Background(), d.store, c.Database.Source, d.namespace)
		if err != nil {
			return nil, nil, err
		}
		d.db = drv
	case StoreMemory:
	default:
		return nil, nil, fmt.Errorf("data: unknown store %q", d.store)
	}

	cleanup := func() {
		helper.Info("message", "closing the data resources")
		if d.rdb != nil {
			if err := d.rdb.Close(); err != nil {
				helper.Error(err)
			}
		}
		if d.db != nil {
			if err := d.db.Close(); err != nil {
				helper.Error(err)
			}
		}
	}

	helper.Infof("link store %s ready (namespace %q)", d.store, d.namespace)
	return d, cleanup, nil
}

// NewLinkStore returns the biz.LinkStore for the opened backend.
func NewLinkStore(d *Data, logger log.Logger) biz.LinkStore {
	switch {
	case d.rdb != nil:
		return newRedisLinkStore(d.rdb, d.namespace, logger)
	case d.db != nil:
		return newSQLLinkStore(d.db, d.namespace, logger)
	default:
		return newMemoryLinkStore()
	}
}

func newRedisClient(c *conf.Data_Redis) *redis.Client {
	opts := &redis.Options{Addr: "127.0.0.1:6379"}
	if c != nil {
		if c.Addr != "" {
			opts.Addr = c.Addr
		}
		opts.Password = c.Password
		opts.DB = c.Db
		opts.ReadTimeout = c.ReadTimeout.AsDuration()
		opts.WriteTimeout = c.WriteTimeout.AsDuration()
	}
	return redis.NewClient(opts)
}

func openDatabase(ctx context.Context, driverName, source, namespace string) (*entsql.Driver, error) {
	name := dialect.SQLite
	if driverName == StorePostgres {
		name = dialect.Postgres
	}

	drv, err := entsql.Open(name, source)
	if err != nil {
		return nil, fmt.Errorf("data: open %s: %w", driverName, err)
	}
	if name == dialect.SQLite {
		// One writer at a time; the pool queues the rest instead of failing
		// with SQLITE_BUSY.
		drv.DB().SetMaxOpenConns(1)
	}

	if err := migrate(ctx, drv, namespace); err != nil {
		drv.Close()
		return nil, fmt.Errorf("data: migrate %s: %w", driverName, err)
	}
	return drv, nil
}
