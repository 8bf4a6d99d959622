package database

import (
	"context"
	"database/sql"

	"github.com/farca/storefront/model"
	"github.com/farca/storefront/provider/local"
	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Config is the slice of configuration the database layer needs
type Config interface {
	GetDriver() string
	GetDSN() string
}

// Open connects the configured database and returns a bun handle.
// Supported drivers are sqlite (default) and postgres.
func Open(config Config) (*bun.DB, error) {
	switch config.GetDriver() {
	case "", "sqlite":
		sqldb, err := sql.Open(sqliteshim.ShimName, config.GetDSN())
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "unable to open sqlite database")
		}
		// in-memory sqlite loses state when the pool rotates connections
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case "postgres":
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(config.GetDSN())))
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, errors.New("unsupported database driver", errors.CategoryBadInput).
			WithMetadata(map[string]any{"driver": config.GetDriver()})
	}
}

// CreateSchema creates every table and index the application uses. Safe to
// run repeatedly, everything is IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*local.Credential)(nil),
		(*model.Profile)(nil),
		(*model.Product)(nil),
		(*model.Order)(nil),
		(*model.OrderItem)(nil),
		(*model.Document)(nil),
	}

	for _, m := range models {
		if _, err := db.NewCreateTable().
			Model(m).
			IfNotExists().
			Exec(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "unable to create table")
		}
	}

	indexes := []*bun.CreateIndexQuery{
		db.NewCreateIndex().
			Model((*model.Profile)(nil)).
			Index("idx_profiles_user_id").
			Unique().
			IfNotExists().
			Column("user_id"),
		db.NewCreateIndex().
			Model((*model.Order)(nil)).
			Index("idx_orders_client_id").
			IfNotExists().
			Column("client_id"),
		db.NewCreateIndex().
			Model((*model.OrderItem)(nil)).
			Index("idx_order_items_order_id").
			IfNotExists().
			Column("order_id"),
		db.NewCreateIndex().
			Model((*local.Credential)(nil)).
			Index("idx_credentials_email").
			Unique().
			IfNotExists().
			Column("email"),
	}

	for _, q := range indexes {
		if _, err := q.Exec(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "unable to create index")
		}
	}

	return nil
}
