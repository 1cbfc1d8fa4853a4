package data

import (
	"context"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Column names of the links table.
const (
	columnID        = "id"
	columnURL       = "url"
	columnShortcode = "shortcode"
	columnHitCount  = "hit_count"
	columnCreatedAt = "created_at"
)

// linksTableName namespaces the links table, e.g. shorturl_links.
func linksTableName(namespace string) string {
	return namespace + "_links"
}

// linksTable describes one row per link. The unique indexes on url and
// shortcode carry the bijection; (created_at, id) orders the listing.
func linksTable(namespace string) *schema.Table {
	columns := []*schema.Column{
		{Name: columnID, Type: field.TypeInt64, Increment: true},
		{Name: columnURL, Type: field.TypeString, Unique: true, Size: 2048},
		{Name: columnShortcode, Type: field.TypeString, Unique: true, Size: 64},
		{Name: columnHitCount, Type: field.TypeInt64, Default: 0},
		{Name: columnCreatedAt, Type: field.TypeInt64},
	}
	name := linksTableName(namespace)
	return &schema.Table{
		Name:       name,
		Columns:    columns,
		PrimaryKey: []*schema.Column{columns[0]},
		Indexes: []*schema.Index{
			{
				Name:    name + "_created_at_id",
				Unique:  false,
				Columns: []*schema.Column{columns[4], columns[0]},
			},
		},
	}
}

func migrate(ctx context.Context, drv dialect.Driver, namespace string) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, linksTable(namespace))
}
