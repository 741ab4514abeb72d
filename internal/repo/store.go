package repo

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Migrations holds the schema migrations applied by golang-migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// DBTX is the subset of pgxpool.Pool used by the store.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads pricing inputs from PostgreSQL. Numeric columns are selected as
// text and parsed into decimals so no precision is lost in transit.
type Store struct {
	db DBTX
}

// New constructs a Store.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// parseDecimal parses a required NUMERIC column. Values decimal cannot
// represent, such as NaN, are logged and read as zero.
func parseDecimal(ctx context.Context, column, id, raw string) decimal.Decimal {
	return parseNullDecimal(ctx, column, id, &raw).Decimal
}

// parseNullDecimal parses a nullable NUMERIC column. Unparseable values are
// logged and read as absent so one bad row does not fail the whole lookup.
func parseNullDecimal(ctx context.Context, column, id string, raw *string) decimal.NullDecimal {
	if raw == nil {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("column", column).
			Str("id", id).
			Str("value", *raw).
			Msg("repo_invalid_numeric")
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
