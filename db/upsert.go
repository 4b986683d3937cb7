package db

import (
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

var ErrEmptyConflictKey = errors.New("upsert requires at least one key column")

// UpsertBuilder renders an idempotent INSERT ... ON CONFLICT statement.
// Key columns form the conflict target and must match a unique index on the table.
type UpsertBuilder struct {
	table      string
	keys       []string
	columns    []string
	values     []interface{}
	updates    []string
	returning  string
	ignoreDups bool
}

func Upsert(table string) *UpsertBuilder {
	return &UpsertBuilder{table: table}
}

// InsertIgnore inserts the row only when no row with the same key exists.
func InsertIgnore(table string) *UpsertBuilder {
	return &UpsertBuilder{table: table, ignoreDups: true}
}

func (b *UpsertBuilder) Key(column string, value interface{}) *UpsertBuilder {
	b.keys = append(b.keys, column)
	b.columns = append(b.columns, column)
	b.values = append(b.values, value)
	return b
}

// Set adds a column that is written on insert and overwritten on conflict.
func (b *UpsertBuilder) Set(column string, value interface{}) *UpsertBuilder {
	b.columns = append(b.columns, column)
	b.values = append(b.values, value)
	b.updates = append(b.updates, column)
	return b
}

// SetOnInsert adds a column that is written on insert only.
func (b *UpsertBuilder) SetOnInsert(column string, value interface{}) *UpsertBuilder {
	b.columns = append(b.columns, column)
	b.values = append(b.values, value)
	return b
}

func (b *UpsertBuilder) Returning(column string) *UpsertBuilder {
	b.returning = column
	return b
}

func (b *UpsertBuilder) ToSql() (string, []interface{}, error) { //nolint:revive,stylecheck
	if len(b.keys) == 0 {
		return "", nil, ErrEmptyConflictKey
	}
	var suffix strings.Builder
	suffix.WriteString("ON CONFLICT (")
	suffix.WriteString(strings.Join(b.keys, ", "))
	suffix.WriteString(")")
	if b.ignoreDups {
		suffix.WriteString(" DO NOTHING")
	} else {
		// updated_at is always touched, so RETURNING yields the existing row even without value columns
		suffix.WriteString(" DO UPDATE SET updated_at = NOW()")
		for _, col := range b.updates {
			suffix.WriteString(", ")
			suffix.WriteString(col)
			suffix.WriteString(" = EXCLUDED.")
			suffix.WriteString(col)
		}
	}
	if b.returning != "" {
		suffix.WriteString(" RETURNING ")
		suffix.WriteString(b.returning)
	}
	return sq.Insert(b.table).
		Columns(b.columns...).
		Values(b.values...).
		Suffix(suffix.String()).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}
