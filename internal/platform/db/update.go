package db

import (
	"fmt"
	"strings"
)

// UpdateBuilder collects SET assignments for a partial UPDATE. Only columns
// passed to Set are written; updated_at is always refreshed.
type UpdateBuilder struct {
	table string
	sets  []string
	args  []interface{}
}

func NewUpdate(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (b *UpdateBuilder) Set(column string, value interface{}) *UpdateBuilder {
	b.args = append(b.args, value)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", Ident(column), len(b.args)))
	return b
}

// Len reports how many patch columns were set.
func (b *UpdateBuilder) Len() int { return len(b.sets) }

// Where finishes the statement with "WHERE keyColumn = $n" and returns the
// SQL and its arguments.
func (b *UpdateBuilder) Where(keyColumn string, key interface{}) (string, []interface{}) {
	sets := append(append([]string{}, b.sets...), "updated_at = NOW()")
	args := append(append([]interface{}{}, b.args...), key)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		Ident(b.table), strings.Join(sets, ", "), Ident(keyColumn), len(args))
	return sql, args
}
