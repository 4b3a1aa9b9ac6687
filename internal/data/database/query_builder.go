// Package database assembles the parameterized listing queries the report
// repositories share. Identifiers are quoted through pgx so option values can
// never splice SQL into the statement; every value travels as a placeholder.
package database

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ConditionType is a WHERE comparison operator.
type ConditionType string

const (
	// Equal matches a column against a single value.
	Equal ConditionType = "="
	// Any matches a column against any element of a slice, emitted as
	// column = ANY (ARRAY[...]). Team-scoped report listings use it to
	// filter on a set of member IDs.
	Any ConditionType = "ANY"

	unsetLimit  = -1
	unsetOffset = -1
)

// Condition is one WHERE predicate on a single column.
type Condition struct {
	Field string
	Type  ConditionType
	Value any
}

// WhereCond builds a condition on a single column.
func WhereCond(field string, condType ConditionType, value any) Condition {
	return Condition{Field: field, Type: condType, Value: value}
}

// ListQueryOptions collects the pieces of a SELECT over one table.
type ListQueryOptions struct {
	Table      string
	Columns    []string
	Conditions []Condition
	OrderBy    string
	OrderDir   string
	Limit      int
	Offset     int
}

type ListQueryOption func(*ListQueryOptions)

// NewListQueryOptions starts an option set for the given table. Limit and
// offset default to unset sentinels so zero remains a valid explicit value.
func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	options := &ListQueryOptions{
		Table:  table,
		Limit:  unsetLimit,
		Offset: unsetOffset,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithColumns sets the columns to select. Without it the query selects *.
func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Columns = cols
	}
}

// WithCondition appends one WHERE predicate. Predicates combine with AND.
func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Conditions = append(o.Conditions, cond)
	}
}

// WithOrderBy sets the ordering column and direction. Directions other than
// ASC or DESC are dropped, leaving the server default.
func WithOrderBy(column, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = column
		o.OrderDir = direction
	}
}

// WithLimit sets the limit. Accepts 0.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithOffset sets the offset. Accepts 0.
func WithOffset(offset int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if offset >= 0 {
			o.Offset = offset
		}
	}
}

// BuildListQuery renders the options into a SQL string and its argument
// slice. Conditions with an empty field or an empty Any slice are skipped
// rather than rendered, so callers can pass filters unconditionally.
func BuildListQuery(options *ListQueryOptions) (string, []any) {
	if options == nil {
		return "", nil
	}

	var query strings.Builder
	query.WriteString("SELECT ")
	if len(options.Columns) == 0 {
		query.WriteString("*")
	} else {
		quoted := make([]string, len(options.Columns))
		for i, col := range options.Columns {
			quoted[i] = quoteIdentifier(col)
		}
		query.WriteString(strings.Join(quoted, ", "))
	}
	query.WriteString(" FROM ")
	query.WriteString(quoteIdentifier(options.Table))

	args := []any{}
	param := 1

	clauses := make([]string, 0, len(options.Conditions))
	for _, cond := range options.Conditions {
		clause, condArgs, next := buildCondition(cond, param)
		if clause == "" {
			continue
		}
		clauses = append(clauses, clause)
		args = append(args, condArgs...)
		param = next
	}
	if len(clauses) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(clauses, " AND "))
	}

	if options.OrderBy != "" {
		query.WriteString(" ORDER BY ")
		query.WriteString(quoteIdentifier(options.OrderBy))
		dir := strings.ToUpper(options.OrderDir)
		if dir == "ASC" || dir == "DESC" {
			query.WriteString(" ")
			query.WriteString(dir)
		}
	}
	if options.Limit != unsetLimit {
		query.WriteString(fmt.Sprintf(" LIMIT $%d", param))
		args = append(args, options.Limit)
		param++
	}
	if options.Offset != unsetOffset {
		query.WriteString(fmt.Sprintf(" OFFSET $%d", param))
		args = append(args, options.Offset)
	}

	return query.String(), args
}

func buildCondition(cond Condition, param int) (string, []any, int) {
	if cond.Field == "" {
		return "", nil, param
	}
	field := quoteIdentifier(cond.Field)

	switch cond.Type {
	case Equal:
		return fmt.Sprintf("%s = $%d", field, param), []any{cond.Value}, param + 1
	case Any:
		rv := reflect.ValueOf(cond.Value)
		if rv.Kind() != reflect.Slice || rv.Len() == 0 {
			return "", nil, param
		}
		placeholders := make([]string, rv.Len())
		args := make([]any, rv.Len())
		for i := range rv.Len() {
			placeholders[i] = fmt.Sprintf("$%d", param)
			args[i] = rv.Index(i).Interface()
			param++
		}
		clause := fmt.Sprintf("%s = ANY (ARRAY[%s])", field, strings.Join(placeholders, ", "))
		return clause, args, param
	}
	return "", nil, param
}

// quoteIdentifier quotes a table or column name, splitting qualified names
// like "weekly_reports.created_at" into their dotted parts.
func quoteIdentifier(ident string) string {
	return pgx.Identifier(strings.Split(ident, ".")).Sanitize()
}
