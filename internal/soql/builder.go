package soql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/soqlguard/internal/core/domain"
)

// Builder assembles a SELECT statement. It is not safe for concurrent use;
// Build returns an immutable domain.Query.
type Builder struct {
	object     string
	fields     []domain.Field
	conditions []string
	groupBy    []string
	orderBy    []string
	limit      int
}

// NewSelect starts a statement over object with the given bare fields.
func NewSelect(object string, fields ...string) *Builder {
	b := &Builder{object: object}
	for _, f := range fields {
		b.AddField(f)
	}
	return b
}

// AddField appends a bare field unless it is already selected.
func (b *Builder) AddField(name string) *Builder {
	return b.add(domain.Field{Name: name})
}

// AddAggregate appends fn(name), e.g. AddAggregate("COUNT", "Id").
func (b *Builder) AddAggregate(fn, name string) *Builder {
	return b.add(domain.Field{Name: name, Aggregate: strings.ToUpper(fn)})
}

func (b *Builder) add(f domain.Field) *Builder {
	for _, existing := range b.fields {
		if existing == f {
			return b
		}
	}
	b.fields = append(b.fields, f)
	return b
}

// RemoveField drops every select item on name.
func (b *Builder) RemoveField(name string) *Builder {
	kept := b.fields[:0]
	for _, f := range b.fields {
		if f.Name != name {
			kept = append(kept, f)
		}
	}
	b.fields = kept
	return b
}

// Where adds a condition; multiple conditions are joined with AND.
func (b *Builder) Where(field, op string, value any) *Builder {
	b.conditions = append(b.conditions, fmt.Sprintf("%s %s %s", field, op, Literal(value)))
	return b
}

// WhereRaw adds a pre-rendered condition.
func (b *Builder) WhereRaw(cond string) *Builder {
	b.conditions = append(b.conditions, cond)
	return b
}

func (b *Builder) GroupBy(fields ...string) *Builder {
	b.groupBy = append(b.groupBy, fields...)
	return b
}

// OrderBy adds a sort key; an empty direction means ASC.
func (b *Builder) OrderBy(expr, direction string) *Builder {
	if direction == "" {
		direction = "ASC"
	}
	b.orderBy = append(b.orderBy, expr+" "+strings.ToUpper(direction))
	return b
}

func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Build renders the clauses and returns the query.
func (b *Builder) Build() domain.Query {
	var parts []string
	if len(b.conditions) > 0 {
		parts = append(parts, "WHERE "+strings.Join(b.conditions, " AND "))
	}
	if len(b.groupBy) > 0 {
		parts = append(parts, "GROUP BY "+strings.Join(b.groupBy, ", "))
	}
	if len(b.orderBy) > 0 {
		parts = append(parts, "ORDER BY "+strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		parts = append(parts, "LIMIT "+strconv.Itoa(b.limit))
	}
	return domain.NewQuery(b.object, b.fields, strings.Join(parts, " "))
}

// Literal renders a Go value as a query literal.
func Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return quote(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.UTC().Format("2006-01-02T15:04:05Z")
	default:
		return fmt.Sprint(x)
	}
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

func quote(s string) string {
	return "'" + literalEscaper.Replace(s) + "'"
}
