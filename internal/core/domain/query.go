package domain

import (
	"slices"
	"strings"
)

// Field is a single select-list item: a bare identifier, or an aggregate
// function applied to one (COUNT(Name)).
type Field struct {
	Name      string `json:"name"`
	Aggregate string `json:"aggregate,omitempty"`
}

// String renders the field as it appears in a select list.
func (f Field) String() string {
	if f.Aggregate == "" {
		return f.Name
	}
	return f.Aggregate + "(" + f.Name + ")"
}

// Query is an immutable SELECT over a single object. Mutating operations
// return a new Query; the receiver is never changed.
type Query struct {
	object  string
	fields  []Field
	clauses string
}

// NewQuery builds a Query. clauses is the opaque text that follows the
// object name (WHERE, GROUP BY, ORDER BY, LIMIT), without a leading space.
func NewQuery(object string, fields []Field, clauses string) Query {
	return Query{
		object:  strings.TrimSpace(object),
		fields:  slices.Clone(fields),
		clauses: strings.TrimSpace(clauses),
	}
}

// Select is shorthand for a query over bare fields.
func Select(object string, names ...string) Query {
	fields := make([]Field, 0, len(names))
	for _, n := range names {
		fields = append(fields, Field{Name: n})
	}
	return NewQuery(object, fields, "")
}

func (q Query) Object() string  { return q.object }
func (q Query) Clauses() string { return q.clauses }
func (q Query) FieldCount() int { return len(q.fields) }

// Fields returns a copy of the select list.
func (q Query) Fields() []Field {
	return slices.Clone(q.fields)
}

// FieldNames returns the identifiers of the select list in order.
func (q Query) FieldNames() []string {
	names := make([]string, len(q.fields))
	for i, f := range q.fields {
		names[i] = f.Name
	}
	return names
}

// IndexOf returns the position of the first field whose identifier equals
// name exactly, or -1.
func (q Query) IndexOf(name string) int {
	for i, f := range q.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// WithoutField returns a copy of q with every select item on the given
// identifier removed. The bool reports whether anything was removed.
func (q Query) WithoutField(name string) (Query, bool) {
	kept := make([]Field, 0, len(q.fields))
	for _, f := range q.fields {
		if f.Name != name {
			kept = append(kept, f)
		}
	}
	if len(kept) == len(q.fields) {
		return q, false
	}
	return Query{object: q.object, fields: kept, clauses: q.clauses}, true
}

// WithField returns a copy of q with f appended unless an identical item
// is already present.
func (q Query) WithField(f Field) Query {
	if slices.Contains(q.fields, f) {
		return q
	}
	fields := append(slices.Clone(q.fields), f)
	return Query{object: q.object, fields: fields, clauses: q.clauses}
}

// WithClauses returns a copy of q with the trailing clause text replaced.
func (q Query) WithClauses(clauses string) Query {
	return Query{object: q.object, fields: slices.Clone(q.fields), clauses: strings.TrimSpace(clauses)}
}

// Text renders q as `SELECT f1, f2 FROM Object [clauses]`. An empty select
// list renders as `SELECT FROM Object`, which the service rejects; the
// executor still sends it once when the budget allows.
func (q Query) Text() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	for i, f := range q.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.String())
	}
	if len(q.fields) > 0 {
		sb.WriteString(" ")
	}
	sb.WriteString("FROM ")
	sb.WriteString(q.object)
	if q.clauses != "" {
		sb.WriteString(" ")
		sb.WriteString(q.clauses)
	}
	return sb.String()
}

func (q Query) String() string { return q.Text() }

// Equal reports whether two queries render identically.
func (q Query) Equal(other Query) bool {
	return q.object == other.object && q.clauses == other.clauses && slices.Equal(q.fields, other.fields)
}
