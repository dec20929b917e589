package soql

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/vietddude/soqlguard/internal/core/domain"
)

var (
	// ErrNotSelect is returned for text that is not a SELECT ... FROM statement.
	ErrNotSelect = errors.New("not a SELECT statement")
	// ErrUnsupportedItem is returned for select items other than identifiers
	// and single-argument function calls.
	ErrUnsupportedItem = errors.New("unsupported select item")
)

var (
	selectRe     = regexp.MustCompile(`(?is)^\s*SELECT\s+(?:(.*?)\s+)?FROM\s+(\S+)(?:\s+(.*?))?\s*$`)
	identRe      = regexp.MustCompile(`^[A-Za-z_][\w.]*$`)
	aggregateRe  = regexp.MustCompile(`^([A-Za-z_]\w*)\s*\(\s*([\w.]*)\s*\)$`)
	strictNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)*$`)
)

// Parse reads `SELECT <items> FROM <Object> [clauses]`. Everything after
// the object name is kept verbatim as opaque clause text.
func Parse(text string) (domain.Query, error) {
	m := selectRe.FindStringSubmatch(text)
	if m == nil {
		return domain.Query{}, fmt.Errorf("%w: %q", ErrNotSelect, text)
	}

	items := splitTopLevel(m[1])
	fields := make([]domain.Field, 0, len(items))
	for _, item := range items {
		f, err := parseItem(item)
		if err != nil {
			return domain.Query{}, err
		}
		fields = append(fields, f)
	}

	return domain.NewQuery(m[2], fields, m[3]), nil
}

// MustParse is Parse for statically known text; it panics on error.
func MustParse(text string) domain.Query {
	q, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return q
}

// ValidIdentifier reports whether name is a plain (optionally dotted)
// object or field identifier.
func ValidIdentifier(name string) bool {
	return strictNameRe.MatchString(name)
}

func parseItem(item string) (domain.Field, error) {
	item = strings.TrimSpace(item)
	if identRe.MatchString(item) {
		return domain.Field{Name: item}, nil
	}
	if m := aggregateRe.FindStringSubmatch(item); m != nil {
		return domain.Field{Name: m[2], Aggregate: m[1]}, nil
	}
	return domain.Field{}, fmt.Errorf("%w: %q", ErrUnsupportedItem, item)
}

// splitTopLevel splits a select list on commas outside parentheses.
func splitTopLevel(list string) []string {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil
	}

	var (
		out   []string
		depth int
		start int
	)
	for i, r := range list {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(list[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(list[start:]))
}
