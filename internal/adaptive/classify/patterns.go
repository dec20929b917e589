package classify

import (
	"regexp"
	"strconv"

	"github.com/vietddude/soqlguard/internal/core/domain"
)

// PatternTableVersion identifies the revision of DefaultRules. Bump it when
// a rule is added or its phrasing changes.
const PatternTableVersion = "2024.10"

// Service error codes the table knows about.
const (
	CodeInvalidType    = "INVALID_TYPE"
	CodeInvalidField   = "INVALID_FIELD"
	CodeMalformedQuery = "MALFORMED_QUERY"
)

// Rule maps an error code set plus a message pattern to a classification.
// Patterns are case-sensitive and anchored on a word boundary so that a
// phrase embedded inside another token does not match.
type Rule struct {
	Name    string
	Codes   []string
	Pattern *regexp.Regexp

	// Build turns the submatches into a classification. Returning false
	// rejects the match and evaluation continues with the next rule.
	Build func(m []string) (domain.Classification, bool)
}

func (r Rule) appliesTo(code string) bool {
	for _, c := range r.Codes {
		if c == code {
			return true
		}
	}
	return false
}

// DefaultRules is evaluated in order; first match wins. Field-level rules
// come before query-structure rules.
var DefaultRules = []Rule{
	{
		Name:    "object_not_supported",
		Codes:   []string{CodeInvalidType},
		Pattern: regexp.MustCompile(`\bsObject type '?([^'\s]+?)'? is not supported`),
		Build: func(m []string) (domain.Classification, bool) {
			return domain.ObjectError(m[1]), true
		},
	},
	{
		Name:    "invalid_field",
		Codes:   []string{CodeInvalidField},
		Pattern: regexp.MustCompile(`\bInvalid field: '([^']+)'`),
		Build: func(m []string) (domain.Classification, bool) {
			return domain.FieldError(m[1]), true
		},
	},
	{
		Name:    "aggregate_not_supported",
		Codes:   []string{CodeInvalidField, CodeMalformedQuery},
		Pattern: regexp.MustCompile(`\bfield '?([^'\s]+?)'? does not support aggregate operator`),
		Build: func(m []string) (domain.Classification, bool) {
			return domain.FieldError(m[1]), true
		},
	},
	{
		Name:    "missing_fields",
		Codes:   []string{CodeMalformedQuery},
		Pattern: regexp.MustCompile(`\bunexpected token: '?([^'\s]+)'?`),
		Build: func(m []string) (domain.Classification, bool) {
			if m[1] != "FROM" {
				return domain.Classification{}, false
			}
			return domain.QueryStructureError(domain.DetailMissingFields), true
		},
	},
	{
		Name:    "alias_limit",
		Codes:   []string{CodeMalformedQuery},
		Pattern: regexp.MustCompile(`\bmaximum number of aliased fields exceeded: (\d+)`),
		Build: func(m []string) (domain.Classification, bool) {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return domain.Classification{}, false
			}
			c := domain.QueryStructureError(domain.DetailAliasLimit)
			c.AliasLimit = n
			return c, true
		},
	},
}
