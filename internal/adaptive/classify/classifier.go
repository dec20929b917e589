// Package classify decides why the query service rejected a statement.
//
// The service reports several distinct causes under one machine code, so
// the decision combines the error code with a match over the message text
// using an ordered, versioned rule table (see DefaultRules).
package classify

import (
	"log/slog"

	"github.com/vietddude/soqlguard/internal/core/domain"
)

// Outcome is the part of a parsed response the classifier reads.
type Outcome interface {
	IsSuccess() bool
	ErrorCode() string
	ErrorMessage() string
}

// Classifier applies a rule table. The zero value is not usable; use New.
type Classifier struct {
	rules []Rule
	log   *slog.Logger
}

// New returns a classifier over rules, or DefaultRules when none are given.
func New(log *slog.Logger, rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	if log == nil {
		log = slog.Default()
	}
	return &Classifier{
		rules: rules,
		log:   log.With("component", "classifier", "table", PatternTableVersion),
	}
}

var defaultClassifier = New(nil)

// Classify uses DefaultRules.
func Classify(o Outcome) domain.Classification {
	return defaultClassifier.Classify(o)
}

// Classify returns ClassNone for a successful outcome, the first matching
// rule's classification, or ClassUnclassified.
func (c *Classifier) Classify(o Outcome) domain.Classification {
	if o.IsSuccess() {
		return domain.Classification{Kind: domain.ClassNone}
	}

	code := o.ErrorCode()
	msg := o.ErrorMessage()

	for _, r := range c.rules {
		if !r.appliesTo(code) {
			continue
		}
		m := r.Pattern.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		cls, ok := r.Build(m)
		if !ok {
			continue
		}
		cls.Rule = r.Name
		cls.ErrorCode = code
		cls.ErrorMessage = msg
		c.log.Debug("Classified error", "rule", r.Name, "kind", cls.Kind, "code", code)
		return cls
	}

	cls := domain.Unclassified()
	cls.ErrorCode = code
	cls.ErrorMessage = msg
	c.log.Debug("No rule matched", "code", code, "message", msg)
	return cls
}
