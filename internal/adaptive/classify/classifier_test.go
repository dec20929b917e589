package classify

import (
	"testing"

	"github.com/vietddude/soqlguard/internal/core/domain"
)

type fakeOutcome struct {
	success bool
	code    string
	msg     string
}

func (f fakeOutcome) IsSuccess() bool      { return f.success }
func (f fakeOutcome) ErrorCode() string    { return f.code }
func (f fakeOutcome) ErrorMessage() string { return f.msg }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   fakeOutcome
		want domain.Classification
	}{
		{
			"unsupported object",
			fakeOutcome{code: "INVALID_TYPE", msg: "sObject type 'BadObj' is not supported."},
			domain.ObjectError("BadObj"),
		},
		{
			"unsupported object unquoted",
			fakeOutcome{code: "INVALID_TYPE", msg: "sObject type BadObj is not supported. If you are attempting to use a custom object..."},
			domain.ObjectError("BadObj"),
		},
		{
			"invalid field",
			fakeOutcome{code: "INVALID_FIELD", msg: "Invalid field: 'B'"},
			domain.FieldError("B"),
		},
		{
			"aggregate on invalid field code",
			fakeOutcome{code: "INVALID_FIELD", msg: "field Description does not support aggregate operator COUNT"},
			domain.FieldError("Description"),
		},
		{
			"aggregate on malformed code",
			fakeOutcome{code: "MALFORMED_QUERY", msg: "\nSELECT COUNT(A) FROM Obj\n       ^\nERROR at Row:1:Column:8\nfield A does not support aggregate operator COUNT"},
			domain.FieldError("A"),
		},
		{
			"missing fields",
			fakeOutcome{code: "MALFORMED_QUERY", msg: "\nSELECT FROM Obj\n       ^\nERROR at Row:1:Column:8\nunexpected token: 'FROM'"},
			domain.QueryStructureError(domain.DetailMissingFields),
		},
		{
			"alias limit",
			fakeOutcome{code: "MALFORMED_QUERY", msg: "maximum number of aliased fields exceeded: 100"},
			domain.Classification{Kind: domain.ClassQueryStructureError, Detail: domain.DetailAliasLimit, AliasLimit: 100},
		},
		{
			"unexpected token other than FROM",
			fakeOutcome{code: "MALFORMED_QUERY", msg: "unexpected token: 'WHERE'"},
			domain.Unclassified(),
		},
		{
			"invalid field phrase under wrong code",
			fakeOutcome{code: "MALFORMED_QUERY", msg: "Invalid field: 'B'"},
			domain.Unclassified(),
		},
		{
			"object phrase under wrong code",
			fakeOutcome{code: "INVALID_FIELD", msg: "sObject type 'BadObj' is not supported."},
			domain.Unclassified(),
		},
		{
			"case differs",
			fakeOutcome{code: "INVALID_FIELD", msg: "invalid field: 'B'"},
			domain.Unclassified(),
		},
		{
			"phrase embedded in a token",
			fakeOutcome{code: "INVALID_FIELD", msg: "xInvalid field: 'B'"},
			domain.Unclassified(),
		},
		{
			"unknown code",
			fakeOutcome{code: "REQUEST_LIMIT_EXCEEDED", msg: "TotalRequests Limit exceeded."},
			domain.Unclassified(),
		},
		{
			"no envelope",
			fakeOutcome{},
			domain.Unclassified(),
		},
		{
			"success",
			fakeOutcome{success: true},
			domain.Classification{Kind: domain.ClassNone},
		},
	}

	for _, tt := range tests {
		got := Classify(tt.in)
		if got.Kind != tt.want.Kind || got.ObjectName != tt.want.ObjectName ||
			got.FieldName != tt.want.FieldName || got.Detail != tt.want.Detail ||
			got.AliasLimit != tt.want.AliasLimit {
			t.Errorf("%s: Classify() = %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestFieldErrorTakesPriority(t *testing.T) {
	in := fakeOutcome{
		code: "MALFORMED_QUERY",
		msg:  "unexpected token: 'FROM'\nfield A does not support aggregate operator COUNT",
	}
	got := Classify(in)
	if got.Kind != domain.ClassFieldError || got.FieldName != "A" {
		t.Errorf("Classify() = %+v, want field error on A", got)
	}
	if got.Rule != "aggregate_not_supported" {
		t.Errorf("Rule = %q, want aggregate_not_supported", got.Rule)
	}
}

func TestClassifyKeepsDiagnostics(t *testing.T) {
	got := Classify(fakeOutcome{code: "INVALID_FIELD", msg: "Invalid field: 'B'"})
	if got.ErrorCode != "INVALID_FIELD" || got.ErrorMessage != "Invalid field: 'B'" {
		t.Errorf("diagnostics = %q %q", got.ErrorCode, got.ErrorMessage)
	}
}

func TestCustomRules(t *testing.T) {
	c := New(nil, DefaultRules[1])
	got := c.Classify(fakeOutcome{code: "INVALID_TYPE", msg: "sObject type 'X' is not supported."})
	if got.Kind != domain.ClassUnclassified {
		t.Errorf("Classify() with reduced table = %v, want unclassified", got.Kind)
	}
}
