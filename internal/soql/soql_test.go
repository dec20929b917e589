package soql

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/vietddude/soqlguard/internal/core/domain"
)

func TestParseRoundTrip(t *testing.T) {
	tests := []string{
		"SELECT A, B FROM Obj",
		"SELECT A FROM Obj",
		"SELECT COUNT(A) FROM Obj",
		"SELECT FROM Obj",
		"SELECT COUNT(Answer__c), COUNT(Question__c) FROM Knowledge__c",
		"SELECT Id, Owner.Name FROM Account WHERE Name != null ORDER BY CreatedDate DESC LIMIT 1",
		"SELECT Industry, COUNT(Id) FROM Account GROUP BY Industry ORDER BY COUNT(Id) DESC LIMIT 3",
	}

	for _, text := range tests {
		q, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", text, err)
		}
		if got := q.Text(); got != text {
			t.Errorf("Parse(%q).Text() = %q", text, got)
		}
	}
}

func TestParseFields(t *testing.T) {
	q, err := Parse("select COUNT(A), B from Obj where B = 'x'")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := []domain.Field{{Name: "A", Aggregate: "COUNT"}, {Name: "B"}}
	if !slices.Equal(q.Fields(), want) {
		t.Errorf("fields = %v, want %v", q.Fields(), want)
	}
	if q.Object() != "Obj" {
		t.Errorf("object = %q, want Obj", q.Object())
	}
	if q.Clauses() != "where B = 'x'" {
		t.Errorf("clauses = %q", q.Clauses())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		text string
		want error
	}{
		{"UPDATE Obj SET A = 1", ErrNotSelect},
		{"SELECT A", ErrNotSelect},
		{"SELECT A), B FROM Obj", ErrUnsupportedItem},
		{"SELECT COUNT(Id) cnt FROM Obj", ErrUnsupportedItem},
	}

	for _, tt := range tests {
		if _, err := Parse(tt.text); !errors.Is(err, tt.want) {
			t.Errorf("Parse(%q) error = %v, want %v", tt.text, err, tt.want)
		}
	}
}

func TestBuilder(t *testing.T) {
	q := NewSelect("Object", "Field1", "Field2").
		Where("Field1", "=", 10).
		OrderBy("Field2", "DESC").
		Build()

	want := "SELECT Field1, Field2 FROM Object WHERE Field1 = 10 ORDER BY Field2 DESC"
	if q.Text() != want {
		t.Errorf("Text() = %q, want %q", q.Text(), want)
	}
}

func TestBuilderAddRemoveField(t *testing.T) {
	b := NewSelect("Object", "Field1")
	b.AddField("Field1").AddField("Field2")
	if got := b.Build().FieldNames(); !slices.Equal(got, []string{"Field1", "Field2"}) {
		t.Errorf("fields after add = %v", got)
	}

	built := b.Build()
	b.RemoveField("Field1")
	if got := b.Build().FieldNames(); !slices.Equal(got, []string{"Field2"}) {
		t.Errorf("fields after remove = %v", got)
	}
	if got := built.FieldNames(); !slices.Equal(got, []string{"Field1", "Field2"}) {
		t.Errorf("earlier query changed to %v", got)
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{"O'Brien", `'O\'Brien'`},
		{true, "true"},
		{42, "42"},
		{int64(7), "7"},
		{1.5, "1.5"},
		{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02T03:04:05Z"},
	}

	for _, tt := range tests {
		if got := Literal(tt.in); got != tt.want {
			t.Errorf("Literal(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTemplates(t *testing.T) {
	tests := []struct {
		name string
		got  domain.Query
		want string
	}{
		{
			"count of fields values",
			CountOfFieldsValues("Obj", []string{"A", "B"}),
			"SELECT COUNT(A), COUNT(B) FROM Obj",
		},
		{
			"count of field value",
			CountOfFieldValue("Obj", "Stage"),
			"SELECT Stage, COUNT(Id) FROM Obj GROUP BY Stage ORDER BY COUNT(Id) ASC",
		},
		{
			"most common values default",
			MostCommonValues("Obj", "Stage", 0),
			"SELECT Stage, COUNT(Id) FROM Obj GROUP BY Stage ORDER BY COUNT(Id) DESC LIMIT 3",
		},
		{
			"last created",
			LastCreatedWithField("Obj", "Email"),
			"SELECT CreatedDate, Email FROM Obj WHERE Email != null ORDER BY CreatedDate DESC LIMIT 1",
		},
	}

	for _, tt := range tests {
		if tt.got.Text() != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got.Text(), tt.want)
		}
	}
}

func TestValidIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Account", true},
		{"hed__Facility__c", true},
		{"Owner.Name", true},
		{"1Bad", false},
		{"Name; DROP", false},
		{"", false},
		{"Account.", false},
	}
	for _, tt := range tests {
		if got := ValidIdentifier(tt.in); got != tt.want {
			t.Errorf("ValidIdentifier(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
