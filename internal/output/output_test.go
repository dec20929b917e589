package output

import (
	"bytes"
	"slices"
	"strings"
	"testing"
)

func TestColumns(t *testing.T) {
	rows := []map[string]any{
		{"Name": "a", "Id": "1"},
		{"Id": "2", "Owner": map[string]any{"Name": "x"}, "Amount": 3.5},
	}
	got := Columns([]string{"Name", "Missing", "Id", "Name"}, rows)
	want := []string{"Name", "Id", "Amount", "Owner"}
	if !slices.Equal(got, want) {
		t.Errorf("Columns() = %v, want %v", got, want)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{float64(42), "42"},
		{1.25, "1.25"},
		{true, "true"},
		{map[string]any{"Name": "x"}, `{"Name":"x"}`},
		{[]any{"a", 1.0}, `["a",1]`},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatters(t *testing.T) {
	columns := []string{"Id", "Name"}
	rows := []map[string]any{
		{"Id": "1", "Name": "Acme, Inc."},
		{"Id": "2", "Name": nil},
	}

	tests := []struct {
		format string
		want   []string
	}{
		{"csv", []string{"Id,Name\n1,\"Acme, Inc.\"\n2,\n"}},
		{"json", []string{`{"Id":"1","Name":"Acme, Inc."}`, `{"Id":"2","Name":null}`}},
		{"table", []string{"Id", "Name", "Acme, Inc."}},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		f, err := New(tt.format, &buf)
		if err != nil {
			t.Fatalf("New(%q) error: %v", tt.format, err)
		}
		if err := f.Format(columns, rows); err != nil {
			t.Fatalf("%s: Format() error: %v", tt.format, err)
		}
		for _, w := range tt.want {
			if !strings.Contains(buf.String(), w) {
				t.Errorf("%s: output %q does not contain %q", tt.format, buf.String(), w)
			}
		}
	}

	if _, err := New("xml", &bytes.Buffer{}); err == nil {
		t.Error("New(xml) returned no error")
	}
}
