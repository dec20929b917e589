package soql

import "github.com/vietddude/soqlguard/internal/core/domain"

// DefaultGroups is the number of groups MostCommonValues returns when the
// caller passes zero.
const DefaultGroups = 3

// CountOfFieldsValues counts non-null values of every field in a single
// aggregate row: SELECT COUNT(f1), COUNT(f2) FROM Object.
func CountOfFieldsValues(object string, fields []string) domain.Query {
	b := NewSelect(object)
	for _, f := range fields {
		b.AddAggregate("COUNT", f)
	}
	return b.Build()
}

// CountOfFieldValue groups the object's rows by field and counts each
// group, smallest first.
func CountOfFieldValue(object, field string) domain.Query {
	return NewSelect(object, field).
		AddAggregate("COUNT", "Id").
		GroupBy(field).
		OrderBy("COUNT(Id)", "").
		Build()
}

// MostCommonValues returns the groups most frequent values of field.
func MostCommonValues(object, field string, groups int) domain.Query {
	if groups <= 0 {
		groups = DefaultGroups
	}
	return NewSelect(object, field).
		AddAggregate("COUNT", "Id").
		GroupBy(field).
		OrderBy("COUNT(Id)", "DESC").
		Limit(groups).
		Build()
}

// LastCreatedWithField returns the newest row that has field populated.
func LastCreatedWithField(object, field string) domain.Query {
	return NewSelect(object, "CreatedDate", field).
		WhereRaw(field + " != null").
		OrderBy("CreatedDate", "DESC").
		Limit(1).
		Build()
}
