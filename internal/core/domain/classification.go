package domain

import "fmt"

// ClassificationKind tags the variant held by a Classification.
type ClassificationKind string

const (
	ClassNone                ClassificationKind = "none"
	ClassObjectError         ClassificationKind = "object_error"
	ClassFieldError          ClassificationKind = "field_error"
	ClassQueryStructureError ClassificationKind = "query_structure_error"
	ClassUnclassified        ClassificationKind = "unclassified"
)

// StructureDetail narrows a query-structure error.
type StructureDetail string

const (
	DetailMissingFields StructureDetail = "missing_fields"
	DetailAliasLimit    StructureDetail = "alias_limit"
)

// Classification is the decision made about a failed response. Only the
// fields relevant to Kind are set.
type Classification struct {
	Kind       ClassificationKind `json:"kind"`
	ObjectName string             `json:"object_name,omitempty"`
	FieldName  string             `json:"field_name,omitempty"`
	Detail     StructureDetail    `json:"detail,omitempty"`
	AliasLimit int                `json:"alias_limit,omitempty"`

	// Rule names the pattern-table entry that matched, empty for
	// ClassNone and ClassUnclassified.
	Rule         string `json:"rule,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func ObjectError(object string) Classification {
	return Classification{Kind: ClassObjectError, ObjectName: object}
}

func FieldError(field string) Classification {
	return Classification{Kind: ClassFieldError, FieldName: field}
}

func QueryStructureError(detail StructureDetail) Classification {
	return Classification{Kind: ClassQueryStructureError, Detail: detail}
}

func Unclassified() Classification {
	return Classification{Kind: ClassUnclassified}
}

// IsError reports whether c describes a failure.
func (c Classification) IsError() bool {
	return c.Kind != ClassNone && c.Kind != ""
}

func (c Classification) String() string {
	switch c.Kind {
	case ClassObjectError:
		return fmt.Sprintf("object error: %s", c.ObjectName)
	case ClassFieldError:
		return fmt.Sprintf("field error: %s", c.FieldName)
	case ClassQueryStructureError:
		if c.Detail == DetailAliasLimit {
			return fmt.Sprintf("query structure error: %s (%d)", c.Detail, c.AliasLimit)
		}
		return fmt.Sprintf("query structure error: %s", c.Detail)
	case ClassUnclassified:
		if c.ErrorCode != "" {
			return "unclassified: " + c.ErrorCode
		}
		return "unclassified"
	default:
		return "none"
	}
}
