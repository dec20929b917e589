package domain

import (
	"encoding/json"
	"maps"
)

// AggregateResultType is the attributes.type tag the service puts on rows
// produced by aggregate queries.
const AggregateResultType = "AggregateResult"

// Attributes is the metadata envelope attached to every returned record.
type Attributes struct {
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
}

// Record is one row of a query result. Values keeps every column except the
// attributes envelope.
type Record struct {
	Attributes Attributes
	Values     map[string]any
}

// Get returns the value of a column.
func (r Record) Get(column string) (any, bool) {
	v, ok := r.Values[column]
	return v, ok
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Values = make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "attributes" {
			if err := json.Unmarshal(v, &r.Attributes); err != nil {
				return err
			}
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		r.Values[k] = val
	}
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Values)+1)
	maps.Copy(out, r.Values)
	if r.Attributes.Type != "" || r.Attributes.URL != "" {
		out["attributes"] = r.Attributes
	}
	return json.Marshal(out)
}
