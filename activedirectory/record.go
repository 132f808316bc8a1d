package activedirectory

import (
	"fmt"

	"f0oster/ntdsinspect/activedirectory/cache"
	"f0oster/ntdsinspect/activedirectory/schema"
	"f0oster/ntdsinspect/activedirectory/transformers"
	"f0oster/ntdsinspect/esedb"
)

// Record is a typed view on one data table row.
type Record struct {
	Entry cache.IndexEntry
	row   esedb.Row
	in    *Instance
}

// Decode reads id through the decoder the registry assigns to it.
func (r *Record) Decode(id schema.AttributeID) (transformers.Value, error) {
	kind, err := r.in.Schema.Registry.KindOf(id)
	if err != nil {
		return transformers.Value{}, err
	}
	raw, err := r.in.Schema.Columns.Value(r.row, id)
	if err != nil {
		return transformers.Value{}, err
	}
	v, err := transformers.Decode(kind, raw)
	if err != nil {
		return transformers.Value{}, fmt.Errorf("%s: %w", id, err)
	}
	return v, nil
}

// Text returns a text attribute, or "" when it is absent or unreadable.
func (r *Record) Text(id schema.AttributeID) string {
	v, err := r.Decode(id)
	if err != nil {
		return ""
	}
	s, err := v.AsText()
	if err != nil || s == nil {
		return ""
	}
	return *s
}

// DisplayName picks the most specific name the record carries.
func (r *Record) DisplayName() string {
	for _, id := range []schema.AttributeID{schema.AttSAMAccountName, schema.AttRdn, schema.AttCommonName} {
		if s := r.Text(id); s != "" {
			return s
		}
	}
	return fmt.Sprintf("record %d", r.Entry.RecordID)
}

// Attributes decodes every non-null column of the row in catalog order.
// Columns the registry has no decoder for, and values that fail to read
// or decode, are returned in raw form with Err set.
func (r *Record) Attributes() []Attribute {
	var out []Attribute
	for _, col := range r.in.Schema.Columns.Columns() {
		name := col.Name
		if id, ok := schema.AttributeByColumn(col.Name); ok {
			name = id.String()
		}
		raw, err := r.row.Value(col.ID)
		if err != nil {
			out = append(out, Attribute{Column: col.Name, Name: name, Err: err})
			continue
		}
		if raw.IsNull() {
			continue
		}
		attr := Attribute{Column: col.Name, Name: name, Raw: raw.String()}

		ft, err := r.in.Schema.Registry.Lookup(col.Name)
		if err != nil {
			attr.Err = err
			out = append(out, attr)
			continue
		}
		v, err := transformers.Decode(ft.Kind, raw)
		if err != nil {
			attr.Err = err
		} else {
			attr.Value = v
		}
		out = append(out, attr)
	}
	return out
}
