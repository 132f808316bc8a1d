package schema

import (
	"fmt"

	"f0oster/ntdsinspect/esedb"
)

// MissingColumnError is fatal: a reserved column the engine depends on is
// absent from the data table.
type MissingColumnError struct {
	Attribute AttributeID
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %s (%s) in data table", e.Attribute.Column(), e.Attribute)
}

// ColumnMapping binds attributes to the column ids of one opened file.
type ColumnMapping struct {
	columns     []esedb.Column
	byAttribute map[AttributeID]esedb.Column
	byID        map[int32]esedb.Column
}

// ResolveColumns matches the table's columns against the known attribute
// column names. Unknown columns are kept so they can still be displayed.
func ResolveColumns(columns []esedb.Column) (*ColumnMapping, error) {
	m := &ColumnMapping{
		columns:     columns,
		byAttribute: make(map[AttributeID]esedb.Column),
		byID:        make(map[int32]esedb.Column, len(columns)),
	}
	for _, c := range columns {
		m.byID[c.ID] = c
		if id, ok := AttributeByColumn(c.Name); ok {
			if _, seen := m.byAttribute[id]; !seen {
				m.byAttribute[id] = c
			}
		}
	}
	for _, id := range AttributeIDs() {
		if _, ok := m.byAttribute[id]; !ok && id.Required() {
			return nil, &MissingColumnError{Attribute: id}
		}
	}
	return m, nil
}

func (m *ColumnMapping) Column(id AttributeID) (esedb.Column, bool) {
	c, ok := m.byAttribute[id]
	return c, ok
}

func (m *ColumnMapping) ColumnByID(columnID int32) (esedb.Column, bool) {
	c, ok := m.byID[columnID]
	return c, ok
}

// Columns returns every column of the data table in catalog order.
func (m *ColumnMapping) Columns() []esedb.Column {
	return m.columns
}

// Value reads id from row. Attributes without a column read as null.
func (m *ColumnMapping) Value(row esedb.Row, id AttributeID) (esedb.Value, error) {
	c, ok := m.byAttribute[id]
	if !ok {
		return esedb.Null(), nil
	}
	v, err := row.Value(c.ID)
	if err != nil {
		return esedb.Null(), fmt.Errorf("read %s: %w", id, err)
	}
	return v, nil
}

// Read fetches id from row and runs it through decode.
func Read[T any](m *ColumnMapping, row esedb.Row, id AttributeID, decode func(esedb.Value) (*T, error)) (*T, error) {
	raw, err := m.Value(row, id)
	if err != nil {
		return nil, err
	}
	v, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	return v, nil
}
