package esedb

import (
	"fmt"
)

// MemoryTable is a fully decoded table held in memory. It backs tests and
// callers that already hold the rows.
type MemoryTable struct {
	name    string
	columns []Column
	byName  map[string]int32
	rows    []memoryRow
}

type memoryRow map[int32]Value

func (r memoryRow) Value(columnID int32) (Value, error) {
	if v, ok := r[columnID]; ok {
		return v, nil
	}
	return Null(), nil
}

func NewMemoryTable(name string, columns []Column) *MemoryTable {
	byName := make(map[string]int32, len(columns))
	for _, c := range columns {
		byName[c.Name] = c.ID
	}
	return &MemoryTable{
		name:    name,
		columns: columns,
		byName:  byName,
	}
}

// AppendRow adds a row keyed by column name.
func (t *MemoryTable) AppendRow(values map[string]Value) error {
	row := make(memoryRow, len(values))
	for name, v := range values {
		id, ok := t.byName[name]
		if !ok {
			return fmt.Errorf("table %s has no column %q", t.name, name)
		}
		row[id] = v
	}
	t.rows = append(t.rows, row)
	return nil
}

func (t *MemoryTable) Name() string      { return t.name }
func (t *MemoryTable) Columns() []Column { return t.columns }
func (t *MemoryTable) RowCount() int     { return len(t.rows) }

func (t *MemoryTable) Row(n int) (Row, error) {
	if n < 0 || n >= len(t.rows) {
		return nil, fmt.Errorf("row %d out of range [0,%d)", n, len(t.rows))
	}
	return t.rows[n], nil
}

type MemoryDatabase struct {
	tables map[string]Table
}

func NewMemoryDatabase(tables ...Table) *MemoryDatabase {
	db := &MemoryDatabase{tables: make(map[string]Table, len(tables))}
	for _, t := range tables {
		db.tables[t.Name()] = t
	}
	return db
}

func (db *MemoryDatabase) Table(name string) (Table, error) {
	t, ok := db.tables[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrTableNotFound)
	}
	return t, nil
}

func (db *MemoryDatabase) Close() error { return nil }
