// Package esedb is the boundary between the directory engine and whatever
// reads the ESE pages of an NTDS.dit file. The engine only ever sees tables,
// columns and typed cells through the interfaces declared here.
package esedb

import (
	"errors"
	"fmt"
)

// Logical table names inside an NTDS.dit file.
const (
	DataTable = "datatable"
	LinkTable = "link_table"
	SDTable   = "sd_table"
)

var ErrTableNotFound = errors.New("table not found")

type Column struct {
	ID   int32
	Name string
	Type Kind
}

type Row interface {
	// Value returns the cell for columnID, or a null Value when the row
	// carries nothing for that column.
	Value(columnID int32) (Value, error)
}

type Table interface {
	Name() string
	Columns() []Column
	RowCount() int
	Row(n int) (Row, error)
}

type Database interface {
	Table(name string) (Table, error)
	Close() error
}

// ForEachRow streams every row of t in table order. Iteration stops at the
// first error returned by fn.
func ForEachRow(t Table, fn func(n int, row Row) error) error {
	count := t.RowCount()
	for n := 0; n < count; n++ {
		row, err := t.Row(n)
		if err != nil {
			return fmt.Errorf("read row %d of %s: %w", n, t.Name(), err)
		}
		if err := fn(n, row); err != nil {
			return err
		}
	}
	return nil
}

// ColumnByName returns the first column of t with the given name.
func ColumnByName(t Table, name string) (Column, bool) {
	for _, c := range t.Columns() {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
