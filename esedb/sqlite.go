package esedb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// The typed table dump is a SQLite file holding one SQL table per NTDS
// table plus a catalog describing every column's NTDS id and storage kind:
//
//	CREATE TABLE _columns (table_name TEXT, column_id INTEGER, name TEXT, type TEXT)
//
// Row order inside each table is rowid order.
const CatalogTable = "_columns"

// SQLiteDatabase reads a typed table dump.
type SQLiteDatabase struct {
	db     *sql.DB
	tables map[string]*sqliteTable
}

// OpenSQLite opens a typed table dump and loads its column catalog.
func OpenSQLite(path string) (*SQLiteDatabase, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table dump: %w", err)
	}

	d := &SQLiteDatabase{db: db, tables: make(map[string]*sqliteTable)}
	if err := d.loadCatalog(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *SQLiteDatabase) loadCatalog() error {
	rows, err := d.db.Query(`SELECT table_name, column_id, name, type FROM ` + CatalogTable + ` ORDER BY table_name, column_id`)
	if err != nil {
		return fmt.Errorf("failed to read column catalog: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tableName, name, typeName string
			id                        int32
		)
		if err := rows.Scan(&tableName, &id, &name, &typeName); err != nil {
			return fmt.Errorf("failed to scan column catalog: %w", err)
		}
		kind, err := ParseKind(typeName)
		if err != nil {
			return fmt.Errorf("column %s.%s: %w", tableName, name, err)
		}
		t, ok := d.tables[tableName]
		if !ok {
			t = &sqliteTable{db: d.db, name: tableName}
			d.tables[tableName] = t
		}
		t.columns = append(t.columns, Column{ID: id, Name: name, Type: kind})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read column catalog: %w", err)
	}

	for _, t := range d.tables {
		if err := t.prepare(); err != nil {
			return err
		}
	}
	return nil
}

func (d *SQLiteDatabase) Table(name string) (Table, error) {
	t, ok := d.tables[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrTableNotFound)
	}
	return t, nil
}

func (d *SQLiteDatabase) Close() error {
	var errs []error
	for _, t := range d.tables {
		if t.stmt != nil {
			errs = append(errs, t.stmt.Close())
		}
	}
	errs = append(errs, d.db.Close())
	return errors.Join(errs...)
}

type sqliteTable struct {
	db       *sql.DB
	name     string
	columns  []Column
	position map[int32]int
	rowids   []int64
	stmt     *sql.Stmt
}

// prepare records the rowid of every row so Row(n) can address rows by
// position without holding their contents.
func (t *sqliteTable) prepare() error {
	rows, err := t.db.Query(`SELECT rowid FROM ` + quoteIdent(t.name) + ` ORDER BY rowid`)
	if err != nil {
		return fmt.Errorf("failed to list rows of %s: %w", t.name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to list rows of %s: %w", t.name, err)
		}
		t.rowids = append(t.rowids, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to list rows of %s: %w", t.name, err)
	}

	names := make([]string, len(t.columns))
	t.position = make(map[int32]int, len(t.columns))
	for i, c := range t.columns {
		names[i] = quoteIdent(c.Name)
		t.position[c.ID] = i
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE rowid = ?`, strings.Join(names, ", "), quoteIdent(t.name))
	t.stmt, err = t.db.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare row query for %s: %w", t.name, err)
	}
	return nil
}

func (t *sqliteTable) Name() string      { return t.name }
func (t *sqliteTable) Columns() []Column { return t.columns }
func (t *sqliteTable) RowCount() int     { return len(t.rowids) }

func (t *sqliteTable) Row(n int) (Row, error) {
	if n < 0 || n >= len(t.rowids) {
		return nil, fmt.Errorf("row %d out of range [0,%d)", n, len(t.rowids))
	}

	raw := make([]any, len(t.columns))
	dest := make([]any, len(t.columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := t.stmt.QueryRow(t.rowids[n]).Scan(dest...); err != nil {
		return nil, fmt.Errorf("failed to read row %d of %s: %w", n, t.name, err)
	}

	return &sqliteRow{table: t, n: n, raw: raw}, nil
}

// sqliteRow holds the scanned cells of one row. Cells are converted on
// access, so a cell of the wrong storage class only fails its own column.
type sqliteRow struct {
	table *sqliteTable
	n     int
	raw   []any
}

func (r *sqliteRow) Value(columnID int32) (Value, error) {
	i, ok := r.table.position[columnID]
	if !ok {
		return Null(), nil
	}
	c := r.table.columns[i]
	v, err := fromSQL(c.Type, r.raw[i])
	if err != nil {
		return Null(), fmt.Errorf("row %d column %s: %w", r.n, c.Name, err)
	}
	return v, nil
}

func fromSQL(kind Kind, raw any) (Value, error) {
	if raw == nil {
		return Null(), nil
	}
	switch kind {
	case KindI16, KindI32, KindI64, KindCurrency:
		i, ok := raw.(int64)
		if !ok {
			return Null(), fmt.Errorf("expected integer for %s, got %T", kind, raw)
		}
		return Value{Kind: kind, Int: i}, nil
	case KindText, KindLargeText:
		switch s := raw.(type) {
		case string:
			return Value{Kind: kind, Text: s}, nil
		case []byte:
			return Value{Kind: kind, Text: string(s)}, nil
		}
	case KindBinary, KindLargeBinary:
		switch b := raw.(type) {
		case []byte:
			return Value{Kind: kind, Bytes: b}, nil
		case string:
			return Value{Kind: kind, Bytes: []byte(b)}, nil
		}
	case KindNull:
		return Null(), nil
	}
	return Null(), fmt.Errorf("unexpected %T for %s column", raw, kind)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
