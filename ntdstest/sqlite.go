package ntdstest

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"f0oster/ntdsinspect/esedb"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// WriteSQLite writes tables into a new typed table dump at path. Cells are
// stored with the storage class of their own value, so a value of the wrong
// kind lands in the dump as it would in a damaged export.
func WriteSQLite(path string, tables ...esedb.Table) (err error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to create table dump: %w", err)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	if _, err = tx.Exec(`CREATE TABLE ` + esedb.CatalogTable + ` (table_name TEXT, column_id INTEGER, name TEXT, type TEXT)`); err != nil {
		return fmt.Errorf("failed to create column catalog: %w", err)
	}
	for _, t := range tables {
		if err = writeTable(tx, t); err != nil {
			return err
		}
	}
	return nil
}

// Dump writes the builder's tables to a dump in a temporary directory and
// returns its path.
func (b *Builder) Dump(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ntds.sqlite")
	require.NoError(t, WriteSQLite(path, b.data, b.links, b.sds))
	return path
}

func writeTable(tx *sql.Tx, t esedb.Table) error {
	cols := t.Columns()
	defs := make([]string, len(cols))
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.Name)
		defs[i] = names[i] + " " + sqlType(c.Type)
		marks[i] = "?"
		if _, err := tx.Exec(`INSERT INTO `+esedb.CatalogTable+` VALUES (?, ?, ?, ?)`, t.Name(), c.ID, c.Name, c.Type.String()); err != nil {
			return fmt.Errorf("failed to write catalog entry %s.%s: %w", t.Name(), c.Name, err)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf(`CREATE TABLE %s (%s)`, quoteIdent(t.Name()), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("failed to create table %s: %w", t.Name(), err)
	}

	insert := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, quoteIdent(t.Name()), strings.Join(names, ", "), strings.Join(marks, ", "))
	return esedb.ForEachRow(t, func(n int, row esedb.Row) error {
		args := make([]any, len(cols))
		for i, c := range cols {
			v, err := row.Value(c.ID)
			if err != nil {
				return err
			}
			args[i] = toSQL(v)
		}
		if _, err := tx.Exec(insert, args...); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", n, t.Name(), err)
		}
		return nil
	})
}

func toSQL(v esedb.Value) any {
	switch v.Kind {
	case esedb.KindI16, esedb.KindI32, esedb.KindI64, esedb.KindCurrency:
		return v.Int
	case esedb.KindText, esedb.KindLargeText:
		return v.Text
	case esedb.KindBinary, esedb.KindLargeBinary:
		return v.Bytes
	}
	return nil
}

func sqlType(k esedb.Kind) string {
	switch k {
	case esedb.KindI16, esedb.KindI32, esedb.KindI64, esedb.KindCurrency:
		return "INTEGER"
	case esedb.KindText, esedb.KindLargeText:
		return "TEXT"
	}
	return "BLOB"
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
