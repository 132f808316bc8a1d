package esedb_test

import (
	"path/filepath"
	"testing"

	"f0oster/ntdsinspect/esedb"
	"f0oster/ntdsinspect/ntdstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *esedb.MemoryTable {
	t.Helper()
	tbl := esedb.NewMemoryTable(esedb.DataTable, []esedb.Column{
		{ID: 1, Name: "DNT_col", Type: esedb.KindI32},
		{ID: 2, Name: "ATTm589825", Type: esedb.KindLargeText},
		{ID: 3, Name: "ATTr589970", Type: esedb.KindBinary},
		{ID: 4, Name: "ATTq589876", Type: esedb.KindCurrency},
	})
	require.NoError(t, tbl.AppendRow(map[string]esedb.Value{
		"DNT_col":    esedb.I32(2),
		"ATTm589825": esedb.LargeText("$ROOT_OBJECT$"),
	}))
	require.NoError(t, tbl.AppendRow(map[string]esedb.Value{
		"DNT_col":    esedb.I32(3),
		"ATTr589970": esedb.Binary([]byte{0x01, 0x02}),
		"ATTq589876": esedb.Currency(132000000000000000),
	}))
	return tbl
}

func TestMemoryTable(t *testing.T) {
	tbl := sampleTable(t)

	assert.Equal(t, 2, tbl.RowCount())

	row, err := tbl.Row(0)
	require.NoError(t, err)
	v, err := row.Value(4)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	_, err = tbl.Row(2)
	assert.Error(t, err)

	err = tbl.AppendRow(map[string]esedb.Value{"nope": esedb.I32(1)})
	assert.Error(t, err)
}

func TestForEachRowStopsOnError(t *testing.T) {
	tbl := sampleTable(t)
	seen := 0
	err := esedb.ForEachRow(tbl, func(n int, row esedb.Row) error {
		seen++
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, seen)
}

func TestMemoryDatabaseMissingTable(t *testing.T) {
	db := esedb.NewMemoryDatabase(sampleTable(t))
	_, err := db.Table(esedb.LinkTable)
	assert.ErrorIs(t, err, esedb.ErrTableNotFound)
}

func TestSQLiteDumpPreservesKinds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ntds.sqlite")
	require.NoError(t, ntdstest.WriteSQLite(path, sampleTable(t)))

	db, err := esedb.OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	tbl, err := db.Table(esedb.DataTable)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.RowCount())

	col, ok := esedb.ColumnByName(tbl, "ATTq589876")
	require.True(t, ok)
	assert.Equal(t, esedb.KindCurrency, col.Type)

	row, err := tbl.Row(1)
	require.NoError(t, err)

	v, err := row.Value(4)
	require.NoError(t, err)
	assert.Equal(t, esedb.Currency(132000000000000000), v)

	v, err = row.Value(3)
	require.NoError(t, err)
	assert.Equal(t, esedb.KindBinary, v.Kind)
	assert.Equal(t, []byte{0x01, 0x02}, v.Bytes)

	v, err = row.Value(2)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestSQLiteMistypedCellFailsOnlyItsColumn(t *testing.T) {
	tbl := esedb.NewMemoryTable(esedb.DataTable, []esedb.Column{
		{ID: 1, Name: "DNT_col", Type: esedb.KindI32},
		{ID: 3, Name: "ATTr589970", Type: esedb.KindBinary},
	})
	require.NoError(t, tbl.AppendRow(map[string]esedb.Value{
		"DNT_col":    esedb.I32(300),
		"ATTr589970": esedb.I64(42),
	}))
	path := filepath.Join(t.TempDir(), "ntds.sqlite")
	require.NoError(t, ntdstest.WriteSQLite(path, tbl))

	db, err := esedb.OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	dump, err := db.Table(esedb.DataTable)
	require.NoError(t, err)

	row, err := dump.Row(0)
	require.NoError(t, err)

	v, err := row.Value(1)
	require.NoError(t, err)
	assert.Equal(t, esedb.I32(300), v)

	_, err = row.Value(3)
	assert.ErrorContains(t, err, "ATTr589970")

	v, err = row.Value(99)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    esedb.Kind
		wantErr bool
	}{
		{"i32", esedb.KindI32, false},
		{" Large_Text ", esedb.KindLargeText, false},
		{"currency", esedb.KindCurrency, false},
		{"float", esedb.KindNull, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := esedb.ParseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
