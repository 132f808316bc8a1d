package secdesc

import (
	"errors"
	"fmt"

	"f0oster/ntdsinspect/esedb"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	idColumn    = "sd_id"
	valueColumn = "sd_value"

	DefaultCacheSize = 1024
)

var ErrMissingSDColumn = errors.New("missing column in sd_table")

// Table holds the raw descriptors of sd_table keyed by id and decodes them
// on demand.
type Table struct {
	blobs   map[int64][]byte
	decoded *lru.Cache[int64, *SecurityDescriptor]
	sugar   *zap.SugaredLogger
}

// Load reads every row of sd_table. Rows whose id or value cannot be read
// are logged and skipped.
func Load(table esedb.Table, cacheSize int, logger *zap.Logger) (*Table, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	idCol, ok := esedb.ColumnByName(table, idColumn)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSDColumn, idColumn)
	}
	valueCol, ok := esedb.ColumnByName(table, valueColumn)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSDColumn, valueColumn)
	}

	cache, err := lru.New[int64, *SecurityDescriptor](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create descriptor cache: %w", err)
	}

	t := &Table{
		blobs:   make(map[int64][]byte, table.RowCount()),
		decoded: cache,
		sugar:   logger.Sugar(),
	}

	err = esedb.ForEachRow(table, func(n int, row esedb.Row) error {
		id, err := readID(row, idCol.ID)
		if err != nil {
			t.sugar.Warnw("skipping sd_table row", "row", n, "error", err)
			return nil
		}
		v, err := row.Value(valueCol.ID)
		if err != nil {
			return err
		}
		switch v.Kind {
		case esedb.KindBinary, esedb.KindLargeBinary:
			t.blobs[id] = v.Bytes
		default:
			t.sugar.Warnw("skipping sd_table row", "row", n, "sd_id", id, "kind", v.Kind)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan sd_table: %w", err)
	}
	t.sugar.Infow("loaded security descriptors", "count", len(t.blobs))
	return t, nil
}

func readID(row esedb.Row, col int32) (int64, error) {
	v, err := row.Value(col)
	if err != nil {
		return 0, err
	}
	switch v.Kind {
	case esedb.KindI16, esedb.KindI32, esedb.KindI64, esedb.KindCurrency:
		return v.Int, nil
	}
	return 0, fmt.Errorf("unsupported %s value for %s", v.Kind, idColumn)
}

func (t *Table) Len() int { return len(t.blobs) }

// Get decodes the descriptor with the given id. ok is false when the id is
// not present in the table.
func (t *Table) Get(id int64) (sd *SecurityDescriptor, ok bool, err error) {
	if cached, hit := t.decoded.Get(id); hit {
		return cached, true, nil
	}
	blob, ok := t.blobs[id]
	if !ok {
		return nil, false, nil
	}
	sd, err = Parse(id, blob)
	if err != nil {
		var decodeErr *DescriptorDecodeError
		if errors.As(err, &decodeErr) {
			t.sugar.Errorw("failed to decode security descriptor", "sd_id", id, "blob", decodeErr.Blob, "error", err)
		}
		return nil, true, err
	}
	t.decoded.Add(id, sd)
	return sd, true, nil
}
