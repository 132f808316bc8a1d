package activedirectory

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"f0oster/ntdsinspect/activedirectory/cache"
	"f0oster/ntdsinspect/activedirectory/schema"
	"f0oster/ntdsinspect/activedirectory/secdesc"
	"f0oster/ntdsinspect/activedirectory/transformers"
	"f0oster/ntdsinspect/esedb"

	"go.uber.org/zap"
)

type Options struct {
	// SDCacheSize bounds the number of decoded security descriptors kept
	// in memory. Zero selects secdesc.DefaultCacheSize.
	SDCacheSize int
}

// Instance is an opened NTDS database: the resolved schema, the record
// index and the link and descriptor tables. It is read-only once Open
// returns.
type Instance struct {
	Schema      *schema.Schema
	Index       *cache.Index
	Links       *cache.LinkTable
	Descriptors *secdesc.Table

	data      esedb.Table
	supported map[int32]ObjectType
	logger    *zap.Logger
	sugar     *zap.SugaredLogger
}

// Open resolves the schema and builds every index. Failures here leave no
// usable instance and are fatal to the caller.
func Open(db esedb.Database, opts Options, logger *zap.Logger) (*Instance, error) {
	sugar := logger.Sugar()

	data, err := db.Table(esedb.DataTable)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", esedb.DataTable, err)
	}

	sugar.Info("resolving schema")
	s, err := schema.Resolve(data, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema: %w", err)
	}

	sugar.Info("indexing data table")
	idx, err := cache.Build(data, s, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to index data table: %w", err)
	}

	in := &Instance{
		Schema:    s,
		Index:     idx,
		data:      data,
		supported: make(map[int32]ObjectType),
		logger:    logger,
		sugar:     sugar,
	}
	for _, name := range schema.SupportedTypes {
		def, _ := s.TypeByName(name)
		in.supported[def.RecordID] = ObjectTypeOf(name)
	}

	linkTable, err := db.Table(esedb.LinkTable)
	switch {
	case errors.Is(err, esedb.ErrTableNotFound):
		sugar.Warnw("no link table, group membership will be empty")
		in.Links = cache.EmptyLinkTable()
	case err != nil:
		return nil, fmt.Errorf("failed to open %s: %w", esedb.LinkTable, err)
	default:
		if in.Links, err = cache.BuildLinkTable(linkTable, logger); err != nil {
			return nil, fmt.Errorf("failed to index link table: %w", err)
		}
	}

	sdTable, err := db.Table(esedb.SDTable)
	switch {
	case errors.Is(err, esedb.ErrTableNotFound):
		sugar.Warnw("no security descriptor table, descriptors will be empty")
	case err != nil:
		return nil, fmt.Errorf("failed to open %s: %w", esedb.SDTable, err)
	default:
		if in.Descriptors, err = secdesc.Load(sdTable, opts.SDCacheSize, logger); err != nil {
			return nil, fmt.Errorf("failed to load security descriptors: %w", err)
		}
	}

	return in, nil
}

// TypeOf classifies an entry by its object category.
func (in *Instance) TypeOf(e cache.IndexEntry) ObjectType {
	if !e.HasType {
		return ObjectOther
	}
	return in.supported[e.TypeID]
}

// TypeID returns the record id of the type definition for t.
func (in *Instance) TypeID(t ObjectType) (int32, bool) {
	for id, st := range in.supported {
		if st == t {
			return id, true
		}
	}
	return 0, false
}

// Record fetches the full row behind e.
func (in *Instance) Record(e cache.IndexEntry) (*Record, error) {
	row, err := in.data.Row(e.Pointer.Row)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", e.Pointer, err)
	}
	return &Record{Entry: e, row: row, in: in}, nil
}

// RecordByID fetches the row of record id. ok is false if id is not
// indexed.
func (in *Instance) RecordByID(id int32) (rec *Record, ok bool, err error) {
	e, ok := in.Index.Lookup(id)
	if !ok {
		return nil, false, nil
	}
	rec, err = in.Record(e)
	return rec, true, err
}

// Descriptor decodes the security descriptor referenced by the record.
// A record without a reference, or a file without sd_table, yields nil.
func (in *Instance) Descriptor(rec *Record) (*secdesc.SecurityDescriptor, error) {
	f := &fieldReader{rec: rec}
	id := field(f, schema.AttNTSecurityDescriptor, transformers.Value.AsInt64)
	if f.err != nil || id == nil || in.Descriptors == nil {
		return nil, f.err
	}
	sd, ok, err := in.Descriptors.Get(*id)
	if err != nil {
		return nil, err
	}
	if !ok {
		in.sugar.Debugw("security descriptor not in sd_table", "recordId", rec.Entry.RecordID, "sdId", *id)
	}
	return sd, nil
}

// ResolveSID finds the account holding sid and returns its account name.
func (in *Instance) ResolveSID(sid string) (string, bool) {
	i := strings.LastIndexByte(sid, '-')
	if i < 0 {
		return "", false
	}
	rid, err := strconv.ParseUint(sid[i+1:], 10, 32)
	if err != nil {
		return "", false
	}
	for _, e := range in.Index.ByRID(uint32(rid)) {
		rec, err := in.Record(e)
		if err != nil {
			continue
		}
		if rec.Text(schema.AttObjectSid) != sid {
			continue
		}
		return rec.DisplayName(), true
	}
	return "", false
}
