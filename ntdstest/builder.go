// Package ntdstest builds small in-memory NTDS databases for tests.
package ntdstest

import (
	"encoding/binary"
	"fmt"
	"time"

	"f0oster/ntdsinspect/activedirectory/schema"
	"f0oster/ntdsinspect/activedirectory/transformers"
	"f0oster/ntdsinspect/esedb"
)

// Well known record ids laid down by Skeleton.
const (
	RootID          int32 = 2
	DomainID        int32 = 10
	SchemaID        int32 = 100
	PersonTypeID    int32 = 101
	GroupTypeID     int32 = 102
	ComputerTypeID  int32 = 103
	ContainerTypeID int32 = 104
	DeletedID       int32 = 20
)

// Attrs is a record under construction, keyed by attribute.
type Attrs map[schema.AttributeID]esedb.Value

type Builder struct {
	data  *esedb.MemoryTable
	links *esedb.MemoryTable
	sds   *esedb.MemoryTable
	omit  map[schema.AttributeID]bool
}

// Option adjusts the data table layout.
type Option func(*Builder)

// WithoutColumn drops the column of id from the data table.
func WithoutColumn(id schema.AttributeID) Option {
	return func(b *Builder) { b.omit[id] = true }
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{omit: make(map[schema.AttributeID]bool)}
	for _, opt := range opts {
		opt(b)
	}

	registry := schema.NewRegistry()
	var columns []esedb.Column
	for i, id := range schema.AttributeIDs() {
		if b.omit[id] {
			continue
		}
		kind, err := registry.KindOf(id)
		if err != nil {
			panic(err)
		}
		columns = append(columns, esedb.Column{ID: int32(i + 1), Name: id.Column(), Type: storageKind(kind)})
	}
	b.data = esedb.NewMemoryTable(esedb.DataTable, columns)
	b.links = esedb.NewMemoryTable(esedb.LinkTable, []esedb.Column{
		{ID: 1, Name: "link_DNT", Type: esedb.KindI32},
		{ID: 2, Name: "backlink_DNT", Type: esedb.KindI32},
		{ID: 3, Name: "link_base", Type: esedb.KindI32},
		{ID: 4, Name: "link_data", Type: esedb.KindBinary},
	})
	b.sds = esedb.NewMemoryTable(esedb.SDTable, []esedb.Column{
		{ID: 1, Name: "sd_id", Type: esedb.KindI64},
		{ID: 2, Name: "sd_value", Type: esedb.KindLargeBinary},
	})
	return b
}

func storageKind(kind transformers.DecoderKind) esedb.Kind {
	switch kind {
	case transformers.DecodeInteger:
		return esedb.KindI32
	case transformers.DecodeText:
		return esedb.KindLargeText
	case transformers.DecodeBinary, transformers.DecodeSID, transformers.DecodeGUID:
		return esedb.KindBinary
	case transformers.DecodeDescriptorID:
		return esedb.KindI64
	}
	return esedb.KindCurrency
}

// Record appends one raw data table row.
func (b *Builder) Record(attrs Attrs) *Builder {
	values := make(map[string]esedb.Value, len(attrs))
	for id, v := range attrs {
		if b.omit[id] {
			continue
		}
		values[id.Column()] = v
	}
	if err := b.data.AppendRow(values); err != nil {
		panic(err)
	}
	return b
}

// Object appends a record with id, parent, RDN and type; extra attributes
// are merged in and may override those.
func (b *Builder) Object(id, parent int32, name string, typeID int32, extra Attrs) *Builder {
	attrs := Attrs{
		schema.DsRecordID:        esedb.I32(id),
		schema.DsParentRecordID:  esedb.I32(parent),
		schema.AttRdn:            esedb.LargeText(name),
		schema.AttCommonName:     esedb.LargeText(name),
		schema.DsRecordTime:      esedb.Currency(0),
		schema.DsRdnType:         esedb.I32(3),
		schema.AttObjectCategory: esedb.I32(typeID),
	}
	if typeID == 0 {
		attrs[schema.AttObjectCategory] = esedb.Null()
	}
	for k, v := range extra {
		attrs[k] = v
	}
	return b.Record(attrs)
}

// Skeleton lays down the root, a domain, the deleted objects container, the
// schema container and the supported type definitions.
func (b *Builder) Skeleton() *Builder {
	b.Object(RootID, 0, "$ROOT_OBJECT$", 0, nil)
	b.Object(DomainID, RootID, "example", ContainerTypeID, Attrs{schema.DsRdnType: esedb.I32(1376281)})
	b.Object(DeletedID, DomainID, "Deleted Objects", ContainerTypeID, nil)
	b.Object(SchemaID, DomainID, "Schema", ContainerTypeID, nil)
	b.Object(PersonTypeID, SchemaID, schema.TypePerson, 0, nil)
	b.Object(GroupTypeID, SchemaID, schema.TypeGroup, 0, nil)
	b.Object(ComputerTypeID, SchemaID, schema.TypeComputer, 0, nil)
	b.Object(ContainerTypeID, SchemaID, "Container", 0, nil)
	return b
}

func (b *Builder) Link(base, source, target int32) *Builder {
	err := b.links.AppendRow(map[string]esedb.Value{
		"link_DNT":     esedb.I32(source),
		"backlink_DNT": esedb.I32(target),
		"link_base":    esedb.I32(base),
	})
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) Descriptor(id int64, blob []byte) *Builder {
	err := b.sds.AppendRow(map[string]esedb.Value{
		"sd_id":    esedb.I64(id),
		"sd_value": esedb.LargeBinary(blob),
	})
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) DataTable() *esedb.MemoryTable { return b.data }
func (b *Builder) LinkTable() *esedb.MemoryTable { return b.links }
func (b *Builder) SDTable() *esedb.MemoryTable   { return b.sds }

func (b *Builder) Database() *esedb.MemoryDatabase {
	return esedb.NewMemoryDatabase(b.data, b.links, b.sds)
}

// NTDSSID encodes a SID the way the objectSid column stores it.
func NTDSSID(authority uint64, subs ...uint32) []byte {
	return encodeSID(authority, subs, true)
}

// SID encodes a SID in the standard little-endian layout.
func SID(authority uint64, subs ...uint32) []byte {
	return encodeSID(authority, subs, false)
}

func encodeSID(authority uint64, subs []uint32, ridBigEndian bool) []byte {
	b := []byte{1, byte(len(subs))}
	auth := make([]byte, 8)
	binary.BigEndian.PutUint64(auth, authority)
	b = append(b, auth[2:]...)
	for i, s := range subs {
		chunk := make([]byte, 4)
		if ridBigEndian && i == len(subs)-1 {
			binary.BigEndian.PutUint32(chunk, s)
		} else {
			binary.LittleEndian.PutUint32(chunk, s)
		}
		b = append(b, chunk...)
	}
	return b
}

// Filetime encodes t as 100ns ticks since 1601.
func Filetime(t time.Time) esedb.Value {
	return esedb.Currency((t.Unix()+11644473600)*10_000_000 + int64(t.Nanosecond())/100)
}

// DatabaseTime encodes t as whole seconds since 1601.
func DatabaseTime(t time.Time) esedb.Value {
	return esedb.Currency(t.Unix() + 11644473600)
}

// DomainSID returns the objectSid column value for rid in a fixed domain.
func DomainSID(rid uint32) esedb.Value {
	return esedb.Binary(NTDSSID(5, 21, 1111, 2222, 3333, rid))
}

func DomainSIDString(rid uint32) string {
	return fmt.Sprintf("S-1-5-21-1111-2222-3333-%d", rid)
}
