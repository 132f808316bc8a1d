package cache

import (
	"errors"
	"fmt"

	"f0oster/ntdsinspect/activedirectory/transformers"
	"f0oster/ntdsinspect/esedb"

	"go.uber.org/zap"
)

// MemberLinkBase is the link base of the member/memberOf pair.
const MemberLinkBase int32 = 1

var ErrMissingLinkColumn = errors.New("missing column in link table")

type LinkEntry struct {
	LinkBase int32
	Source   int32
	Target   int32
	Data     []byte
}

// LinkTable indexes forward links by (link base, source) and backward
// links by (link base, target). Targets are not checked against the data
// table here.
type LinkTable struct {
	entries  []LinkEntry
	forward  map[int32]map[int32][]int
	backward map[int32]map[int32][]int
	skipped  int
}

type linkColumns struct {
	source, target, base int32
	data                 int32
	hasData              bool
}

func resolveLinkColumns(table esedb.Table) (linkColumns, error) {
	var lc linkColumns
	for name, dst := range map[string]*int32{
		"link_DNT":     &lc.source,
		"backlink_DNT": &lc.target,
		"link_base":    &lc.base,
	} {
		c, ok := esedb.ColumnByName(table, name)
		if !ok {
			return lc, fmt.Errorf("%w: %s", ErrMissingLinkColumn, name)
		}
		*dst = c.ID
	}
	if c, ok := esedb.ColumnByName(table, "link_data"); ok {
		lc.data, lc.hasData = c.ID, true
	}
	return lc, nil
}

func readLinkInt(row esedb.Row, col int32) (int32, error) {
	raw, err := row.Value(col)
	if err != nil {
		return 0, err
	}
	return transformers.Required(transformers.Int32(raw))
}

func (lc linkColumns) read(row esedb.Row) (LinkEntry, error) {
	var (
		e   LinkEntry
		err error
	)
	if e.Source, err = readLinkInt(row, lc.source); err != nil {
		return e, fmt.Errorf("link_DNT: %w", err)
	}
	if e.Target, err = readLinkInt(row, lc.target); err != nil {
		return e, fmt.Errorf("backlink_DNT: %w", err)
	}
	if e.LinkBase, err = readLinkInt(row, lc.base); err != nil {
		return e, fmt.Errorf("link_base: %w", err)
	}
	if lc.hasData {
		data, err := row.Value(lc.data)
		if err != nil {
			return e, fmt.Errorf("link_data: %w", err)
		}
		e.Data = data.Bytes
	}
	return e, nil
}

// EmptyLinkTable stands in for a file without a link table.
func EmptyLinkTable() *LinkTable {
	return &LinkTable{
		forward:  make(map[int32]map[int32][]int),
		backward: make(map[int32]map[int32][]int),
	}
}

func BuildLinkTable(table esedb.Table, logger *zap.Logger) (*LinkTable, error) {
	sugar := logger.Sugar()
	lc, err := resolveLinkColumns(table)
	if err != nil {
		return nil, err
	}

	lt := EmptyLinkTable()

	err = esedb.ForEachRow(table, func(n int, row esedb.Row) error {
		entry, err := lc.read(row)
		if err != nil {
			sugar.Warnw("skipping link row", "row", n, "error", err)
			lt.skipped++
			return nil
		}
		lt.add(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sugar.Infow("link table indexed", "links", len(lt.entries), "skipped", lt.skipped)
	return lt, nil
}

func (lt *LinkTable) add(e LinkEntry) {
	i := len(lt.entries)
	lt.entries = append(lt.entries, e)
	if lt.forward[e.LinkBase] == nil {
		lt.forward[e.LinkBase] = make(map[int32][]int)
	}
	if lt.backward[e.LinkBase] == nil {
		lt.backward[e.LinkBase] = make(map[int32][]int)
	}
	lt.forward[e.LinkBase][e.Source] = append(lt.forward[e.LinkBase][e.Source], i)
	lt.backward[e.LinkBase][e.Target] = append(lt.backward[e.LinkBase][e.Target], i)
}

func (lt *LinkTable) Len() int { return len(lt.entries) }

func (lt *LinkTable) Skipped() int { return lt.skipped }

// Links returns the forward links of source for base, in table order.
func (lt *LinkTable) Links(base, source int32) []LinkEntry {
	return lt.pick(lt.forward[base][source])
}

// Targets returns what source points at through base.
func (lt *LinkTable) Targets(base, source int32) []int32 {
	links := lt.Links(base, source)
	out := make([]int32, len(links))
	for i, l := range links {
		out[i] = l.Target
	}
	return out
}

// Sources returns what points at target through base.
func (lt *LinkTable) Sources(base, target int32) []int32 {
	positions := lt.backward[base][target]
	out := make([]int32, len(positions))
	for i, p := range positions {
		out[i] = lt.entries[p].Source
	}
	return out
}

func (lt *LinkTable) pick(positions []int) []LinkEntry {
	out := make([]LinkEntry, len(positions))
	for i, p := range positions {
		out[i] = lt.entries[p]
	}
	return out
}

// ResolveTargets dereferences linked record ids against the index. Ids that
// are not indexed are reported as DanglingLinkTargetError and left out.
func (idx *Index) ResolveTargets(source int32, ids []int32) ([]IndexEntry, []error) {
	var (
		out  []IndexEntry
		errs []error
	)
	for _, id := range ids {
		e, ok := idx.Lookup(id)
		if !ok {
			errs = append(errs, &DanglingLinkTargetError{Source: source, Target: id})
			continue
		}
		out = append(out, e)
	}
	return out, errs
}
