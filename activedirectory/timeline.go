package activedirectory

import (
	"fmt"
	"strconv"

	"f0oster/ntdsinspect/activedirectory/cache"
	"f0oster/ntdsinspect/activedirectory/schema"
	"f0oster/ntdsinspect/bodyfile"
)

type TimelineOptions struct {
	// AllObjects widens the scope from the supported types to every type
	// declared in the schema.
	AllObjects bool
	// IncludeDeleted adds the content of every Deleted Objects container
	// and the records that name one as their last known parent.
	IncludeDeleted bool
	// Scope, when set, is the precomputed result of TimelineScope and
	// replaces the selection made by AllObjects and IncludeDeleted.
	Scope []cache.IndexEntry
	// OnRecord, when set, is called once per record in scope.
	OnRecord func()
}

type TimelineSummary struct {
	Records int
	Lines   int
	Skipped int
}

// timelineEvent binds one timestamp attribute to the body file slot it
// fills. The registry decides how the attribute is decoded.
type timelineEvent struct {
	attr  schema.AttributeID
	slot  bodyfile.Slot
	label string
}

var (
	createdEvent = timelineEvent{schema.AttWhenCreated, bodyfile.Born, "created"}
	changedEvent = timelineEvent{schema.AttWhenChanged, bodyfile.Changed, "changed"}

	accountEvents = []timelineEvent{
		createdEvent,
		changedEvent,
		{schema.AttPwdLastSet, bodyfile.Modified, "password last set"},
		{schema.AttLastLogon, bodyfile.Accessed, "last logon"},
		{schema.AttLastLogonTimestamp, bodyfile.Accessed, "last logon timestamp"},
		{schema.AttBadPwdTime, bodyfile.Accessed, "bad password time"},
	}
	groupEvents  = []timelineEvent{createdEvent, changedEvent}
	recordEvents = []timelineEvent{{schema.DsRecordTime, bodyfile.Born, "record time"}}
)

func eventsFor(t ObjectType) []timelineEvent {
	switch t {
	case ObjectPerson, ObjectComputer:
		return accountEvents
	case ObjectGroup:
		return groupEvents
	}
	return recordEvents
}

// TimelineScope returns the records a timeline with opts covers, each once.
func (in *Instance) TimelineScope(opts TimelineOptions) []cache.IndexEntry {
	var typeIDs []int32
	if opts.AllObjects {
		for _, def := range in.Schema.Types() {
			typeIDs = append(typeIDs, def.RecordID)
		}
	} else {
		for _, name := range schema.SupportedTypes {
			if def, ok := in.Schema.TypeByName(name); ok {
				typeIDs = append(typeIDs, def.RecordID)
			}
		}
	}

	seen := make(map[int32]bool)
	var scope []cache.IndexEntry
	add := func(e cache.IndexEntry) {
		if seen[e.RecordID] {
			return
		}
		seen[e.RecordID] = true
		scope = append(scope, e)
	}
	for _, e := range in.Index.EntriesOfType(typeIDs...) {
		add(e)
	}
	if !opts.IncludeDeleted {
		return scope
	}

	tree := in.Index.Tree()
	for _, container := range in.Index.DeletedObjectsContainers() {
		for _, id := range tree.Descendants(container) {
			if e, ok := in.Index.Lookup(id); ok {
				add(e)
			}
		}
		for _, e := range in.Index.WithDeletedFrom() {
			if e.DeletedFrom == container {
				add(e)
			}
		}
	}
	return scope
}

// Timeline emits one body file line per present timestamp of every record
// in scope. Records that fail to decode are logged and skipped.
func (in *Instance) Timeline(opts TimelineOptions, fn func(bodyfile.Line) error) (TimelineSummary, error) {
	scope := opts.Scope
	if scope == nil {
		scope = in.TimelineScope(opts)
	}
	var summary TimelineSummary
	for _, e := range scope {
		if opts.OnRecord != nil {
			opts.OnRecord()
		}
		lines, err := in.timelineLines(e)
		if err != nil {
			in.sugar.Warnw("skipping record in timeline", "recordId", e.RecordID, "error", err)
			summary.Skipped++
			continue
		}
		summary.Records++
		for _, l := range lines {
			if err := fn(l); err != nil {
				return summary, err
			}
			summary.Lines++
		}
	}
	return summary, nil
}

func (in *Instance) timelineLines(e cache.IndexEntry) ([]bodyfile.Line, error) {
	rec, err := in.Record(e)
	if err != nil {
		return nil, err
	}
	typeName := "unknown"
	if def, ok := in.Schema.TypeByID(e.TypeID); ok && e.HasType {
		typeName = def.Name
	}
	name := rec.DisplayName()
	inode := strconv.Itoa(e.Pointer.Row)

	var lines []bodyfile.Line
	for _, ev := range eventsFor(in.TypeOf(e)) {
		v, err := rec.Decode(ev.attr)
		if err != nil {
			return nil, err
		}
		t, err := v.AsTime()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ev.attr, err)
		}
		if t == nil {
			continue
		}
		lines = append(lines, bodyfile.Line{
			Name:  fmt.Sprintf("%s (%s, %s)", name, typeName, ev.label),
			Inode: inode,
			Slot:  ev.slot,
			Time:  *t,
		})
	}
	return lines, nil
}
