package diff

// ChangeKind classifies an AttributeChange.
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Removed  ChangeKind = "removed"
	Modified ChangeKind = "modified"
)

// AttributeChange represents a change between two snapshots of an attribute.
// Old is nil for an added attribute and New is nil for a removed one.
type AttributeChange struct {
	Name string   `json:"name"`
	Old  []string `json:"old"`
	New  []string `json:"new"`
}

func (c AttributeChange) Kind() ChangeKind {
	switch {
	case c.Old == nil:
		return Added
	case c.New == nil:
		return Removed
	}
	return Modified
}
