package diff

import "sort"

// FindChanges compares two attribute snapshots and returns the changes
// ordered by attribute name.
func FindChanges(prev, curr map[string][]string) []AttributeChange {
	names := make([]string, 0, len(curr))
	for k := range curr {
		names = append(names, k)
	}
	for k := range prev {
		if _, ok := curr[k]; !ok {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	var changes []AttributeChange
	for _, k := range names {
		oldVal, hadOld := prev[k]
		newVal, hasNew := curr[k]
		if hadOld && hasNew && equalValues(oldVal, newVal) {
			continue
		}
		change := AttributeChange{Name: k}
		if hadOld {
			change.Old = nonNil(oldVal)
		}
		if hasNew {
			change.New = nonNil(newVal)
		}
		changes = append(changes, change)
	}
	return changes
}

// nonNil keeps an empty but present value distinguishable from absence.
func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func equalValues(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
