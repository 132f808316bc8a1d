package activedirectory

import (
	"fmt"
	"regexp"

	"f0oster/ntdsinspect/activedirectory/schema"
)

// searchPrefix are the identifying columns every search row starts with.
var searchPrefix = []schema.AttributeID{
	schema.DsRecordID,
	schema.DsParentRecordID,
	schema.AttCommonName,
	schema.AttRdn,
	schema.AttObjectCategory,
}

// SearchResult is tabular: Columns is the identifying prefix followed by
// every column some row matched on, in order of first match. Rows are
// aligned to Columns.
type SearchResult struct {
	Columns []string
	Rows    [][]string
	Skipped int
}

// CompileSearch builds the pattern used by Search.
func CompileSearch(pattern string, ignoreCase bool) (*regexp.Regexp, error) {
	if ignoreCase {
		pattern = "(?i:" + pattern + ")"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern: %w", err)
	}
	return re, nil
}

// Search matches re against the display text of every attribute of every
// record.
func (in *Instance) Search(re *regexp.Regexp) (*SearchResult, error) {
	result := &SearchResult{}
	position := make(map[string]int)
	addColumn := func(name string) {
		if _, ok := position[name]; ok {
			return
		}
		position[name] = len(result.Columns)
		result.Columns = append(result.Columns, name)
	}
	for _, id := range searchPrefix {
		addColumn(id.String())
	}

	var matches []map[string]string
	for _, e := range in.Index.Entries() {
		rec, err := in.Record(e)
		if err != nil {
			in.sugar.Warnw("skipping record", "recordId", e.RecordID, "error", err)
			result.Skipped++
			continue
		}
		attrs := rec.Attributes()

		values := make(map[string]string, len(attrs))
		var matched []string
		for _, a := range attrs {
			text := a.String()
			values[a.Name] = text
			if re.MatchString(text) {
				matched = append(matched, a.Name)
			}
		}
		if len(matched) == 0 {
			continue
		}
		for _, name := range matched {
			addColumn(name)
		}
		matches = append(matches, values)
	}

	for _, values := range matches {
		row := make([]string, len(result.Columns))
		for name, text := range values {
			if i, ok := position[name]; ok {
				row[i] = text
			}
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}
