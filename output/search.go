package output

import (
	"encoding/csv"
	"io"
	"strings"

	"f0oster/ntdsinspect/activedirectory"
)

var lineBreaks = strings.NewReplacer("\n", `\n`, "\r", `\r`)

// WriteSearch writes a search result as CSV. Line breaks inside values are
// escaped so every record stays on one line.
func WriteSearch(w io.Writer, result *activedirectory.SearchResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(result.Columns); err != nil {
		return err
	}
	row := make([]string, len(result.Columns))
	for _, r := range result.Rows {
		for i := range row {
			row[i] = ""
			if i < len(r) {
				row[i] = lineBreaks.Replace(r[i])
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
