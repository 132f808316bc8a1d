package output

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"

	"f0oster/ntdsinspect/snapshot"
)

var compareHeader = []string{"status", "object_guid", "distinguished_name", "object_type", "attribute", "old_value", "new_value"}

// WriteChanges renders the result of comparing two databases. CSV output
// has one row per changed attribute; added and removed objects get a
// single row with an empty attribute.
func WriteChanges(w io.Writer, format Format, changes []snapshot.ObjectChange) error {
	if format != FormatCSV {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		if format == FormatJSON {
			enc.SetIndent("", "  ")
		}
		for _, c := range changes {
			if err := enc.Encode(c); err != nil {
				return err
			}
		}
		return nil
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(compareHeader); err != nil {
		return err
	}
	for _, c := range changes {
		base := []string{string(c.Status), c.ObjectGUID.String(), c.DN, c.ObjectType}
		if len(c.Changes) == 0 {
			if err := cw.Write(append(base, "", "", "")); err != nil {
				return err
			}
			continue
		}
		for _, a := range c.Changes {
			row := append(append([]string{}, base...), a.Name, joinValues(a.Old), joinValues(a.New))
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func joinValues(v []string) string {
	return lineBreaks.Replace(strings.Join(v, ";"))
}
