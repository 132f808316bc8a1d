package output

import (
	"fmt"
	"io"
	"strconv"

	"f0oster/ntdsinspect/activedirectory"
	"f0oster/ntdsinspect/ui"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const (
	attributeWidth = 20
	// columnGap is the border and padding between the two columns.
	columnGap = 2
)

// NoMatch is printed when a lookup finds nothing.
const NoMatch = "no matching object found"

// entryRows flattens an entry into attribute/value pairs.
func entryRows(e *activedirectory.Entry) [][]string {
	rows := [][]string{
		{"record id", strconv.Itoa(int(e.RecordID))},
		{"parent id", strconv.Itoa(int(e.ParentID))},
	}
	if e.DN != "" {
		rows = append(rows, []string{"distinguished name", e.DN})
	}
	if e.TypeName != "" {
		rows = append(rows, []string{"type", e.TypeName})
	}
	for _, a := range e.Attributes {
		rows = append(rows, []string{a.Name, a.String()})
	}
	if e.SecurityDescriptor != nil {
		rows = append(rows, []string{"security descriptor", e.SecurityDescriptor.SDDL()})
	}
	return rows
}

// WriteEntry renders one entry as a two column table sized to the
// terminal. A nil entry prints NoMatch.
func WriteEntry(w io.Writer, display *ui.DisplayContext, e *activedirectory.Entry) error {
	if e == nil {
		_, err := fmt.Fprintln(w, NoMatch)
		return err
	}

	valueWidth := display.TermWidth - (attributeWidth + columnGap)
	if valueWidth < 0 {
		valueWidth = 0
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(ui.Muted).
		BorderRow(false).
		Headers("attribute", "value").
		Rows(entryRows(e)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle()
			if row == table.HeaderRow {
				style = ui.Bold
			} else if col == 0 {
				style = ui.Accent
			}
			if col == 0 {
				return style.Width(attributeWidth)
			}
			if valueWidth > 0 {
				style = style.Width(valueWidth)
			}
			return style
		})

	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}
