// Package bodyfile writes timeline lines in the body file format read by
// mactime and similar tools:
//
//	MD5|name|inode|mode|UID|GID|size|atime|mtime|ctime|crtime
package bodyfile

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Slot selects which of the four timestamp fields a line populates.
type Slot int

const (
	Accessed Slot = iota
	Modified
	Changed
	Born
)

func (s Slot) String() string {
	switch s {
	case Accessed:
		return "atime"
	case Modified:
		return "mtime"
	case Changed:
		return "ctime"
	case Born:
		return "crtime"
	}
	return fmt.Sprintf("slot(%d)", int(s))
}

// Line is one timeline entry. Only the slot in Slot is set; the other three
// timestamp fields are written empty.
type Line struct {
	Name  string
	Inode string
	Slot  Slot
	Time  time.Time
}

// nameEscaper keeps a name inside its field. mactime has no escape for
// '|', so it is percent-encoded along with '%' itself.
var nameEscaper = strings.NewReplacer("%", "%25", "|", "%7C", "\n", `\n`, "\r", `\r`)

func escape(name string) string {
	return nameEscaper.Replace(name)
}

func (l Line) String() string {
	var stamps [4]string
	if l.Slot >= Accessed && l.Slot <= Born {
		stamps[l.Slot] = strconv.FormatInt(l.Time.Unix(), 10)
	}
	return strings.Join([]string{
		"0",
		escape(l.Name),
		l.Inode,
		"0", "0", "0", "0",
		stamps[0], stamps[1], stamps[2], stamps[3],
	}, "|")
}

// Writer emits lines one per row.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Write(l Line) error {
	if _, err := fmt.Fprintln(w.w, l.String()); err != nil {
		return fmt.Errorf("failed to write body file line: %w", err)
	}
	return nil
}
