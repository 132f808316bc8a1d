package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// Record is anything that can be written as one CSV row.
type Record interface {
	CSVHeader() []string
	CSVRecord() []string
}

// RecordWriter streams records in one format. CSV output starts with the
// header of the first record; JSON output is one indented document per
// record and JSON Lines one compact document per line.
type RecordWriter struct {
	format  Format
	csv     *csv.Writer
	json    *json.Encoder
	started bool
	count   int
}

func NewRecordWriter(w io.Writer, format Format) *RecordWriter {
	rw := &RecordWriter{format: format}
	switch format {
	case FormatCSV:
		rw.csv = csv.NewWriter(w)
	default:
		rw.json = json.NewEncoder(w)
		rw.json.SetEscapeHTML(false)
		if format == FormatJSON {
			rw.json.SetIndent("", "  ")
		}
	}
	return rw
}

func (rw *RecordWriter) Write(r Record) error {
	rw.count++
	if rw.csv == nil {
		if err := rw.json.Encode(r); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		return nil
	}
	if !rw.started {
		rw.started = true
		if err := rw.csv.Write(r.CSVHeader()); err != nil {
			return err
		}
	}
	if err := rw.csv.Write(r.CSVRecord()); err != nil {
		return err
	}
	rw.csv.Flush()
	return rw.csv.Error()
}

// Count returns how many records were written.
func (rw *RecordWriter) Count() int { return rw.count }

// Flush is a no-op for JSON formats.
func (rw *RecordWriter) Flush() error {
	if rw.csv == nil {
		return nil
	}
	rw.csv.Flush()
	return rw.csv.Error()
}

// WriteAll writes records and flushes.
func WriteAll[R Record](w io.Writer, format Format, records []R) error {
	rw := NewRecordWriter(w, format)
	for _, r := range records {
		if err := rw.Write(r); err != nil {
			return err
		}
	}
	return rw.Flush()
}
