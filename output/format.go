// Package output renders query results as CSV, JSON, JSON Lines, tables
// and trees.
package output

import (
	"fmt"
	"strings"
)

type Format string

const (
	FormatCSV       Format = "csv"
	FormatJSON      Format = "json"
	FormatJSONLines Format = "json-lines"
)

// Formats lists the accepted values of the --format flag.
var Formats = []Format{FormatCSV, FormatJSON, FormatJSONLines}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatJSON, FormatJSONLines:
		return f, nil
	case "jsonl":
		return FormatJSONLines, nil
	}
	return "", fmt.Errorf("unknown output format %q (want csv, json or json-lines)", s)
}

// String and Set let a Format be bound directly as a pflag value.
func (f Format) String() string { return string(f) }

func (f *Format) Set(s string) error {
	parsed, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func (f *Format) Type() string { return "format" }
