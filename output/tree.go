package output

import (
	"fmt"
	"io"
	"strings"

	"f0oster/ntdsinspect/activedirectory"
)

// WriteTree prints the container hierarchy with box drawing guides.
func WriteTree(w io.Writer, root *activedirectory.TreeEntry) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d)\n", root.Name, root.RecordID)
	writeChildren(&b, root.Children, "")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeChildren(b *strings.Builder, children []*activedirectory.TreeEntry, prefix string) {
	for i, c := range children {
		branch, indent := "├── ", "│   "
		if i == len(children)-1 {
			branch, indent = "└── ", "    "
		}
		fmt.Fprintf(b, "%s%s%s (%d)\n", prefix, branch, c.Name, c.RecordID)
		writeChildren(b, c.Children, prefix+indent)
	}
}
