package bodyfile_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"f0oster/ntdsinspect/bodyfile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineString(t *testing.T) {
	ts := time.Date(2021, time.March, 4, 5, 6, 7, 0, time.UTC)
	unix := "1614834367"

	tests := []struct {
		slot bodyfile.Slot
		want string
	}{
		{bodyfile.Accessed, "0|alice (last logon)|42|0|0|0|0|" + unix + "|||"},
		{bodyfile.Modified, "0|alice (last logon)|42|0|0|0|0||" + unix + "||"},
		{bodyfile.Changed, "0|alice (last logon)|42|0|0|0|0|||" + unix + "|"},
		{bodyfile.Born, "0|alice (last logon)|42|0|0|0|0||||" + unix},
	}
	for _, tt := range tests {
		t.Run(tt.slot.String(), func(t *testing.T) {
			l := bodyfile.Line{Name: "alice (last logon)", Inode: "42", Slot: tt.slot, Time: ts}
			assert.Equal(t, tt.want, l.String())
		})
	}
}

func TestLineEscapesSeparators(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"a|b\nc", `0|a%7Cb\nc|1|0|0|0|0||||0`},
		{"100%|done", `0|100%25%7Cdone|1|0|0|0|0||||0`},
		{"plain", `0|plain|1|0|0|0|0||||0`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := bodyfile.Line{Name: tt.name, Inode: "1", Slot: bodyfile.Born, Time: time.Unix(0, 0)}
			got := l.String()
			assert.Equal(t, tt.want, got)
			assert.Len(t, strings.Split(got, "|"), 11)
		})
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := bodyfile.NewWriter(&buf)
	require.NoError(t, w.Write(bodyfile.Line{Name: "x", Inode: "1", Slot: bodyfile.Born, Time: time.Unix(10, 0)}))
	require.NoError(t, w.Write(bodyfile.Line{Name: "y", Inode: "2", Slot: bodyfile.Changed, Time: time.Unix(20, 0)}))
	assert.Equal(t, "0|x|1|0|0|0|0||||10\n0|y|2|0|0|0|0|||20|\n", buf.String())
}
