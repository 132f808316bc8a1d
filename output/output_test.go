package output_test

import (
	"bytes"
	"strings"
	"testing"

	"f0oster/ntdsinspect/activedirectory"
	"f0oster/ntdsinspect/diff"
	"f0oster/ntdsinspect/output"
	"f0oster/ntdsinspect/snapshot"
	"f0oster/ntdsinspect/ui"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    output.Format
		wantErr bool
	}{
		{in: "csv", want: output.FormatCSV},
		{in: "JSON", want: output.FormatJSON},
		{in: "json-lines", want: output.FormatJSONLines},
		{in: "jsonl", want: output.FormatJSONLines},
		{in: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := output.ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func types() []activedirectory.TypeInfo {
	return []activedirectory.TypeInfo{
		{Name: "Person", RecordID: 101, Objects: 2},
		{Name: "Group", RecordID: 102, Objects: 1},
	}
}

func TestRecordWriter(t *testing.T) {
	tests := []struct {
		format output.Format
		want   string
	}{
		{
			format: output.FormatCSV,
			want:   "name,record_id,objects\nPerson,101,2\nGroup,102,1\n",
		},
		{
			format: output.FormatJSONLines,
			want: `{"name":"Person","record_id":101,"objects":2}` + "\n" +
				`{"name":"Group","record_id":102,"objects":1}` + "\n",
		},
		{
			format: output.FormatJSON,
			want: "{\n  \"name\": \"Person\",\n  \"record_id\": 101,\n  \"objects\": 2\n}\n" +
				"{\n  \"name\": \"Group\",\n  \"record_id\": 102,\n  \"objects\": 1\n}\n",
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, output.WriteAll(&buf, tt.format, types()))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestRecordWriterEmptyCSV(t *testing.T) {
	var buf bytes.Buffer
	rw := output.NewRecordWriter(&buf, output.FormatCSV)
	require.NoError(t, rw.Flush())
	assert.Empty(t, buf.String())
	assert.Zero(t, rw.Count())
}

func TestWriteTree(t *testing.T) {
	root := &activedirectory.TreeEntry{RecordID: 2, Name: "$ROOT_OBJECT$", Children: []*activedirectory.TreeEntry{
		{RecordID: 10, Name: "example", Children: []*activedirectory.TreeEntry{
			{RecordID: 50, Name: "Users"},
			{RecordID: 20, Name: "Deleted Objects"},
		}},
		{RecordID: 11, Name: "Configuration"},
	}}

	var buf bytes.Buffer
	require.NoError(t, output.WriteTree(&buf, root))
	assert.Equal(t, strings.Join([]string{
		"$ROOT_OBJECT$ (2)",
		"├── example (10)",
		"│   ├── Users (50)",
		"│   └── Deleted Objects (20)",
		"└── Configuration (11)",
		"",
	}, "\n"), buf.String())
}

func TestWriteSearch(t *testing.T) {
	result := &activedirectory.SearchResult{
		Columns: []string{"DNT", "description"},
		Rows: [][]string{
			{"200", "line one\r\nline two"},
			{"201"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, output.WriteSearch(&buf, result))
	assert.Equal(t, "DNT,description\n200,line one\\r\\nline two\n201,\n", buf.String())
}

func TestWriteEntry(t *testing.T) {
	display := ui.NewDisplayContextWithWidth(100)

	var buf bytes.Buffer
	require.NoError(t, output.WriteEntry(&buf, display, nil))
	assert.Equal(t, output.NoMatch+"\n", buf.String())

	buf.Reset()
	entry := &activedirectory.Entry{
		RecordID: 200,
		ParentID: 50,
		DN:       "CN=R1,CN=Users,DC=example",
		TypeName: "Person",
		Attributes: []activedirectory.Attribute{
			{Column: "ATTm590045", Name: "sAMAccountName", Raw: "r1"},
		},
	}
	require.NoError(t, output.WriteEntry(&buf, display, entry))
	out := buf.String()
	for _, want := range []string{"attribute", "record id", "200", "CN=R1,CN=Users,DC=example", "sAMAccountName", "r1"} {
		assert.Contains(t, out, want)
	}
}

func TestWriteChanges(t *testing.T) {
	guid := uuid.MustParse("6f1c2a9e-0b7d-4c3e-9a51-2d8e4f6a7b10")
	changes := []snapshot.ObjectChange{
		{
			ObjectGUID: guid,
			DN:         "CN=alice",
			ObjectType: "Person",
			Status:     snapshot.StatusModified,
			Changes: []diff.AttributeChange{
				{Name: "description", Old: []string{"old"}, New: []string{"new"}},
				{Name: "info", New: []string{"a", "b"}},
			},
		},
		{ObjectGUID: uuid.Nil, DN: "CN=bob", ObjectType: "Person", Status: snapshot.StatusRemoved},
	}

	var buf bytes.Buffer
	require.NoError(t, output.WriteChanges(&buf, output.FormatCSV, changes))
	assert.Equal(t, strings.Join([]string{
		"status,object_guid,distinguished_name,object_type,attribute,old_value,new_value",
		"modified," + guid.String() + ",CN=alice,Person,description,old,new",
		"modified," + guid.String() + ",CN=alice,Person,info,,a;b",
		"removed," + uuid.Nil.String() + ",CN=bob,Person,,,",
		"",
	}, "\n"), buf.String())

	buf.Reset()
	require.NoError(t, output.WriteChanges(&buf, output.FormatJSONLines, changes[1:]))
	assert.Equal(t, `{"object_guid":"`+uuid.Nil.String()+`","distinguished_name":"CN=bob","object_type":"Person","status":"removed"}`+"\n", buf.String())
}
