package schema_test

import (
	"testing"

	"f0oster/ntdsinspect/activedirectory/schema"
	"f0oster/ntdsinspect/activedirectory/transformers"
	"f0oster/ntdsinspect/esedb"
	"f0oster/ntdsinspect/ntdstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolve(t *testing.T) {
	b := ntdstest.NewBuilder().Skeleton()

	s, err := schema.Resolve(b.DataTable(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, ntdstest.SchemaID, s.AnchorID)

	person, ok := s.TypeByName(schema.TypePerson)
	require.True(t, ok)
	assert.Equal(t, ntdstest.PersonTypeID, person.RecordID)

	def, ok := s.TypeByID(ntdstest.ComputerTypeID)
	require.True(t, ok)
	assert.Equal(t, schema.TypeComputer, def.Name)

	names := make([]string, 0, len(s.Types()))
	for _, d := range s.Types() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Person", "Group", "Computer", "Container"}, names)
}

func TestResolveIsDeterministic(t *testing.T) {
	b := ntdstest.NewBuilder().Skeleton()

	first, err := schema.Resolve(b.DataTable(), zap.NewNop())
	require.NoError(t, err)
	second, err := schema.Resolve(b.DataTable(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, first.AnchorID, second.AnchorID)
	assert.Equal(t, first.Types(), second.Types())
}

func TestResolveFirstAnchorWins(t *testing.T) {
	b := ntdstest.NewBuilder().Skeleton()
	b.Object(500, ntdstest.DomainID, "Schema", ntdstest.ContainerTypeID, nil)

	s, err := schema.Resolve(b.DataTable(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, ntdstest.SchemaID, s.AnchorID)
}

func TestResolveFailures(t *testing.T) {
	tests := []struct {
		name  string
		build func() *ntdstest.Builder
		check func(t *testing.T, err error)
	}{
		{
			name: "no schema record",
			build: func() *ntdstest.Builder {
				return ntdstest.NewBuilder().Object(2, 0, "$ROOT_OBJECT$", 0, nil)
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, schema.ErrMissingSchemaRecord)
			},
		},
		{
			name: "schema record without children",
			build: func() *ntdstest.Builder {
				return ntdstest.NewBuilder().
					Object(2, 0, "$ROOT_OBJECT$", 0, nil).
					Object(100, 2, "Schema", 0, nil)
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, schema.ErrSchemaRecordHasNoChildren)
			},
		},
		{
			name: "missing computer type",
			build: func() *ntdstest.Builder {
				return ntdstest.NewBuilder().
					Object(2, 0, "$ROOT_OBJECT$", 0, nil).
					Object(100, 2, "Schema", 0, nil).
					Object(101, 100, "Person", 0, nil).
					Object(102, 100, "Group", 0, nil)
			},
			check: func(t *testing.T, err error) {
				var missing *schema.MissingTypeError
				require.ErrorAs(t, err, &missing)
				assert.Equal(t, schema.TypeComputer, missing.Name)
			},
		},
		{
			name: "missing reserved column",
			build: func() *ntdstest.Builder {
				return ntdstest.NewBuilder(ntdstest.WithoutColumn(schema.DsAncestors)).Skeleton()
			},
			check: func(t *testing.T, err error) {
				var missing *schema.MissingColumnError
				require.ErrorAs(t, err, &missing)
				assert.Equal(t, schema.DsAncestors, missing.Attribute)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.Resolve(tt.build().DataTable(), zap.NewNop())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestOptionalColumnReadsAsNull(t *testing.T) {
	b := ntdstest.NewBuilder(ntdstest.WithoutColumn(schema.AttDNSHostName)).Skeleton()
	m, err := schema.ResolveColumns(b.DataTable().Columns())
	require.NoError(t, err)

	_, ok := m.Column(schema.AttDNSHostName)
	assert.False(t, ok)

	row, err := b.DataTable().Row(0)
	require.NoError(t, err)
	v, err := m.Value(row, schema.AttDNSHostName)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestRegistryLookup(t *testing.T) {
	r := schema.NewRegistry()

	tests := []struct {
		column string
		want   transformers.DecoderKind
	}{
		{"DNT_col", transformers.DecodeInteger},
		{"time_col", transformers.DecodeTruncatedFiletime},
		{"ATTm589825", transformers.DecodeText},
		{"ATTr589970", transformers.DecodeSID},
		{"ATTk589914", transformers.DecodeBinary},
		{"ATTk589826", transformers.DecodeGUID},
		{"ATTq589920", transformers.DecodeFiletime},
		{"ATTq589983", transformers.DecodeExpiry},
		{"ATTq131192", transformers.DecodeLargeInteger},
		{"ATTl131074", transformers.DecodeDatabaseTime},
		{"ATTp131353", transformers.DecodeDescriptorID},
		{"ATTj999999", transformers.DecodeInteger},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			ft, err := r.Lookup(tt.column)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ft.Kind)
		})
	}

	_, err := r.Lookup("NCDNT_col")
	assert.Error(t, err)
}

func TestRegistryOverride(t *testing.T) {
	r := schema.NewRegistry()
	r.OverrideAttribute("ATTk590689", &schema.FieldType{Kind: transformers.DecodeGUID, SyntaxName: "String(Octet)"})

	ft, err := r.Lookup("ATTk590689")
	require.NoError(t, err)
	assert.Equal(t, transformers.DecodeGUID, ft.Kind)
}

func TestSyntaxOf(t *testing.T) {
	syntax, ok := schema.SyntaxOf("ATTb590606")
	require.True(t, ok)
	assert.Equal(t, "2.5.5.1", syntax)

	syntax, ok = schema.SyntaxOf("ATTr589970")
	require.True(t, ok)
	assert.Equal(t, "2.5.5.17", syntax)

	_, ok = schema.SyntaxOf("PDNT_col")
	assert.False(t, ok)
}

func TestRead(t *testing.T) {
	b := ntdstest.NewBuilder().Record(ntdstest.Attrs{
		schema.DsRecordID: esedb.Text("not a number"),
	})
	m, err := schema.ResolveColumns(b.DataTable().Columns())
	require.NoError(t, err)
	row, err := b.DataTable().Row(0)
	require.NoError(t, err)

	_, err = schema.Read(m, row, schema.DsRecordID, transformers.Int32)
	var invalid *transformers.InvalidValueError
	assert.ErrorAs(t, err, &invalid)
}
