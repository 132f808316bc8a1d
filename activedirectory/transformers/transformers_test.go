package transformers_test

import (
	"math"
	"testing"
	"time"

	"f0oster/ntdsinspect/activedirectory/transformers"
	"f0oster/ntdsinspect/esedb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiletime(t *testing.T) {
	tests := []struct {
		name    string
		raw     esedb.Value
		want    *time.Time
		wantErr bool
	}{
		{
			name: "zero ticks is the epoch",
			raw:  esedb.Currency(0),
			want: ptr(time.Date(1601, 1, 1, 0, 0, 0, 0, time.UTC)),
		},
		{
			name: "unix epoch",
			raw:  esedb.Currency(116444736000000000),
			want: ptr(time.Unix(0, 0).UTC()),
		},
		{
			name: "sub-second ticks",
			raw:  esedb.Currency(116444736000000001),
			want: ptr(time.Unix(0, 100).UTC()),
		},
		{
			name: "null is absent",
			raw:  esedb.Null(),
			want: nil,
		},
		{
			name:    "negative ticks",
			raw:     esedb.Currency(-1),
			wantErr: true,
		},
		{
			name:    "beyond year 9999",
			raw:     esedb.Currency(math.MaxInt64),
			wantErr: true,
		},
		{
			name:    "wrong variant",
			raw:     esedb.I32(5),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := transformers.Filetime(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "want %s got %s", tt.want, got)
		})
	}
}

func TestFiletimeErrorTypes(t *testing.T) {
	_, err := transformers.Filetime(esedb.Currency(math.MaxInt64))
	var convErr *transformers.IntegerConversionError
	assert.ErrorAs(t, err, &convErr)

	_, err = transformers.Filetime(esedb.Text("x"))
	var invalid *transformers.InvalidValueError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, esedb.KindText, invalid.Got)
}

func TestTruncatedAndDatabaseTime(t *testing.T) {
	unix := int64(11644473600)

	got, err := transformers.TruncatedFiletime(esedb.Currency(unix * 100_000))
	require.NoError(t, err)
	assert.True(t, time.Unix(0, 0).Equal(*got))

	got, err = transformers.DatabaseTime(esedb.Currency(unix + 60))
	require.NoError(t, err)
	assert.True(t, time.Unix(60, 0).Equal(*got))
}

func TestExpiry(t *testing.T) {
	for _, raw := range []esedb.Value{esedb.Currency(0), esedb.Currency(math.MaxInt64), esedb.Null()} {
		got, err := transformers.Expiry(raw)
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	got, err := transformers.Expiry(esedb.Currency(116444736000000000))
	require.NoError(t, err)
	assert.True(t, time.Unix(0, 0).Equal(*got))
}

func TestIntegers(t *testing.T) {
	v, err := transformers.Integer(esedb.I64(-4))
	require.NoError(t, err)
	assert.Equal(t, int64(-4), *v)

	_, err = transformers.Integer(esedb.I16(4))
	var invalid *transformers.InvalidValueError
	assert.ErrorAs(t, err, &invalid)

	_, err = transformers.Int32(esedb.I64(math.MaxInt64))
	var convErr *transformers.IntegerConversionError
	assert.ErrorAs(t, err, &convErr)

	large, err := transformers.LargeInteger(esedb.Currency(12345))
	require.NoError(t, err)
	assert.Equal(t, int64(12345), *large)
}

func TestTextAndBytes(t *testing.T) {
	s, err := transformers.Text(esedb.LargeText("Administrator"))
	require.NoError(t, err)
	assert.Equal(t, "Administrator", *s)

	b, err := transformers.Bytes(esedb.LargeBinary([]byte{0xDE, 0xAD, 0xBE, 0xEF}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, b)

	_, err = transformers.Bytes(esedb.Text("deadbeef"))
	assert.Error(t, err)
}

func TestSIDColumn(t *testing.T) {
	raw := []byte{1, 2, 0, 0, 0, 0, 0, 5, 32, 0, 0, 0, 0, 0, 2, 32}
	sid, err := transformers.SID(esedb.Binary(raw))
	require.NoError(t, err)
	assert.Equal(t, "S-1-5-32-544", sid.String())

	_, err = transformers.SID(esedb.Binary(raw[:12]))
	var misc *transformers.MiscConversionError
	assert.ErrorAs(t, err, &misc)
}

func TestGUID(t *testing.T) {
	raw := []byte{
		0x33, 0x22, 0x11, 0x00, 0x55, 0x44, 0x77, 0x66,
		0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff,
	}
	u, err := transformers.GUID(esedb.Binary(raw))
	require.NoError(t, err)
	assert.Equal(t, "00112233-4455-6677-8899-aabbccddeeff", u.String())

	_, err = transformers.GUID(esedb.Binary(raw[:15]))
	assert.Error(t, err)
}

func TestRequired(t *testing.T) {
	_, err := transformers.Required(transformers.Integer(esedb.Null()))
	assert.ErrorIs(t, err, transformers.ErrValueIsMissing)

	v, err := transformers.Required(transformers.Integer(esedb.I32(7)))
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		kind transformers.DecoderKind
		raw  esedb.Value
		want string
	}{
		{transformers.DecodeInteger, esedb.I32(42), "42"},
		{transformers.DecodeText, esedb.Text("Schema"), "Schema"},
		{transformers.DecodeBinary, esedb.Binary([]byte{0x0a}), "0a"},
		{transformers.DecodeFiletime, esedb.Currency(116444736000000000), "1970-01-01T00:00:00Z"},
		{transformers.DecodeExpiry, esedb.Currency(0), ""},
		{transformers.DecodeInteger, esedb.Null(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			v, err := transformers.Decode(tt.kind, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestValueAccessors(t *testing.T) {
	stamp := time.Date(2024, time.February, 3, 4, 5, 6, 0, time.UTC)
	integer := transformers.Value{Kind: transformers.ValueInteger, Int: -2147483648}
	timestamp := transformers.Value{Kind: transformers.ValueTimestamp, Time: stamp}

	i32, err := integer.AsInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(math.MinInt32), *i32)

	u32, err := integer.AsUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x80000000), *u32)

	tm, err := timestamp.AsTime()
	require.NoError(t, err)
	assert.Equal(t, stamp, *tm)

	_, err = integer.AsTime()
	var kindErr *transformers.ValueKindError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, transformers.ValueTimestamp, kindErr.Want)
	assert.Equal(t, transformers.ValueInteger, kindErr.Got)

	_, err = transformers.Value{Kind: transformers.ValueInteger, Int: math.MaxInt64}.AsInt32()
	var convErr *transformers.IntegerConversionError
	assert.ErrorAs(t, err, &convErr)

	absent, err := transformers.Value{}.AsText()
	require.NoError(t, err)
	assert.Nil(t, absent)

	guid, err := transformers.Value{Kind: transformers.ValueIdentifier, Text: "00112233-4455-6677-8899-aabbccddeeff"}.AsGUID()
	require.NoError(t, err)
	assert.Equal(t, "00112233-4455-6677-8899-aabbccddeeff", guid.String())

	hex, err := transformers.Value{Kind: transformers.ValueBinary, Bytes: []byte{0xbe, 0xef}}.AsHex()
	require.NoError(t, err)
	assert.Equal(t, "beef", *hex)
}

func ptr[T any](v T) *T { return &v }
