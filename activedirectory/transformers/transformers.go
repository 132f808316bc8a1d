package transformers

import (
	"fmt"
	"math"
	"time"

	"f0oster/ntdsinspect/activedirectory/formatters"
	"f0oster/ntdsinspect/esedb"

	"github.com/google/uuid"
)

// DecoderKind selects how a raw cell is turned into a Value.
type DecoderKind int

const (
	DecodeInteger DecoderKind = iota
	DecodeLargeInteger
	DecodeText
	DecodeBinary
	DecodeSID
	DecodeFiletime
	DecodeTruncatedFiletime
	DecodeDatabaseTime
	DecodeExpiry
	DecodeGUID
	DecodeDescriptorID
)

var decoderNames = map[DecoderKind]string{
	DecodeInteger:           "integer",
	DecodeLargeInteger:      "large integer",
	DecodeText:              "text",
	DecodeBinary:            "binary",
	DecodeSID:               "SID",
	DecodeFiletime:          "FILETIME",
	DecodeTruncatedFiletime: "truncated FILETIME",
	DecodeDatabaseTime:      "database time",
	DecodeExpiry:            "expiry FILETIME",
	DecodeGUID:              "GUID",
	DecodeDescriptorID:      "security descriptor id",
}

func (k DecoderKind) String() string {
	if name, ok := decoderNames[k]; ok {
		return name
	}
	return fmt.Sprintf("decoder(%d)", int(k))
}

const (
	filetimeNever = int64(math.MaxInt64)

	// seconds between 1601-01-01 and 1970-01-01
	epochDeltaSeconds = 11644473600
	// 9999-12-31T23:59:59Z measured from 1601-01-01
	maxSecondsSince1601 = 253402300799 + epochDeltaSeconds

	filetimeTicksPerSecond  = 10_000_000 // 100ns
	truncatedTicksPerSecond = 100_000    // 10µs
)

// FiletimeEpoch is the zero point of every Windows timestamp.
var FiletimeEpoch = time.Date(1601, time.January, 1, 0, 0, 0, 0, time.UTC)

func ticksToTime(ticks, perSecond int64, target string) (time.Time, error) {
	if ticks < 0 {
		return time.Time{}, &IntegerConversionError{Value: ticks, Target: target}
	}
	secs := ticks / perSecond
	if secs > maxSecondsSince1601 {
		return time.Time{}, &IntegerConversionError{Value: ticks, Target: target}
	}
	nsec := (ticks % perSecond) * (int64(time.Second) / perSecond)
	return time.Unix(secs-epochDeltaSeconds, nsec).UTC(), nil
}

func expect(kind DecoderKind, raw esedb.Value, accepted ...esedb.Kind) error {
	for _, k := range accepted {
		if raw.Kind == k {
			return nil
		}
	}
	return &InvalidValueError{Decoder: kind, Got: raw.Kind}
}

// Integer accepts the 32 and 64 bit integer variants.
func Integer(raw esedb.Value) (*int64, error) {
	if raw.IsNull() {
		return nil, nil
	}
	if err := expect(DecodeInteger, raw, esedb.KindI32, esedb.KindI64); err != nil {
		return nil, err
	}
	v := raw.Int
	return &v, nil
}

func Int32(raw esedb.Value) (*int32, error) {
	v, err := Integer(raw)
	if err != nil || v == nil {
		return nil, err
	}
	if *v < math.MinInt32 || *v > math.MaxInt32 {
		return nil, &IntegerConversionError{Value: *v, Target: "int32"}
	}
	i := int32(*v)
	return &i, nil
}

// LargeInteger accepts 64 bit integers and the currency variant ESE uses
// for ATTq columns.
func LargeInteger(raw esedb.Value) (*int64, error) {
	if raw.IsNull() {
		return nil, nil
	}
	if err := expect(DecodeLargeInteger, raw, esedb.KindI64, esedb.KindCurrency); err != nil {
		return nil, err
	}
	v := raw.Int
	return &v, nil
}

func Text(raw esedb.Value) (*string, error) {
	if raw.IsNull() {
		return nil, nil
	}
	if err := expect(DecodeText, raw, esedb.KindText, esedb.KindLargeText); err != nil {
		return nil, err
	}
	s := raw.Text
	return &s, nil
}

func Bytes(raw esedb.Value) ([]byte, error) {
	if raw.IsNull() {
		return nil, nil
	}
	if err := expect(DecodeBinary, raw, esedb.KindBinary, esedb.KindLargeBinary); err != nil {
		return nil, err
	}
	return raw.Bytes, nil
}

// SID decodes an objectSid column.
func SID(raw esedb.Value) (*formatters.SID, error) {
	if raw.IsNull() {
		return nil, nil
	}
	if err := expect(DecodeSID, raw, esedb.KindBinary, esedb.KindLargeBinary); err != nil {
		return nil, err
	}
	sid, err := formatters.DecodeNTDSSID(raw.Bytes)
	if err != nil {
		return nil, &MiscConversionError{Target: "SID", Err: err}
	}
	return &sid, nil
}

func timestamp(kind DecoderKind, raw esedb.Value, perSecond int64) (*time.Time, error) {
	if raw.IsNull() {
		return nil, nil
	}
	if err := expect(kind, raw, esedb.KindCurrency); err != nil {
		return nil, err
	}
	t, err := ticksToTime(raw.Int, perSecond, kind.String())
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Filetime decodes 100ns ticks since 1601.
func Filetime(raw esedb.Value) (*time.Time, error) {
	return timestamp(DecodeFiletime, raw, filetimeTicksPerSecond)
}

// TruncatedFiletime decodes the record time column, which counts 10µs units.
func TruncatedFiletime(raw esedb.Value) (*time.Time, error) {
	return timestamp(DecodeTruncatedFiletime, raw, truncatedTicksPerSecond)
}

// DatabaseTime decodes generalized-time columns (whenCreated, whenChanged),
// stored as whole seconds since 1601.
func DatabaseTime(raw esedb.Value) (*time.Time, error) {
	return timestamp(DecodeDatabaseTime, raw, 1)
}

// Expiry is Filetime where 0 and the maximum value both mean "never".
func Expiry(raw esedb.Value) (*time.Time, error) {
	if !raw.IsNull() && raw.Kind == esedb.KindCurrency && (raw.Int == 0 || raw.Int == filetimeNever) {
		return nil, nil
	}
	return timestamp(DecodeExpiry, raw, filetimeTicksPerSecond)
}

// GUID converts an AD GUID (mixed-endian) into an RFC4122 uuid.
func GUID(raw esedb.Value) (*uuid.UUID, error) {
	if raw.IsNull() {
		return nil, nil
	}
	if err := expect(DecodeGUID, raw, esedb.KindBinary, esedb.KindLargeBinary); err != nil {
		return nil, err
	}
	u, err := ADGuidToUUID(raw.Bytes)
	if err != nil {
		return nil, &MiscConversionError{Target: "GUID", Err: err}
	}
	return &u, nil
}

func ADGuidToUUID(adGuid []byte) (uuid.UUID, error) {
	if len(adGuid) != 16 {
		return uuid.Nil, fmt.Errorf("invalid GUID: expected 16 bytes, got %d", len(adGuid))
	}

	rfcBytes := make([]byte, 16)
	copy(rfcBytes, adGuid)

	rfcBytes[0], rfcBytes[1], rfcBytes[2], rfcBytes[3] = rfcBytes[3], rfcBytes[2], rfcBytes[1], rfcBytes[0]
	rfcBytes[4], rfcBytes[5] = rfcBytes[5], rfcBytes[4]
	rfcBytes[6], rfcBytes[7] = rfcBytes[7], rfcBytes[6]

	return uuid.FromBytes(rfcBytes)
}

// DescriptorID reads the nTSecurityDescriptor column, which holds a key
// into the sd_table rather than the descriptor itself.
func DescriptorID(raw esedb.Value) (*int64, error) {
	if raw.IsNull() {
		return nil, nil
	}
	if err := expect(DecodeDescriptorID, raw, esedb.KindI64, esedb.KindCurrency); err != nil {
		return nil, err
	}
	v := raw.Int
	return &v, nil
}

// Required turns an absent result into ErrValueIsMissing.
func Required[T any](v *T, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, ErrValueIsMissing
	}
	return *v, nil
}
