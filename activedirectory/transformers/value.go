package transformers

import (
	"encoding/hex"
	"math"
	"strconv"
	"time"

	"f0oster/ntdsinspect/esedb"

	"github.com/google/uuid"
)

type ValueKind int

const (
	ValueAbsent ValueKind = iota
	ValueInteger
	ValueText
	ValueBinary
	ValueTimestamp
	ValueIdentifier
)

var valueKindNames = map[ValueKind]string{
	ValueAbsent:     "absent",
	ValueInteger:    "integer",
	ValueText:       "text",
	ValueBinary:     "binary",
	ValueTimestamp:  "timestamp",
	ValueIdentifier: "identifier",
}

func (k ValueKind) String() string {
	if name, ok := valueKindNames[k]; ok {
		return name
	}
	return "ValueKind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a decoded cell.
type Value struct {
	Kind  ValueKind
	Int   int64
	Text  string
	Bytes []byte
	Time  time.Time
}

func (v Value) IsAbsent() bool {
	return v.Kind == ValueAbsent
}

func (v Value) String() string {
	switch v.Kind {
	case ValueInteger:
		return strconv.FormatInt(v.Int, 10)
	case ValueText, ValueIdentifier:
		return v.Text
	case ValueBinary:
		return hex.EncodeToString(v.Bytes)
	case ValueTimestamp:
		return v.Time.Format(time.RFC3339Nano)
	}
	return ""
}

// The As accessors project a decoded value onto a Go type. An absent value
// yields nil; a value of another kind yields a *ValueKindError.

func (v Value) check(want ...ValueKind) (bool, error) {
	if v.IsAbsent() {
		return false, nil
	}
	for _, k := range want {
		if v.Kind == k {
			return true, nil
		}
	}
	return false, &ValueKindError{Want: want[0], Got: v.Kind}
}

func (v Value) AsInt64() (*int64, error) {
	if ok, err := v.check(ValueInteger); !ok {
		return nil, err
	}
	i := v.Int
	return &i, nil
}

func (v Value) AsInt32() (*int32, error) {
	if ok, err := v.check(ValueInteger); !ok {
		return nil, err
	}
	if v.Int < math.MinInt32 || v.Int > math.MaxInt32 {
		return nil, &IntegerConversionError{Value: v.Int, Target: "int32"}
	}
	i := int32(v.Int)
	return &i, nil
}

// AsUint32 reinterprets a 32 bit integer as unsigned.
func (v Value) AsUint32() (*uint32, error) {
	if ok, err := v.check(ValueInteger); !ok {
		return nil, err
	}
	if v.Int < math.MinInt32 || v.Int > math.MaxUint32 {
		return nil, &IntegerConversionError{Value: v.Int, Target: "uint32"}
	}
	u := uint32(v.Int)
	return &u, nil
}

func (v Value) AsText() (*string, error) {
	if ok, err := v.check(ValueText, ValueIdentifier); !ok {
		return nil, err
	}
	s := v.Text
	return &s, nil
}

func (v Value) AsHex() (*string, error) {
	if ok, err := v.check(ValueBinary); !ok {
		return nil, err
	}
	s := hex.EncodeToString(v.Bytes)
	return &s, nil
}

func (v Value) AsTime() (*time.Time, error) {
	if ok, err := v.check(ValueTimestamp); !ok {
		return nil, err
	}
	t := v.Time
	return &t, nil
}

func (v Value) AsGUID() (*uuid.UUID, error) {
	if ok, err := v.check(ValueIdentifier); !ok {
		return nil, err
	}
	u, err := uuid.Parse(v.Text)
	if err != nil {
		return nil, &MiscConversionError{Target: "GUID", Err: err}
	}
	return &u, nil
}

func intValue(p *int64, err error) (Value, error) {
	if err != nil || p == nil {
		return Value{}, err
	}
	return Value{Kind: ValueInteger, Int: *p}, nil
}

func timeValue(p *time.Time, err error) (Value, error) {
	if err != nil || p == nil {
		return Value{}, err
	}
	return Value{Kind: ValueTimestamp, Time: *p}, nil
}

// Decode dispatches raw to the decoder named by kind.
func Decode(kind DecoderKind, raw esedb.Value) (Value, error) {
	switch kind {
	case DecodeInteger:
		return intValue(Integer(raw))
	case DecodeLargeInteger:
		return intValue(LargeInteger(raw))
	case DecodeDescriptorID:
		return intValue(DescriptorID(raw))
	case DecodeText:
		s, err := Text(raw)
		if err != nil || s == nil {
			return Value{}, err
		}
		return Value{Kind: ValueText, Text: *s}, nil
	case DecodeBinary:
		b, err := Bytes(raw)
		if err != nil || b == nil {
			return Value{}, err
		}
		return Value{Kind: ValueBinary, Bytes: b}, nil
	case DecodeSID:
		sid, err := SID(raw)
		if err != nil || sid == nil {
			return Value{}, err
		}
		return Value{Kind: ValueIdentifier, Text: sid.String()}, nil
	case DecodeGUID:
		u, err := GUID(raw)
		if err != nil || u == nil {
			return Value{}, err
		}
		return Value{Kind: ValueIdentifier, Text: u.String()}, nil
	case DecodeFiletime:
		return timeValue(Filetime(raw))
	case DecodeTruncatedFiletime:
		return timeValue(TruncatedFiletime(raw))
	case DecodeDatabaseTime:
		return timeValue(DatabaseTime(raw))
	case DecodeExpiry:
		return timeValue(Expiry(raw))
	}
	return Value{}, &InvalidValueError{Decoder: kind, Got: raw.Kind}
}
