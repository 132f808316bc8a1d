package esedb

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the declared storage variant of a column or cell.
type Kind int

const (
	KindNull Kind = iota
	KindI16
	KindI32
	KindI64
	KindText
	KindLargeText
	KindBinary
	KindLargeBinary
	KindCurrency
)

var kindNames = map[Kind]string{
	KindNull:        "null",
	KindI16:         "i16",
	KindI32:         "i32",
	KindI64:         "i64",
	KindText:        "text",
	KindLargeText:   "large_text",
	KindBinary:      "binary",
	KindLargeBinary: "large_binary",
	KindCurrency:    "currency",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a catalog type name back to its Kind.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindNull, fmt.Errorf("unknown column type %q", name)
}

// Value is one typed cell. Only the field matching Kind is meaningful.
type Value struct {
	Kind  Kind
	Int   int64
	Text  string
	Bytes []byte
}

func Null() Value                { return Value{Kind: KindNull} }
func I16(v int16) Value          { return Value{Kind: KindI16, Int: int64(v)} }
func I32(v int32) Value          { return Value{Kind: KindI32, Int: int64(v)} }
func I64(v int64) Value          { return Value{Kind: KindI64, Int: v} }
func Currency(v int64) Value     { return Value{Kind: KindCurrency, Int: v} }
func Text(v string) Value        { return Value{Kind: KindText, Text: v} }
func LargeText(v string) Value   { return Value{Kind: KindLargeText, Text: v} }
func Binary(v []byte) Value      { return Value{Kind: KindBinary, Bytes: v} }
func LargeBinary(v []byte) Value { return Value{Kind: KindLargeBinary, Bytes: v} }

func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// String renders the raw cell without any attribute-specific decoding.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindI16, KindI32, KindI64, KindCurrency:
		return strconv.FormatInt(v.Int, 10)
	case KindText, KindLargeText:
		return v.Text
	case KindBinary, KindLargeBinary:
		return hex.EncodeToString(v.Bytes)
	}
	return ""
}
