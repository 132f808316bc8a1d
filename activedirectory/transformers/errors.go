package transformers

import (
	"errors"
	"fmt"

	"f0oster/ntdsinspect/esedb"
)

// ErrValueIsMissing is returned when a mandatory attribute has no value.
var ErrValueIsMissing = errors.New("value is missing")

// InvalidValueError reports a cell whose storage variant does not match the
// decoder asked to read it.
type InvalidValueError struct {
	Decoder DecoderKind
	Got     esedb.Kind
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value detected: %s cell cannot be decoded as %s", e.Got, e.Decoder)
}

type IntegerConversionError struct {
	Value  int64
	Target string
}

func (e *IntegerConversionError) Error() string {
	return fmt.Sprintf("cannot convert %d to %s", e.Value, e.Target)
}

type MiscConversionError struct {
	Target string
	Err    error
}

func (e *MiscConversionError) Error() string {
	return fmt.Sprintf("cannot convert value to %s: %v", e.Target, e.Err)
}

func (e *MiscConversionError) Unwrap() error {
	return e.Err
}

// ValueKindError reports a decoded value of another kind than the caller
// reads it as.
type ValueKindError struct {
	Want ValueKind
	Got  ValueKind
}

func (e *ValueKindError) Error() string {
	return fmt.Sprintf("decoded %s value where %s was expected", e.Got, e.Want)
}
