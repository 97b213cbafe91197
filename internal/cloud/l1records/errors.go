package l1records

import "errors"

var (
	// ErrMalformedFieldWidth is returned when a position field does not span
	// exactly one float32, or when the rgb field is narrower than three bytes.
	ErrMalformedFieldWidth = errors.New("malformed field width")

	// ErrMissingColorField reports a layout without an rgb descriptor. It is
	// informational: the assembler substitutes a default color.
	ErrMissingColorField = errors.New("missing rgb field")

	// ErrFieldOutOfRange is returned when a field extends past the record stride.
	ErrFieldOutOfRange = errors.New("field extends past record")

	// ErrZeroStride is returned for frames that declare a zero record stride.
	ErrZeroStride = errors.New("record stride is zero")
)
