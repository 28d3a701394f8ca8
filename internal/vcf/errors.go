package vcf

import (
	"errors"
	"fmt"
)

// Error classes for records that cannot be converted.
var (
	// ErrMalformedRecord marks a data line with too few columns or no AF annotation.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrFieldCountMismatch marks a record whose ALT and AF lists differ in length.
	ErrFieldCountMismatch = errors.New("allele/frequency count mismatch")
)

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Text    string
	Kind    error
	Message string
}

// maxErrorText bounds how much of the offending line an error message quotes.
const maxErrorText = 80

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
	if e.Text == "" {
		return msg
	}
	text := e.Text
	if len(text) > maxErrorText {
		text = text[:maxErrorText] + "..."
	}
	return fmt.Sprintf("%s: %q", msg, text)
}

// Unwrap exposes the error class so callers can use errors.Is.
func (e *ParseError) Unwrap() error {
	return e.Kind
}
