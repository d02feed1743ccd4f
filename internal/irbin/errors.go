package irbin

import (
	"errors"
	"fmt"

	"shade/internal/diag"
)

// ErrBadMagic is wrapped by DecodeError when the input is not an IR file.
var ErrBadMagic = errors.New("not a shade IR file")

// DecodeError reports malformed or unsupported input. Decoding never panics
// on bad input; every failure surfaces as a *DecodeError.
type DecodeError struct {
	Code diag.Code
	Msg  string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("irbin: %s: %v", e.Msg, e.Err)
	}
	return "irbin: " + e.Msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) *DecodeError {
	return &DecodeError{Code: diag.BinMalformed, Msg: fmt.Sprintf(format, args...)}
}

// EncodeError reports a module that cannot be serialized, such as one
// referencing destroyed or unreachable nodes.
type EncodeError struct {
	Msg string
}

func (e *EncodeError) Error() string {
	return "irbin: cannot encode: " + e.Msg
}
