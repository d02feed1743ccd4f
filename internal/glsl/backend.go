package glsl

import (
	"errors"
	"fmt"

	"shade/internal/ir"
)

// Version is a GLSL language version directive.
type Version struct {
	Number uint16 // 310, 450, ...
	ES     bool
}

// Common versions.
var (
	VersionES310 = Version{Number: 310, ES: true}
	VersionES320 = Version{Number: 320, ES: true}
	Version450   = Version{Number: 450}
)

// String renders the value of a #version directive.
func (v Version) String() string {
	if v.ES {
		return fmt.Sprintf("%d es", v.Number)
	}
	return fmt.Sprintf("%d", v.Number)
}

// SupportsCompute reports whether compute shaders are available.
func (v Version) SupportsCompute() bool {
	if v.ES {
		return v.Number >= 310
	}
	return v.Number >= 430
}

// Options configures GLSL generation.
type Options struct {
	// Version is the target language version. Defaults to VersionES310.
	Version Version

	// EntryPoint selects the entry point emitted as main. Empty picks the
	// first entry point of the module.
	EntryPoint string

	// SkipValidation emits without running ir.Validate first. The module
	// must then be known to be valid.
	SkipValidation bool
}

// Output is the result of a successful generation.
type Output struct {
	GLSL string

	// EntryPoint is the IR name of the function emitted as main, or empty
	// when the unused entry point stub was written.
	EntryPoint string

	// Extensions lists the #extension directives the shader requires.
	Extensions []string
}

// ErrUnsupported is wrapped by errors for IR the writer cannot express.
var ErrUnsupported = errors.New("unsupported by the GLSL writer")

// Generate emits GLSL for a valid module.
func Generate(m *ir.Module, opts Options) (Output, error) {
	if m == nil {
		return Output{}, errors.New("glsl: nil module")
	}
	if opts.Version.Number == 0 {
		opts.Version = VersionES310
	}
	if !opts.SkipValidation {
		if err := ir.Validate(m, ir.Options{}); err != nil {
			return Output{}, fmt.Errorf("glsl: %w", err)
		}
	}
	w := newWriter(m, opts)
	if err := w.writeModule(); err != nil {
		return Output{}, fmt.Errorf("glsl: %w", err)
	}
	return w.output(), nil
}
