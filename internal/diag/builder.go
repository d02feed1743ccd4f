package diag

import "slices"

// New returns a diagnostic anchored at primary.
func New(sev Severity, code Code, primary Node, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary Node, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

// WithNote returns a copy of d with a note pointing at another node.
func (d Diagnostic) WithNote(n Node, msg string) Diagnostic {
	d.Notes = append(slices.Clip(d.Notes), Note{Node: n, Msg: msg})
	return d
}
