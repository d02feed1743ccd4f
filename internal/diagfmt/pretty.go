package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"shade/internal/diag"
)

type palette struct {
	err, warn, info, code, path, note *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow, color.Bold),
		info: color.New(color.FgCyan),
		code: color.New(color.Bold),
		path: color.New(color.FgWhite, color.Bold),
		note: color.New(color.FgBlue),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.code, p.path, p.note} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty writes each diagnostic as
//
//	<path>: <node>: <SEV> <CODE>: <message>
//
// followed by its notes. Bags are expected to be sorted already.
func Pretty(w io.Writer, files []File, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	for _, f := range files {
		if f.Bag == nil {
			continue
		}
		path := formatPath(f.Path, opts.PathMode, opts.BaseDir)
		for _, d := range f.Bag.Items() {
			_, err := fmt.Fprintf(w, "%s: %s: %s %s: %s\n",
				p.path.Sprint(path), d.Primary,
				p.severity(d.Severity).Sprint(d.Severity), p.code.Sprint(d.Code.ID()), d.Message)
			if err != nil {
				return err
			}
			if opts.ShowTitle {
				if _, err := fmt.Fprintf(w, "  = %s\n", d.Code.Title()); err != nil {
					return err
				}
			}
			if !opts.ShowNotes {
				continue
			}
			for _, n := range d.Notes {
				if _, err := fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note:"), n.Node, n.Msg); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
