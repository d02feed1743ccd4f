package diagfmt

import (
	"encoding/json"
	"io"

	"shade/internal/diag"
)

// LocationJSON points at an IR node inside an input file.
type LocationJSON struct {
	File string `json:"file"`
	Node string `json:"node,omitempty"`
	Kind string `json:"kind,omitempty"`
	ID   *int32 `json:"id,omitempty"`
}

type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// DiagnosticsOutput is the root JSON object.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

func makeLocation(file string, n diag.Node) LocationJSON {
	loc := LocationJSON{File: file, Node: n.Path}
	if n.Kind != diag.NodeNone {
		id := n.ID
		loc.Kind = n.Kind.String()
		loc.ID = &id
	}
	return loc
}

// BuildDiagnosticsOutput flattens files into the JSON document.
func BuildDiagnosticsOutput(files []File, opts JSONOpts) DiagnosticsOutput {
	out := DiagnosticsOutput{Diagnostics: []DiagnosticJSON{}}
	for _, f := range files {
		if f.Bag == nil {
			continue
		}
		path := formatPath(f.Path, opts.PathMode, opts.BaseDir)
		for _, d := range f.Bag.Items() {
			if opts.Max > 0 && len(out.Diagnostics) >= opts.Max {
				out.Count = len(out.Diagnostics)
				return out
			}
			dj := DiagnosticJSON{
				Severity: d.Severity.String(),
				Code:     d.Code.ID(),
				Title:    d.Code.Title(),
				Message:  d.Message,
				Location: makeLocation(path, d.Primary),
			}
			if (opts.IncludeNotes || d.Code == diag.ObsTimings) && len(d.Notes) > 0 {
				dj.Notes = make([]NoteJSON, len(d.Notes))
				for i, n := range d.Notes {
					dj.Notes[i] = NoteJSON{Message: n.Msg, Location: makeLocation(path, n.Node)}
				}
			}
			out.Diagnostics = append(out.Diagnostics, dj)
		}
	}
	out.Count = len(out.Diagnostics)
	return out
}

// JSON writes the indented JSON document.
func JSON(w io.Writer, files []File, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildDiagnosticsOutput(files, opts))
}
