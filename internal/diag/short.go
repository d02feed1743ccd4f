package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Short renders d as a single stable line:
//
//	error IR1001 func a / $B1: block has no terminator
func (d Diagnostic) Short() string {
	return fmt.Sprintf("%s %s %s: %s", severityLabel(d.Severity), d.Code.ID(), d.Primary, sanitizeMessage(d.Message))
}

// FormatShortDiagnostics renders diagnostics one per line in a stable order,
// suitable for golden files and the CLI short format. Notes follow their
// diagnostic when includeNotes is set.
func FormatShortDiagnostics(diags []Diagnostic, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	lines := make([]string, 0, len(diags))
	for _, d := range diags {
		lines = append(lines, d.Short())
		if includeNotes {
			for _, n := range d.Notes {
				lines = append(lines, fmt.Sprintf("note %s %s: %s", d.Code.ID(), n.Node, sanitizeMessage(n.Msg)))
			}
		}
	}
	if !includeNotes {
		sort.Strings(lines)
	}
	return strings.Join(lines, "\n")
}

func severityLabel(sev Severity) string {
	switch sev {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	default:
		return "info"
	}
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
