// Package version carries build metadata injected with -ldflags -X.
package version

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of shade.
	Version = "0.1.0-dev"
	// GitCommit is the commit hash the binary was built from.
	GitCommit = ""
	// BuildDate is an ISO-8601 timestamp.
	BuildDate = ""
)

// Tagline is printed next to the version.
const Tagline = "structured shader IR toolkit"

// Info is a trimmed snapshot of the build metadata.
type Info struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

// Current returns the metadata, defaulting an empty version to "dev".
func Current() Info {
	v := strings.TrimSpace(Version)
	if v == "" {
		v = "dev"
	}
	return Info{
		Tool:      "shade",
		Version:   v,
		GitCommit: strings.TrimSpace(GitCommit),
		BuildDate: strings.TrimSpace(BuildDate),
	}
}

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Colored renders MAJOR.MINOR.PATCH with one color per component. Anything
// after the patch number is left plain. Coloring follows color.NoColor.
func Colored(v string) string {
	core, rest, _ := strings.Cut(v, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return v
	}
	out := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if rest != "" {
		out += "-" + rest
	}
	return out
}

// WritePretty prints the banner and, when full is set, the commit and date.
func WritePretty(w io.Writer, info Info, full bool) error {
	if _, err := fmt.Fprintf(w, "%s %s (%s)\n", info.Tool, Colored(info.Version), Tagline); err != nil {
		return err
	}
	if !full {
		return nil
	}
	_, err := fmt.Fprintf(w, "commit: %s\nbuilt:  %s\n", orUnknown(info.GitCommit), orUnknown(info.BuildDate))
	return err
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
