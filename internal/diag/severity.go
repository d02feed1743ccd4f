package diag

// Severity ranks a diagnostic. Only SevError makes a module invalid.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{
	SevInfo:    "INFO",
	SevWarning: "WARNING",
	SevError:   "ERROR",
}

// Valid reports whether s is one of the declared severities. Severities
// read back from disk are checked with it.
func (s Severity) Valid() bool {
	return int(s) < len(severityNames)
}

func (s Severity) String() string {
	if !s.Valid() {
		return "UNKNOWN"
	}
	return severityNames[s]
}
