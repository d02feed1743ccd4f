package diag

import "testing"

func TestFormatShortDiagnostics(t *testing.T) {
	diags := []Diagnostic{
		{
			Severity: SevWarning,
			Code:     IRUseDefMismatch,
			Message:  "another",
			Primary:  Node{Kind: NodeValue, ID: 3, Path: "func b / %3"},
		},
		{
			Severity: SevError,
			Code:     IRUnterminatedBlock,
			Message:  "first line\nsecond",
			Primary:  Node{Kind: NodeBlock, ID: 1, Path: "func a / $B1"},
		},
	}

	expected := "error IR1001 func a / $B1: first line second\n" +
		"warning IR1009 func b / %3: another"

	if got := FormatShortDiagnostics(diags, false); got != expected {
		t.Fatalf("unexpected short diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestFormatShortDiagnosticsWithNotes(t *testing.T) {
	d := NewError(IRExitContainment, Node{Kind: NodeInst, ID: 7, Path: "func f / $B3 / exit_if"}, "exit escapes its if").
		WithNote(Node{Kind: NodeInst, ID: 2, Path: "func f / $B1 / if"}, "target declared here")
	want := "error IR1007 func f / $B3 / exit_if: exit escapes its if\n" +
		"note IR1007 func f / $B1 / if: target declared here"
	if got := FormatShortDiagnostics([]Diagnostic{d}, true); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestBagLimitSortDedup(t *testing.T) {
	bag := NewBag(3)
	r := BagReporter{Bag: bag}
	n1 := Node{Kind: NodeInst, ID: 2, Path: "func b"}
	n2 := Node{Kind: NodeInst, ID: 1, Path: "func a"}
	r.Report(IROperandType, SevError, n1, "dup", nil)
	r.Report(IROperandType, SevError, n1, "dup", nil)
	r.Report(IRArity, SevWarning, n2, "arity", nil)
	r.Report(IRArity, SevError, n2, "dropped", nil)
	if bag.Len() != 3 || !bag.Full() {
		t.Fatalf("bag should be capped at 3, got %d", bag.Len())
	}
	bag.Dedup()
	if bag.Len() != 2 {
		t.Fatalf("dedup left %d items", bag.Len())
	}
	bag.Sort()
	if bag.Items()[0].Primary.Path != "func a" {
		t.Fatalf("sort order wrong: %+v", bag.Items())
	}
	if !bag.HasErrors() || bag.Items()[1].Severity != SevError {
		t.Fatalf("severity queries wrong")
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(10)
	b := ReportError(BagReporter{Bag: bag}, IRArity, Node{Kind: NodeInst, ID: 1}, "bad").
		WithNote(Node{Kind: NodeValue, ID: 4}, "here")
	b.Emit()
	b.Emit()
	if bag.Len() != 1 {
		t.Fatalf("expected exactly one diagnostic, got %d", bag.Len())
	}
	if got := bag.Items()[0].Primary.String(); got != "inst#1" {
		t.Fatalf("node string = %q", got)
	}
}

func TestDedupReporterAndMulti(t *testing.T) {
	a, b := NewBag(10), NewBag(10)
	r := NewDedupReporter(MultiReporter{BagReporter{Bag: a}, BagReporter{Bag: b}, nil})
	n := Node{Kind: NodeBlock, ID: 5}
	r.Report(IRUnterminatedBlock, SevError, n, "x", nil)
	r.Report(IRUnterminatedBlock, SevError, n, "x", nil)
	if a.Len() != 1 || b.Len() != 1 {
		t.Fatalf("expected one diagnostic per bag, got %d/%d", a.Len(), b.Len())
	}
	if IRUnterminatedBlock.ID() != "IR1001" || BinMalformed.ID() != "BIN2001" {
		t.Fatalf("code ids wrong")
	}
}

func TestSeverityString(t *testing.T) {
	for sev, want := range map[Severity]string{SevInfo: "INFO", SevWarning: "WARNING", SevError: "ERROR", 7: "UNKNOWN"} {
		if got := sev.String(); got != want {
			t.Fatalf("Severity(%d).String() = %q, want %q", sev, got, want)
		}
	}
	if Severity(3).Valid() {
		t.Fatalf("Severity(3) must be invalid")
	}
}
