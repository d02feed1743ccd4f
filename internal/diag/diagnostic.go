package diag

type Note struct {
	Node Node
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Node
	Notes    []Note
}
