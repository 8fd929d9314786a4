package diag

// Note adds secondary context to a diagnostic.
type Note struct {
	Subject string
	Msg     string
}

// Diagnostic is one finding of a merge phase. Subject names what the
// finding is about: an assembly ("Core"), a type ("Core!N.T"), a resource.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Subject  string
	Notes    []Note
}
