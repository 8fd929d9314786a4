package diag

import (
	"errors"
	"fmt"
)

// Fatal is the single error kind that aborts a merge. No partial output is
// produced once a Fatal has been raised.
type Fatal struct {
	Code    Code
	Subject string
	Message string
}

func (f *Fatal) Error() string {
	if f.Subject == "" {
		return fmt.Sprintf("%s: %s", f.Code.ID(), f.Message)
	}
	return fmt.Sprintf("%s: %s: %s", f.Code.ID(), f.Subject, f.Message)
}

// Fatalf builds a Fatal with a formatted message.
func Fatalf(code Code, subject, format string, args ...any) *Fatal {
	return &Fatal{Code: code, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// Diagnostic converts the fatal error into an error-level diagnostic.
func (f *Fatal) Diagnostic() Diagnostic {
	return NewError(f.Code, f.Subject, f.Message)
}

// AsFatal unwraps err into a *Fatal, if it is one.
func AsFatal(err error) (*Fatal, bool) {
	var f *Fatal
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
