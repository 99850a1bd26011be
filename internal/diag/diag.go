// Package diag implements the code-emission core's error taxonomy: compile
// errors reported to the upstream driver, and the panic/recover convention
// used for internal invariant failures.
package diag

import (
	"fmt"

	"go.uber.org/multierr"
)

// Level classifies a Diagnostic's severity.
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelNote
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelNote:
		return "note"
	default:
		return "unknown"
	}
}

// Code is a stable diagnostic code, banded by subsystem so a code's prefix
// alone tells you which concern raised it.
type Code string

const (
	// C0001-C0099: stack model violations.
	CodeStackSizeMismatch Code = "C0001"
	CodeUnknownDecl        Code = "C0002"
	CodeUnbalancedCont     Code = "C0003"

	// C0100-C0199: dictionary / type errors.
	CodeUnsupportedValueType Code = "C0100"
	CodeUnsupportedKeyType   Code = "C0101"
	CodeUnimplementedCast    Code = "C0102"

	// C0200-C0299: message-info assembly errors.
	CodeMsgInfoOverflow  Code = "C0200"
	CodeMsgInfoConflict  Code = "C0201"
	CodeGramsOutOfRange  Code = "C0202"
)

// Location is a textual label only — this subsystem never carries file or
// column mappings beyond the label the surrounding statement compiler gives
// it.
type Location struct {
	Function string
	Label    string
}

func (l Location) String() string {
	if l.Label == "" {
		return l.Function
	}
	return fmt.Sprintf("%s:%s", l.Function, l.Label)
}

// Diagnostic is a single reported compile error, warning, or note.
type Diagnostic struct {
	Code     Code
	Level    Level
	At       Location
	Message  string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: [%s] %s (%s)", d.Level, d.Code, d.Message, d.At)
}

// New constructs a LevelError Diagnostic.
func New(code Code, at Location, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Code:    code,
		Level:   LevelError,
		At:      at,
		Message: fmt.Sprintf(format, args...),
	}
}

// Bug is the panic payload used for internal invariant failures — never
// returned as an error, always caught once at the top of function
// compilation and turned into a fatal report.
type Bug struct {
	Assertion string
	At        Location
}

func (b Bug) String() string {
	return fmt.Sprintf("internal invariant violated: %s at %s", b.Assertion, b.At)
}

// Reporter accumulates diagnostics for one compilation unit.
type Reporter struct {
	diags []*Diagnostic
}

// NewReporter returns an empty Reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Report records a diagnostic.
func (r *Reporter) Report(d *Diagnostic) {
	r.diags = append(r.diags, d)
}

// HasErrors reports whether any recorded diagnostic is at LevelError.
func (r *Reporter) HasErrors() bool {
	for _, d := range r.diags {
		if d.Level == LevelError {
			return true
		}
	}
	return false
}

// Diagnostics returns every recorded diagnostic, in report order.
func (r *Reporter) Diagnostics() []*Diagnostic {
	return r.diags
}

// Fatal joins every accumulated error-level diagnostic into a single error
// via multierr, or returns nil if none were errors. The core never attempts
// recovery once this is called — the caller is expected to discard partial
// output.
func (r *Reporter) Fatal() error {
	var err error
	for _, d := range r.diags {
		if d.Level == LevelError {
			err = multierr.Append(err, d)
		}
	}
	return err
}

// Recover turns a panicked Bug value into a fatal error, or re-panics for
// any other panic value (which indicates a real Go bug, not a modeled
// invariant failure). Call as `defer diag.Recover(&err)` at the top of
// function compilation.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if bug, ok := r.(Bug); ok {
		*err = fmt.Errorf("%s", bug.String())
		return
	}
	panic(r)
}
