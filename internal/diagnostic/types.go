package diagnostic

import (
	"errors"
	"fmt"
	"strings"

	"exprmap/internal/common"
)

// Codes reported while building and resolving projections.
const (
	// CodeMemberUnbound: a destination member found no applicable binding
	// and keeps its zero value.
	CodeMemberUnbound = "member_unbound"
	// CodeMemberIgnored: a destination member was removed by an ignore rule.
	CodeMemberIgnored = "member_ignored"
	// CodeProfileInvalid: a profile entry is malformed.
	CodeProfileInvalid = "profile_invalid"
	// CodeProfileUnknownPair: a profile names a pair with no registered rule.
	CodeProfileUnknownPair = "profile_unknown_pair"
)

// Diagnostics holds all diagnostic information from one build or check.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Infos    []Diagnostic
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
	// Pair identifies the rule ("S -> D"), if any.
	Pair string
	// Member is the destination member or profile path, if any.
	Member string
}

// Severity represents the severity level of a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return common.UnknownStr
	}
}

// Add records a diagnostic under its severity.
func (d *Diagnostics) Add(sev Severity, code, message, pair, member string) {
	diag := Diagnostic{Severity: sev, Code: code, Message: message, Pair: pair, Member: member}

	switch sev {
	case SeverityError:
		d.Errors = append(d.Errors, diag)
	case SeverityWarning:
		d.Warnings = append(d.Warnings, diag)
	default:
		d.Infos = append(d.Infos, diag)
	}
}

// AddError adds an error diagnostic.
func (d *Diagnostics) AddError(code, message, pair, member string) {
	d.Add(SeverityError, code, message, pair, member)
}

// AddWarning adds a warning diagnostic.
func (d *Diagnostics) AddWarning(code, message, pair, member string) {
	d.Add(SeverityWarning, code, message, pair, member)
}

// AddInfo adds an info diagnostic.
func (d *Diagnostics) AddInfo(code, message, pair, member string) {
	d.Add(SeverityInfo, code, message, pair, member)
}

// HasErrors returns true if there are any error diagnostics.
func (d Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// Empty reports whether nothing was recorded.
func (d Diagnostics) Empty() bool {
	return len(d.Errors)+len(d.Warnings)+len(d.Infos) == 0
}

// Merge appends other to d.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
	d.Infos = append(d.Infos, other.Infos...)
}

// WithCode returns every diagnostic carrying code, errors first.
func (d Diagnostics) WithCode(code string) []Diagnostic {
	var out []Diagnostic

	for _, group := range [][]Diagnostic{d.Errors, d.Warnings, d.Infos} {
		for _, diag := range group {
			if diag.Code == code {
				out = append(out, diag)
			}
		}
	}

	return out
}

// Err joins the error diagnostics, or returns nil when there are none.
func (d Diagnostics) Err() error {
	if !d.HasErrors() {
		return nil
	}

	errs := make([]error, len(d.Errors))
	for i, e := range d.Errors {
		errs[i] = errors.New(e.String())
	}

	return errors.Join(errs...)
}

// String returns a formatted diagnostic string:
//
//	[catalog.Person -> catalog.PersonDTO] Secret: [member_unbound] no binding for string
func (d Diagnostic) String() string {
	var prefix []string
	if d.Pair != "" {
		prefix = append(prefix, "["+d.Pair+"]")
	}

	if d.Member != "" {
		prefix = append(prefix, d.Member)
	}

	msg := d.Message
	if d.Code != "" {
		msg = fmt.Sprintf("[%s] %s", d.Code, msg)
	}

	if len(prefix) > 0 {
		return strings.Join(prefix, " ") + ": " + msg
	}

	return msg
}
