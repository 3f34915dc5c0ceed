package diagnostic

import (
	"strings"
	"testing"
)

func TestDiagnosticsGrouping(t *testing.T) {
	var d Diagnostics

	d.AddWarning(CodeMemberUnbound, "no binding for string", "a.S -> a.D", "Secret")
	d.AddInfo(CodeMemberIgnored, "ignored", "a.S -> a.D", "Hash")

	if d.HasErrors() || d.Err() != nil {
		t.Fatal("warnings and infos must not produce an error")
	}

	if got := len(d.WithCode(CodeMemberUnbound)); got != 1 {
		t.Errorf("WithCode(member_unbound) = %d diagnostics, want 1", got)
	}

	var other Diagnostics
	other.AddError(CodeProfileInvalid, "source is required", "", "maps[0]")
	other.AddError(CodeProfileUnknownPair, "no rule", "a.X -> a.Y", "maps[1]")
	d.Merge(other)

	err := d.Err()
	if err == nil {
		t.Fatal("expected an error after merging error diagnostics")
	}

	for _, want := range []string{"maps[0]: [profile_invalid] source is required", "[a.X -> a.Y] maps[1]: [profile_unknown_pair] no rule"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not contain %q", err, want)
		}
	}
}

func TestQueriesOnReturnedValue(t *testing.T) {
	build := func() Diagnostics {
		var d Diagnostics
		d.AddWarning(CodeMemberUnbound, "no binding", "a.S -> a.D", "Secret")

		return d
	}

	if got := build().WithCode(CodeMemberUnbound); len(got) != 1 || got[0].Member != "Secret" {
		t.Errorf("WithCode on a returned value = %v, want the Secret warning", got)
	}

	if build().Empty() || build().HasErrors() || build().Err() != nil {
		t.Error("a single warning must be non-empty and error-free")
	}
}

func TestSeverityString(t *testing.T) {
	tests := map[Severity]string{
		SeverityInfo:    "info",
		SeverityWarning: "warning",
		SeverityError:   "error",
		Severity(42):    "unknown",
	}

	for sev, want := range tests {
		if got := sev.String(); got != want {
			t.Errorf("Severity(%d).String() = %q, want %q", int(sev), got, want)
		}
	}
}
