package invite

import (
	"testing"
	"time"
)

func TestDisabledValidatorAcceptsEverything(t *testing.T) {
	v := New(false, []string{"DW-BETA-01", "DW-BETA-02"})

	if v.IsEnabled() {
		t.Error("validator should report disabled")
	}
	if !v.ValidateCode("whatever") {
		t.Error("disabled validator should accept any code")
	}
	if !v.ValidateCode("") {
		t.Error("disabled validator should accept an empty code")
	}
}

func TestValidateCode(t *testing.T) {
	v := New(true, []string{"DW-BETA-01", "DW-PRESS-2026", "dw-counsel-7"})

	if !v.IsEnabled() {
		t.Error("validator should report enabled")
	}

	cases := []struct {
		code  string
		valid bool
	}{
		{"DW-BETA-01", true},
		{"dw-beta-01", true},
		{"Dw-Beta-01", true},
		{"DW-PRESS-2026", true},
		{"DW-COUNSEL-7", true}, // stored lowercase
		{"DW-BETA-99", false},
		{"", false},
		{"DW-BETA", false}, // prefix of a real code
	}
	for _, tc := range cases {
		if got := v.ValidateCode(tc.code); got != tc.valid {
			t.Errorf("ValidateCode(%q) = %v, want %v", tc.code, got, tc.valid)
		}
	}
}

func TestValidateCodeTrimsWhitespace(t *testing.T) {
	v := New(true, []string{"  DW-BETA-01  "})

	if !v.ValidateCode("DW-BETA-01") {
		t.Error("stored code should be trimmed before comparison")
	}
	if !v.ValidateCode("  DW-BETA-01  ") {
		t.Error("submitted code should be trimmed before comparison")
	}
}

func TestEnabledWithNoCodesRejectsEverything(t *testing.T) {
	v := New(true, nil)

	if !v.IsEnabled() {
		t.Error("validator should report enabled even with no codes")
	}
	if v.ValidateCode("DW-BETA-01") {
		t.Error("empty code set should reject every code")
	}
}

func TestBlankConfiguredCodesAreIgnored(t *testing.T) {
	v := New(true, []string{"", "   ", "DW-BETA-01"})

	if v.ValidateCode("") {
		t.Error("empty submission should never validate")
	}
	if v.ValidateCode("   ") {
		t.Error("whitespace submission should never validate")
	}
	if !v.ValidateCode("DW-BETA-01") {
		t.Error("real code should still be accepted")
	}
}

func TestDuplicateCodesCollapse(t *testing.T) {
	v := New(true, []string{"DW-BETA-01", "dw-beta-01", " DW-BETA-01 "})

	if !v.ValidateCode("DW-BETA-01") {
		t.Error("deduplicated code should be accepted")
	}
	if v.ValidateCode("DW-BETA-02") {
		t.Error("unknown code should be rejected")
	}
}

// Validation time should not depend on how much of a code matches.
// Timing measurements are inherently noisy, so this logs rather than
// fails; a real regression shows up as orders of magnitude, not jitter.
func TestValidateCodeTimingIsFlat(t *testing.T) {
	v := New(true, []string{"AAAAAAAA", "BBBBBBBB", "CCCCCCCC"})

	sample := func(code string) time.Duration {
		const n = 100
		var total time.Duration
		for i := 0; i < n; i++ {
			start := time.Now()
			v.ValidateCode(code)
			total += time.Since(start)
		}
		return total / n
	}

	full := sample("AAAAAAAA")    // exact match
	none := sample("ZZZZZZZZ")    // no bytes match
	partial := sample("AAAAZZZZ") // half the bytes match

	const maxRatio = 10.0
	if r := float64(full) / float64(none); r > maxRatio || r < 1/maxRatio {
		t.Logf("warning: timing ratio match/miss = %.2f (match=%v, miss=%v)", r, full, none)
	}
	if r := float64(full) / float64(partial); r > maxRatio || r < 1/maxRatio {
		t.Logf("warning: timing ratio match/partial = %.2f (match=%v, partial=%v)", r, full, partial)
	}
	t.Logf("timing: match=%v, miss=%v, partial=%v", full, none, partial)
}
