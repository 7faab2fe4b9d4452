// Package invite gates account registration behind invite codes while
// the service runs as a private beta.
package invite

import (
	"crypto/subtle"
	"strings"
)

// Validator holds the set of accepted invite codes. The set is loaded
// once at startup from configuration and never changes at runtime.
type Validator struct {
	required bool
	codes    []string
}

// New builds a Validator from the configured codes. Codes are trimmed,
// upper-cased, and deduplicated, so " beta-01 " and "BETA-01" count as
// the same code.
func New(required bool, codes []string) *Validator {
	seen := make(map[string]bool, len(codes))
	kept := make([]string, 0, len(codes))
	for _, raw := range codes {
		code := normalize(raw)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		kept = append(kept, code)
	}
	return &Validator{required: required, codes: kept}
}

// IsEnabled reports whether registration requires an invite code.
func (v *Validator) IsEnabled() bool {
	return v.required
}

// ValidateCode reports whether code grants access. When invite gating
// is disabled every code, including an empty one, is accepted.
//
// Every stored code is compared on every call, each comparison in
// constant time, so response timing does not reveal which code, if
// any, matched.
func (v *Validator) ValidateCode(code string) bool {
	if !v.required {
		return true
	}

	candidate := []byte(normalize(code))
	if len(candidate) == 0 {
		return false
	}

	matched := 0
	for _, known := range v.codes {
		b := []byte(known)
		// ConstantTimeCompare demands equal lengths, so gate on a
		// constant-time length check first.
		if subtle.ConstantTimeEq(int32(len(candidate)), int32(len(b))) == 1 {
			matched |= subtle.ConstantTimeCompare(candidate, b)
		}
	}
	return matched == 1
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
