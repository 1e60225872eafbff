// Package unicodeutil provides the UTF-8 iteration, normalization, and
// script/category classification primitives shared by the dictionary
// compiler and the tokenizer runtime.
package unicodeutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Form selects the normalization policy applied to dictionary surfaces and
// input text before lattice construction. A dictionary records the form it
// was built with so a mismatched runtime can be detected.
type Form int

const (
	// NoneForm passes input through unchanged.
	NoneForm Form = iota
	// NFKCForm applies Unicode Normalization Form KC.
	NFKCForm
)

// String returns the form's on-disk/CLI name.
func (f Form) String() string {
	switch f {
	case NFKCForm:
		return "NFKC"
	default:
		return "NONE"
	}
}

// ParseForm resolves a normalization form by name, case-insensitively.
// An empty or "*" name resolves to NoneForm.
func ParseForm(name string) (Form, bool) {
	switch strings.ToUpper(name) {
	case "", "*", "NONE":
		return NoneForm, true
	case "NFKC":
		return NFKCForm, true
	default:
		return 0, false
	}
}

// Normalize applies the given normalization form to s. This is the single
// entry point the builder and the tokenizer both call, so dictionary
// surfaces and tokenizer input are always canonicalized the same way.
func Normalize(s string, form Form) string {
	if form == NoneForm {
		return s
	}
	return norm.NFKC.String(s)
}
