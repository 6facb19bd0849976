// Package checksum validates registry identifiers locally, before any browser
// is launched. A number that fails here is rejected with zero network cost.
package checksum

import (
	"regexp"
	"strings"
)

// typeDigits maps the RIF document-type letter to the numeric value the
// portal's mod-11 scheme assigns it. A wrong entry here silently approves or
// rejects real numbers, so the table mirrors the published algorithm exactly.
var typeDigits = map[byte]int{
	'V': 1, // natural person, Venezuelan
	'E': 2, // natural person, foreign
	'J': 3, // legal entity
	'P': 4, // passport
	'G': 5, // government entity
	'C': 3, // communal council
}

// weights for the eight body digits; the type digit itself weighs 4.
var bodyWeights = [8]int{3, 2, 7, 6, 5, 4, 3, 2}

var cedulaRe = regexp.MustCompile(`^\d{6,10}$`)

// NormalizeRIF strips separators and uppercases, e.g. "j-12345678-9" ->
// "J123456789".
func NormalizeRIF(rif string) string {
	rif = strings.ReplaceAll(rif, "-", "")
	rif = strings.ReplaceAll(rif, " ", "")
	return strings.ToUpper(strings.TrimSpace(rif))
}

// ValidRIF reports whether a (normalized or raw) RIF has a well-formed shape
// and a correct check digit.
func ValidRIF(rif string) bool {
	rif = NormalizeRIF(rif)
	if len(rif) != 10 {
		return false
	}

	typeDigit, ok := typeDigits[rif[0]]
	if !ok {
		return false
	}

	sum := typeDigit * 4
	for i, w := range bodyWeights {
		c := rif[i+1]
		if c < '0' || c > '9' {
			return false
		}
		sum += int(c-'0') * w
	}

	check := rif[9]
	if check < '0' || check > '9' {
		return false
	}

	expected := 11 - sum%11
	if expected >= 10 {
		expected = 0
	}
	return int(check-'0') == expected
}

// CheckDigit computes the check digit for a nine-character RIF prefix (type
// letter plus eight digits). ok is false when the prefix is malformed.
func CheckDigit(prefix string) (digit int, ok bool) {
	prefix = NormalizeRIF(prefix)
	if len(prefix) != 9 {
		return 0, false
	}
	typeDigit, found := typeDigits[prefix[0]]
	if !found {
		return 0, false
	}
	sum := typeDigit * 4
	for i, w := range bodyWeights {
		c := prefix[i+1]
		if c < '0' || c > '9' {
			return 0, false
		}
		sum += int(c-'0') * w
	}
	digit = 11 - sum%11
	if digit >= 10 {
		digit = 0
	}
	return digit, true
}

// ValidCedula reports whether a national identity number is plausibly shaped
// for a professional-registry lookup: digits only, six to ten of them.
func ValidCedula(cedula string) bool {
	return cedulaRe.MatchString(strings.TrimSpace(cedula))
}

// ValidDocumentType reports whether the nationality marker is one the
// professional registry accepts.
func ValidDocumentType(t string) bool {
	return t == "V" || t == "E"
}
