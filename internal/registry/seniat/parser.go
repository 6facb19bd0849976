package seniat

import (
	"html"
	"regexp"
	"strings"
)

// Outcome classifies a result page.
type Outcome int

const (
	// OutcomeNotFound: neither a rejection marker nor a record was present.
	OutcomeNotFound Outcome = iota
	// OutcomeCaptchaIncorrect: the portal rejected the challenge answer.
	OutcomeCaptchaIncorrect
	// OutcomeRecord: a taxpayer record was extracted.
	OutcomeRecord
)

// ParsedResult is the structured reading of a result page.
type ParsedResult struct {
	Outcome      Outcome
	BusinessName string
}

var (
	// The label degrades differently depending on how the portal's encoding of
	// "Razón" survives transport, hence the tolerant middle.
	businessNameRe = regexp.MustCompile(`(?si)Nombre\s+o\s+Raz.{1,2}n\s+Social:.*?<b[^>]*>(.*?)</b>`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// ParseResult extracts the validation outcome from a result page. The page is
// externally controlled and unversioned; everything brittle about reading it
// lives here so navigation logic stays untouched when the portal shifts.
func ParseResult(pageHTML string) ParsedResult {
	if strings.Contains(strings.ToLower(pageHTML), "incorrecto") {
		return ParsedResult{Outcome: OutcomeCaptchaIncorrect}
	}

	if m := businessNameRe.FindStringSubmatch(pageHTML); m != nil {
		name := html.UnescapeString(m[1])
		name = whitespaceRe.ReplaceAllString(name, " ")
		name = strings.TrimSpace(name)
		if name != "" {
			return ParsedResult{Outcome: OutcomeRecord, BusinessName: name}
		}
	}

	return ParsedResult{Outcome: OutcomeNotFound}
}
