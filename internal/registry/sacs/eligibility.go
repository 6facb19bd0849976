package sacs

import (
	"strings"

	"regverify/internal/verification/models"
)

// humanHealthProfessions are the registry titles accepted as human-health
// practice. Matching is by substring because the registry embellishes titles
// ("MÉDICO CIRUJANO", "LICENCIADO EN ENFERMERÍA").
var humanHealthProfessions = []string{
	"MÉDICO",
	"CIRUJANO",
	"ODONTÓLOGO",
	"BIOANALISTA",
	"ENFERMERO",
	"FARMACÉUTICO",
	"FISIOTERAPEUTA",
	"NUTRICIONISTA",
	"PSICÓLOGO",
}

const veterinaryMarker = "VETERINARIO"

// isHumanHealth reports whether a single title names a human-health
// profession. A veterinary title never qualifies, even when it also contains
// a qualifying word ("MÉDICO VETERINARIO").
func isHumanHealth(title string) bool {
	upper := strings.ToUpper(title)
	if strings.Contains(upper, veterinaryMarker) {
		return false
	}
	for _, p := range humanHealthProfessions {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}

// Eligibility is the classification of a profession list.
type Eligibility struct {
	HumanHealth bool
	Veterinary  bool
	Eligible    bool
}

// Classify applies the eligibility rule across every registered profession.
// A veterinary registration anywhere in the list vetoes eligibility outright;
// past the veto, at least one human-health profession must be present.
func Classify(professions []models.Profession) Eligibility {
	var e Eligibility
	for _, p := range professions {
		upper := strings.ToUpper(p.Title)
		if strings.Contains(upper, veterinaryMarker) {
			e.Veterinary = true
		}
		if isHumanHealth(p.Title) {
			e.HumanHealth = true
		}
	}
	e.Eligible = e.HumanHealth && !e.Veterinary
	return e
}

// specialtyByProfession maps a primary profession to the label shown on the
// verified profile when no postgraduate credential is registered.
var specialtyByProfession = []struct {
	marker, display string
}{
	{"CIRUJANO", "MEDICINA GENERAL"},
	{"ODONTÓLOGO", "ODONTOLOGÍA"},
	{"BIOANALISTA", "BIOANÁLISIS"},
	{"ENFERMERO", "ENFERMERÍA"},
	{"FARMACÉUTICO", "FARMACIA"},
}

// SpecialtyDisplay picks the specialty label for a record: the most recent
// postgraduate credential when one exists, otherwise a friendly rendering of
// the primary profession.
func SpecialtyDisplay(professions []models.Profession, postgraduates []models.Postgraduate) string {
	if len(postgraduates) > 0 {
		return postgraduates[0].Title
	}
	if len(professions) == 0 {
		return "NO ESPECIFICADA"
	}
	title := professions[0].Title
	upper := strings.ToUpper(title)
	for _, m := range specialtyByProfession {
		if strings.Contains(upper, m.marker) {
			return m.display
		}
	}
	return title
}
