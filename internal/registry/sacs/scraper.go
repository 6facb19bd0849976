package sacs

import (
	"context"
	"fmt"
	"log/slog"

	"regverify/internal/checksum"
	"regverify/internal/retry"
	"regverify/internal/verification/models"
)

// Scraper runs the full consultation: drive the portal, parse the result
// tables, and classify the record. Unlike the taxpayer flow there is no
// challenge phase; the portal answers a plain form submission.
type Scraper struct {
	driver Driver
	policy retry.Policy
	logger *slog.Logger
}

// NewScraper constructs a Scraper.
func NewScraper(driver Driver, policy retry.Policy, logger *slog.Logger) *Scraper {
	return &Scraper{driver: driver, policy: policy, logger: logger}
}

// Verify looks up a document number in the health-professional registry.
// Domain rejections come back as structured results; the error return is
// reserved for internal failures.
func (s *Scraper) Verify(ctx context.Context, documentType, cedula string) (*models.Result, error) {
	if !checksum.ValidDocumentType(documentType) || !checksum.ValidCedula(cedula) {
		return models.Rejected(models.ReasonInvalidFormat,
			"Formato de cédula inválido (solo números, 6-10 dígitos; tipo V o E)"), nil
	}

	var data *PageData
	err := s.policy.Navigation(ctx, func(ctx context.Context) error {
		var err error
		data, err = s.driver.Lookup(ctx, documentType, cedula)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "registry consultation failed",
			"document_type", documentType,
			"error", err,
		)
		return models.Rejected(models.ReasonNetworkError,
			"Error al consultar el SACS. Por favor intenta nuevamente."), nil
	}

	if !data.Found {
		return models.Rejected(models.ReasonNotFound,
			"Esta cédula no está registrada en el SACS como profesional de la salud"), nil
	}

	basic := ParseBasicInfo(data.BasicHTML)
	fullName := basic[fullNameKey]
	professions := ParseProfessions(data.ProfessionsHTML)
	if fullName == "" || len(professions) == 0 {
		return models.Rejected(models.ReasonNotFound,
			"Esta cédula no está registrada en el SACS como profesional de la salud"), nil
	}

	// The postgraduate table only belongs to this record when a profession
	// row actually advertised one; otherwise whatever the driver captured is
	// a leftover from the page chrome and must not be attributed.
	var postgraduates []models.Postgraduate
	for _, p := range professions {
		if p.HasPostgraduates {
			postgraduates = ParsePostgraduates(data.PostgraduatesHTML)
			break
		}
	}
	elig := Classify(professions)

	record := &models.ProfessionalRecord{
		Cedula:            cedula,
		DocumentType:      documentType,
		FullName:          fullName,
		Professions:       professions,
		Postgraduates:     postgraduates,
		PrimaryProfession: professions[0].Title,
		PrimaryLicense:    professions[0].LicenseNumber,
		SpecialtyDisplay:  SpecialtyDisplay(professions, postgraduates),
		HumanHealth:       elig.HumanHealth,
		Veterinary:        elig.Veterinary,
		Eligible:          elig.Eligible,
	}

	res := &models.Result{
		Success:      true,
		Verified:     elig.Eligible,
		Professional: record,
	}
	switch {
	case elig.Eligible:
		res.Message = "Verificación exitosa. Profesional de salud humana registrado en el SACS."
	case elig.Veterinary:
		res.RejectionReason = models.ReasonIneligible
		res.Message = "Esta cédula corresponde a un médico veterinario. Solo se admiten profesionales de salud humana."
	default:
		res.RejectionReason = models.ReasonIneligible
		res.Message = fmt.Sprintf("La profesión %q no está habilitada. Solo se permiten profesionales de salud humana.",
			record.PrimaryProfession)
	}
	return res, nil
}
