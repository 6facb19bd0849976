// Package models defines the request and result shapes of the verification
// flows. Results are structured values, never raw errors: callers receive a
// normalized rejection reason while the full detail stays in the server logs.
package models

import "encoding/base64"

// RejectionReason normalizes every way a verification can fail.
type RejectionReason string

const (
	// ReasonInvalidFormat: check digit or shape failed locally; no network.
	ReasonInvalidFormat RejectionReason = "INVALID_FORMAT"
	// ReasonSessionEstablishmentFailed: the portal never issued a session
	// cookie; it is down or blocking automation.
	ReasonSessionEstablishmentFailed RejectionReason = "SESSION_ESTABLISHMENT_FAILED"
	// ReasonSessionExpired: unknown, consumed, or timed-out session id.
	ReasonSessionExpired RejectionReason = "SESSION_EXPIRED"
	// ReasonCaptchaIncorrect: the portal rejected the challenge answer.
	ReasonCaptchaIncorrect RejectionReason = "CAPTCHA_INCORRECT"
	// ReasonNotFound: the query ran but no record matched.
	ReasonNotFound RejectionReason = "NOT_FOUND"
	// ReasonIneligible: a record exists but fails the eligibility rule.
	ReasonIneligible RejectionReason = "INELIGIBLE"
	// ReasonNetworkError: navigation failed after exhausting retries.
	ReasonNetworkError RejectionReason = "NETWORK_ERROR"
)

// Request is a taxpayer validation request: the second phase of the
// challenge/response protocol.
type Request struct {
	RegistryNumber  string `json:"rif"`
	ChallengeAnswer string `json:"captcha"`
	SessionID       string `json:"sessionId"`
	CorrelationID   string `json:"correlationId,omitempty"`
}

// ProfessionalRequest is a professional-registry verification request.
type ProfessionalRequest struct {
	Cedula           string `json:"cedula"`
	DocumentType     string `json:"tipoDocumento"`
	CallerIdentityID string `json:"callerIdentityId,omitempty"`
	CorrelationID    string `json:"correlationId,omitempty"`
}

// Challenge is the first-phase output: an opaque session id plus the captcha
// image the human must read.
type Challenge struct {
	SessionID string
	ImagePNG  []byte
}

// ImageDataURI renders the captcha image the way browser callers consume it.
func (c *Challenge) ImageDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(c.ImagePNG)
}

// TaxpayerRecord is the structured data extracted for the taxpayer registry.
type TaxpayerRecord struct {
	RIF          string `json:"rif"`
	BusinessName string `json:"businessName"`
}

// Profession is one row of the professional registry's license table.
type Profession struct {
	Title            string `json:"title"`
	LicenseNumber    string `json:"licenseNumber"`
	RegistrationDate string `json:"registrationDate"`
	Volume           string `json:"volume"`
	Folio            string `json:"folio"`
	HasPostgraduates bool   `json:"-"`
}

// Postgraduate is one postgraduate credential attached to a profession.
type Postgraduate struct {
	Title            string `json:"title"`
	RegistrationDate string `json:"registrationDate"`
	Volume           string `json:"volume"`
	Folio            string `json:"folio"`
}

// ProfessionalRecord is the structured data extracted for the professional
// registry, including the eligibility classification.
type ProfessionalRecord struct {
	Cedula            string         `json:"cedula"`
	DocumentType      string         `json:"tipoDocumento"`
	FullName          string         `json:"fullName"`
	Professions       []Profession   `json:"professions"`
	Postgraduates     []Postgraduate `json:"postgraduateCredentials"`
	PrimaryProfession string         `json:"primaryProfession"`
	PrimaryLicense    string         `json:"primaryLicense"`
	SpecialtyDisplay  string         `json:"specialtyDisplay"`
	HumanHealth       bool           `json:"isHumanHealthProfessional"`
	Veterinary        bool           `json:"isVeterinary"`
	Eligible          bool           `json:"isEligible"`
}

// Result is the outcome of a verification attempt. Success means the flow ran
// to a definitive answer; Verified means the registry confirmed an eligible
// record.
type Result struct {
	Success         bool                `json:"success"`
	Verified        bool                `json:"verified"`
	RejectionReason RejectionReason     `json:"rejectionReason,omitempty"`
	Message         string              `json:"message,omitempty"`
	Taxpayer        *TaxpayerRecord     `json:"taxpayer,omitempty"`
	Professional    *ProfessionalRecord `json:"professional,omitempty"`
}

// Rejected builds a failed result with a normalized reason.
func Rejected(reason RejectionReason, message string) *Result {
	return &Result{Success: false, Verified: false, RejectionReason: reason, Message: message}
}
