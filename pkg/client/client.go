// Package client is a typed HTTP client for the registry verification
// service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Challenge is a pending captcha challenge.
type Challenge struct {
	SessionID    string `json:"sessionId"`
	CaptchaImage string `json:"captchaImage"`
}

// Result is a verification outcome.
type Result struct {
	Success         bool            `json:"success"`
	Verified        bool            `json:"verified"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	Message         string          `json:"message,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
}

// TaxpayerRecord is the structured data of a verified taxpayer.
type TaxpayerRecord struct {
	RIF          string `json:"rif"`
	BusinessName string `json:"businessName"`
}

// ProfessionalRecord is the structured data of a verified professional.
type ProfessionalRecord struct {
	Cedula            string `json:"cedula"`
	DocumentType      string `json:"tipoDocumento"`
	FullName          string `json:"fullName"`
	PrimaryProfession string `json:"primaryProfession"`
	PrimaryLicense    string `json:"primaryLicense"`
	SpecialtyDisplay  string `json:"specialtyDisplay"`
	HumanHealth       bool   `json:"isHumanHealthProfessional"`
	Veterinary        bool   `json:"isVeterinary"`
	Eligible          bool   `json:"isEligible"`
}

// Client calls the verification service.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client. The default timeout is
// generous because validation calls ride out portal retries server-side.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a verification service client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call verification service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (%s)", http.MethodPost, path, apiErr.Error, apiErr.Description)
		}
		return fmt.Errorf("%s %s: unexpected status %d", http.MethodPost, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// BeginChallenge requests a fresh captcha challenge.
func (c *Client) BeginChallenge(ctx context.Context) (*Challenge, error) {
	var out Challenge
	if err := c.post(ctx, "/challenge", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateTaxpayer submits a registry number with the challenge answer.
func (c *Client) ValidateTaxpayer(ctx context.Context, rif, captcha, sessionID string) (*Result, error) {
	body := map[string]string{
		"rif":       rif,
		"captcha":   captcha,
		"sessionId": sessionID,
	}
	var out Result
	if err := c.post(ctx, "/validate", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyProfessional looks up a document number in the professional registry.
func (c *Client) VerifyProfessional(ctx context.Context, cedula, documentType, callerIdentityID string) (*Result, error) {
	body := map[string]string{
		"cedula":        cedula,
		"tipoDocumento": documentType,
	}
	if callerIdentityID != "" {
		body["callerIdentityId"] = callerIdentityID
	}
	var out Result
	if err := c.post(ctx, "/professional/verify", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Taxpayer decodes the result's structured data as a taxpayer record.
func (r *Result) Taxpayer() (*TaxpayerRecord, error) {
	if r.Data == nil {
		return nil, fmt.Errorf("result carries no data")
	}
	var rec TaxpayerRecord
	if err := json.Unmarshal(r.Data, &rec); err != nil {
		return nil, fmt.Errorf("decode taxpayer record: %w", err)
	}
	return &rec, nil
}

// Professional decodes the result's structured data as a professional record.
func (r *Result) Professional() (*ProfessionalRecord, error) {
	if r.Data == nil {
		return nil, fmt.Errorf("result carries no data")
	}
	var rec ProfessionalRecord
	if err := json.Unmarshal(r.Data, &rec); err != nil {
		return nil, fmt.Errorf("decode professional record: %w", err)
	}
	return &rec, nil
}
