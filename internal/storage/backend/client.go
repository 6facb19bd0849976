// Package backend persists verification outcomes through the caller's
// backend API instead of a local database. Used when the service runs beside
// an application that owns the audit and profile tables.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"regverify/internal/storage"
	"regverify/pkg/platform/sentinel"
)

// Client talks to the owning backend with a service token.
type Client struct {
	baseURL      string
	serviceToken string
	http         *http.Client
}

// New constructs a backend storage client.
func New(baseURL, serviceToken string) *Client {
	return &Client{
		baseURL:      baseURL,
		serviceToken: serviceToken,
		http:         &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.serviceToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call backend: %w", err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

type auditPayload struct {
	CorrelationID  string          `json:"correlationId"`
	IdentityID     string          `json:"identityId,omitempty"`
	Registry       string          `json:"registry"`
	RegistryNumber string          `json:"registryNumber"`
	DocumentType   string          `json:"documentType,omitempty"`
	Result         json.RawMessage `json:"result"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Append posts the audit record. The backend answers 409 when the correlation
// id was already recorded.
func (c *Client) Append(ctx context.Context, rec *storage.AuditRecord) (bool, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	status, err := c.do(ctx, http.MethodPost, "/internal/verification-audit", auditPayload{
		CorrelationID:  rec.CorrelationID,
		IdentityID:     rec.IdentityID,
		Registry:       string(rec.Registry),
		RegistryNumber: rec.RegistryNumber,
		DocumentType:   rec.DocumentType,
		Result:         rec.Result,
		CreatedAt:      createdAt,
	}, nil)
	if err != nil {
		return false, err
	}
	switch {
	case status == http.StatusConflict:
		return false, nil
	case status >= 300:
		return false, fmt.Errorf("append audit record: backend returned %d", status)
	}
	return true, nil
}

func (c *Client) FindByCorrelationID(ctx context.Context, correlationID string) (*storage.AuditRecord, error) {
	var payload auditPayload
	status, err := c.do(ctx, http.MethodGet,
		"/internal/verification-audit/"+url.PathEscape(correlationID), nil, &payload)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, sentinel.ErrNotFound
	case status >= 300:
		return nil, fmt.Errorf("find audit record: backend returned %d", status)
	}
	return &storage.AuditRecord{
		CorrelationID:  payload.CorrelationID,
		IdentityID:     payload.IdentityID,
		Registry:       storage.Registry(payload.Registry),
		RegistryNumber: payload.RegistryNumber,
		DocumentType:   payload.DocumentType,
		Result:         payload.Result,
		CreatedAt:      payload.CreatedAt,
	}, nil
}

// SetVerified puts the profile flag on the identity's profile.
func (c *Client) SetVerified(ctx context.Context, identityID string, flag storage.ProfileFlag) error {
	status, err := c.do(ctx, http.MethodPut,
		"/internal/profiles/"+url.PathEscape(identityID)+"/verification", flag, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("set verified profile: backend returned %d", status)
	}
	return nil
}
