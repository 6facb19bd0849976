package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regverify/internal/storage"
	"regverify/pkg/platform/sentinel"
)

func TestAppend(t *testing.T) {
	var gotAuth string
	var gotBody auditPayload
	seen := map[string]bool{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/internal/verification-audit", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		if seen[gotBody.CorrelationID] {
			w.WriteHeader(http.StatusConflict)
			return
		}
		seen[gotBody.CorrelationID] = true
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := New(srv.URL, "svc-token")
	rec := &storage.AuditRecord{
		CorrelationID:  "corr-1",
		Registry:       storage.RegistryProfessional,
		RegistryNumber: "12345678",
		DocumentType:   "V",
		Result:         json.RawMessage(`{"verified":true}`),
	}

	inserted, err := client.Append(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "Bearer svc-token", gotAuth)
	assert.Equal(t, "corr-1", gotBody.CorrelationID)
	assert.False(t, gotBody.CreatedAt.IsZero())

	inserted, err = client.Append(context.Background(), rec)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestFindByCorrelationID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/internal/verification-audit/corr-1":
			json.NewEncoder(w).Encode(auditPayload{
				CorrelationID: "corr-1",
				Registry:      "professional",
				Result:        json.RawMessage(`{"verified":true}`),
				CreatedAt:     time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, "svc-token")

	rec, err := client.FindByCorrelationID(context.Background(), "corr-1")
	require.NoError(t, err)
	assert.Equal(t, storage.RegistryProfessional, rec.Registry)

	_, err = client.FindByCorrelationID(context.Background(), "corr-2")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestSetVerified(t *testing.T) {
	var gotPath string
	var gotFlag storage.ProfileFlag

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotFlag))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := New(srv.URL, "svc-token")
	err := client.SetVerified(context.Background(), "ident-1", storage.ProfileFlag{
		Verified:         true,
		SpecialtyDisplay: "CARDIOLOGÍA",
	})
	require.NoError(t, err)
	assert.Equal(t, "/internal/profiles/ident-1/verification", gotPath)
	assert.True(t, gotFlag.Verified)
	assert.Equal(t, "CARDIOLOGÍA", gotFlag.SpecialtyDisplay)
}

func TestBackendErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(srv.URL, "svc-token")
	err := client.SetVerified(context.Background(), "ident-1", storage.ProfileFlag{})
	assert.Error(t, err)
}
