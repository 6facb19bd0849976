package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "regverify/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into a JSON error envelope. Internal
// errors omit the description so infrastructure detail never leaks to callers;
// the handler is expected to have logged it already.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	description := ""

	var de *dErrors.Error
	if errors.As(err, &de) {
		code = de.Code
		if code != dErrors.CodeInternal {
			description = de.Description
		}
	}

	body := map[string]string{"error": string(code)}
	if description != "" {
		body["error_description"] = description
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
