// Package httptransport is the thin HTTP layer over the certification
// service. Handlers decode, delegate, and encode; business rules stay in the
// services.
package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"seacert/internal/lloyds"
	dErrors "seacert/pkg/domain-errors"
)

// statusFor maps the domain error taxonomy onto HTTP statuses.
func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeIllegalTransition, dErrors.CodeDeadlineMissed:
		return http.StatusUnprocessableEntity
	case dErrors.CodeAdapterTimeout, dErrors.CodeAdapterHTTP, dErrors.CodeAdapterMalformed,
		dErrors.CodeAdapterUnauthorized, dErrors.CodeAdapterRateLimited:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// WriteError renders a domain error as the JSON error envelope.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	message := "internal server error"
	field := ""

	var (
		ae *lloyds.AdapterError
		de *dErrors.Error
	)
	switch {
	case errors.As(err, &ae):
		code = ae.Code()
		message = ae.Message
	case errors.As(err, &de):
		code = de.Code
		message = err.Error()
		field = dErrors.FieldOf(err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(code))
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:   string(code),
		Message: message,
		Field:   field,
	})
}

// WriteJSON renders a success payload.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// decodeJSON reads a request body with unknown fields rejected.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
