package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lychee-technology/attrschema"
)

var requestValidator = validator.New()

// APIResponse is the standard error response format
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// writeJSON writes JSON response to http.ResponseWriter
func writeJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) error {
	return writeJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

// writeSuccess writes a success response
func writeSuccess(w http.ResponseWriter, statusCode int, data any) error {
	return writeJSON(w, statusCode, data)
}

// writeAttrError maps engine and store errors onto HTTP statuses.
func writeAttrError(w http.ResponseWriter, err error) error {
	status := statusFor(err)
	resp := APIResponse{Success: false, Error: err.Error()}

	var attrErr *attrschema.AttrError
	if errors.As(err, &attrErr) {
		resp.Error = attrErr.Message
		resp.Code = attrErr.Code
		if len(attrErr.Details) > 0 {
			resp.Data = attrErr.Details
		}
	}
	return writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case attrschema.IsNotFound(err), errors.Is(err, attrschema.ErrUnknownAttribute):
		return http.StatusNotFound
	case errors.Is(err, attrschema.ErrStaleSelection):
		return http.StatusConflict
	}

	var attrErr *attrschema.AttrError
	if !errors.As(err, &attrErr) {
		return http.StatusInternalServerError
	}
	switch attrErr.Type {
	case attrschema.ErrorTypeValidation, attrschema.ErrorTypeCoercion:
		return http.StatusUnprocessableEntity
	case attrschema.ErrorTypeDefinition:
		return http.StatusBadRequest
	case attrschema.ErrorTypeStore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return id, nil
}

// decodeAndValidate reads a JSON body of at most maxBytes and runs the
// struct's validate tags.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	if err := requestValidator.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fmt.Errorf("%s failed on the '%s' rule", fieldErrs[0].Field(), fieldErrs[0].Tag())
		}
		return err
	}
	return nil
}
