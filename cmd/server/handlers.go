package main

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/lychee-technology/attrschema"
	"github.com/lychee-technology/attrschema/internal"
)

// validateRequest is the body of POST .../validate.
type validateRequest struct {
	Attributes attrschema.AttributesData `json:"attributes" validate:"required"`
	Mode       string                    `json:"mode" validate:"omitempty,oneof=create edit"`
}

// validateResponse reports the outcome of a record validation.
type validateResponse struct {
	Valid       bool                      `json:"valid"`
	Data        attrschema.AttributesData `json:"data,omitempty"`
	Errors      attrschema.FieldErrors    `json:"errors"`
	Diagnostics []attrschema.Diagnostic   `json:"diagnostics,omitempty"`
}

// defaultsRequest is the body of POST .../defaults.
type defaultsRequest struct {
	Attributes attrschema.AttributesData `json:"attributes"`
}

// modifierTargetRequest is the body of POST .../modifier-target.
type modifierTargetRequest struct {
	AttributeID int64 `json:"attribute_id" validate:"gt=0"`
	Value       any   `json:"value"`
}

// attributeSetResponse is returned by GET .../{setID}.
type attributeSetResponse struct {
	AttributeSet *attrschema.AttributeSet `json:"attribute_set"`
	Diagnostics  []attrschema.Diagnostic  `json:"diagnostics"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if checker, ok := s.store.(attrschema.HealthChecker); ok {
		if err := checker.CheckHealth(r.Context()); err != nil {
			zap.S().Warnw("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loadSet fetches the set named by the setID URL parameter, writing the
// error response itself when that fails.
func (s *Server) loadSet(w http.ResponseWriter, r *http.Request) (*attrschema.AttributeSet, bool) {
	setID, err := pathID(r, "setID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	set, err := s.store.GetAttributeSet(r.Context(), setID)
	if err != nil {
		writeAttrError(w, err)
		return nil, false
	}
	return set, true
}

// compileSet loads and compiles the set named by the URL.
func (s *Server) compileSet(w http.ResponseWriter, r *http.Request) (*internal.Schema, bool) {
	set, ok := s.loadSet(w, r)
	if !ok {
		return nil, false
	}
	schema, err := internal.Compile(set)
	if err != nil {
		writeAttrError(w, err)
		return nil, false
	}
	return schema, true
}

// handleGetAttributeSet handles GET /api/v1/attribute-sets/{setID}
func (s *Server) handleGetAttributeSet(w http.ResponseWriter, r *http.Request) {
	set, ok := s.loadSet(w, r)
	if !ok {
		return
	}
	schema, err := internal.Compile(set)
	if err != nil {
		writeAttrError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, attributeSetResponse{
		AttributeSet: set,
		Diagnostics:  schema.Diagnostics(),
	})
}

// handleValidate handles POST /api/v1/attribute-sets/{setID}/validate
//
// The record is validated the way an editing session would: create mode
// fills declared defaults first, edit mode accepts values keyed by
// attribute name.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	setID, err := pathID(r, "setID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req validateRequest
	if err := decodeAndValidate(w, r, s.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	mode := internal.SessionModeCreate
	if req.Mode == internal.SessionModeEdit.String() {
		mode = internal.SessionModeEdit
	}

	session := internal.NewSession(s.store, mode, req.Attributes)
	schema, err := session.Select(r.Context(), setID)
	if err != nil {
		writeAttrError(w, err)
		return
	}

	result, err := session.Validate()
	if err != nil {
		writeAttrError(w, err)
		return
	}
	internal.EmitValidationFailures(r.Context(), setID, len(result.Errors))

	errs := result.Errors
	if errs == nil {
		errs = attrschema.FieldErrors{}
	}
	writeSuccess(w, http.StatusOK, validateResponse{
		Valid:       result.Valid(),
		Data:        result.Data,
		Errors:      errs,
		Diagnostics: schema.Diagnostics(),
	})
}

// handleDefaults handles POST /api/v1/attribute-sets/{setID}/defaults
func (s *Server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	var req defaultsRequest
	if err := decodeAndValidate(w, r, s.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	schema, ok := s.compileSet(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"attributes": schema.ApplyDefaults(req.Attributes),
	})
}

// handleJSONSchema handles GET /api/v1/attribute-sets/{setID}/json-schema
func (s *Server) handleJSONSchema(w http.ResponseWriter, r *http.Request) {
	schema, ok := s.compileSet(w, r)
	if !ok {
		return
	}
	if err := writeSuccess(w, http.StatusOK, schema.JSONSchema()); err != nil {
		zap.S().Errorw("failed to encode json schema", "attribute_set_id", schema.SetID(), "error", err)
	}
}

// handleModifierAttributes handles GET .../modifier-attributes
func (s *Server) handleModifierAttributes(w http.ResponseWriter, r *http.Request) {
	set, ok := s.loadSet(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, internal.ModifierAttributeChoices(set))
}

// handleModifierValues handles GET .../modifier-attributes/{attrID}/values
func (s *Server) handleModifierValues(w http.ResponseWriter, r *http.Request) {
	attrID, err := pathID(r, "attrID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	set, ok := s.loadSet(w, r)
	if !ok {
		return
	}
	choices, err := internal.ModifierValueChoices(set, attrID)
	if err != nil {
		writeAttrError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, choices)
}

// handleModifierTarget handles POST .../modifier-target
func (s *Server) handleModifierTarget(w http.ResponseWriter, r *http.Request) {
	var req modifierTargetRequest
	if err := decodeAndValidate(w, r, s.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	set, ok := s.loadSet(w, r)
	if !ok {
		return
	}
	if err := internal.ValidateModifierTarget(set, req.AttributeID, req.Value); err != nil {
		writeAttrError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]bool{"valid": true})
}
