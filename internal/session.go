package internal

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lychee-technology/attrschema"
)

// SessionMode selects how a session treats existing values on selection.
type SessionMode int

const (
	// SessionModeCreate backfills declared defaults when a set is selected.
	SessionModeCreate SessionMode = iota
	// SessionModeEdit carries existing values over and never applies defaults.
	SessionModeEdit
)

func (m SessionMode) String() string {
	if m == SessionModeEdit {
		return "edit"
	}
	return "create"
}

// Session is one record-editing session. It owns the compiled schema of the
// selected attribute set and the working record, and guards both against
// fetches that complete after the selection moved on.
type Session struct {
	id    uuid.UUID
	store attrschema.AttributeSetStore
	mode  SessionMode

	mu         sync.Mutex
	generation uint64
	pendingID  int64
	set        *attrschema.AttributeSet
	schema     *Schema
	record     attrschema.AttributesData
	errors     attrschema.FieldErrors
}

// NewSession starts a session over record, which is copied.
func NewSession(store attrschema.AttributeSetStore, mode SessionMode, record attrschema.AttributesData) *Session {
	return &Session{
		id:     uuid.New(),
		store:  store,
		mode:   mode,
		record: record.Clone(),
	}
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID { return s.id }

// Mode returns the session mode.
func (s *Session) Mode() SessionMode { return s.mode }

// Select fetches the attribute set and compiles a fresh schema for it. When
// another Select or Clear happens while the fetch is in flight, the fetched
// set is discarded and an error matching ErrStaleSelection is returned.
// Fetch errors are returned as the store reported them.
func (s *Session) Select(ctx context.Context, setID int64) (*Schema, error) {
	s.mu.Lock()
	s.generation++
	generation := s.generation
	s.pendingID = setID
	s.mu.Unlock()

	set, err := s.store.GetAttributeSet(ctx, setID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		zap.S().Debugw("discarding stale attribute set fetch",
			"session_id", s.id, "attribute_set_id", setID, "current_id", s.pendingID)
		return nil, attrschema.NewStaleSelectionError(setID, s.pendingID)
	}
	if err != nil {
		return nil, err
	}

	schema, err := Compile(set)
	if err != nil {
		return nil, err
	}
	EmitCompileDiagnostics(ctx, set.ID, len(schema.diagnostics))

	s.set = set
	s.schema = schema
	s.errors = nil

	switch s.mode {
	case SessionModeEdit:
		s.record = rekeyByName(set, s.record)
	default:
		s.record = schema.ApplyDefaults(s.record)
	}

	zap.S().Infow("attribute set selected",
		"session_id", s.id,
		"attribute_set_id", set.ID,
		"mode", s.mode.String(),
		"fields", len(schema.fields))
	return schema, nil
}

// Clear drops the selection, its schema and any fetch in flight.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.pendingID = 0
	s.set = nil
	s.schema = nil
	s.errors = nil
}

// AttributeSet returns the selected set, or nil.
func (s *Session) AttributeSet() *attrschema.AttributeSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Schema returns the compiled schema of the selected set, or nil.
func (s *Session) Schema() attrschema.CompiledSchema {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schema == nil {
		return nil
	}
	return s.schema
}

// Record returns a copy of the working record.
func (s *Session) Record() attrschema.AttributesData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

// Errors returns the field errors of the last validation.
func (s *Session) Errors() attrschema.FieldErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(attrschema.FieldErrors, len(s.errors))
	copy(out, s.errors)
	return out
}

// SetField stores a raw value and returns that field's error, if any.
func (s *Session) SetField(code string, raw any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schema == nil {
		return noSelectionError()
	}
	field, ok := s.schema.Field(code)
	if !ok {
		return attrschema.NewUnknownAttributeError(code)
	}

	s.record[code] = attrschema.CloneValue(raw)
	_, err := field.Validate(raw)
	s.errors = s.replaceFieldError(code, err)
	return err
}

// Validate validates the whole working record.
func (s *Session) Validate() (attrschema.ValidationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schema == nil {
		return attrschema.ValidationResult{}, noSelectionError()
	}
	result := s.schema.Validate(s.record)
	s.errors = result.Errors
	return result, nil
}

// replaceFieldError swaps the entry for code, keeping declared order.
func (s *Session) replaceFieldError(code string, err error) attrschema.FieldErrors {
	current := make(map[string]string, len(s.errors)+1)
	for _, fe := range s.errors {
		current[fe.Code] = fe.Message
	}
	delete(current, code)
	if err != nil {
		current[code] = attrschema.FieldMessage(err)
	}

	var out attrschema.FieldErrors
	for _, c := range s.schema.Codes() {
		if msg, ok := current[c]; ok {
			out = append(out, attrschema.FieldError{Code: c, Message: msg})
		}
	}
	return out
}

// rekeyByName moves values stored under an attribute's name to its code.
// Products saved by older clients keyed attributes_data by name and stored
// select values JSON-encoded.
func rekeyByName(set *attrschema.AttributeSet, record attrschema.AttributesData) attrschema.AttributesData {
	out := record.Clone()
	for _, def := range set.Attributes {
		if def.Name == "" || def.Name == def.Code {
			continue
		}
		if _, hasCode := out[def.Code]; hasCode {
			continue
		}
		if v, hasName := out[def.Name]; hasName {
			if def.Type.UsesOptions() {
				v = decodeLegacyOptionValue(v)
			}
			out[def.Code] = v
			delete(out, def.Name)
		}
	}
	return out
}

// decodeLegacyOptionValue unwraps a JSON-encoded string such as "\"red\"".
// Anything that does not decode is returned unchanged.
func decodeLegacyOptionValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return v
	}
	return decoded
}

func noSelectionError() error {
	return attrschema.NewAttrError(attrschema.ErrorTypeValidation, attrschema.ErrCodeNoSelection, "no attribute set selected").
		WithCause(attrschema.ErrNoSelection)
}
