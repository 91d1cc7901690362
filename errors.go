package attrschema

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeCoercion   ErrorType = "coercion"
	ErrorTypeDefinition ErrorType = "definition"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeStore      ErrorType = "store"
	ErrorTypeInternal   ErrorType = "internal"
)

// Error codes
const (
	ErrCodeValidationFailed      = "VALIDATION_FAILED"
	ErrCodeRequiredFieldMissing  = "REQUIRED_FIELD_MISSING"
	ErrCodeConstraintViolated    = "CONSTRAINT_VIOLATED"
	ErrCodeCoercionFailed        = "COERCION_FAILED"
	ErrCodeInvalidDefinition     = "INVALID_DEFINITION"
	ErrCodeUnknownAttribute      = "UNKNOWN_ATTRIBUTE"
	ErrCodeAttributeSetNotFound  = "ATTRIBUTE_SET_NOT_FOUND"
	ErrCodeAttributeSetInvalid   = "ATTRIBUTE_SET_INVALID"
	ErrCodeStoreUnavailable      = "STORE_UNAVAILABLE"
	ErrCodeStaleSelection        = "STALE_SELECTION"
	ErrCodeNoSelection           = "NO_SELECTION"
	ErrCodeInternalError         = "INTERNAL_ERROR"
	ErrCodeModifierTargetInvalid = "MODIFIER_TARGET_INVALID"
)

// Sentinel errors matched with errors.Is.
var (
	ErrAttributeSetNotFound = errors.New("attribute set not found")
	ErrStaleSelection       = errors.New("attribute set selection changed while fetching")
	ErrNoSelection          = errors.New("no attribute set selected")
	ErrUnknownAttribute     = errors.New("unknown attribute")
)

// AttrError represents errors raised by the schema engine and its collaborators.
type AttrError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *AttrError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *AttrError) Unwrap() error {
	return e.Cause
}

// WithDetails adds details to an AttrError
func (e *AttrError) WithDetails(details map[string]any) *AttrError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail adds a single detail to an AttrError
func (e *AttrError) WithDetail(key string, value any) *AttrError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to an AttrError
func (e *AttrError) WithCause(cause error) *AttrError {
	e.Cause = cause
	return e
}

// WithField adds field context to an AttrError
func (e *AttrError) WithField(field string) *AttrError {
	e.Field = field
	return e
}

// UserMessage returns the message meant for display next to the field.
func (e *AttrError) UserMessage() string {
	return e.Message
}

// NewAttrError creates a new AttrError
func NewAttrError(errorType ErrorType, code, message string) *AttrError {
	return &AttrError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
}

// NewCoercionError reports a raw value that cannot be converted to the
// attribute's canonical representation.
func NewCoercionError(field, message string, cause error) *AttrError {
	return &AttrError{
		Type:    ErrorTypeCoercion,
		Code:    ErrCodeCoercionFailed,
		Message: message,
		Field:   field,
		Cause:   cause,
		Details: make(map[string]any),
	}
}

// NewConstraintError reports a coerced value that breaks a declared rule.
func NewConstraintError(field, message string) *AttrError {
	return &AttrError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeConstraintViolated,
		Message: message,
		Field:   field,
		Details: make(map[string]any),
	}
}

// NewRequiredError reports a required attribute without a value.
func NewRequiredError(field, message string) *AttrError {
	return &AttrError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeRequiredFieldMissing,
		Message: message,
		Field:   field,
		Details: make(map[string]any),
	}
}

// NewDefinitionError reports malformed attribute metadata.
func NewDefinitionError(field, message string) *AttrError {
	return &AttrError{
		Type:    ErrorTypeDefinition,
		Code:    ErrCodeInvalidDefinition,
		Message: message,
		Field:   field,
		Details: make(map[string]any),
	}
}

// NewUnknownAttributeError reports a code that is not part of the compiled schema.
func NewUnknownAttributeError(code string) *AttrError {
	return &AttrError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeUnknownAttribute,
		Message: "attribute is not part of the attribute set",
		Field:   code,
		Cause:   ErrUnknownAttribute,
		Details: make(map[string]any),
	}
}

// NewRecordValidationError wraps the per-field failures of a record.
func NewRecordValidationError(fieldErrors FieldErrors) *AttrError {
	return &AttrError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeValidationFailed,
		Message: fmt.Sprintf("%d attribute(s) failed validation", len(fieldErrors)),
		Details: map[string]any{
			"fields": fieldErrors.Map(),
		},
	}
}

// NewAttributeSetNotFoundError creates an attribute set not found error
func NewAttributeSetNotFoundError(id int64) *AttrError {
	return &AttrError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeAttributeSetNotFound,
		Message: fmt.Sprintf("attribute set %d not found", id),
		Cause:   ErrAttributeSetNotFound,
		Details: map[string]any{
			"attribute_set_id": id,
		},
	}
}

// NewAttributeSetInvalidError reports a stored attribute set that cannot be decoded.
func NewAttributeSetInvalidError(id int64, cause error) *AttrError {
	return &AttrError{
		Type:    ErrorTypeStore,
		Code:    ErrCodeAttributeSetInvalid,
		Message: fmt.Sprintf("attribute set %d is malformed", id),
		Cause:   cause,
		Details: map[string]any{
			"attribute_set_id": id,
		},
	}
}

// NewStoreError creates an attribute set store error
func NewStoreError(message string, cause error) *AttrError {
	return &AttrError{
		Type:    ErrorTypeStore,
		Code:    ErrCodeStoreUnavailable,
		Message: message,
		Cause:   cause,
		Details: make(map[string]any),
	}
}

// NewStaleSelectionError reports a fetch whose selection was superseded.
func NewStaleSelectionError(requested, current int64) *AttrError {
	return &AttrError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeStaleSelection,
		Message: fmt.Sprintf("attribute set %d is no longer selected", requested),
		Cause:   ErrStaleSelection,
		Details: map[string]any{
			"requested": requested,
			"current":   current,
		},
	}
}

// NewModifierTargetError reports an invalid attribute/value pair on a price modifier.
func NewModifierTargetError(field, message string) *AttrError {
	return &AttrError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeModifierTargetInvalid,
		Message: message,
		Field:   field,
		Details: make(map[string]any),
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *AttrError {
	return &AttrError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternalError,
		Message: message,
		Cause:   cause,
		Details: make(map[string]any),
	}
}

// IsNotFound reports whether err means a missing attribute set.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAttributeSetNotFound)
}

// FieldMessage extracts the user-facing message from a field-level error.
func FieldMessage(err error) string {
	if err == nil {
		return ""
	}
	var attrErr *AttrError
	if errors.As(err, &attrErr) {
		return attrErr.Message
	}
	return err.Error()
}
