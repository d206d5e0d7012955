package record

import (
	"errors"
	"fmt"
)

// CodecErrorCode categorizes codec failures.
type CodecErrorCode string

const (
	// ErrCodeUnsupportedFieldKind: a descriptor declares a kind outside the
	// text/timestamp whitelist. This is a type design error.
	ErrCodeUnsupportedFieldKind CodecErrorCode = "UNSUPPORTED_FIELD_KIND"

	// ErrCodeMissingField: a stored document lacks a field the descriptor needs.
	ErrCodeMissingField CodecErrorCode = "MISSING_FIELD"

	// ErrCodeTypeMismatch: a value cannot be coerced to the declared kind.
	ErrCodeTypeMismatch CodecErrorCode = "TYPE_MISMATCH"

	// ErrCodeMissingID: a record reported an empty identifier.
	ErrCodeMissingID CodecErrorCode = "MISSING_ID"
)

// CodecError is returned by Encode, Decode and ID.
type CodecError struct {
	Code CodecErrorCode

	// Type is the descriptor name.
	Type string

	// Field is the offending field, empty for record-level errors.
	Field string

	// Kind is the declared kind of Field.
	Kind Kind

	Message string
}

func (e *CodecError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s.%s (%s): %s", e.Code, e.Type, e.Field, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Type, e.Message)
}

func hasCode(err error, code CodecErrorCode) bool {
	var ce *CodecError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsUnsupportedFieldKind reports whether err is an UNSUPPORTED_FIELD_KIND error.
func IsUnsupportedFieldKind(err error) bool { return hasCode(err, ErrCodeUnsupportedFieldKind) }

// IsMissingField reports whether err is a MISSING_FIELD error.
func IsMissingField(err error) bool { return hasCode(err, ErrCodeMissingField) }

// IsTypeMismatch reports whether err is a TYPE_MISMATCH error.
func IsTypeMismatch(err error) bool { return hasCode(err, ErrCodeTypeMismatch) }

func unsupportedKind(typeName, field string, kind Kind) *CodecError {
	return &CodecError{
		Code:    ErrCodeUnsupportedFieldKind,
		Type:    typeName,
		Field:   field,
		Kind:    kind,
		Message: "only text and timestamp fields can be mapped",
	}
}

func missingField(typeName, field string, kind Kind) *CodecError {
	return &CodecError{
		Code:    ErrCodeMissingField,
		Type:    typeName,
		Field:   field,
		Kind:    kind,
		Message: "field absent from document",
	}
}

func typeMismatch(typeName, field string, kind Kind, got any) *CodecError {
	return &CodecError{
		Code:    ErrCodeTypeMismatch,
		Type:    typeName,
		Field:   field,
		Kind:    kind,
		Message: fmt.Sprintf("cannot use %T as %s", got, kind),
	}
}
