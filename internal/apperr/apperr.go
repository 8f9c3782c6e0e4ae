// Package apperr defines the closed set of error kinds the session and profile
// flow can produce. Adapters for the credential, profile and blob stores convert
// their platform errors into these kinds at the call site, so nothing above the
// adapters ever inspects driver-specific error values.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to pick a user-facing message.
type Kind int

const (
	KindUnknown Kind = iota

	// credential errors: recovered locally, shown next to the form field
	KindEmailInUse
	KindInvalidEmail
	KindWeakPassword
	KindAccountNotFound
	KindWrongPassword

	// identity authenticated but no profile record exists
	KindProfileMissing
	// store or network failure; the user is asked to retry
	KindStoreUnavailable
	// avatar upload failed; nothing was written
	KindAvatarUpload
	// avatar committed but profile merge failed
	KindPartialSave
	// draft or form failed validation
	KindValidation
	// missing or invalid credentials on a protected call
	KindUnauthenticated
	// authenticated but not allowed
	KindForbidden
	KindNotFound
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown",
	KindEmailInUse:       "email_in_use",
	KindInvalidEmail:     "invalid_email",
	KindWeakPassword:     "weak_password",
	KindAccountNotFound:  "account_not_found",
	KindWrongPassword:    "wrong_password",
	KindProfileMissing:   "profile_missing",
	KindStoreUnavailable: "store_unavailable",
	KindAvatarUpload:     "avatar_upload_failed",
	KindPartialSave:      "partial_save",
	KindValidation:       "validation_failed",
	KindUnauthenticated:  "unauthenticated",
	KindForbidden:        "forbidden",
	KindNotFound:         "not_found",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsCredential reports whether k belongs to the credential family.
func (k Kind) IsCredential() bool {
	return k >= KindEmailInUse && k <= KindWrongPassword
}

// FieldError is a validation failure on a single named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the concrete error type returned across package boundaries.
type Error struct {
	Kind    Kind
	Op      string
	Field   string
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, apperr.E(apperr.KindProfileMissing)) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// E builds a bare error of the given kind, mostly for errors.Is comparisons.
func E(kind Kind) *Error { return &Error{Kind: kind} }

// New builds an error with a user-facing message.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap attaches a kind and message to a cause. A nil cause returns nil.
func Wrap(err error, kind Kind, op, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// FieldErr builds a credential or validation error bound to one form field.
func FieldErr(kind Kind, op, field, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Field:   field,
		Message: message,
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

// Validation builds a KindValidation error from a list of field errors.
func Validation(op string, fields []FieldError) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: "validation failed", Fields: fields}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the user-facing message of the first *Error in err's chain.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "something went wrong, please try again"
}

// FieldsOf returns the field errors carried by err, if any.
func FieldsOf(err error) []FieldError {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
