// Package errs defines the closed set of typed, recoverable errors that travel
// across the bridge.
//
// Every failure an executor is allowed to report belongs to one Category. The
// category's wire name goes into the "instance" field of an error envelope, and the
// client maps it back through Lookup:
//
//	server: *Error{CategoryCrypto, "X", "Y"}
//	  → {"error":{"instance":"CryptoError","code":"X","message":"Y"}}
//	client: Lookup("CryptoError") → CategoryCrypto → *Error{CategoryCrypto, "X", "Y"}
//
// Errors outside this set are infrastructure faults and never become envelopes.
package errs

import "errors"

// Category is one member of the closed error set. Its value is the wire name.
type Category string

const (
	CategoryFetch      Category = "FetchError"
	CategoryCrypto     Category = "CryptoError"
	CategoryRuntime    Category = "RuntimeError"
	CategoryValidation Category = "ValidationError"
)

// Codes used by the bridge itself. Executors may send any other code string.
const (
	CodeFetchFailed        = "FetchFailed"     // transport failure before a response arrived
	CodeInvalidResponse    = "InvalidResponse" // non-200 status or undecodable envelope
	CodeNotFound           = "NotFound"
	CodeGeneric            = "Generic"
	CodeInvalidSignature   = "InvalidSignature"
	CodeRateLimited        = "RateLimited"
	CodeUnsupportedRequest = "UnsupportedRequest"
)

// Fixed validation messages returned by the server gate.
const (
	MsgInvalidPayload = "Payload is invalid or method unsupported"
	MsgInvalidBody    = "Body is invalid"
)

// Error is a typed bridge error.
//
// Message is for humans; branch on Category and Code.
type Error struct {
	Category Category
	Code     string
	Message  string
	Cause    error // local only, never sent over the wire
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return string(e.Category) + " [" + e.Code + "]: " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Name returns the wire name of the error's category.
func (e *Error) Name() string {
	return string(e.Category)
}

// New builds a typed error.
func New(category Category, code, message string) *Error {
	return &Error{Category: category, Code: code, Message: message}
}

// Wrap builds a typed error that keeps cause for local inspection.
func Wrap(category Category, code, message string, cause error) *Error {
	return &Error{Category: category, Code: code, Message: message, Cause: cause}
}

// Fetch, Crypto, Runtime and Validation are shorthands for New.
func Fetch(code, message string) *Error      { return New(CategoryFetch, code, message) }
func Crypto(code, message string) *Error     { return New(CategoryCrypto, code, message) }
func Runtime(code, message string) *Error    { return New(CategoryRuntime, code, message) }
func Validation(code, message string) *Error { return New(CategoryValidation, code, message) }

// Lookup maps a wire instance name to its category. The Session-prefixed names
// are accepted as aliases so older servers stay readable.
func Lookup(instance string) (Category, bool) {
	switch instance {
	case "FetchError", "SessionFetchError":
		return CategoryFetch, true
	case "CryptoError", "SessionCryptoError":
		return CategoryCrypto, true
	case "RuntimeError", "SessionRuntimeError":
		return CategoryRuntime, true
	case "ValidationError", "SessionValidationError":
		return CategoryValidation, true
	}
	return "", false
}

// As extracts the typed error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if !errors.As(err, &e) || e == nil {
		return nil, false
	}
	return e, true
}

// IsCategory reports whether err is (or wraps) a typed error of the given category.
func IsCategory(err error, category Category) bool {
	e, ok := As(err)
	return ok && e.Category == category
}

// HasCode reports whether err is (or wraps) a typed error with the given category and code.
func HasCode(err error, category Category, code string) bool {
	e, ok := As(err)
	return ok && e.Category == category && e.Code == code
}
