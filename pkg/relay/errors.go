package relay

import (
	stderrors "errors"
	"net/http"
)

// Kind classifies why a request did not produce a backend response.
type Kind int

const (
	KindNone Kind = iota
	KindMethodNotAllowed
	KindMalformedInput
	KindMissingFields
	KindUnauthorized
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindMalformedInput:
		return "malformed_input"
	case KindMissingFields:
		return "missing_fields"
	case KindUnauthorized:
		return "unauthorized"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

const (
	msgMethodNotAllowed = "Only POST requests allowed"
	msgMalformedInput   = "Invalid JSON input"
	msgMissingFields    = "Missing required fields"
	msgUnauthorized     = "Invalid business ID"
	msgInternal         = "Internal Server Error"
)

// Error is a typed relay failure. Status and ClientMsg are what the caller sees;
// Err is the underlying cause, surfaced as "details" only for KindUpstream.
type Error struct {
	Kind      Kind
	Status    int
	ClientMsg string
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.ClientMsg + ": " + e.Err.Error()
	}
	return e.ClientMsg
}

func (e *Error) Unwrap() error { return e.Err }

func errMethodNotAllowed() *Error {
	return &Error{Kind: KindMethodNotAllowed, Status: http.StatusMethodNotAllowed, ClientMsg: msgMethodNotAllowed}
}

func errMalformedInput(err error) *Error {
	return &Error{Kind: KindMalformedInput, Status: http.StatusBadRequest, ClientMsg: msgMalformedInput, Err: err}
}

func errMissingFields() *Error {
	return &Error{Kind: KindMissingFields, Status: http.StatusBadRequest, ClientMsg: msgMissingFields}
}

func errUnauthorized() *Error {
	return &Error{Kind: KindUnauthorized, Status: http.StatusForbidden, ClientMsg: msgUnauthorized}
}

func errUpstream(err error) *Error {
	return &Error{Kind: KindUpstream, Status: http.StatusInternalServerError, ClientMsg: msgInternal, Err: err}
}

// AsError converts any error into a *Error. Unclassified errors become KindUpstream.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var re *Error
	if stderrors.As(err, &re) && re != nil {
		return re
	}
	return errUpstream(err)
}
