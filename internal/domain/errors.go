package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies gateway errors. The HTTP layer maps kinds to status
// codes; everything else works with the kind, never the code.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindAuth
	KindUnresolvedAgent
	KindRateLimit
	KindProvider
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindUnresolvedAgent:
		return "unresolved-agent"
	case KindRateLimit:
		return "rate-limit"
	case KindProvider:
		return "provider"
	case KindNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// Error is a classified gateway error. Message is the canonical first line
// of the response body; Detail lines carry diagnostic context below it.
type Error struct {
	Kind    ErrorKind
	Message string
	Detail  []string
	Err     error
}

func (e *Error) Error() string {
	if len(e.Detail) == 0 {
		return e.Message
	}
	return e.Message + "\n" + strings.Join(e.Detail, "\n")
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail appends diagnostic lines and returns the error.
func (e *Error) WithDetail(lines ...string) *Error {
	e.Detail = append(e.Detail, lines...)
	return e
}

// Validationf builds a KindValidation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Authf builds a KindAuth error.
func Authf(format string, args ...any) *Error {
	return &Error{Kind: KindAuth, Message: fmt.Sprintf(format, args...)}
}

// Unresolvedf builds a KindUnresolvedAgent error.
func Unresolvedf(format string, args ...any) *Error {
	return &Error{Kind: KindUnresolvedAgent, Message: fmt.Sprintf(format, args...)}
}

// RateLimitedf builds a KindRateLimit error.
func RateLimitedf(format string, args ...any) *Error {
	return &Error{Kind: KindRateLimit, Message: fmt.Sprintf(format, args...)}
}

// Providerf builds a KindProvider error.
func Providerf(format string, args ...any) *Error {
	return &Error{Kind: KindProvider, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a KindNotFound error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the classification of err, unwrapping as needed.
// Unclassified errors report KindUnknown.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsKind reports whether err (or anything it wraps) has the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
