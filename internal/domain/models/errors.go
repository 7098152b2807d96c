package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies acquisition failures.
type ErrorKind string

const (
	KindProviderUnavailable ErrorKind = "provider_unavailable"
	KindEmptyResult         ErrorKind = "empty_result"
	KindNotApplicable       ErrorKind = "not_applicable"
	KindCacheCorrupt        ErrorKind = "cache_corrupt"
	KindAlignmentMismatch   ErrorKind = "alignment_mismatch"
	KindUnitMismatch        ErrorKind = "unit_mismatch"
)

var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrEmptyResult         = errors.New("empty result")
	ErrNotApplicable       = errors.New("not applicable")
	ErrCacheCorrupt        = errors.New("cache corrupt")
	ErrAlignmentMismatch   = errors.New("alignment mismatch")
	ErrUnitMismatch        = errors.New("unit mismatch")
)

// FetchError carries the failing provider and operation alongside the cause.
type FetchError struct {
	Kind     ErrorKind
	Provider string
	Op       string
	Err      error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Provider, e.Op, e.Kind)
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *FetchError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindProviderUnavailable:
		return ErrProviderUnavailable
	case KindEmptyResult:
		return ErrEmptyResult
	case KindNotApplicable:
		return ErrNotApplicable
	case KindCacheCorrupt:
		return ErrCacheCorrupt
	case KindAlignmentMismatch:
		return ErrAlignmentMismatch
	case KindUnitMismatch:
		return ErrUnitMismatch
	default:
		return nil
	}
}

// NewFetchError creates a classified error.
func NewFetchError(kind ErrorKind, provider, op string, err error) *FetchError {
	return &FetchError{Kind: kind, Provider: provider, Op: op, Err: err}
}

// Unavailable wraps err as a provider failure.
func Unavailable(provider, op string, err error) *FetchError {
	return NewFetchError(KindProviderUnavailable, provider, op, err)
}

// Empty reports a provider that answered with no rows.
func Empty(provider, op string) *FetchError {
	return NewFetchError(KindEmptyResult, provider, op, nil)
}

// NotApplicable reports a request the provider does not serve, such as an
// unknown symbol or an unsupported timeframe.
func NotApplicable(provider, op string, err error) *FetchError {
	return NewFetchError(KindNotApplicable, provider, op, err)
}
