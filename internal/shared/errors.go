package shared

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrAuthExpired      = fmt.Errorf("authentication expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")

	// Catalog and pipeline errors
	ErrSourceUnavailable     = fmt.Errorf("source unavailable")
	ErrQueryFailed           = fmt.Errorf("query failed")
	ErrAllSourcesUnavailable = fmt.Errorf("all sources unavailable")

	// Persistence errors
	ErrRunNotFound = fmt.Errorf("fetch run not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// AuthError reports a single query whose request was rejected with 401 and whose
// one refresh-and-retry also failed. Only that query is abandoned.
type AuthError struct {
	Source string
	Query  string
	Status int
	Cause  error
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: query %q: authentication expired after retry (status %d)", e.Source, e.Query, e.Status)
	}
	return fmt.Sprintf("%s: query %q: authentication expired after retry: %v", e.Source, e.Query, e.Cause)
}

func (e *AuthError) Unwrap() error { return e.Cause }

func (e *AuthError) Is(target error) bool { return target == ErrAuthExpired }

// SourceError reports that a whole catalog cannot be used, e.g. its token provider
// cannot issue any token or every query failed.
type SourceError struct {
	Source string
	Cause  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Cause)
}

func (e *SourceError) Unwrap() error { return e.Cause }

func (e *SourceError) Is(target error) bool { return target == ErrSourceUnavailable }

// QueryError reports a non-auth failure of one query phrase: transport error,
// non-2xx status or malformed body.
type QueryError struct {
	Source string
	Query  string
	Status int
	Cause  error
}

func (e *QueryError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: query %q failed with status %d", e.Source, e.Query, e.Status)
	}
	return fmt.Sprintf("%s: query %q failed: %v", e.Source, e.Query, e.Cause)
}

func (e *QueryError) Unwrap() error { return e.Cause }

func (e *QueryError) Is(target error) bool { return target == ErrQueryFailed }

// IsCanceled reports whether err stems from context cancellation or deadline expiry.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
