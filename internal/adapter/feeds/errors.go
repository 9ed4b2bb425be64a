package feeds

import (
	"errors"
	"fmt"
)

// ErrorKind separates upstreams that could not be reached from upstreams that
// answered badly.
type ErrorKind int

const (
	// Unavailable covers dial failures, timeouts and cancelled requests.
	Unavailable ErrorKind = iota + 1
	// Upstream covers non-2xx responses and bodies that fail to decode.
	Upstream
)

func (k ErrorKind) String() string {
	switch k {
	case Unavailable:
		return "unavailable"
	case Upstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// FetchError is returned by every fetcher.
type FetchError struct {
	Source     string
	Kind       ErrorKind
	StatusCode int    // set for non-2xx responses
	Body       string // first 512 bytes of a non-2xx body
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s feed: %s: HTTP %d: %s", e.Source, e.Kind, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s feed: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is a FetchError for an unreachable upstream.
func IsUnavailable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == Unavailable
}

// KindOf returns the ErrorKind carried by err, or 0 when err is not a FetchError.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
