package filez

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by NewClient when a base URL is missing or malformed.
var ErrInvalidConfig = errors.New("filez: invalid client configuration")

// NetworkError reports a request that never produced an HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("filez %s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError reports a response body that was not the JSON the operation expected.
// Status is informational only; operations other than UpdateFileInfos do not check it.
type DecodeError struct {
	Op     string
	Status int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("filez %s: decoding response (status %d): %v", e.Op, e.Status, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// APIError is returned by operations that check the response status.
type APIError struct {
	Op         string
	Status     int
	StatusText string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("error %s: %s", e.Message, e.StatusText)
}
