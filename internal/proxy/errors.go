package proxy

import "fmt"

// TransportError indicates the upstream could not be reached at all (500).
// Upstream responses with error statuses are relayed, never wrapped in this.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrInvalidBody indicates the caller's body could not be re-serialized as JSON (400)
type ErrInvalidBody struct {
	Err error
}

func (e ErrInvalidBody) Error() string {
	return fmt.Sprintf("invalid JSON body: %v", e.Err)
}

func (e ErrInvalidBody) Unwrap() error {
	return e.Err
}
