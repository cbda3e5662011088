package webclient

import "fmt"

// FetchError represents an outbound request that failed after the retry
// budget was spent: timeouts, connection errors and non-2xx responses.
type FetchError struct {
	URL        string // request URL
	StatusCode int    // HTTP status code, 0 for non-HTTP failures
	Err        error  // underlying error, if any
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch failed (HTTP %d): %s", e.StatusCode, e.URL)
	}

	return fmt.Sprintf("fetch failed for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError represents a response body whose shape was not the one the
// caller expected.
type ParseError struct {
	URL    string // request URL the body came from
	Reason string // human-readable explanation of what was malformed
	Err    error  // underlying error, if any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable response from %s: %s", e.URL, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
