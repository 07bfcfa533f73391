package httpclient

import (
	"errors"
	"fmt"
)

// UpstreamError represents a non-2xx response from an upstream service.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}

// AsUpstream unwraps an error chain into an *UpstreamError if one is there.
func AsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
