package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// storableStatus lists the status codes that are cacheable by default
// (RFC 9110 §15.1). 206 is left out: partial content is never combined
// (RFC 9111 §3.3, §3.4).
var storableStatus = map[int]bool{
	http.StatusOK:                   true,
	http.StatusNonAuthoritativeInfo: true,
	http.StatusNoContent:            true,
	http.StatusMultipleChoices:      true,
	http.StatusMovedPermanently:     true,
	http.StatusPermanentRedirect:    true,
	http.StatusNotFound:             true,
	http.StatusMethodNotAllowed:     true,
	http.StatusGone:                 true,
	http.StatusRequestURITooLong:    true,
	http.StatusNotImplemented:       true,
}

// FromHTTPResponse captures a live response for caching.
// The response body is read and restored for the caller.
func FromHTTPResponse(resp *http.Response, clock Clock) (*CachedResponse, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	var body []byte
	if resp.Body != nil {
		var err error
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		resp.Body.Close()
	}

	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return NewCachedResponse(ResponseConfig{
		Status:          resp.StatusCode,
		ResponseHeaders: resp.Header.Clone(),
		Body:            body,
		Clock:           clock,
	}), nil
}

// IsStorable reports whether a response to req may be written to a
// private client cache at all. Freshness is checked separately.
func IsStorable(req *http.Request, resp *http.Response) bool {
	if req == nil || resp == nil {
		return false
	}
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return false
	}
	if !storableStatus[resp.StatusCode] {
		return false
	}
	// the key does not cover Range, so only complete representations are kept
	if req.Header.Get("Range") != "" {
		return false
	}

	reqCC := ParseCacheControl(req.Header.Values("Cache-Control"))
	respCC := ParseCacheControl(resp.Header.Values("Cache-Control"))
	if reqCC.Has(DirectiveNoStore) || respCC.Has(DirectiveNoStore) {
		return false
	}

	// no-cache demands revalidation, which this cache does not do
	if respCC.Has(DirectiveNoCache) {
		return false
	}

	// RFC 9111 §3.5
	if req.Header.Get("Authorization") != "" {
		return respCC.Has(DirectivePublic) || respCC.Has(DirectiveSMaxAge)
	}
	return true
}
