package cache

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Entry is the stored form of a cached response.
type Entry struct {
	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// Headers are the response headers, including a resolved Date
	Headers http.Header `json:"headers"`

	// Body is the response body
	Body []byte `json:"body"`

	// StoredAt is when the entry was written
	StoredAt time.Time `json:"stored_at"`
}

// NewEntry converts a CachedResponse into its stored form. The Date header
// is always present on the entry so later reads compute the same age.
func NewEntry(resp *CachedResponse) *Entry {
	headers := resp.Headers.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	if headerValue(headers, "Date") == "" {
		headers.Set("Date", resp.Date().Format(http.TimeFormat))
	}

	return &Entry{
		StatusCode: resp.Status,
		Headers:    headers,
		Body:       resp.Body,
		StoredAt:   resp.clock(),
	}
}

// CachedResponse rebuilds the freshness calculator from a stored entry.
func (e *Entry) CachedResponse(clock Clock) *CachedResponse {
	return NewCachedResponse(ResponseConfig{
		Status:          e.StatusCode,
		ResponseHeaders: e.Headers,
		Body:            e.Body,
		Clock:           clock,
	})
}

// Marshal encodes the entry for a Store.
func (e *Entry) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal cache entry: %w", err)
	}
	return data, nil
}

// UnmarshalEntry decodes an entry read from a Store.
func UnmarshalEntry(data []byte) (*Entry, error) {
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &entry, nil
}
