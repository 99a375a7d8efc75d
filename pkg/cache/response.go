package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

// ResponseConfig holds the optional attributes of a CachedResponse.
type ResponseConfig struct {
	// Status is the HTTP status code. Zero means it was not captured,
	// which only matters for ToResponse.
	Status int

	// ResponseHeaders are the captured response headers.
	ResponseHeaders http.Header

	// Body is the response payload, passed through unmodified.
	Body []byte

	// Clock is the time source for freshness math (default: time.Now).
	Clock Clock
}

// CachedResponse is an HTTP response captured for caching. Freshness
// values are derived on demand from Headers.
type CachedResponse struct {
	Status  int
	Headers http.Header
	Body    []byte

	clock Clock

	mu           sync.Mutex
	date         time.Time
	dateResolved bool
	dateFromNow  bool
}

// Freshness is a snapshot of the freshness quantities taken at one instant.
type Freshness struct {
	// MaxAge is the freshness lifetime; only meaningful when HasMaxAge is set.
	MaxAge    time.Duration
	HasMaxAge bool

	// Age is the time elapsed since the response was generated.
	Age time.Duration

	// TTL is MaxAge - Age; only meaningful when HasMaxAge is set.
	TTL time.Duration

	// Fresh is true when HasMaxAge is set and TTL > 0.
	Fresh bool
}

// NewCachedResponse builds a CachedResponse. All fields are optional.
func NewCachedResponse(cfg ResponseConfig) *CachedResponse {
	headers := cfg.ResponseHeaders
	if headers == nil {
		headers = http.Header{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &CachedResponse{
		Status:  cfg.Status,
		Headers: headers,
		Body:    cfg.Body,
		clock:   clock,
	}
}

// Date returns the response origination time. A missing or unparseable
// Date header resolves to the current time once; later calls return the
// same instant. Headers is left untouched.
func (r *CachedResponse) Date() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.dateResolved {
		if t, err := http.ParseTime(headerValue(r.Headers, "Date")); err == nil {
			r.date = t
		} else {
			// HTTP-dates carry whole seconds
			r.date = r.clock().UTC().Truncate(time.Second)
			r.dateFromNow = true
		}
		r.dateResolved = true
	}
	return r.date
}

// resolvedDateHeader returns the formatted date if it was taken from the clock.
func (r *CachedResponse) resolvedDateHeader() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.dateResolved || !r.dateFromNow {
		return "", false
	}
	return r.date.Format(http.TimeFormat), true
}

// MaxAge returns the freshness lifetime. Precedence: s-maxage, max-age,
// then Expires minus Date. The Expires fallback may be negative.
func (r *CachedResponse) MaxAge() (time.Duration, bool) {
	cc := ParseCacheControl(headerValues(r.Headers, "Cache-Control"))
	if d, ok := cc.Seconds(DirectiveSMaxAge); ok {
		return d, true
	}
	if d, ok := cc.Seconds(DirectiveMaxAge); ok {
		return d, true
	}

	raw := headerValue(r.Headers, "Expires")
	if raw == "" {
		return 0, false
	}
	expires, err := http.ParseTime(raw)
	if err != nil {
		return 0, false
	}
	return expires.Sub(r.Date()).Truncate(time.Second), true
}

// Age returns the seconds elapsed since the response was generated. A
// valid Age header is used as is; otherwise it is now minus Date,
// floored at zero.
func (r *CachedResponse) Age() time.Duration {
	return r.ageAt(r.clock())
}

func (r *CachedResponse) ageAt(now time.Time) time.Duration {
	if raw := headerValue(r.Headers, "Age"); raw != "" {
		// a list-valued Age uses its first member
		first, _, _ := strings.Cut(raw, ",")
		if d, ok := parseDeltaSeconds(first); ok {
			return d
		}
	}

	age := now.Sub(r.Date()).Truncate(time.Second)
	if age < 0 {
		return 0
	}
	return age
}

// TTL returns the remaining freshness, MaxAge - Age. It is absent when
// MaxAge is absent and negative once the response is stale.
func (r *CachedResponse) TTL() (time.Duration, bool) {
	f := r.Evaluate()
	return f.TTL, f.HasMaxAge
}

// IsFresh reports whether the response may be served without going back
// to the origin. No freshness information means not fresh.
func (r *CachedResponse) IsFresh() bool {
	return r.Evaluate().Fresh
}

// Evaluate computes all freshness quantities against a single clock sample.
func (r *CachedResponse) Evaluate() Freshness {
	now := r.clock()

	f := Freshness{Age: r.ageAt(now)}
	f.MaxAge, f.HasMaxAge = r.MaxAge()
	if f.HasMaxAge {
		f.TTL = f.MaxAge - f.Age
		f.Fresh = f.TTL > 0
	}
	return f
}

// ToResponse unwraps into an *http.Response. The headers are copied as
// captured, plus the resolved Date when one was taken from the clock.
func (r *CachedResponse) ToResponse() (*http.Response, error) {
	if r.Status == 0 {
		return nil, fmt.Errorf("%w: status code was never supplied", ErrInvalidState)
	}

	header := r.Headers.Clone()
	if header == nil {
		header = http.Header{}
	}
	if date, ok := r.resolvedDateHeader(); ok && headerValue(header, "Date") == "" {
		header.Set("Date", date)
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", r.Status, http.StatusText(r.Status)),
		StatusCode:    r.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(r.Body)),
		ContentLength: int64(len(r.Body)),
	}, nil
}
