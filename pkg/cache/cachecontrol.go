package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Cache-Control directive names understood by this package.
const (
	DirectiveMaxAge  = "max-age"
	DirectiveSMaxAge = "s-maxage"
	DirectiveNoStore = "no-store"
	DirectiveNoCache = "no-cache"
	DirectivePublic  = "public"
	DirectivePrivate = "private"
)

// maxDeltaSeconds is the largest delta-seconds value honoured (RFC 9111 §1.2.2).
const maxDeltaSeconds = 1 << 31

// CacheControl holds parsed Cache-Control directives keyed by lower-case name.
type CacheControl struct {
	directives map[string]string
}

// ParseCacheControl parses one or more Cache-Control field values.
// The first occurrence of a repeated directive wins.
func ParseCacheControl(values []string) CacheControl {
	cc := CacheControl{directives: make(map[string]string)}
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			name, arg, _ := strings.Cut(part, "=")
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			if _, seen := cc.directives[name]; seen {
				continue
			}
			cc.directives[name] = strings.Trim(strings.TrimSpace(arg), `"`)
		}
	}
	return cc
}

// Has reports whether the directive is present.
func (c CacheControl) Has(directive string) bool {
	_, ok := c.directives[strings.ToLower(directive)]
	return ok
}

// Get returns the directive argument, if the directive is present.
func (c CacheControl) Get(directive string) (string, bool) {
	v, ok := c.directives[strings.ToLower(directive)]
	return v, ok
}

// Seconds returns the directive argument as a delta-seconds duration.
// Missing, negative or non-numeric arguments report false.
func (c CacheControl) Seconds(directive string) (time.Duration, bool) {
	v, ok := c.Get(directive)
	if !ok {
		return 0, false
	}
	return parseDeltaSeconds(v)
}

// parseDeltaSeconds parses a non-negative integer number of seconds.
func parseDeltaSeconds(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n > maxDeltaSeconds {
		// only digits, so any error is an overflow
		n = maxDeltaSeconds
	}
	return time.Duration(n) * time.Second, true
}

// headerValues looks a field up case-insensitively. Canonical keys are
// tried first; literal maps with non-canonical keys fall back to a scan.
func headerValues(h http.Header, name string) []string {
	if h == nil {
		return nil
	}
	if v, ok := h[http.CanonicalHeaderKey(name)]; ok {
		return v
	}
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

// headerValue returns the first value of a field, or "".
func headerValue(h http.Header, name string) string {
	if v := headerValues(h, name); len(v) > 0 {
		return v[0]
	}
	return ""
}
