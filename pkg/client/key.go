package client

import "net/http"

// KeyFunc derives the cache key for a request.
type KeyFunc func(req *http.Request) string

// DefaultKey keys entries by method and full URL.
//
// Example:
//
//	GET https://example.com/v1/items?page=1
func DefaultKey(req *http.Request) string {
	return req.Method + " " + req.URL.String()
}
