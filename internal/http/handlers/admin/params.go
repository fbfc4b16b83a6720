// Package admin holds the routes that manage accounts on behalf of an administrator.
package admin

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

const MAX_PARAM_LEN = 512

// URLParam returns the unescaped route parameter, rejecting empty and oversized values.
// chi matches against RawPath when it is set, otherwise the segment is already decoded.
func URLParam(r *http.Request, key string) (string, bool) {
	value := chi.URLParam(r, key)
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(value)
		if err != nil {
			return "", false
		}
		value = unescaped
	}
	if value == "" || len(value) > MAX_PARAM_LEN {
		return "", false
	}
	return value, true
}
