package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// pathParam returns the decoded URL parameter. chi matches against
// r.URL.RawPath when it is set and r.URL.Path otherwise, so the value is
// only still escaped in the first case.
func pathParam(r *http.Request, name string) (string, error) {
	value := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return value, nil
	}
	return url.PathUnescape(value)
}
