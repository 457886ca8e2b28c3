package httputil

import (
	"net/http"
	"strings"
)

// DefaultMaxFormBytes caps login and signup form bodies
const DefaultMaxFormBytes = 64 << 10

// ParseFormOrError parses a url-encoded or multipart form body, writing a
// 400 and returning false when it cannot be parsed
func ParseFormOrError(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, DefaultMaxFormBytes)

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(DefaultMaxFormBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		WriteBadRequest(w, "invalid form body")
		return false
	}
	return true
}

// FormString returns the posted form value for key, or "" when absent
func FormString(r *http.Request, key string) string {
	return r.PostFormValue(key)
}

// ParseQueryString parses a query string parameter with a default value
func ParseQueryString(r *http.Request, key string, defaultVal string) string {
	if val := r.URL.Query().Get(key); val != "" {
		return val
	}
	return defaultVal
}

// RequireNonEmpty writes a 400 and returns false when value is empty
func RequireNonEmpty(w http.ResponseWriter, value, fieldName string) bool {
	if value == "" {
		WriteBadRequest(w, fieldName+" is required")
		return false
	}
	return true
}
