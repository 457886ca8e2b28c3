package httputil

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormOrError(t *testing.T) {
	t.Run("url encoded", func(t *testing.T) {
		form := url.Values{"email": {"alice@acme.com"}, "password": {"p@ss"}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()

		require.True(t, ParseFormOrError(w, req))
		assert.Equal(t, "alice@acme.com", FormString(req, "email"))
		assert.Equal(t, "p@ss", FormString(req, "password"))
		assert.Equal(t, "", FormString(req, "missing"))
	})

	t.Run("multipart", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("email", "bob@newco.io"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/login", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()

		require.True(t, ParseFormOrError(w, req))
		assert.Equal(t, "bob@newco.io", FormString(req, "email"))
	})

	t.Run("query values are not form values", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login?email=alice@acme.com", strings.NewReader(""))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()

		require.True(t, ParseFormOrError(w, req))
		assert.Equal(t, "", FormString(req, "email"))
	})

	t.Run("oversized body", func(t *testing.T) {
		big := "email=" + strings.Repeat("a", DefaultMaxFormBytes+1)
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(big))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()

		assert.False(t, ParseFormOrError(w, req))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestParseQueryString(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/login/sso-redirect?to=https%3A%2F%2Fsso.acme.com%2Fstart", nil)

	assert.Equal(t, "https://sso.acme.com/start", ParseQueryString(req, "to", ""))
	assert.Equal(t, "fallback", ParseQueryString(req, "missing", "fallback"))
}

func TestRequireNonEmpty(t *testing.T) {
	w := httptest.NewRecorder()
	assert.True(t, RequireNonEmpty(w, "x", "to"))

	w = httptest.NewRecorder()
	assert.False(t, RequireNonEmpty(w, "", "to"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "to is required")
}
