package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/platinummonkey/ssogate/pkg/observability"
	"github.com/platinummonkey/ssogate/pkg/routing"
	"github.com/stretchr/testify/assert"
)

func TestEmitter_Emit(t *testing.T) {
	tests := []struct {
		name     string
		outcome  routing.Outcome
		expected Response
	}{
		{
			name:     "idp redirect goes through the relay",
			outcome:  routing.IdpRedirect("https://sso.acme.com/start"),
			expected: Response{Status: http.StatusSeeOther, Location: "/login/sso-redirect?to=https%3A%2F%2Fsso.acme.com%2Fstart"},
		},
		{
			name:     "idp redirect with its own query",
			outcome:  routing.IdpRedirect("https://sso.acme.com/start?tenant=a&x=1"),
			expected: Response{Status: http.StatusSeeOther, Location: "/login/sso-redirect?to=https%3A%2F%2Fsso.acme.com%2Fstart%3Ftenant%3Da%26x%3D1"},
		},
		{
			name:     "signup",
			outcome:  routing.SignupRedirect("bob@newco.io"),
			expected: Response{Status: http.StatusSeeOther, Location: "/signup?email=bob%40newco.io"},
		},
		{
			name:     "signup with plus address",
			outcome:  routing.SignupRedirect("bob+test@newco.io"),
			expected: Response{Status: http.StatusSeeOther, Location: "/signup?email=bob%2Btest%40newco.io"},
		},
		{
			name:     "sp initiated",
			outcome:  routing.SpInitiatedSso("globex.com"),
			expected: Response{Status: http.StatusNoContent},
		},
		{
			name:     "password flow",
			outcome:  routing.PasswordFlow(),
			expected: Response{Status: http.StatusSeeOther, Location: "/"},
		},
		{
			name:     "invalid email",
			outcome:  routing.Error(routing.ReasonInvalidEmail),
			expected: Response{Status: http.StatusSeeOther, Location: "/login/error"},
		},
		{
			name:     "directory unavailable",
			outcome:  routing.Error(routing.ReasonDirectoryUnavailable),
			expected: Response{Status: http.StatusSeeOther, Location: "/login/error"},
		},
		{
			name:     "unknown kind",
			outcome:  routing.Outcome{Kind: "bogus"},
			expected: Response{Status: http.StatusSeeOther, Location: "/login/error"},
		},
	}

	emitter := NewEmitter(observability.NopLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, emitter.Emit(context.Background(), tt.outcome))
		})
	}
}

func TestEmitter_EmitSignUp(t *testing.T) {
	emitter := NewEmitter(nil)
	ctx := context.Background()

	assert.Equal(t,
		Response{Status: http.StatusSeeOther, Location: "/dashboard"},
		emitter.EmitSignUp(ctx, routing.SignUpResult{Location: routing.PathDashboard}))
	assert.Equal(t,
		Response{Status: http.StatusBadRequest, Message: "User already registered"},
		emitter.EmitSignUp(ctx, routing.SignUpResult{Err: &routing.SignUpError{Message: "User already registered"}}))
	assert.Equal(t,
		Response{Status: http.StatusSeeOther, Location: "/login/error"},
		emitter.EmitSignUp(ctx, routing.SignUpResult{}))
}

func TestEmitter_Write(t *testing.T) {
	emitter := NewEmitter(nil)

	t.Run("redirect", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		w := httptest.NewRecorder()

		emitter.Write(w, req, emitter.Emit(req.Context(), routing.IdpRedirect("https://sso.acme.com/start")))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login/sso-redirect?to=https%3A%2F%2Fsso.acme.com%2Fstart", w.Header().Get("Location"))
	})

	t.Run("no content", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		w := httptest.NewRecorder()

		emitter.Write(w, req, emitter.Emit(req.Context(), routing.SpInitiatedSso("globex.com")))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
		assert.Empty(t, w.Header().Get("Location"))
	})

	t.Run("message", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/signup", nil)
		w := httptest.NewRecorder()

		emitter.Write(w, req, Response{Status: http.StatusBadRequest, Message: "weak password"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"weak password"}`, w.Body.String())
	})
}
