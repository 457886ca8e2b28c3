package httputil

import (
	"context"
	"net/http"
	"net/url"

	"github.com/platinummonkey/ssogate/pkg/observability"
	"github.com/platinummonkey/ssogate/pkg/routing"
)

// Response is the transport-level form of a routing decision. A zero
// Location means no redirect; Message, when set, is returned as a JSON error
// body.
type Response struct {
	Status   int
	Location string
	Message  string
}

// Emitter turns routing outcomes into HTTP responses. Error reasons are
// logged here and never reach the browser.
type Emitter struct {
	logger *observability.Logger
}

// NewEmitter creates an emitter
func NewEmitter(logger *observability.Logger) *Emitter {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Emitter{logger: logger}
}

// Emit maps outcome to a response:
//
//	Error(reason)         303 /login/error
//	IdpRedirect(url)      303 /login/sso-redirect?to=<url>
//	SpInitiatedSso        204
//	SignupRedirect(email) 303 /signup?email=<email>
//	PasswordFlow          303 /
func (e *Emitter) Emit(ctx context.Context, outcome routing.Outcome) Response {
	switch outcome.Kind {
	case routing.KindIdpRedirect:
		return seeOther(routing.PathSSORelay + "?to=" + url.QueryEscape(outcome.URL))
	case routing.KindSpInitiatedSso:
		return Response{Status: http.StatusNoContent}
	case routing.KindSignupRedirect:
		return seeOther(routing.PathSignup + "?email=" + url.QueryEscape(outcome.Email))
	case routing.KindPasswordFlow:
		return seeOther(routing.PathHome)
	case routing.KindError:
		observability.FromContext(ctx, e.logger).
			WithField("reason", string(outcome.Reason)).
			Warn("Routing ended in error")
		return seeOther(routing.PathLoginError)
	default:
		observability.FromContext(ctx, e.logger).
			WithField("outcome", outcome.String()).
			Error("Unknown routing outcome")
		return seeOther(routing.PathLoginError)
	}
}

// EmitSignUp maps the signup page result to a response. A rejected signup
// is a 400 carrying the store's message.
func (e *Emitter) EmitSignUp(ctx context.Context, result routing.SignUpResult) Response {
	if result.Err != nil {
		return Response{Status: http.StatusBadRequest, Message: result.Err.Message}
	}
	if result.Location == "" {
		return seeOther(routing.PathLoginError)
	}
	return seeOther(result.Location)
}

// Write sends resp
func (e *Emitter) Write(w http.ResponseWriter, r *http.Request, resp Response) {
	switch {
	case resp.Location != "":
		http.Redirect(w, r, resp.Location, resp.Status)
	case resp.Message != "":
		WriteErrorMessage(w, resp.Status, resp.Message)
	default:
		w.WriteHeader(resp.Status)
	}
}

func seeOther(location string) Response {
	return Response{Status: http.StatusSeeOther, Location: location}
}
