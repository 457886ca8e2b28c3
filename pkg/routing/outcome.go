package routing

import (
	"fmt"

	"github.com/platinummonkey/ssogate/pkg/emaildomain"
)

// Kind identifies which variant an Outcome holds
type Kind string

const (
	KindPasswordFlow   Kind = "password_flow"
	KindIdpRedirect    Kind = "idp_redirect"
	KindSpInitiatedSso Kind = "sp_initiated_sso"
	KindSignupRedirect Kind = "signup_redirect"
	KindError          Kind = "error"
)

// Reason explains an error outcome. It is logged and counted but never shown
// to the end user.
type Reason string

const (
	ReasonInvalidEmail         Reason = "invalid-email"
	ReasonDirectoryUnavailable Reason = "directory-unavailable"
	ReasonSSONotConfigured     Reason = "sso-not-configured"
	ReasonSSOInitFailed        Reason = "sso-init-failed"
	ReasonSignUpFailed         Reason = "signup-failed"
)

// Outcome is the single routing decision produced for a submitted email.
// Only the fields belonging to Kind are set.
type Outcome struct {
	Kind   Kind
	URL    string             // KindIdpRedirect
	Domain emaildomain.Domain // KindSpInitiatedSso
	Email  string             // KindSignupRedirect
	Reason Reason             // KindError
}

// PasswordFlow continues with direct credential authentication
func PasswordFlow() Outcome {
	return Outcome{Kind: KindPasswordFlow}
}

// IdpRedirect sends the browser to the organization's IdP launch URL
func IdpRedirect(url string) Outcome {
	return Outcome{Kind: KindIdpRedirect, URL: url}
}

// SpInitiatedSso hands the SSO handshake for domain to the credential store
func SpInitiatedSso(domain emaildomain.Domain) Outcome {
	return Outcome{Kind: KindSpInitiatedSso, Domain: domain}
}

// SignupRedirect sends an unknown user to signup with email pre-filled
func SignupRedirect(email string) Outcome {
	return Outcome{Kind: KindSignupRedirect, Email: email}
}

// Error ends the request on the generic error page
func Error(reason Reason) Outcome {
	return Outcome{Kind: KindError, Reason: reason}
}

// IsError reports whether o is an error outcome
func (o Outcome) IsError() bool {
	return o.Kind == KindError
}

func (o Outcome) String() string {
	switch o.Kind {
	case KindIdpRedirect:
		return fmt.Sprintf("IdpRedirect(%s)", o.URL)
	case KindSpInitiatedSso:
		return fmt.Sprintf("SpInitiatedSso(%s)", o.Domain)
	case KindSignupRedirect:
		return fmt.Sprintf("SignupRedirect(%s)", o.Email)
	case KindError:
		return fmt.Sprintf("Error(%s)", o.Reason)
	case KindPasswordFlow:
		return "PasswordFlow"
	default:
		return fmt.Sprintf("Outcome(%s)", string(o.Kind))
	}
}
