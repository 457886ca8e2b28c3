package routing

import (
	"errors"

	"github.com/platinummonkey/ssogate/pkg/emaildomain"
	"github.com/platinummonkey/ssogate/pkg/orgs"
)

// Resolve maps one lookup result to an outcome. It performs no I/O.
//
// Rows are evaluated in order and the first match wins:
//
//	email invalid                         -> Error(invalid-email)
//	lookup fault (any error but NotFound) -> Error(directory-unavailable)
//	NotFound                              -> SignupRedirect(email)
//	found, UsesSSO=false                  -> Error(sso-not-configured)
//	found, UsesSSO=true, redirect URL     -> IdpRedirect(url)
//	found, UsesSSO=true, no redirect URL  -> SpInitiatedSso(domain)
//
// A nil policy with a nil error breaks the Directory contract and is treated
// as a lookup failure.
func Resolve(emailValid bool, domain emaildomain.Domain, email string, policy *orgs.OrganizationPolicy, lookupErr error) Outcome {
	if !emailValid {
		return Error(ReasonInvalidEmail)
	}

	if lookupErr != nil {
		if errors.Is(lookupErr, orgs.ErrNotFound) && !orgs.IsLookupError(lookupErr) {
			return SignupRedirect(email)
		}
		return Error(ReasonDirectoryUnavailable)
	}
	if policy == nil {
		return Error(ReasonDirectoryUnavailable)
	}

	if !policy.UsesSSO {
		return Error(ReasonSSONotConfigured)
	}
	if policy.HasRedirectURL() {
		return IdpRedirect(policy.SSORedirectURL)
	}
	return SpInitiatedSso(domain)
}
