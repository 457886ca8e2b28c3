/*
Package routing decides where a login form submission sends the browser.

A submitted email is reduced to its domain, the domain is looked up in the
organization directory, and the policy found there is resolved into exactly
one Outcome:

	PasswordFlow          continue with password authentication
	IdpRedirect(url)      the organization hosts its own IdP launch page
	SpInitiatedSso(dom)   the credential store starts the SSO handshake
	SignupRedirect(email) no organization owns the domain
	Error(reason)         invalid input or a failed dependency

Resolve is the pure decision function. Controller wraps it with the I/O: one
directory lookup, and for SP-initiated SSO one credential store call, each
under its own timeout and never retried. Turning an Outcome into an HTTP
response is the job of httputil.Emitter.

A directory fault is never treated as "not found". Unregistered domains go to
signup; an unreachable directory goes to the error page.
*/
package routing
