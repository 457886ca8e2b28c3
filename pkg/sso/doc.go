// Package sso exposes the login routing over HTTP.
//
// Routes:
//
//	POST /login               form email            login routing
//	POST /login/signup        form email, password  quick signup from the login page
//	POST /signup              form email, password  signup page
//	GET  /login/sso-redirect  ?to=<url>             relay to an IdP launch URL
//	GET  /login/error         generic error page
//	GET  /orgs                organization listing, oldest first
//
// Handlers do no routing of their own. They parse the form, call the routing
// controller and hand the outcome to httputil.Emitter.
package sso
