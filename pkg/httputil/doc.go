// Package httputil holds the HTTP plumbing shared by the ssogate handlers.
//
// # Emitter
//
// Emitter is the last step of the login pipeline. It turns a routing.Outcome
// into a Response and writes it:
//
//	outcome := controller.Login(r.Context(), email)
//	emitter.Write(w, r, emitter.Emit(r.Context(), outcome))
//
// IdP launch URLs are never redirected to directly. The browser first goes
// to the same-origin relay (/login/sso-redirect?to=...), which performs the
// external hop.
//
// # Middleware
//
// Middleware is meant for router.Use so that mux route templates are
// available for metric labels:
//
//	router.Use(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.MetricsMiddleware(metrics),
//	)
//
// # Responses
//
// Errors are JSON bodies of the form {"error": "..."}:
//
//	httputil.WriteBadRequest(w, "missing to parameter")
package httputil
