package sso

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/ssogate/pkg/httputil"
	"github.com/platinummonkey/ssogate/pkg/observability"
	"github.com/platinummonkey/ssogate/pkg/orgs"
	"github.com/platinummonkey/ssogate/pkg/routing"
)

// ErrorPageBody is the generic text shown on /login/error. Routing reasons
// are logged, never rendered.
const ErrorPageBody = "We could not sign you in. Please try again or contact your administrator.\n"

// Router is the routing controller as seen by the handlers
type Router interface {
	Login(ctx context.Context, email string) routing.Outcome
	SignUp(ctx context.Context, email, password string) routing.SignUpResult
	QuickSignUp(ctx context.Context, email, password string) routing.Outcome
}

// Handlers serves the login, signup and relay endpoints
type Handlers struct {
	router  Router
	emitter *httputil.Emitter
	lister  orgs.Lister
	logger  *observability.Logger
	limit   func(http.Handler) http.Handler
}

// NewHandlers creates the handlers. lister may be nil, in which case the
// organization listing is not registered.
func NewHandlers(router Router, emitter *httputil.Emitter, lister orgs.Lister, logger *observability.Logger) *Handlers {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Handlers{
		router:  router,
		emitter: emitter,
		lister:  lister,
		logger:  logger,
	}
}

// WithRateLimit throttles the form submissions with mw. It must be called
// before RegisterRoutes.
func (h *Handlers) WithRateLimit(mw func(http.Handler) http.Handler) *Handlers {
	h.limit = mw
	return h
}

func (h *Handlers) limited(fn http.HandlerFunc) http.Handler {
	if h.limit == nil {
		return fn
	}
	return h.limit(fn)
}

// RegisterRoutes registers the login routes on router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc(routing.PathSSORelay, h.relay).Methods("GET")
	router.HandleFunc(routing.PathLoginError, h.errorPage).Methods("GET")
	router.Handle("/login/signup", h.limited(h.quickSignUp)).Methods("POST")
	router.Handle("/login", h.limited(h.login)).Methods("POST")
	router.Handle(routing.PathSignup, h.limited(h.signUp)).Methods("POST")

	if h.lister != nil {
		router.HandleFunc("/orgs", h.listOrgs).Methods("GET")
	}
}

// login handles POST /login
func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	if !httputil.ParseFormOrError(w, r) {
		return
	}

	outcome := h.router.Login(r.Context(), httputil.FormString(r, "email"))
	h.emitter.Write(w, r, h.emitter.Emit(r.Context(), outcome))
}

// quickSignUp handles POST /login/signup
func (h *Handlers) quickSignUp(w http.ResponseWriter, r *http.Request) {
	if !httputil.ParseFormOrError(w, r) {
		return
	}

	outcome := h.router.QuickSignUp(r.Context(),
		httputil.FormString(r, "email"),
		httputil.FormString(r, "password"))
	h.emitter.Write(w, r, h.emitter.Emit(r.Context(), outcome))
}

// signUp handles POST /signup
func (h *Handlers) signUp(w http.ResponseWriter, r *http.Request) {
	if !httputil.ParseFormOrError(w, r) {
		return
	}

	result := h.router.SignUp(r.Context(),
		httputil.FormString(r, "email"),
		httputil.FormString(r, "password"))
	h.emitter.Write(w, r, h.emitter.EmitSignUp(r.Context(), result))
}

// relay handles GET /login/sso-redirect. The target is passed through
// unvalidated; only the routing controller ever builds links to it.
func (h *Handlers) relay(w http.ResponseWriter, r *http.Request) {
	to := httputil.ParseQueryString(r, "to", "")
	if !httputil.RequireNonEmpty(w, to, "to") {
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// errorPage handles GET /login/error
func (h *Handlers) errorPage(w http.ResponseWriter, r *http.Request) {
	httputil.WriteText(w, http.StatusOK, ErrorPageBody)
}

// OrgListResponse is the body of GET /orgs
type OrgListResponse struct {
	Orgs []*orgs.OrganizationPolicy `json:"orgs"`
}

// listOrgs handles GET /orgs. A failing directory is logged and answered
// with an empty list.
func (h *Handlers) listOrgs(w http.ResponseWriter, r *http.Request) {
	policies, err := h.lister.List(r.Context())
	if err != nil {
		observability.FromContext(r.Context(), h.logger).WithError(err).Error("Error fetching orgs")
	}
	if policies == nil || err != nil {
		policies = []*orgs.OrganizationPolicy{}
	}

	if err := httputil.WriteJSON(w, http.StatusOK, OrgListResponse{Orgs: policies}); err != nil {
		observability.FromContext(r.Context(), h.logger).WithError(err).Warn("Failed to write org listing")
	}
}
