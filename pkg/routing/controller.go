package routing

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/ssogate/pkg/credstore"
	"github.com/platinummonkey/ssogate/pkg/emaildomain"
	"github.com/platinummonkey/ssogate/pkg/observability"
	"github.com/platinummonkey/ssogate/pkg/orgs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Landing paths that routing decisions and signup results point at
const (
	PathHome       = "/"
	PathDashboard  = "/dashboard"
	PathLoginError = "/login/error"
	PathSignup     = "/signup"
	PathSSORelay   = "/login/sso-redirect"
)

// Options configures a Controller
type Options struct {
	// SSORedirectTo is where the IdP returns the browser after SP-initiated SSO
	SSORedirectTo string
	// LookupTimeout bounds the directory lookup
	LookupTimeout time.Duration
	// CredentialTimeout bounds each credential store call
	CredentialTimeout time.Duration
	// NormalizeDomains trims and lowercases the domain before lookup
	NormalizeDomains bool
}

// DefaultOptions returns the default controller options
func DefaultOptions() Options {
	return Options{
		LookupTimeout:     3 * time.Second,
		CredentialTimeout: 5 * time.Second,
		NormalizeDomains:  true,
	}
}

// Controller runs the login pipeline: extract the domain, look it up once,
// resolve the policy and, for SP-initiated SSO, start the handshake with the
// credential store. It holds no per-request state.
type Controller struct {
	directory orgs.Directory
	store     credstore.Store
	logger    *observability.Logger
	metrics   *observability.Metrics
	opts      Options
}

// NewController creates a controller. Zero timeouts fall back to the
// defaults.
func NewController(directory orgs.Directory, store credstore.Store, logger *observability.Logger, metrics *observability.Metrics, opts Options) *Controller {
	defaults := DefaultOptions()
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = defaults.LookupTimeout
	}
	if opts.CredentialTimeout <= 0 {
		opts.CredentialTimeout = defaults.CredentialTimeout
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	return &Controller{
		directory: directory,
		store:     store,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// Login decides where the browser goes for email
func (c *Controller) Login(ctx context.Context, email string) Outcome {
	ctx, span := observability.Tracer().Start(ctx, "routing.Login")
	defer span.End()
	logger := observability.FromContext(ctx, c.logger)

	outcome := c.login(ctx, logger, email)

	c.record(span, outcome)
	if !outcome.IsError() {
		logger.WithField("outcome", outcome.String()).Debug("Login routed")
	}
	return outcome
}

func (c *Controller) login(ctx context.Context, logger *observability.Logger, email string) Outcome {
	domain, err := emaildomain.Extract(email)
	if err != nil {
		logger.Warn("Missing or invalid email submitted")
		return Resolve(false, "", email, nil, err)
	}
	if c.opts.NormalizeDomains {
		domain = emaildomain.Normalize(domain)
		if domain == "" {
			logger.Warn("Email domain is blank after normalization")
			return Resolve(false, "", email, nil, emaildomain.ErrInvalidEmail)
		}
	}
	logger = logger.WithField("domain", domain.String())

	policy, lookupErr := c.lookup(ctx, domain)
	if lookupErr != nil && orgs.IsLookupError(lookupErr) {
		logger.WithError(lookupErr).Error("Organization lookup failed")
	}

	outcome := Resolve(true, domain, email, policy, lookupErr)
	switch outcome.Kind {
	case KindError:
		if outcome.Reason == ReasonSSONotConfigured {
			logger.Warn("Organization exists but does not use SSO")
		}
	case KindSpInitiatedSso:
		if err := c.startSSO(ctx, logger, outcome.Domain); err != nil {
			logger.WithError(err).Error("SSO login error")
			return Error(ReasonSSOInitFailed)
		}
	}
	return outcome
}

// lookup queries the directory once under LookupTimeout. Every error other
// than a plain NotFound comes back as a *orgs.LookupError.
func (c *Controller) lookup(ctx context.Context, domain emaildomain.Domain) (*orgs.OrganizationPolicy, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.LookupTimeout)
	defer cancel()

	policy, err := c.directory.Lookup(ctx, domain.String())
	if err == nil || orgs.IsLookupError(err) {
		return policy, err
	}
	if errors.Is(err, orgs.ErrNotFound) {
		return nil, orgs.ErrNotFound
	}
	return nil, &orgs.LookupError{Domain: domain.String(), Err: err}
}

// startSSO asks the credential store to begin the handoff. The provider URL
// is recorded on the span and at debug level; the browser only sees 204.
func (c *Controller) startSSO(ctx context.Context, logger *observability.Logger, domain emaildomain.Domain) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.CredentialTimeout)
	defer cancel()

	ssoURL, err := c.store.SignInWithSSO(ctx, domain.String(), c.opts.SSORedirectTo)
	if err != nil {
		return &SSOInitError{Domain: domain, Err: err}
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("sso.url", ssoURL))
	logger.WithField("sso_url", ssoURL).Debug("SSO handoff started")
	return nil
}

// SignUpResult is the terminal action of the signup page: either a redirect
// or a rejected signup whose message goes back to the user
type SignUpResult struct {
	Location string
	Err      *SignUpError
}

// SignUp creates a password account. It never consults the directory.
func (c *Controller) SignUp(ctx context.Context, email, password string) SignUpResult {
	ctx, span := observability.Tracer().Start(ctx, "routing.SignUp")
	defer span.End()
	logger := observability.FromContext(ctx, c.logger)

	if !emaildomain.Valid(email) {
		logger.Warn("Invalid email submitted to signup")
		span.SetAttributes(attribute.String("routing.result", "invalid_email"))
		c.metrics.RecordOutcome(string(KindError), string(ReasonInvalidEmail))
		return SignUpResult{Location: PathLoginError}
	}

	if err := c.signUp(ctx, email, password); err != nil {
		signUpErr := newSignUpError(err)
		logger.WithError(err).Warn("Signup rejected by credential store")
		span.RecordError(err)
		span.SetStatus(codes.Error, "signup failed")
		c.metrics.RecordOutcome(string(KindError), string(ReasonSignUpFailed))
		return SignUpResult{Err: signUpErr}
	}

	span.SetAttributes(attribute.String("routing.result", "created"))
	c.metrics.RecordOutcome("signup", "")
	return SignUpResult{Location: PathDashboard}
}

// QuickSignUp is the login page's secondary signup action. Success lands on
// the home page; any failure goes to the generic error page.
func (c *Controller) QuickSignUp(ctx context.Context, email, password string) Outcome {
	ctx, span := observability.Tracer().Start(ctx, "routing.QuickSignUp")
	defer span.End()
	logger := observability.FromContext(ctx, c.logger)

	outcome := PasswordFlow()
	if err := c.signUp(ctx, email, password); err != nil {
		logger.WithError(err).Error("Quick signup failed")
		outcome = Error(ReasonSignUpFailed)
	}

	c.record(span, outcome)
	return outcome
}

func (c *Controller) signUp(ctx context.Context, email, password string) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.CredentialTimeout)
	defer cancel()
	return c.store.SignUp(ctx, email, password)
}

func (c *Controller) record(span trace.Span, outcome Outcome) {
	c.metrics.RecordOutcome(string(outcome.Kind), string(outcome.Reason))
	span.SetAttributes(attribute.String("routing.outcome", string(outcome.Kind)))
	if outcome.IsError() {
		span.SetAttributes(attribute.String("routing.reason", string(outcome.Reason)))
		span.SetStatus(codes.Error, string(outcome.Reason))
	}
}
