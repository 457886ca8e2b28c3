package orgs

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// OrganizationPolicy is the SSO policy of one organization, keyed by domain
type OrganizationPolicy struct {
	ID             int64     `json:"id" yaml:"id"`
	Name           string    `json:"name" yaml:"name"`
	Domain         string    `json:"domain" yaml:"domain"`
	UsesSSO        bool      `json:"uses_sso" yaml:"uses_sso"`
	SSORedirectURL string    `json:"sso_redirect_url,omitempty" yaml:"sso_redirect_url"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
}

// HasRedirectURL reports whether the organization configured an
// IdP-initiated launch URL
func (p *OrganizationPolicy) HasRedirectURL() bool {
	return p.SSORedirectURL != ""
}

func (p *OrganizationPolicy) clone() *OrganizationPolicy {
	c := *p
	return &c
}

var (
	// ErrNotFound means no organization owns the domain
	ErrNotFound = errors.New("organization not found")

	// ErrDuplicateDomain means the store holds more than one organization for
	// a domain. It is always wrapped in a *LookupError.
	ErrDuplicateDomain = errors.New("domain maps to more than one organization")
)

// LookupError is a directory fault: connectivity, timeout, corrupt data or a
// broken uniqueness invariant
type LookupError struct {
	Domain string
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("directory lookup for %q failed: %v", e.Domain, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// IsLookupError reports whether err is (or wraps) a *LookupError
func IsLookupError(err error) bool {
	var lookupErr *LookupError
	return errors.As(err, &lookupErr)
}

// Directory resolves a domain to an organization policy. Implementations
// return the policy, ErrNotFound, or a *LookupError.
type Directory interface {
	Lookup(ctx context.Context, domain string) (*OrganizationPolicy, error)
}

// Lister lists every organization ordered by creation time
type Lister interface {
	List(ctx context.Context) ([]*OrganizationPolicy, error)
}

// DuplicateDomain is a domain claimed by more than one organization
type DuplicateDomain struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// IntegrityChecker reports domains that break the uniqueness invariant
type IntegrityChecker interface {
	DuplicateDomains(ctx context.Context) ([]DuplicateDomain, error)
}
