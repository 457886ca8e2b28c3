package routing

import (
	"errors"
	"fmt"

	"github.com/platinummonkey/ssogate/pkg/credstore"
	"github.com/platinummonkey/ssogate/pkg/emaildomain"
)

// SSOInitError is a failed SP-initiated SSO call
type SSOInitError struct {
	Domain emaildomain.Domain
	Err    error
}

func (e *SSOInitError) Error() string {
	return fmt.Sprintf("sso initiation for %q failed: %v", e.Domain, e.Err)
}

func (e *SSOInitError) Unwrap() error {
	return e.Err
}

// SignUpError is a signup rejected by the credential store. Message is safe
// to show to the user.
type SignUpError struct {
	Message string
	Err     error
}

func (e *SignUpError) Error() string {
	return fmt.Sprintf("signup failed: %s", e.Message)
}

func (e *SignUpError) Unwrap() error {
	return e.Err
}

// newSignUpError keeps the store's own message when it sent one
func newSignUpError(err error) *SignUpError {
	var storeErr *credstore.Error
	if errors.As(err, &storeErr) && storeErr.Message != "" {
		return &SignUpError{Message: storeErr.Message, Err: err}
	}
	return &SignUpError{Message: err.Error(), Err: err}
}
