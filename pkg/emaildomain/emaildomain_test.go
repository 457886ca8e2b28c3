package emaildomain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		want    Domain
		wantErr bool
	}{
		{name: "simple", email: "alice@acme.com", want: "acme.com"},
		{name: "keeps case", email: "Alice@ACME.com", want: "ACME.com"},
		{name: "keeps whitespace", email: "alice@acme.com ", want: "acme.com "},
		{name: "last at wins", email: "odd@name@acme.com", want: "acme.com"},
		{name: "empty local part", email: "@acme.com", want: "acme.com"},
		{name: "empty", email: "", wantErr: true},
		{name: "no at", email: "not-an-email", wantErr: true},
		{name: "trailing at", email: "alice@", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.email)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEmail)
				assert.Empty(t, got)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Domain("acme.com"), Normalize(" ACME.com\t"))
	assert.Equal(t, Domain(""), Normalize("  "))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("bob@newco.io"))
	assert.False(t, Valid("bob"))
}
