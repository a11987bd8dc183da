package crew_test

import (
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crew "github.com/goliatone/go-crew"
)

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"invalid credentials", crew.ErrInvalidCredentials, crew.IsInvalidCredentials},
		{"account blocked", crew.ErrAccountBlocked, crew.IsAccountBlocked},
		{"transfer pending", crew.ErrTransferAlreadyPending, crew.IsTransferAlreadyPending},
		{"no transfer", crew.ErrNoTransferPending, crew.IsNoTransferPending},
		{"concurrent update", crew.ErrConcurrentUpdate, crew.IsConcurrentUpdate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(goerrors.Wrap(tt.err, goerrors.CategoryInternal, "wrapped")))
			assert.False(t, tt.check(errors.New(tt.err.Error())))
			assert.False(t, tt.check(nil))
		})
	}
}

func TestErrorTaxonomyCodes(t *testing.T) {
	tests := []struct {
		err      error
		category goerrors.Category
		code     int
	}{
		{crew.ErrInvalidCredentials, goerrors.CategoryAuth, goerrors.CodeUnauthorized},
		{crew.ErrAccountBlocked, goerrors.CategoryAuth, goerrors.CodeForbidden},
		{crew.ErrTransferAlreadyPending, goerrors.CategoryConflict, goerrors.CodeConflict},
		{crew.ErrTokenExpired, goerrors.CategoryAuth, goerrors.CodeUnauthorized},
	}

	for _, tt := range tests {
		var richErr *goerrors.Error
		require.True(t, goerrors.As(tt.err, &richErr))
		assert.Equal(t, tt.category, richErr.Category)
		assert.Equal(t, tt.code, richErr.Code)
	}
}

func TestDeniedCapability(t *testing.T) {
	authz := crew.NewAuthorizer()
	companyID := uuid.New()
	member := &crew.User{ID: uuid.New(), Role: crew.RoleMember, Status: crew.UserStatusActive, CompanyID: &companyID}

	err := authz.Authorize(member, crew.CapCreateProject, crew.Scope{CompanyID: &companyID})
	require.Error(t, err)

	capability, ok := crew.DeniedCapability(err)
	assert.True(t, ok)
	assert.Equal(t, crew.CapCreateProject, capability)

	_, ok = crew.DeniedCapability(crew.ErrInvalidCredentials)
	assert.False(t, ok)
}
