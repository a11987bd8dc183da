package crew_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crew "github.com/goliatone/go-crew"
)

func tokenUser() *crew.User {
	companyID := uuid.New()
	return &crew.User{
		ID:        uuid.New(),
		Role:      crew.RoleDeputy,
		Status:    crew.UserStatusActive,
		CompanyID: &companyID,
	}
}

func TestTokenServiceRoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	ts := crew.NewTokenService([]byte("signing-key"), time.Hour, "crew", jwt.ClaimStrings{"console"}, crew.NopLogger{}).
		WithClock(func() time.Time { return now })

	user := tokenUser()
	token, err := ts.Generate(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ts.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, user.ID.String(), claims.Subject())
	assert.Equal(t, user.ID.String(), claims.UserID())
	assert.Equal(t, crew.RoleDeputy, claims.Role())
	assert.Equal(t, user.CompanyID.String(), claims.CompanyID())
	assert.Equal(t, crew.UserStatusActive, claims.Status())
	assert.True(t, claims.IssuedAt().Equal(now))
	assert.True(t, claims.Expires().Equal(now.Add(time.Hour)))
}

func TestTokenServiceGenerateRequiresUser(t *testing.T) {
	ts := crew.NewTokenService([]byte("signing-key"), time.Hour, "", nil, nil)
	_, err := ts.Generate(nil)
	assert.Error(t, err)
}

func TestTokenServiceExpired(t *testing.T) {
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := crew.NewTokenService([]byte("signing-key"), time.Hour, "crew", nil, crew.NopLogger{}).
		WithClock(func() time.Time { return issued })

	token, err := issuer.Generate(tokenUser())
	require.NoError(t, err)

	validator := crew.NewTokenService([]byte("signing-key"), time.Hour, "crew", nil, crew.NopLogger{}).
		WithClock(func() time.Time { return issued.Add(2 * time.Hour) })

	_, err = validator.Validate(token)
	assert.ErrorIs(t, err, crew.ErrTokenExpired)
}

func TestTokenServiceRejectsForeignTokens(t *testing.T) {
	ts := crew.NewTokenService([]byte("signing-key"), time.Hour, "crew", jwt.ClaimStrings{"console"}, crew.NopLogger{})
	token, err := ts.Generate(tokenUser())
	require.NoError(t, err)

	tests := []struct {
		name      string
		validator *crew.TokenServiceImpl
		token     string
	}{
		{
			name:      "other signing key",
			validator: crew.NewTokenService([]byte("other-key"), time.Hour, "crew", jwt.ClaimStrings{"console"}, crew.NopLogger{}),
			token:     token,
		},
		{
			name:      "other issuer",
			validator: crew.NewTokenService([]byte("signing-key"), time.Hour, "someone-else", jwt.ClaimStrings{"console"}, crew.NopLogger{}),
			token:     token,
		},
		{
			name:      "other audience",
			validator: crew.NewTokenService([]byte("signing-key"), time.Hour, "crew", jwt.ClaimStrings{"mobile"}, crew.NopLogger{}),
			token:     token,
		},
		{
			name:      "garbage",
			validator: ts,
			token:     "not.a.token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.validator.Validate(tt.token)
			require.Error(t, err)

			var richErr *goerrors.Error
			require.True(t, goerrors.As(err, &richErr))
			assert.Equal(t, crew.TextCodeTokenMalformed, richErr.TextCode)
			assert.NotErrorIs(t, err, crew.ErrTokenExpired)
		})
	}
}

func TestTokenServiceRejectsOtherAlgorithms(t *testing.T) {
	claims := &crew.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	ts := crew.NewTokenService([]byte("signing-key"), time.Hour, "", nil, crew.NopLogger{})
	_, err = ts.Validate(token)
	assert.Error(t, err)
}
