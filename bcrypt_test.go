package crew_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	crew "github.com/goliatone/go-crew"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true,
		},
		{
			name:     "Longer than bcrypt input",
			password: strings.Repeat("x", 73),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := crew.HashPassword(tt.password, bcrypt.MinCost)

			if tt.wantErr {
				assert.True(t, crew.IsValidationError(err))
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NoError(t, crew.ComparePasswordAndHash(tt.password, hash))
		})
	}
}

func TestHashPasswordCostFallback(t *testing.T) {
	hash, err := crew.HashPassword("secret", 99)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestComparePasswordAndHash(t *testing.T) {
	password := "testPassword123!"
	hash, err := crew.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, crew.ComparePasswordAndHash(password, hash))
	assert.ErrorIs(t, crew.ComparePasswordAndHash("wrong", hash), crew.ErrInvalidCredentials)

	err = crew.ComparePasswordAndHash(password, "not-a-hash")
	require.Error(t, err)
	assert.False(t, crew.IsInvalidCredentials(err))
}
