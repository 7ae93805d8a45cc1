package apikey_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/listingscope/internal/apikey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerate(t *testing.T) {
	owner := uuid.New()
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	key, raw, err := apikey.Generate(owner, "  ci  ", []string{"Admin", "read", "admin"}, bcrypt.MinCost, now)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, apikey.Prefix))
	assert.Equal(t, raw[:apikey.PrefixLen], key.KeyPrefix)
	assert.Equal(t, owner, key.OwnerID)
	assert.Equal(t, "ci", key.Name)
	assert.Equal(t, []string{"admin", "read"}, key.Scopes)
	assert.Equal(t, now, key.CreatedAt)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(raw)))
	assert.NotContains(t, key.KeyHash, raw)
}

func TestGenerate_DefaultScopes(t *testing.T) {
	key, _, err := apikey.Generate(uuid.New(), "web", nil, bcrypt.MinCost, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "write"}, key.Scopes)
}

func TestGenerate_UniqueKeys(t *testing.T) {
	_, a, err := apikey.Generate(uuid.New(), "a", nil, bcrypt.MinCost, time.Now())
	require.NoError(t, err)
	_, b, err := apikey.Generate(uuid.New(), "b", nil, bcrypt.MinCost, time.Now())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestGenerate_Invalid(t *testing.T) {
	tests := map[string]struct {
		name   string
		scopes []string
	}{
		"empty name":    {name: "   "},
		"long name":     {name: strings.Repeat("n", 101)},
		"unknown scope": {name: "ok", scopes: []string{"root"}},
	}
	for desc, tt := range tests {
		t.Run(desc, func(t *testing.T) {
			_, _, err := apikey.Generate(uuid.New(), tt.name, tt.scopes, bcrypt.MinCost, time.Now())
			assert.ErrorIs(t, err, apikey.ErrInvalid)
		})
	}
}
