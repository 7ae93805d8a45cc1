// Package apikey mints API keys. The raw key is returned once; only its bcrypt
// hash and lookup prefix are stored.
package apikey

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/listingscope/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	// Prefix starts every raw key.
	Prefix = "ls_"
	// PrefixLen is the number of leading characters stored for lookup.
	PrefixLen = 8

	ScopeRead  = "read"
	ScopeWrite = "write"
	ScopeAdmin = "admin"

	maxNameBytes = 100
	randomBytes  = 24
)

var ErrInvalid = errors.New("invalid api key request")

var knownScopes = []string{ScopeRead, ScopeWrite, ScopeAdmin}

// DefaultScopes are granted when none are requested.
func DefaultScopes() []string {
	return []string{ScopeRead, ScopeWrite}
}

// Generate validates name and scopes and returns a new key for ownerID
// together with the raw key. cost is the bcrypt cost; zero means the default.
func Generate(ownerID uuid.UUID, name string, scopes []string, cost int, now time.Time) (*models.APIKey, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if len(name) > maxNameBytes {
		return nil, "", fmt.Errorf("%w: name must be at most %d bytes", ErrInvalid, maxNameBytes)
	}

	scopes, err := normalizeScopes(scopes)
	if err != nil {
		return nil, "", err
	}

	buf := make([]byte, randomBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, "", fmt.Errorf("generating key: %w", err)
	}
	raw := Prefix + base64.RawURLEncoding.EncodeToString(buf)

	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return nil, "", fmt.Errorf("hashing key: %w", err)
	}

	now = now.UTC()
	return &models.APIKey{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      name,
		KeyHash:   string(hash),
		KeyPrefix: raw[:PrefixLen],
		Scopes:    scopes,
		CreatedAt: now,
		UpdatedAt: now,
	}, raw, nil
}

func normalizeScopes(scopes []string) ([]string, error) {
	if len(scopes) == 0 {
		return DefaultScopes(), nil
	}
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		s = strings.ToLower(strings.TrimSpace(s))
		if !slices.Contains(knownScopes, s) {
			return nil, fmt.Errorf("%w: unknown scope %q", ErrInvalid, s)
		}
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out, nil
}
