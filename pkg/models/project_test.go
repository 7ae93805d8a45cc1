package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/kiranshivaraju/listingscope/pkg/models"
)

func TestProjectStatus_Valid(t *testing.T) {
	for _, s := range []models.ProjectStatus{"pending", "processing", "completed", "error"} {
		assert.True(t, s.Valid(), s)
	}
	for _, s := range []models.ProjectStatus{"", "failed", "running", "COMPLETED"} {
		assert.False(t, s.Valid(), s)
	}
}

func TestProjectStatus_Terminal(t *testing.T) {
	assert.False(t, models.ProjectStatusPending.Terminal())
	assert.False(t, models.ProjectStatusProcessing.Terminal())
	assert.True(t, models.ProjectStatusCompleted.Terminal())
	assert.True(t, models.ProjectStatusError.Terminal())
}

func TestSettle_CompletedKeepsResultsDropsError(t *testing.T) {
	detail := "old failure"
	p := &models.Project{ErrorDetail: &detail}
	p.Settle(models.ProjectStatusCompleted, json.RawMessage(`{"score":4.8}`), "ignored")

	assert.Equal(t, models.ProjectStatusCompleted, p.Status)
	assert.JSONEq(t, `{"score":4.8}`, string(p.Results))
	assert.Nil(t, p.ErrorDetail)
}

func TestSettle_CompletedWithoutResults(t *testing.T) {
	p := &models.Project{}
	p.Settle(models.ProjectStatusCompleted, nil, "")
	assert.Nil(t, p.Results)
}

func TestSettle_ErrorDropsResults(t *testing.T) {
	p := &models.Project{Results: json.RawMessage(`{"score":1}`)}
	p.Settle(models.ProjectStatusError, json.RawMessage(`{"x":1}`), "engine crashed")

	assert.Nil(t, p.Results)
	if assert.NotNil(t, p.ErrorDetail) {
		assert.Equal(t, "engine crashed", *p.ErrorDetail)
	}
}

func TestSettle_ErrorWithoutDetail(t *testing.T) {
	p := &models.Project{}
	p.Settle(models.ProjectStatusError, nil, "")
	if assert.NotNil(t, p.ErrorDetail) {
		assert.Equal(t, "analysis failed", *p.ErrorDetail)
	}

	prior := "first reason"
	p.ErrorDetail = &prior
	p.Settle(models.ProjectStatusError, nil, "")
	assert.Equal(t, "first reason", *p.ErrorDetail)
}

func TestSettle_ProcessingClearsOutcome(t *testing.T) {
	detail := "x"
	p := &models.Project{Results: json.RawMessage(`{}`), ErrorDetail: &detail}
	p.Settle(models.ProjectStatusProcessing, json.RawMessage(`{"partial":true}`), "y")
	assert.Nil(t, p.Results)
	assert.Nil(t, p.ErrorDetail)
}

func TestTouch_StrictlyIncreases(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &models.Project{UpdatedAt: base}

	p.Touch(base)
	assert.Equal(t, base.Add(time.Microsecond), p.UpdatedAt)

	p.Touch(base.Add(-time.Hour))
	assert.Equal(t, base.Add(2*time.Microsecond), p.UpdatedAt)

	later := base.Add(time.Minute)
	p.Touch(later)
	assert.Equal(t, later, p.UpdatedAt)
}

func TestView_OmitsOwnerAndSecrets(t *testing.T) {
	token := "tok"
	nonce := "nonce"
	p := &models.Project{
		ID:            uuid.New(),
		OwnerID:       uuid.New(),
		Name:          "Beach house",
		ListingURLs:   []string{"https://example.com/rooms/1"},
		Status:        models.ProjectStatusCompleted,
		Results:       json.RawMessage(`{"score":4.8}`),
		ShareToken:    &token,
		CallbackNonce: &nonce,
	}

	b, err := json.Marshal(p.View())
	assert.NoError(t, err)

	var fields map[string]any
	assert.NoError(t, json.Unmarshal(b, &fields))
	assert.NotContains(t, fields, "owner_id")
	assert.NotContains(t, fields, "share_token")
	assert.NotContains(t, fields, "callback_nonce")
	assert.Equal(t, "Beach house", fields["name"])
	assert.Equal(t, 4.8, fields["results"].(map[string]any)["score"])
}

func TestProject_NonceNeverSerialized(t *testing.T) {
	nonce := "secret"
	b, err := json.Marshal(&models.Project{CallbackNonce: &nonce})
	assert.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
}
