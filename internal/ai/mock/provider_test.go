package mock_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kiranshivaraju/listingscope/internal/ai"
	"github.com/kiranshivaraju/listingscope/internal/ai/mock"
	"github.com/kiranshivaraju/listingscope/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() models.AnalysisRequest {
	return models.AnalysisRequest{
		SystemPrompt: "You are an expert OTA listing analyst.",
		Data:         json.RawMessage(`{"reviews":["Great stay"]}`),
		MaxTokens:    100,
	}
}

// --- NewMockProvider ---

func TestNewMockProvider_Analyze(t *testing.T) {
	p := mock.NewMockProvider()
	assert.Equal(t, "mock", p.Name())

	result, err := p.Analyze(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "mock", result.Provider)
	assert.Equal(t, "mock-v1", result.Model)
	assert.True(t, json.Valid([]byte(result.Analysis)))
}

func TestMockProvider_RecordsRequests(t *testing.T) {
	p := mock.NewMockProvider()
	req := sampleRequest()

	_, err := p.Analyze(context.Background(), req)
	require.NoError(t, err)
	_, err = p.Analyze(context.Background(), req)
	require.NoError(t, err)

	got := p.Requests()
	require.Len(t, got, 2)
	assert.Equal(t, req.SystemPrompt, got[0].SystemPrompt)
	assert.JSONEq(t, string(req.Data), string(got[1].Data))
}

// --- NewFailingProvider ---

func TestNewFailingProvider_Analyze(t *testing.T) {
	p := mock.NewFailingProvider(ai.ErrProviderUnavailable)
	assert.Equal(t, "mock-failing", p.Name())

	_, err := p.Analyze(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, ai.ErrProviderUnavailable)
}

func TestNewFailingProvider_CustomError(t *testing.T) {
	customErr := errors.New("custom AI error")
	p := mock.NewFailingProvider(customErr)

	_, err := p.Analyze(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, customErr)
}

// --- NewTimeoutProvider ---

func TestNewTimeoutProvider_Analyze(t *testing.T) {
	p := mock.NewTimeoutProvider()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Analyze(ctx, sampleRequest())
	assert.ErrorIs(t, err, ai.ErrInferenceTimeout)
}

// --- Sentinel errors ---

func TestSentinelErrors(t *testing.T) {
	assert.NotEqual(t, ai.ErrProviderUnavailable, ai.ErrInferenceTimeout)
	assert.NotEqual(t, ai.ErrInferenceTimeout, ai.ErrInvalidResponse)
	assert.NotEqual(t, ai.ErrInvalidResponse, ai.ErrInvalidInput)
}

// --- Zero-value MockProvider ---

func TestMockProvider_NilFuncs(t *testing.T) {
	p := &mock.MockProvider{Name_: "bare"}

	result, err := p.Analyze(context.Background(), sampleRequest())
	assert.NoError(t, err)
	assert.Equal(t, models.AnalysisResult{}, result)
}
