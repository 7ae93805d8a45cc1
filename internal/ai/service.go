package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kiranshivaraju/listingscope/pkg/models"
	"github.com/kiranshivaraju/listingscope/pkg/prompt"
)

const (
	maxDataBytes     = 256 << 10
	maxAnalysisBytes = 64 << 10
	maxTokens        = 4000
	temperature      = 0.1
)

// AnalyzeParams holds a request to analyze scraped listing data.
type AnalyzeParams struct {
	Data         json.RawMessage
	AnalysisType string
}

// AnalysisService runs single-shot, time-bounded analyses against the
// configured provider. It keeps no state between calls.
type AnalysisService struct {
	provider models.AIProvider
	prompts  prompt.Builder
	timeout  time.Duration
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(provider models.AIProvider, timeout time.Duration) *AnalysisService {
	return &AnalysisService{provider: provider, timeout: timeout}
}

// Analyze validates params, sends the data under the prompt for its analysis
// type and returns the provider's answer. There are no retries.
func (s *AnalysisService) Analyze(ctx context.Context, params AnalyzeParams) (*models.AnalysisResult, error) {
	data := strings.TrimSpace(string(params.Data))
	if data == "" || data == "null" {
		return nil, fmt.Errorf("%w: data is required", ErrInvalidInput)
	}
	if len(data) > maxDataBytes {
		return nil, fmt.Errorf("%w: data must be at most %d bytes", ErrInvalidInput, maxDataBytes)
	}
	if !json.Valid([]byte(data)) {
		return nil, fmt.Errorf("%w: data must be valid JSON", ErrInvalidInput)
	}
	analysisType := strings.TrimSpace(params.AnalysisType)
	if analysisType == "" {
		return nil, fmt.Errorf("%w: analysisType is required", ErrInvalidInput)
	}

	analyzeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.provider.Analyze(analyzeCtx, models.AnalysisRequest{
		SystemPrompt: s.prompts.SystemPrompt(analysisType),
		Data:         json.RawMessage(data),
		MaxTokens:    maxTokens,
		Temperature:  temperature,
	})
	if err != nil {
		if errors.Is(analyzeCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrInferenceTimeout) {
			err = fmt.Errorf("%w: %v", ErrInferenceTimeout, err)
		}
		slog.Warn("ai analysis failed",
			"provider", s.provider.Name(), "type", analysisType, "error", err, "elapsed", time.Since(start))
		return nil, err
	}

	result.Analysis = truncateString(result.Analysis, maxAnalysisBytes)
	if result.Provider == "" {
		result.Provider = s.provider.Name()
	}
	slog.Info("ai analysis completed",
		"provider", result.Provider, "model", result.Model, "type", analysisType, "elapsed", time.Since(start))
	return &result, nil
}

// ProviderName returns the configured provider's identifier.
func (s *AnalysisService) ProviderName() string {
	return s.provider.Name()
}

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
