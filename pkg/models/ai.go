// Package models contains shared data models used across the listingscope codebase.
package models

import (
	"context"
	"encoding/json"
)

// AIProvider is the core interface that all AI integrations must implement.
// Handlers and services depend on this interface, never on a concrete provider.
type AIProvider interface {
	// Analyze sends listing data to the model under the given system prompt
	// and returns the model's text answer.
	Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
	// Name returns the provider identifier (e.g., "ollama", "openai").
	Name() string
}

// AnalysisRequest is the input to an AI analysis operation.
type AnalysisRequest struct {
	SystemPrompt string
	Data         json.RawMessage
	MaxTokens    int
	Temperature  float64
}

// AnalysisResult holds the text produced by a provider for one request.
type AnalysisResult struct {
	Analysis string `json:"analysis"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}
