// Package vllm talks to a vLLM server through its OpenAI-compatible API.
package vllm

import (
	"github.com/kiranshivaraju/listingscope/internal/ai/openai"
	"github.com/kiranshivaraju/listingscope/internal/config"
)

func NewProvider(cfg config.VLLMConfig) *openai.Provider {
	return openai.NewCompatible("vllm", cfg.BaseURL, "", cfg.Model)
}
