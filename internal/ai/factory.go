package ai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kiranshivaraju/listingscope/internal/ai/anthropic"
	"github.com/kiranshivaraju/listingscope/internal/ai/ollama"
	"github.com/kiranshivaraju/listingscope/internal/ai/openai"
	"github.com/kiranshivaraju/listingscope/internal/ai/vllm"
	"github.com/kiranshivaraju/listingscope/internal/config"
	"github.com/kiranshivaraju/listingscope/pkg/models"
)

// backends maps AI_PROVIDER values to the model backend that answers listing
// analyses (reviews, images, amenities, pricing, description).
var backends = map[string]func(config.AIConfig) models.AIProvider{
	"ollama":    func(c config.AIConfig) models.AIProvider { return ollama.NewProvider(c.Ollama) },
	"vllm":      func(c config.AIConfig) models.AIProvider { return vllm.NewProvider(c.VLLM) },
	"openai":    func(c config.AIConfig) models.AIProvider { return openai.NewProvider(c.OpenAI) },
	"anthropic": func(c config.AIConfig) models.AIProvider { return anthropic.NewProvider(c.Anthropic) },
}

// NewProvider returns the backend the /api/v1/analyze route and
// AnalysisService send listing data to. Called once at server startup.
func NewProvider(cfg config.AIConfig) (models.AIProvider, error) {
	build, ok := backends[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("%w %q for listing analysis: must be one of %s",
			ErrUnknownProvider, cfg.Provider, strings.Join(ProviderNames(), ", "))
	}
	return build(cfg), nil
}

// ProviderNames lists the accepted AI_PROVIDER values in sorted order.
func ProviderNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
