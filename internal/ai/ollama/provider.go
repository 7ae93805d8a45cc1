package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/listingscope/internal/ai/transport"
	"github.com/kiranshivaraju/listingscope/internal/config"
	"github.com/kiranshivaraju/listingscope/pkg/models"
)

// Provider implements models.AIProvider using Ollama's chat API.
type Provider struct {
	cfg    config.OllamaConfig
	client *http.Client
}

func NewProvider(cfg config.OllamaConfig) *Provider {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Provider{cfg: cfg, client: &http.Client{}}
}

func (p *Provider) Name() string { return "ollama" }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type options struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
	Format   string    `json:"format,omitempty"`
	Options  options   `json:"options"`
}

type chatResponse struct {
	Model   string  `json:"model"`
	Message message `json:"message"`
	Done    bool    `json:"done"`
}

func (p *Provider) Analyze(ctx context.Context, req models.AnalysisRequest) (models.AnalysisResult, error) {
	var resp chatResponse
	err := transport.PostJSON(ctx, p.client, p.cfg.BaseURL+"/api/chat", nil, chatRequest{
		Model: p.cfg.Model,
		Messages: []message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: string(req.Data)},
		},
		Format:  "json",
		Options: options{Temperature: req.Temperature, NumPredict: req.MaxTokens},
	}, &resp)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	if resp.Message.Content == "" {
		return models.AnalysisResult{}, fmt.Errorf("%w: empty message", transport.ErrInvalidResponse)
	}

	model := resp.Model
	if model == "" {
		model = p.cfg.Model
	}
	return models.AnalysisResult{Analysis: resp.Message.Content, Provider: p.Name(), Model: model}, nil
}

var _ models.AIProvider = (*Provider)(nil)
