package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiranshivaraju/listingscope/internal/ai/transport"
	"github.com/kiranshivaraju/listingscope/internal/config"
	"github.com/kiranshivaraju/listingscope/pkg/models"
)

func TestAnalyze_Messages(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "sk-ant-test" || r.Header.Get("anthropic-version") != apiVersion {
			t.Errorf("unexpected headers: %v", r.Header)
		}
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.System != "sys" || req.MaxTokens != defaultMaxTokens || len(req.Messages) != 1 {
			t.Errorf("unexpected request: %+v", req)
		}
		_, _ = w.Write([]byte(`{"model":"claude-x","content":[{"type":"text","text":"{\"a\":"},{"type":"text","text":"1}"}]}`))
	}))
	defer ts.Close()

	p := NewProvider(config.AnthropicConfig{BaseURL: ts.URL, APIKey: "sk-ant-test", Model: "claude-x"})
	res, err := p.Analyze(context.Background(), models.AnalysisRequest{SystemPrompt: "sys", Data: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Analysis != `{"a":1}` || res.Provider != "anthropic" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestAnalyze_BadRequest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	_, err := NewProvider(config.AnthropicConfig{BaseURL: ts.URL}).Analyze(context.Background(), models.AnalysisRequest{})
	if !errors.Is(err, transport.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}
