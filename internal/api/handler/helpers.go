package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kiranshivaraju/listingscope/internal/ai"
	"github.com/kiranshivaraju/listingscope/internal/api/response"
	"github.com/kiranshivaraju/listingscope/internal/listing"
	"github.com/kiranshivaraju/listingscope/internal/screenshot"
	"github.com/kiranshivaraju/listingscope/pkg/models"
)

// Analyzer runs a one-shot AI analysis.
type Analyzer interface {
	Analyze(ctx context.Context, params ai.AnalyzeParams) (*models.AnalysisResult, error)
}

// Screenshotter captures a page as a data URL.
type Screenshotter interface {
	Capture(ctx context.Context, pageURL string) (*screenshot.Capture, error)
}

// NewAnalyzeHandler returns an http.HandlerFunc for POST /api/v1/analyze.
func NewAnalyzeHandler(svc Analyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ownerFrom(w, r); !ok {
			return
		}

		var req struct {
			Data         json.RawMessage `json:"data"`
			AnalysisType string          `json:"analysisType"`
		}
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		result, err := svc.Analyze(r.Context(), ai.AnalyzeParams{Data: req.Data, AnalysisType: req.AnalysisType})
		if err != nil {
			switch {
			case errors.Is(err, ai.ErrInvalidInput):
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			case errors.Is(err, ai.ErrProviderUnavailable):
				response.Error(w, http.StatusBadGateway, "AI_PROVIDER_UNAVAILABLE",
					"The AI provider is not available", nil)
			case errors.Is(err, ai.ErrInferenceTimeout):
				response.Error(w, http.StatusGatewayTimeout, "AI_INFERENCE_TIMEOUT",
					"AI analysis took too long and was cancelled", nil)
			case errors.Is(err, ai.ErrInvalidResponse):
				response.Error(w, http.StatusBadGateway, "AI_INVALID_RESPONSE",
					"The AI provider returned an unusable response", nil)
			default:
				writeServiceError(w, r, err)
			}
			return
		}
		response.JSON(w, result)
	}
}

// NewScreenshotHandler returns an http.HandlerFunc for POST /api/v1/screenshot.
func NewScreenshotHandler(svc Screenshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ownerFrom(w, r); !ok {
			return
		}

		var req struct {
			URL string `json:"url"`
		}
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}
		if req.URL == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "url is required", nil)
			return
		}
		urls, err := listing.URLs([]string{req.URL})
		if err != nil {
			var ferr *listing.FieldError
			msg := err.Error()
			if errors.As(err, &ferr) {
				msg = "url " + ferr.Reason
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", msg, nil)
			return
		}

		capture, err := svc.Capture(r.Context(), urls[0])
		if err != nil {
			switch {
			case errors.Is(err, screenshot.ErrNotConfigured):
				response.Error(w, http.StatusServiceUnavailable, "SCREENSHOT_UNAVAILABLE",
					"No screenshot service is configured", nil)
			case errors.Is(err, screenshot.ErrTimeout):
				response.Error(w, http.StatusGatewayTimeout, "SCREENSHOT_TIMEOUT",
					"Screenshot took too long and was cancelled", nil)
			case errors.Is(err, screenshot.ErrUnavailable), errors.Is(err, screenshot.ErrFailed):
				response.Error(w, http.StatusBadGateway, "SCREENSHOT_FAILED", "Screenshot failed", nil)
			default:
				writeServiceError(w, r, err)
			}
			return
		}
		response.JSON(w, capture)
	}
}
