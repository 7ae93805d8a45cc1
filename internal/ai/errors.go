package ai

import (
	"errors"

	"github.com/kiranshivaraju/listingscope/internal/ai/transport"
)

var (
	ErrProviderUnavailable = transport.ErrProviderUnavailable
	ErrInferenceTimeout    = transport.ErrInferenceTimeout
	ErrInvalidResponse     = transport.ErrInvalidResponse
	ErrInvalidInput        = errors.New("invalid analysis input")
	ErrUnknownProvider     = errors.New("unknown AI provider")
)
