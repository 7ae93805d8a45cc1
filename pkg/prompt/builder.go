// Package prompt builds the system prompts sent to AI providers for each kind
// of listing analysis.
package prompt

import (
	"fmt"
	"strings"
)

// Analysis types with a dedicated prompt. Any other type gets the generic one.
const (
	TypeReviews     = "reviews"
	TypeImages      = "images"
	TypeAmenities   = "amenities"
	TypePricing     = "pricing"
	TypeDescription = "description"
)

const analystRole = "You are an expert OTA listing analyst."

// fields lists the JSON keys the model is asked to return per analysis type.
var fields = map[string][]string{
	TypeReviews:     {"averageRating", "totalReviews", "positiveSentiment", "reviewHighlights", "guestFavorites"},
	TypeImages:      {"heroShotQuality", "imageUniqueness", "top5Images", "imageQuality", "sleepingArrangements"},
	TypeAmenities:   {"locationHighlights", "amenityList", "accessibility", "uniqueFeatures"},
	TypePricing:     {"nightlyRate", "cleaningFee", "competitivePosition", "seasonalNotes"},
	TypeDescription: {"titleQuality", "descriptionClarity", "missingDetails", "suggestedImprovements"},
}

// Builder constructs system prompts.
// All methods are pure functions with no side effects.
// Zero value is ready to use.
type Builder struct{}

// SystemPrompt returns the system prompt for analysisType. Matching is
// case-insensitive.
func (b Builder) SystemPrompt(analysisType string) string {
	t := strings.ToLower(strings.TrimSpace(analysisType))
	keys, ok := fields[t]
	if !ok {
		return analystRole + " Analyze the provided data and return structured JSON results."
	}
	return fmt.Sprintf("%s Analyze the %s and return structured JSON with: %s",
		analystRole, subject(t), strings.Join(keys, ", "))
}

// Known reports whether analysisType has a dedicated prompt.
func (b Builder) Known(analysisType string) bool {
	_, ok := fields[strings.ToLower(strings.TrimSpace(analysisType))]
	return ok
}

func subject(t string) string {
	switch t {
	case TypePricing:
		return "pricing"
	case TypeDescription:
		return "listing title and description"
	default:
		return t
	}
}
