package prompt

import (
	"strings"
	"testing"
)

func TestSystemPrompt(t *testing.T) {
	b := Builder{}

	tests := []struct {
		name     string
		input    string
		contains []string
	}{
		{
			name:     "reviews",
			input:    "reviews",
			contains: []string{"Analyze the reviews", "averageRating", "guestFavorites"},
		},
		{
			name:     "images",
			input:    "images",
			contains: []string{"Analyze the images", "heroShotQuality", "sleepingArrangements"},
		},
		{
			name:     "amenities",
			input:    "amenities",
			contains: []string{"Analyze the amenities", "locationHighlights", "uniqueFeatures"},
		},
		{
			name:     "pricing",
			input:    "pricing",
			contains: []string{"Analyze the pricing", "nightlyRate"},
		},
		{
			name:     "description",
			input:    "description",
			contains: []string{"title and description", "suggestedImprovements"},
		},
		{
			name:     "case and whitespace insensitive",
			input:    "  Reviews ",
			contains: []string{"averageRating"},
		},
		{
			name:     "unknown type falls back to generic",
			input:    "neighbourhood",
			contains: []string{"Analyze the provided data and return structured JSON results."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.SystemPrompt(tt.input)
			if !strings.HasPrefix(got, analystRole) {
				t.Errorf("prompt %q does not start with the analyst role", got)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("prompt %q does not contain %q", got, want)
				}
			}
		})
	}
}

func TestKnown(t *testing.T) {
	b := Builder{}
	for _, typ := range []string{TypeReviews, TypeImages, TypeAmenities, TypePricing, TypeDescription} {
		if !b.Known(typ) {
			t.Errorf("expected %q to be known", typ)
		}
	}
	if b.Known("weather") {
		t.Error("expected weather to be unknown")
	}
}
