// Package listing normalizes the user-supplied inputs of a project: its name,
// the listing URLs to analyze and the analysis options to run.
package listing

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxURLs      = 20
	MaxURLBytes  = 2048
	MaxNameBytes = 200

	MaxDescriptionBytes = 2000
)

// Analysis options understood by the workflow engine. An empty option list
// means all of them.
const (
	OptionReviews     = "reviews"
	OptionImages      = "images"
	OptionAmenities   = "amenities"
	OptionPricing     = "pricing"
	OptionDescription = "description"
)

var knownOptions = map[string]bool{
	OptionReviews:     true,
	OptionImages:      true,
	OptionAmenities:   true,
	OptionPricing:     true,
	OptionDescription: true,
}

// Options returns every known analysis option in canonical order.
func Options() []string {
	return []string{OptionReviews, OptionImages, OptionAmenities, OptionPricing, OptionDescription}
}

var reWhitespace = regexp.MustCompile(`\s+`)

// FieldError reports a single invalid input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Name trims and collapses whitespace in a project name and checks its length.
func Name(raw string) (string, error) {
	name := strings.TrimSpace(reWhitespace.ReplaceAllString(raw, " "))
	if name == "" {
		return "", &FieldError{Field: "name", Reason: "is required"}
	}
	if !utf8.ValidString(name) {
		return "", &FieldError{Field: "name", Reason: "must be valid UTF-8"}
	}
	if len(name) > MaxNameBytes {
		return "", &FieldError{Field: "name", Reason: fmt.Sprintf("must be at most %d bytes", MaxNameBytes)}
	}
	return name, nil
}

// Description trims a project description and checks its length. Empty is allowed.
func Description(raw string) (string, error) {
	desc := strings.TrimSpace(raw)
	if !utf8.ValidString(desc) {
		return "", &FieldError{Field: "description", Reason: "must be valid UTF-8"}
	}
	if len(desc) > MaxDescriptionBytes {
		return "", &FieldError{Field: "description", Reason: fmt.Sprintf("must be at most %d bytes", MaxDescriptionBytes)}
	}
	return desc, nil
}

// URLs validates listing URLs and returns them normalized, in input order,
// with duplicates removed. Scheme and host are lower-cased and fragments dropped.
func URLs(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))

	for i, r := range raw {
		normalized, err := normalizeURL(strings.TrimSpace(r))
		if err != nil {
			return nil, &FieldError{Field: fmt.Sprintf("listingUrls[%d]", i), Reason: err.Error()}
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}

	if len(out) == 0 {
		return nil, &FieldError{Field: "listingUrls", Reason: "at least one URL is required"}
	}
	if len(out) > MaxURLs {
		return nil, &FieldError{Field: "listingUrls", Reason: fmt.Sprintf("at most %d URLs are allowed", MaxURLs)}
	}
	return out, nil
}

func normalizeURL(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("must not be empty")
	}
	if len(s) > MaxURLBytes {
		return "", fmt.Errorf("must be at most %d bytes", MaxURLBytes)
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("is not a valid URL")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("must be an http or https URL")
	}
	if u.Host == "" {
		return "", fmt.Errorf("must include a host")
	}
	if u.User != nil {
		return "", fmt.Errorf("must not contain credentials")
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// AnalysisOptions lower-cases, validates and de-duplicates options.
func AnalysisOptions(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		opt := strings.ToLower(strings.TrimSpace(r))
		if !knownOptions[opt] {
			return nil, &FieldError{
				Field:  "analysisOptions",
				Reason: fmt.Sprintf("unknown option %q, must be one of %s", r, strings.Join(Options(), ", ")),
			}
		}
		if seen[opt] {
			continue
		}
		seen[opt] = true
		out = append(out, opt)
	}
	return out, nil
}

// Truncate shortens s to maxBytes without splitting UTF-8 runes.
func Truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
