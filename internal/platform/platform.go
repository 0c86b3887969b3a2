package platform

import (
	"strings"

	"github.com/markbot/orchestrator/internal/apperrors"
)

// Platform is a closed set of delivery targets. Adding a target means
// adding a constant here and a case to every switch below, so the
// compiler flags incomplete extensions.
type Platform string

const (
	Twitter   Platform = "twitter"
	LinkedIn  Platform = "linkedin"
	Facebook  Platform = "facebook"
	Instagram Platform = "instagram"
)

// All lists every supported target.
func All() []Platform {
	return []Platform{Twitter, LinkedIn, Facebook, Instagram}
}

// Parse maps a raw identifier to a Platform.
func Parse(s string) (Platform, error) {
	switch Platform(strings.ToLower(s)) {
	case Twitter:
		return Twitter, nil
	case LinkedIn:
		return LinkedIn, nil
	case Facebook:
		return Facebook, nil
	case Instagram:
		return Instagram, nil
	}
	return "", &apperrors.UnsupportedPlatformError{Platform: s}
}

// CharLimit returns the platform's maximum post length in characters.
func CharLimit(p Platform) int {
	switch p {
	case Twitter:
		return 280
	case LinkedIn:
		return 3000
	case Facebook:
		return 5000
	case Instagram:
		return 2200
	}
	return 1000
}

const ellipsis = "..."

// Optimize truncates content to the platform limit, marking the cut
// with an ellipsis. Counting is by rune so multi-byte content is not
// cut mid-character. Deterministic: same input, same output.
func Optimize(content string, p Platform) string {
	limit := CharLimit(p)
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}
