package llm

import (
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// rateLimitPatterns are message fragments that indicate throttling when no
// structured status code is available.
var rateLimitPatterns = []string{
	"rate limit",
	"rate_limit",
	"too many requests",
	"overloaded",
	"429",
	"529",
}

// IsRateLimit reports whether the error is a rate-limit or overload signal
// from the completion service. It checks the SDK's structured status code
// first and falls back to message patterns for wrapped or stringified errors.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		if apierr.StatusCode == 429 || apierr.StatusCode == 529 {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range rateLimitPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
