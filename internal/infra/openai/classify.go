package openai

import (
	"net/http"
	"strings"

	"github.com/vietddude/requester/internal/core/domain"
)

var throttlePatterns = []string{
	"rate limit",
	"too many requests",
	"quota exceeded",
	"exceeded your current quota",
	"requests per min",
	"tokens per min",
}

// IsThrottleMessage reports whether an error message reads like a rate limit.
func IsThrottleMessage(message string) bool {
	lower := strings.ToLower(message)
	for _, pattern := range throttlePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// Classify marks err with the failure kind implied by an HTTP status and the
// error message the server sent with it.
//
//	429                  resource exhausted
//	408, 409, 5xx        transient, or resource exhausted if the message says so
//	other 4xx            permanent
func Classify(status int, message string, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return domain.ResourceExhausted(err)
	case status == http.StatusRequestTimeout, status == http.StatusConflict, status >= 500:
		if IsThrottleMessage(message) {
			return domain.ResourceExhausted(err)
		}
		return domain.Transient(err)
	case status >= 400:
		return domain.Permanent(err)
	default:
		return domain.Transient(err)
	}
}
