package draftapi

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"github.com/codex-k8s/jiradraft/internal/drafterr"
)

const (
	defaultRetryAfter = 2 * time.Second
	minRetryAfter     = time.Second
)

// statusError maps a non-success response to a categorized error.
func statusError(apiErr *openai.Error) *drafterr.Error {
	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		return drafterr.Wrap(drafterr.KindAuth, apiErr, "Unauthorized: check your API key.")
	case http.StatusForbidden:
		return drafterr.Wrap(drafterr.KindAuth, apiErr, "Forbidden: your key may not have access to this model.")
	case http.StatusNotFound:
		return drafterr.Wrap(drafterr.KindNotFound, apiErr, "Model not found: verify the model name (e.g., gpt-5) and access.")
	case http.StatusTooManyRequests:
		msg := "Rate limit or quota exceeded."
		if detail := rateLimitDetail(responseHeader(apiErr)); detail != "" {
			msg = fmt.Sprintf("Rate limit or quota exceeded (%s).", detail)
		}
		return drafterr.Wrap(drafterr.KindRateLimit, apiErr, msg)
	default:
		return drafterr.Wrap(drafterr.KindService, apiErr,
			fmt.Sprintf("Generation service error %d: %s", apiErr.StatusCode, responseBody(apiErr)))
	}
}

// retryDelay reads retry-after in seconds. Missing, unparsable or zero values use the
// default; the result is never below one second.
func retryDelay(h http.Header) time.Duration {
	secs, err := strconv.ParseFloat(strings.TrimSpace(h.Get("retry-after")), 64)
	if err != nil || secs == 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return defaultRetryAfter
	}
	d := time.Duration(secs * float64(time.Second))
	if d < minRetryAfter {
		return minRetryAfter
	}
	return d
}

// rateLimitDetail lists whatever rate-limit hints the service reported.
func rateLimitDetail(h http.Header) string {
	get := func(key string) string { return strings.TrimSpace(h.Get(key)) }
	or0 := func(v string) string {
		if v == "" {
			return "0"
		}
		return v
	}

	var parts []string
	if v := get("retry-after"); v != "" {
		parts = append(parts, fmt.Sprintf("retry in ~%ss", v))
	}
	if limit := get("x-ratelimit-limit-requests"); limit != "" {
		parts = append(parts, fmt.Sprintf("requests/min: %s/%s", or0(get("x-ratelimit-remaining-requests")), limit))
	}
	if limit := get("x-ratelimit-limit-tokens"); limit != "" {
		parts = append(parts, fmt.Sprintf("tokens/min: %s/%s", or0(get("x-ratelimit-remaining-tokens")), limit))
	}
	if v := get("x-ratelimit-reset-requests"); v != "" {
		parts = append(parts, fmt.Sprintf("reset req in %ss", v))
	}
	if v := get("x-ratelimit-reset-tokens"); v != "" {
		parts = append(parts, fmt.Sprintf("reset tok in %ss", v))
	}
	return strings.Join(parts, "; ")
}

func responseHeader(apiErr *openai.Error) http.Header {
	if apiErr.Response == nil {
		return http.Header{}
	}
	return apiErr.Response.Header
}

// responseBody returns the raw error body. The SDK buffers it back onto the response.
func responseBody(apiErr *openai.Error) string {
	if apiErr.Response != nil && apiErr.Response.Body != nil {
		if raw, err := io.ReadAll(apiErr.Response.Body); err == nil && len(raw) > 0 {
			return strings.TrimSpace(string(raw))
		}
	}
	return apiErr.RawJSON()
}
