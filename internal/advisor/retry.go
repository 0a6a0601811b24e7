package advisor

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"
)

const (
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: initialBackoff,
		MaxBackoff:     maxBackoff,
	}
}

func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// backoff is InitialBackoff * 2^attempt, capped at MaxBackoff.
func (c RetryConfig) backoff(attempt int) time.Duration {
	d := float64(c.InitialBackoff) * math.Pow(2, float64(attempt))
	if d > float64(c.MaxBackoff) {
		d = float64(c.MaxBackoff)
	}
	return time.Duration(d)
}

// retryWithBackoff runs send until it succeeds, fails permanently or the
// attempts run out. Non-retryable responses are returned as they are.
func (c *Client) retryWithBackoff(ctx context.Context, send func() (*http.Response, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := send()
		if err == nil && resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			if !shouldRetry(resp.StatusCode) {
				return resp, nil
			}
			resp.Body.Close()
		}

		if attempt == c.retry.MaxRetries {
			break
		}

		wait := c.retry.backoff(attempt)
		c.logger.Warn().
			Int("attempt", attempt+1).
			Int("max_retries", c.retry.MaxRetries).
			Dur("backoff", wait).
			Err(lastErr).
			Msg("advisor request failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.retry.MaxRetries, lastErr)
}
