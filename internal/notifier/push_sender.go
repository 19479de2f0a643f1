package notifier

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/lyraio/lyra/internal/types"
)

const (
	defaultPushTimeout    = 10 * time.Second
	defaultPushMaxRetries = 2
	userAgent             = "lyra-notify/v1"
)

// PushRequest is the JSON body POSTed to the push gateway.
type PushRequest struct {
	Tokens       []string          `json:"tokens"`
	Notification PushNotification  `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

// PushNotification is the visible part of a push message.
type PushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PushResponse is the gateway reply. Responses, when present, are in token order.
type PushResponse struct {
	SuccessCount int                 `json:"successCount"`
	FailureCount int                 `json:"failureCount"`
	Responses    []PushTokenResponse `json:"responses,omitempty"`
}

// PushTokenResponse is the delivery result for a single token.
type PushTokenResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PushSenderConfig holds the configuration for creating a PushSender.
type PushSenderConfig struct {
	URL                string
	AuthToken          string
	Timeout            time.Duration
	// MaxRetries counts retries after the first attempt. Negative uses the default.
	MaxRetries         int
	InsecureSkipVerify bool
	// Backoff returns the wait before retry attempt n (1-based). Defaults to n seconds.
	Backoff func(attempt int) time.Duration
}

// PushSender implements MulticastSender against a generic HTTP push gateway.
// Sends are synchronous: SendMulticast returns once the gateway has answered
// or the retries are exhausted.
type PushSender struct {
	client     *resty.Client
	logger     *zap.Logger
	url        string
	authToken  string
	maxRetries int
	backoff    func(attempt int) time.Duration
}

var _ MulticastSender = (*PushSender)(nil)

// NewPushSender creates a PushSender. Returns an error if the URL is invalid.
func NewPushSender(logger *zap.Logger, cfg PushSenderConfig) (*PushSender, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("push gateway URL is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid push gateway URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("push gateway URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("push gateway URL must include a host")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultPushTimeout
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = defaultPushMaxRetries
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = linearBackoff
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent)
	if cfg.InsecureSkipVerify {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // user-configured
		logger.Warn("Push gateway TLS certificate verification is disabled, this is insecure",
			zap.String("url", RedactURL(cfg.URL)))
	}

	return &PushSender{
		client:     client,
		logger:     logger.Named("push-sender"),
		url:        cfg.URL,
		authToken:  cfg.AuthToken,
		maxRetries: retries,
		backoff:    backoff,
	}, nil
}

// Name implements MulticastSender.
func (ps *PushSender) Name() string { return "http" }

// SendMulticast implements MulticastSender. Transport errors and 5xx replies
// are retried up to the configured limit; 4xx replies fail immediately.
func (ps *PushSender) SendMulticast(ctx context.Context, tokens []string, p types.Payload) (types.SendResult, error) {
	req := PushRequest{
		Tokens:       tokens,
		Notification: PushNotification{Title: p.Title, Body: p.Body},
		Data:         p.Data,
	}

	var lastErr error
	for attempt := range ps.maxRetries + 1 {
		if attempt > 0 {
			timer := time.NewTimer(ps.backoff(attempt))
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				pushGatewaySendTotal.WithLabelValues("error").Inc()
				return types.SendResult{}, fmt.Errorf("context cancelled during backoff: %w", ctx.Err())
			}
			pushGatewaySendTotal.WithLabelValues("retry").Inc()
		}

		var resp PushResponse
		resp, lastErr = ps.doPost(ctx, req)
		if lastErr == nil {
			return toSendResult(tokens, resp), nil
		}

		if !isRetryable(lastErr) {
			pushGatewaySendTotal.WithLabelValues("error").Inc()
			return types.SendResult{}, lastErr
		}

		ps.logger.Debug("Push gateway transient failure, will retry",
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}

	pushGatewaySendTotal.WithLabelValues("error").Inc()
	return types.SendResult{}, fmt.Errorf("push gateway send failed after %d attempts: %w", ps.maxRetries+1, lastErr)
}

// doPost executes a single POST request.
func (ps *PushSender) doPost(ctx context.Context, req PushRequest) (PushResponse, error) {
	start := time.Now()

	r := ps.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req)
	if ps.authToken != "" {
		r.SetAuthToken(ps.authToken)
	}

	resp, err := r.Post(ps.url)
	duration := time.Since(start).Seconds()
	if err != nil {
		pushGatewaySendDuration.WithLabelValues("error").Observe(duration)
		return PushResponse{}, &pushError{err: err, retryable: ctx.Err() == nil}
	}

	if !resp.IsSuccess() {
		pushGatewaySendDuration.WithLabelValues("error").Observe(duration)
		return PushResponse{}, &pushError{
			err:       fmt.Errorf("push gateway returned HTTP %d", resp.StatusCode()),
			retryable: resp.StatusCode() >= 500,
		}
	}

	var out PushResponse
	if body := resp.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			pushGatewaySendDuration.WithLabelValues("error").Observe(duration)
			return PushResponse{}, &pushError{err: fmt.Errorf("decode push gateway response: %w", err)}
		}
	} else {
		out.SuccessCount = len(req.Tokens)
	}

	pushGatewaySendTotal.WithLabelValues("success").Inc()
	pushGatewaySendDuration.WithLabelValues("success").Observe(duration)
	return out, nil
}

// toSendResult maps the gateway reply onto tokens. Per-token responses win over
// the aggregate counts when they line up with the request.
func toSendResult(tokens []string, resp PushResponse) types.SendResult {
	if len(resp.Responses) != len(tokens) {
		return types.SendResult{SuccessCount: resp.SuccessCount, FailureCount: resp.FailureCount}
	}
	var res types.SendResult
	for i, r := range resp.Responses {
		if r.Success {
			res.SuccessCount++
			continue
		}
		res.FailureCount++
		res.FailedTokens = append(res.FailedTokens, tokens[i])
	}
	return res
}

// pushError wraps an error with a retryable flag.
type pushError struct {
	err       error
	retryable bool
}

func (e *pushError) Error() string { return e.err.Error() }
func (e *pushError) Unwrap() error { return e.err }

// isRetryable returns true if the error is a transient failure worth retrying.
func isRetryable(err error) bool {
	var pe *pushError
	if errors.As(err, &pe) {
		return pe.retryable
	}
	return true
}

// linearBackoff waits 1s, 2s, ...
func linearBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * time.Second
}

// RedactURL masks credentials in a URL for safe logging.
// It redacts userinfo passwords and query parameter values.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	redacted := u.Redacted()
	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			q.Set(key, "REDACTED")
		}
		r, err := url.Parse(redacted)
		if err != nil {
			return redacted
		}
		r.RawQuery = q.Encode()
		return r.String()
	}
	return redacted
}
