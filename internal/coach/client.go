// Package coach talks to an OpenAI-compatible chat completion API to review
// trades and to hold open-ended coaching conversations.
package coach

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/logging"
	"mindful-trader/internal/resilience"
	"mindful-trader/internal/security"
	"mindful-trader/pkg/utils"
)

// Config configures a Client.
type Config struct {
	APIKey            string
	Model             string
	BaseURL           string
	RequestsPerMinute int
	MaxAttempts       int
	RequestTimeout    time.Duration
	// Consecutive failed requests before calls short-circuit to the fallback.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Client implements Analyzer and creates chat sessions.
type Client struct {
	api     *openai.Client
	model   string
	hasKey  bool
	limiter *rate.Limiter
	retry   utils.RetryConfig
	timeout time.Duration
	breaker *resilience.Breaker
	logger  zerolog.Logger
}

// NewClient creates a coaching client. A client without an API key is valid;
// every call then fails with errors.ErrMissingAPIKey.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxAttempts
	retry.Retryable = retryable

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	bc := resilience.DefaultConfig()
	if cfg.BreakerThreshold > 0 {
		bc.FailureThreshold = cfg.BreakerThreshold
	}
	if cfg.BreakerCooldown > 0 {
		bc.Cooldown = cfg.BreakerCooldown
	}
	bc.IsFailure = retryable

	return &Client{
		api:     openai.NewClientWithConfig(oc),
		model:   model,
		hasKey:  cfg.APIKey != "",
		limiter: rate.NewLimiter(limit, 1),
		retry:   retry,
		timeout: cfg.RequestTimeout,
		breaker: resilience.New("coach", bc),
		logger:  logger.With().Str("component", "coach").Str("model", model).Logger(),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Ready reports whether a credential is configured.
func (c *Client) Ready() bool { return c.hasKey }

// complete sends messages and returns the first choice's content.
func (c *Client) complete(ctx context.Context, op string, messages []openai.ChatCompletionMessage, jsonMode bool) (string, error) {
	if !c.hasKey {
		return "", apperrors.ErrMissingAPIKey
	}

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	content, err := resilience.Call(c.breaker, func() (string, error) {
		return c.send(ctx, req)
	})

	logging.LogAPICall(c.logger, http.MethodPost, "chat/completions:"+op, time.Since(start), err)
	if err != nil {
		if errors.Is(err, resilience.ErrOpen) {
			c.logger.Warn().Str("op", op).Msg("coach requests short-circuited")
		}
		return "", apperrors.NewCoachError(op, security.MaskError(err))
	}
	return content, nil
}

// Breaker exposes the request circuit breaker.
func (c *Client) Breaker() *resilience.Breaker { return c.breaker }

// send performs one logical request with retries.
func (c *Client) send(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	return utils.RetryWithResult(ctx, c.retry, func() (string, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		callCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		resp, err := c.api.CreateChatCompletion(callCtx, req)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", apperrors.ErrNoResponse
		}
		return resp.Choices[0].Message.Content, nil
	})
}

// retryable rejects errors another attempt cannot fix.
func retryable(err error) bool {
	if errors.Is(err, apperrors.ErrMissingAPIKey) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return false
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return false
		}
	}
	return true
}
