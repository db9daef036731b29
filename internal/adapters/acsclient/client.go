package acsclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"regdemo/go-backend/internal/domains/contracts"
	"regdemo/go-backend/internal/platform/inflight"
	"regdemo/go-backend/pkg/models"

	"golang.org/x/time/rate"
)

const maxResponseBytes = 1 << 20

type Options struct {
	BaseURL        string
	AppKey         string
	HTTPClient     *http.Client
	Timeout        time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// Client registers users against an HTTP user-create endpoint. Calls are paced
// by a token bucket so repeated submissions cannot hammer the server.
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	limiter  *rate.Limiter
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("acsclient: base url is required")
	}
	parsed, err := url.Parse(base + CreateUserPath)
	if err != nil {
		return nil, fmt.Errorf("acsclient: invalid base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("acsclient: unsupported scheme %q", parsed.Scheme)
	}
	if key := strings.TrimSpace(opts.AppKey); key != "" {
		q := parsed.Query()
		q.Set(AppKeyParam, key)
		parsed.RawQuery = q.Encode()
	}

	c := &Client{
		endpoint: parsed.String(),
		http:     opts.HTTPClient,
		timeout:  opts.Timeout,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), burst)
	}
	return c, nil
}

// Send submits form and returns the created account. Cancelling ctx aborts the
// call, including time spent waiting for the rate limiter.
func (c *Client) Send(ctx context.Context, form models.RegistrationForm) (models.RegistrationResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.RegistrationResult{}, contracts.WrapCategorizedError(contracts.ErrorCategoryNetwork, err)
		}
	}

	form = form.Normalized()
	body, err := json.Marshal(CreateUserRequest{
		Username:             form.Username,
		Email:                form.Email,
		Password:             form.Password,
		PasswordConfirmation: form.PasswordConfirmation,
		FirstName:            form.FirstName,
		LastName:             form.LastName,
	})
	if err != nil {
		return models.RegistrationResult{}, contracts.WrapCategorizedError(contracts.ErrorCategoryAPI, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.RegistrationResult{}, contracts.WrapCategorizedError(contracts.ErrorCategoryAPI, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(IdempotencyHeader, idempotencyKey(ctx, body))

	resp, err := c.http.Do(req)
	if err != nil {
		return models.RegistrationResult{}, contracts.WrapCategorizedError(contracts.ErrorCategoryNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return models.RegistrationResult{}, contracts.WrapCategorizedError(contracts.ErrorCategoryNetwork, err)
	}
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return models.RegistrationResult{}, failureFor(resp.StatusCode, Meta{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)})
		}
		return models.RegistrationResult{}, contracts.WrapCategorizedError(contracts.ErrorCategoryAPI, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	if resp.StatusCode >= http.StatusBadRequest || envelope.Meta.Status != StatusOK {
		return models.RegistrationResult{}, failureFor(resp.StatusCode, envelope.Meta)
	}
	if envelope.Response == nil || len(envelope.Response.Users) == 0 {
		return models.RegistrationResult{}, contracts.WrapCategorizedError(contracts.ErrorCategoryAPI, fmt.Errorf("%w: no user in response", ErrMalformedResponse))
	}

	user := envelope.Response.Users[0]
	return models.RegistrationResult{
		UserID:         user.ID,
		Username:       user.Username,
		Email:          user.Email,
		CreatedAt:      user.CreatedAt,
		RecoveryPhrase: envelope.Response.RecoveryPhrase,
	}, nil
}

func failureFor(statusCode int, meta Meta) error {
	failure := &TransportFailure{
		StatusCode: statusCode,
		Code:       meta.Code,
		Message:    strings.TrimSpace(meta.Message),
	}
	category := contracts.ErrorCategoryAPI
	if failure.Temporary() {
		category = contracts.ErrorCategoryNetwork
	}
	return contracts.WrapCategorizedError(category, failure)
}

// idempotencyKey prefers the submission id so a server can collapse replays of
// one submission; requests made outside a coordinator fall back to a body hash.
func idempotencyKey(ctx context.Context, body []byte) string {
	if id, ok := inflight.SubmissionID(ctx); ok {
		return id
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
