package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/logging"
)

type HTTPConfig struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	RatePerSec  float64
}

// HTTPGateway talks to a remote settlement service over JSON. Transient
// failures are retried with exponential backoff inside the configured
// timeout; 4xx responses are not retried.
type HTTPGateway struct {
	*Validator

	baseURL     string
	timeout     time.Duration
	maxAttempts int
	limiter     *rate.Limiter
	httpClient  *http.Client
	newBackOff  func() backoff.BackOff
}

func NewHTTPGateway(cfg HTTPConfig, v *Validator) *HTTPGateway {
	burst := int(cfg.RatePerSec)
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(cfg.RatePerSec)
	if cfg.RatePerSec <= 0 {
		limit = rate.Inf
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &HTTPGateway{
		Validator:   v,
		baseURL:     cfg.BaseURL,
		timeout:     cfg.Timeout,
		maxAttempts: attempts,
		limiter:     rate.NewLimiter(limit, burst),
		httpClient:  &http.Client{},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

type transferPayload struct {
	Reference   string `json:"reference"`
	Network     string `json:"network"`
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

type transferResponse struct {
	SettlementRef string `json:"settlement_ref"`
}

func (g *HTTPGateway) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	log := logging.FromContext(ctx)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	body, err := json.Marshal(transferPayload{
		Reference:   req.Reference,
		Network:     string(req.Network),
		Destination: req.Destination,
		Amount:      req.Amount.StringFixed(domain.AmountScale),
		Currency:    string(req.Currency),
	})
	if err != nil {
		return "", fmt.Errorf("Transfer: marshal: %w", err)
	}

	var (
		ref     string
		attempt int
	)
	op := func() error {
		attempt++
		if err := g.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		ref, err = g.send(ctx, body)
		if err != nil {
			log.Warn("gateway transfer attempt failed",
				"reference", req.Reference,
				"attempt", attempt,
				"error", err,
			)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(g.newBackOff(), uint64(g.maxAttempts-1)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return "", fmt.Errorf("Transfer: %w: %w", domain.ErrGateway, err)
	}

	log.Info("gateway transfer settled",
		"reference", req.Reference,
		"settlement_ref", ref,
		"attempts", attempt,
	)
	return ref, nil
}

var errRejected = errors.New("transfer rejected")

func (g *HTTPGateway) send(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transfers", bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		return "", fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var out transferResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if out.SettlementRef == "" {
			return "", fmt.Errorf("decode response: empty settlement_ref")
		}
		return out.SettlementRef, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", backoff.Permanent(fmt.Errorf("%w: status %d: %s", errRejected, resp.StatusCode, string(msg)))
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(msg))
	}
}
