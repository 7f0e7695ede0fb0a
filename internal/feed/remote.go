package feed

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quantfold/optback/internal/chain"
)

// Provider supplies the option chain history for one underlying.
type Provider interface {
	Chain(ctx context.Context, symbol string) ([]chain.Quote, error)
}

// FileProvider serves chains from per-symbol CSV files in a directory,
// named <SYMBOL>.csv.
type FileProvider struct {
	Dir      string
	Columns  ColumnMap
	SkipRows int
}

func (p *FileProvider) Chain(_ context.Context, symbol string) ([]chain.Quote, error) {
	return LoadFile(fmt.Sprintf("%s/%s.csv", p.Dir, symbol), p.Columns, p.SkipRows)
}

// APIError reports a non-2xx response from the chain endpoint.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chain endpoint returned %d: %s", e.Status, e.Body)
}

// RetryConfig tunes the HTTP provider's retry loop.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig is the standard retry policy for chain downloads.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:     3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
}

// HTTPProvider downloads chain CSVs from a vendor endpoint. Transient
// failures (5xx, 429, network errors) are retried with jittered
// exponential backoff; 4xx responses fail immediately.
type HTTPProvider struct {
	BaseURL  string
	APIKey   string
	Columns  ColumnMap
	SkipRows int
	Retry    RetryConfig

	Client *http.Client
	Logger *logrus.Logger
}

func NewHTTPProvider(baseURL, apiKey string, cols ColumnMap) *HTTPProvider {
	return &HTTPProvider{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		Columns:  cols,
		SkipRows: 1,
		Retry:    DefaultRetryConfig,
		Client:   &http.Client{Timeout: 60 * time.Second},
		Logger:   logrus.StandardLogger(),
	}
}

func (p *HTTPProvider) Chain(ctx context.Context, symbol string) ([]chain.Quote, error) {
	var lastErr error
	backoff := p.Retry.InitialBackoff

	for attempt := 0; attempt <= p.Retry.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("chain download canceled: %w", err)
		}

		quotes, err := p.fetch(ctx, symbol)
		if err == nil {
			return quotes, nil
		}
		lastErr = err

		if !isTransient(err) || attempt == p.Retry.MaxRetries {
			break
		}
		p.Logger.WithFields(logrus.Fields{
			"symbol":  symbol,
			"attempt": attempt + 1,
			"backoff": backoff,
		}).Warnf("chain download failed, retrying: %v", err)

		select {
		case <-time.After(backoff):
			backoff = nextBackoff(backoff, p.Retry.MaxBackoff)
		case <-ctx.Done():
			return nil, fmt.Errorf("chain download canceled during backoff: %w", ctx.Err())
		}
	}
	return nil, fmt.Errorf("chain download for %s failed after %d attempts: %w",
		symbol, p.Retry.MaxRetries+1, lastErr)
}

func (p *HTTPProvider) fetch(ctx context.Context, symbol string) ([]chain.Quote, error) {
	u := fmt.Sprintf("%s/chains/%s.csv", p.BaseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return Read(resp.Body, p.Columns, p.SkipRows)
}

// isTransient reports whether an error is worth retrying: anything that is
// not a permanent 4xx API response.
func isTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	return true
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * 1.5)
	if next > max {
		next = max
	}
	if maxJitter := int64(next / 4); maxJitter > 0 {
		if j, err := rand.Int(rand.Reader, big.NewInt(maxJitter)); err == nil {
			next += time.Duration(j.Int64())
		}
	}
	return next
}
