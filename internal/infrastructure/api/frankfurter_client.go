package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/damon-houk/currency-converter/internal/domain/entity"
	"github.com/damon-houk/currency-converter/internal/infrastructure/logger"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultBaseURL is the public Frankfurter endpoint
	DefaultBaseURL = "https://api.frankfurter.dev/"

	currenciesPath = "v1/currencies"
	latestPath     = "v1/latest"

	// supportedRefresh bounds how long the code validity set is trusted
	supportedRefresh = 12 * time.Hour
	maxBodyBytes     = 4 << 20
)

// FrankfurterClient talks to the Frankfurter exchange rate API.
// It owns the set of supported currency codes and rejects unknown codes
// with entity.ErrInvalidCurrency before any rate request is sent.
type FrankfurterClient struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
	now        func() time.Time

	mu          sync.RWMutex
	supported   map[string]struct{}
	supportedAt time.Time

	// refresh collapses concurrent reloads of the supported set into one request
	refresh singleflight.Group
}

// NewFrankfurterClient creates a new Frankfurter API client
func NewFrankfurterClient(baseURL string, httpClient *http.Client, log logger.Logger) *FrankfurterClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 10 * time.Second,
		}
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &FrankfurterClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     log,
		now:        time.Now,
	}
}

// GetSupportedCurrencies lists every currency the API publishes rates for
func (c *FrankfurterClient) GetSupportedCurrencies(ctx context.Context) (map[string]string, error) {
	var currencies map[string]string
	if _, err := c.getJSON(ctx, currenciesPath, nil, &currencies); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.supported = make(map[string]struct{}, len(currencies))
	for code := range currencies {
		c.supported[code] = struct{}{}
	}
	c.supportedAt = c.now()
	c.mu.Unlock()

	return currencies, nil
}

// GetLatestRates returns the latest rates for base. A nil result means the API had no data.
func (c *FrankfurterClient) GetLatestRates(ctx context.Context, base string, symbols []string) (*entity.LatestRates, error) {
	if err := c.ensureSupported(ctx, base, symbols); err != nil {
		return nil, err
	}

	var rates entity.LatestRates
	found, err := c.getJSON(ctx, latestPath, rateQuery(base, symbols), &rates)
	if err != nil {
		return nil, err
	}
	if !found || len(rates.Rates) == 0 {
		return nil, nil
	}

	return &rates, nil
}

// GetTimeSeries returns daily rates between start and end. A nil result means the API had no data.
func (c *FrankfurterClient) GetTimeSeries(ctx context.Context, base string, start, end time.Time, symbols []string) (*entity.TimeSeries, error) {
	if err := c.ensureSupported(ctx, base, symbols); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("v1/%s..%s", start.Format(entity.DateLayout), end.Format(entity.DateLayout))

	var series entity.TimeSeries
	found, err := c.getJSON(ctx, path, rateQuery(base, symbols), &series)
	if err != nil {
		return nil, err
	}
	if !found || series.Empty() {
		return nil, nil
	}

	return &series, nil
}

func rateQuery(base string, symbols []string) url.Values {
	query := url.Values{}
	query.Set("base", base)
	if len(symbols) > 0 {
		query.Set("symbols", strings.Join(symbols, ","))
	}
	return query
}

// ensureSupported validates codes against the supported set, loading it when absent or stale
func (c *FrankfurterClient) ensureSupported(ctx context.Context, base string, symbols []string) error {
	if c.supportedStale() {
		if err := c.refreshSupported(ctx); err != nil {
			return fmt.Errorf("failed to load supported currencies: %w", err)
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, code := range append([]string{base}, symbols...) {
		if _, ok := c.supported[code]; !ok || !entity.IsValidCurrencyCode(code) {
			return fmt.Errorf("%w: %q", entity.ErrInvalidCurrency, code)
		}
	}
	return nil
}

func (c *FrankfurterClient) supportedStale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.supported == nil || c.now().Sub(c.supportedAt) >= supportedRefresh
}

// refreshSupported reloads the supported set once for all concurrent callers.
// Each caller stops waiting when its own ctx is done; the shared request keeps going.
func (c *FrankfurterClient) refreshSupported(ctx context.Context) error {
	ch := c.refresh.DoChan(currenciesPath, func() (interface{}, error) {
		// a reload that finished while this caller queued is good enough
		if !c.supportedStale() {
			return nil, nil
		}
		return c.GetSupportedCurrencies(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", entity.ErrTransient, ctx.Err())
	}
}

// getJSON performs a GET and decodes the body into dst.
// It reports found=false for 404 and empty bodies.
func (c *FrankfurterClient) getJSON(ctx context.Context, path string, query url.Values, dst interface{}) (bool, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to execute request: %w: %w", entity.ErrTransient, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Error closing response body", map[string]interface{}{
				"path":  path,
				"error": closeErr.Error(),
			})
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return false, fmt.Errorf("failed to read response body: %w: %w", entity.ErrTransient, err)
	}

	c.logger.Debug("Frankfurter API response", map[string]interface{}{
		"path":        path,
		"query":       query.Encode(),
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return false, fmt.Errorf("%w: API returned status %d: %s", entity.ErrInvalidCurrency, resp.StatusCode, snippet(body))
	case resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode >= http.StatusInternalServerError:
		return false, fmt.Errorf("%w: API returned status %d", entity.ErrTransient, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("API returned error status: %d, body: %s", resp.StatusCode, snippet(body))
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false, nil
	}

	if err := json.Unmarshal(trimmed, dst); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return true, nil
}

func snippet(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
