// Package fetcher pulls market data from the CoinGecko REST API and stages
// the raw payloads in the artifact store. It is a thin collaborator: no
// retry, no backoff, one request per call.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// DefaultBaseURL is the public CoinGecko v3 API root.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// Client is a CoinGecko REST client.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *logger.Logger
}

// NewClient creates a client. baseURL falls back to DefaultBaseURL when
// empty; apiKey may be empty for the anonymous rate tier.
func NewClient(baseURL, apiKey string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{},
		logger:  log,
	}
}

// Coin is one entry of the coin catalogue.
type Coin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Ping verifies the API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	var response struct {
		GeckoSays string `json:"gecko_says"`
	}

	return c.getJSON(ctx, "/ping", nil, &response)
}

// ListCoins returns the full coin catalogue.
func (c *Client) ListCoins(ctx context.Context) ([]Coin, error) {
	var coins []Coin
	if err := c.getJSON(ctx, "/coins/list", nil, &coins); err != nil {
		return nil, err
	}

	return coins, nil
}

// GlobalData returns the global market snapshot as raw JSON.
func (c *Client) GlobalData(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, "/global", nil)
}

// CoinDetails returns the full detail document for one asset as raw JSON.
func (c *Client) CoinDetails(ctx context.Context, asset string) (json.RawMessage, error) {
	return c.getRaw(ctx, "/coins/"+url.PathEscape(asset), nil)
}

// SimplePrice returns spot prices for the given assets in the given fiat
// currencies, keyed by asset then currency.
func (c *Client) SimplePrice(ctx context.Context, assets, currencies []string) (map[string]map[string]float64, error) {
	query := url.Values{
		"ids":           {strings.Join(assets, ",")},
		"vs_currencies": {strings.Join(currencies, ",")},
	}

	prices := make(map[string]map[string]float64)
	if err := c.getJSON(ctx, "/simple/price", query, &prices); err != nil {
		return nil, err
	}

	return prices, nil
}

// MarketChart returns the raw market-chart payload for an asset over the
// given range in days, priced in USD.
func (c *Client) MarketChart(ctx context.Context, asset string, days int) ([]byte, error) {
	query := url.Values{
		"vs_currency": {"usd"},
		"days":        {strconv.Itoa(days)},
	}

	return c.getRaw(ctx, "/coins/"+url.PathEscape(asset)+"/market_chart", query)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.getRaw(ctx, path, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(errors.ErrCodeDecodeFailed, err, "failed to decode response from %s", path)
	}

	return nil
}

func (c *Client) getRaw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeFetchFailed, err, "failed to build request for %s", path)
	}

	request.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		request.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	response, err := c.http.Do(request)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeFetchFailed, err, "request to %s failed", path)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeFetchFailed, err, "failed to read response from %s", path)
	}

	if response.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrCodeFetchFailed,
			fmt.Sprintf("%s returned status %d: %s", path, response.StatusCode, truncate(body, 200)))
	}

	return body, nil
}

func truncate(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}

	return string(body[:limit]) + "..."
}
