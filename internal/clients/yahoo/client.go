// Package yahoo provides historical close-price fetching from the Yahoo
// Finance chart API (v8, no API key required).
package yahoo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantfolio/internal/clientdata"
	"github.com/aristath/quantfolio/internal/domain"
)

const cacheTable = "yahoo_history"

// Client for the Yahoo Finance chart API
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new Yahoo Finance client
// cacheRepo is optional - if nil, caching is disabled
func NewClient(cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   "https://query1.finance.yahoo.com/v8/finance/chart",
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "yahoo").Logger(),
		cacheRepo: cacheRepo,
	}
}

// SetBaseURL overrides the API base URL (used in tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// chartResponse is the subset of the chart API payload we consume.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// normalizeTicker appends the B3 suffix for Brazilian tickers.
// Index symbols (^BVSP) and already-suffixed tickers pass through.
func normalizeTicker(ticker string) string {
	if strings.HasSuffix(ticker, ".SA") || strings.HasPrefix(ticker, "^") {
		return ticker
	}
	return ticker + ".SA"
}

// FetchHistory returns the chronologically ordered daily close series for a
// ticker. Cache-first; if the API fails, stale cached data is returned when
// available (stale data > no data).
func (c *Client) FetchHistory(ticker, period string) ([]domain.PricePoint, error) {
	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh(cacheTable, ticker)
		if err == nil && data != nil {
			var cached []domain.PricePoint
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().Str("ticker", ticker).Int("bars", len(cached)).Msg("Cache hit")
				return cached, nil
			}
		}
	}

	symbol := normalizeTicker(ticker)
	reqURL := fmt.Sprintf("%s/%s?interval=1d&range=%s", c.baseURL, url.PathEscape(symbol), url.QueryEscape(period))
	c.log.Debug().Str("url", reqURL).Msg("Fetching history")

	resp, err := c.client.Get(reqURL)
	if err != nil {
		if stale, ok := c.getStaleFromCache(ticker); ok {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("API failed, using stale cached history")
			return stale, nil
		}
		return nil, fmt.Errorf("yahoo request failed for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if stale, ok := c.getStaleFromCache(ticker); ok {
			c.log.Warn().Int("status", resp.StatusCode).Str("ticker", ticker).Msg("API error, using stale cached history")
			return stale, nil
		}
		return nil, fmt.Errorf("yahoo returned status %d for %s", resp.StatusCode, ticker)
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if stale, ok := c.getStaleFromCache(ticker); ok {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to parse response, using stale cached history")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to parse yahoo response for %s: %w", ticker, err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error for %s: %s", ticker, result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo returned no data for %s", ticker)
	}

	chart := result.Chart.Result[0]
	closes := chart.Indicators.Quote[0].Close

	points := make([]domain.PricePoint, 0, len(chart.Timestamp))
	for i, ts := range chart.Timestamp {
		// Missing bars come back as nulls; drop them
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, domain.PricePoint{
			Date:  time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Close: *closes[i],
		})
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("yahoo returned no usable bars for %s", ticker)
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(cacheTable, ticker, points, clientdata.TTLPriceHistory); err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache history")
		}
	}

	c.log.Info().Str("ticker", ticker).Int("bars", len(points)).Msg("Fetched history")

	return points, nil
}

// getStaleFromCache retrieves cached history even if expired.
func (c *Client) getStaleFromCache(ticker string) ([]domain.PricePoint, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	data, err := c.cacheRepo.Get(cacheTable, ticker)
	if err != nil || data == nil {
		return nil, false
	}

	var cached []domain.PricePoint
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}

	return cached, true
}
