// Package alphavantage provides historical close-price fetching from the
// Alpha Vantage TIME_SERIES_DAILY endpoint. Requires a (free) API key.
package alphavantage

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantfolio/internal/clientdata"
	"github.com/aristath/quantfolio/internal/domain"
)

const cacheTable = "alphavantage_history"

// Client for the Alpha Vantage API
type Client struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new Alpha Vantage client
// cacheRepo is optional - if nil, caching is disabled
func NewClient(apiKey string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   "https://www.alphavantage.co/query",
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "alphavantage").Logger(),
		cacheRepo: cacheRepo,
	}
}

// SetBaseURL overrides the API base URL (used in tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// dailyResponse mirrors the TIME_SERIES_DAILY payload.
type dailyResponse struct {
	TimeSeries map[string]map[string]string `json:"Time Series (Daily)"`
	Note       string                       `json:"Note"`
	Error      string                       `json:"Error Message"`
}

// FetchHistory returns the chronologically ordered daily close series for a
// ticker. The period argument is accepted for interface parity but Alpha
// Vantage always returns the full daily series.
func (c *Client) FetchHistory(ticker, period string) ([]domain.PricePoint, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("alphavantage requires an API key")
	}

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

	// B3 tickers use the .SAO suffix on Alpha Vantage
	symbol := strings.Replace(ticker, ".SA", ".SAO", 1)

	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", "full")
	params.Set("apikey", c.apiKey)

	reqURL := c.baseURL + "?" + params.Encode()
	c.log.Debug().Str("ticker", ticker).Msg("Fetching history")

	resp, err := c.client.Get(reqURL)
	if err != nil {
		if stale, ok := c.getStaleFromCache(ticker); ok {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("API failed, using stale cached history")
			return stale, nil
		}
		return nil, fmt.Errorf("alphavantage request failed for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	var result dailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if stale, ok := c.getStaleFromCache(ticker); ok {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to parse response, using stale cached history")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to parse alphavantage response for %s: %w", ticker, err)
	}

	if len(result.TimeSeries) == 0 {
		// Rate-limit notes and error messages both arrive as 200s
		reason := result.Note
		if reason == "" {
			reason = result.Error
		}
		if reason == "" {
			reason = "empty time series"
		}
		if stale, ok := c.getStaleFromCache(ticker); ok {
			c.log.Warn().Str("ticker", ticker).Str("reason", reason).Msg("No data in response, using stale cached history")
			return stale, nil
		}
		return nil, fmt.Errorf("alphavantage returned no data for %s: %s", ticker, reason)
	}

	points := make([]domain.PricePoint, 0, len(result.TimeSeries))
	for dateStr, bar := range result.TimeSeries {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		closeStr, ok := bar["4. close"]
		if !ok {
			continue
		}
		closePrice, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			continue
		}
		points = append(points, domain.PricePoint{Date: date.UTC(), Close: closePrice})
	}

	// Map iteration order is random; the series must be chronological
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	if len(points) == 0 {
		return nil, fmt.Errorf("alphavantage returned no usable bars for %s", ticker)
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
