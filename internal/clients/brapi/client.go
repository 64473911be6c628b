// Package brapi provides historical close-price fetching from the BRAPI
// quote API (free, Brazilian tickers without suffix).
package brapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantfolio/internal/clientdata"
	"github.com/aristath/quantfolio/internal/domain"
)

const cacheTable = "brapi_history"

// Client for the BRAPI API
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new BRAPI client
// cacheRepo is optional - if nil, caching is disabled
func NewClient(cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   "https://brapi.dev/api/quote",
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "brapi").Logger(),
		cacheRepo: cacheRepo,
	}
}

// SetBaseURL overrides the API base URL (used in tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// quoteResponse is the subset of the BRAPI payload we consume.
type quoteResponse struct {
	Results []struct {
		HistoricalDataPrice []struct {
			Date  int64   `json:"date"`
			Close float64 `json:"close"`
		} `json:"historicalDataPrice"`
	} `json:"results"`
}

// FetchHistory returns the chronologically ordered daily close series for a
// ticker. BRAPI uses bare B3 tickers, so any .SA suffix is stripped.
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

	cleanTicker := strings.TrimSuffix(ticker, ".SA")
	reqURL := fmt.Sprintf("%s/%s?range=%s&interval=1d&fundamental=false",
		c.baseURL, url.PathEscape(cleanTicker), url.QueryEscape(period))
	c.log.Debug().Str("url", reqURL).Msg("Fetching history")

	resp, err := c.client.Get(reqURL)
	if err != nil {
		if stale, ok := c.getStaleFromCache(ticker); ok {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("API failed, using stale cached history")
			return stale, nil
		}
		return nil, fmt.Errorf("brapi request failed for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if stale, ok := c.getStaleFromCache(ticker); ok {
			c.log.Warn().Int("status", resp.StatusCode).Str("ticker", ticker).Msg("API error, using stale cached history")
			return stale, nil
		}
		return nil, fmt.Errorf("brapi returned status %d for %s", resp.StatusCode, ticker)
	}

	var result quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if stale, ok := c.getStaleFromCache(ticker); ok {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to parse response, using stale cached history")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to parse brapi response for %s: %w", ticker, err)
	}

	if len(result.Results) == 0 || len(result.Results[0].HistoricalDataPrice) == 0 {
		return nil, fmt.Errorf("brapi returned no data for %s", cleanTicker)
	}

	bars := result.Results[0].HistoricalDataPrice
	points := make([]domain.PricePoint, 0, len(bars))
	for _, bar := range bars {
		points = append(points, domain.PricePoint{
			Date:  time.Unix(bar.Date, 0).UTC().Truncate(24 * time.Hour),
			Close: bar.Close,
		})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

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
