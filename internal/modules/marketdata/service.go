// Package marketdata aggregates historical close prices from multiple
// provider APIs with per-ticker source fallback.
package marketdata

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/quantfolio/internal/domain"
)

// HistoryFetcher fetches a daily close-price series for one ticker.
// Implemented by the yahoo, brapi, and alphavantage clients.
type HistoryFetcher interface {
	FetchHistory(ticker, period string) ([]domain.PricePoint, error)
}

// Source names accepted by GetMarketData.
const (
	SourceYahoo        = "yahoo"
	SourceBrapi        = "brapi"
	SourceAlphaVantage = "alpha_vantage"
	SourceAuto         = "auto"
)

// Service coordinates provider clients.
type Service struct {
	yahoo        HistoryFetcher
	brapi        HistoryFetcher
	alphavantage HistoryFetcher
	log          zerolog.Logger
}

// NewService creates a market data service. Any fetcher may be nil; a nil
// fetcher is simply skipped in the fallback chain.
func NewService(yahoo, brapi, alphavantage HistoryFetcher, log zerolog.Logger) *Service {
	return &Service{
		yahoo:        yahoo,
		brapi:        brapi,
		alphavantage: alphavantage,
		log:          log.With().Str("component", "marketdata").Logger(),
	}
}

// GetMarketData fetches the close-price history for every ticker from the
// requested source. With source "auto" each ticker tries brapi, then yahoo,
// then alphavantage. Tickers with no usable data are dropped; the caller
// decides whether the survivors are enough.
func (s *Service) GetMarketData(tickers []string, source, period string) (map[string][]domain.PricePoint, error) {
	history := make(map[string][]domain.PricePoint, len(tickers))

	for _, ticker := range tickers {
		points, err := s.fetchOne(ticker, source, period)
		if err != nil {
			s.log.Warn().Err(err).Str("ticker", ticker).Str("source", source).Msg("No data for ticker")
			continue
		}
		history[ticker] = points
	}

	if len(history) == 0 {
		return nil, fmt.Errorf("no market data obtained for any of %d tickers from %s", len(tickers), source)
	}

	s.log.Info().
		Int("requested", len(tickers)).
		Int("fetched", len(history)).
		Str("source", source).
		Msg("Market data fetched")

	return history, nil
}

func (s *Service) fetchOne(ticker, source, period string) ([]domain.PricePoint, error) {
	switch source {
	case SourceYahoo:
		return s.tryFetch(s.yahoo, ticker, period)
	case SourceBrapi:
		return s.tryFetch(s.brapi, ticker, period)
	case SourceAlphaVantage:
		return s.tryFetch(s.alphavantage, ticker, period)
	case SourceAuto:
		// Same fallback order as the data sources were adopted: brapi
		// first (bare B3 tickers), then yahoo, then alphavantage.
		var lastErr error
		for _, fetcher := range []HistoryFetcher{s.brapi, s.yahoo, s.alphavantage} {
			points, err := s.tryFetch(fetcher, ticker, period)
			if err == nil {
				return points, nil
			}
			lastErr = err
		}
		return nil, fmt.Errorf("all sources failed for %s: %w", ticker, lastErr)
	default:
		return nil, fmt.Errorf("unknown market data source: %s", source)
	}
}

func (s *Service) tryFetch(fetcher HistoryFetcher, ticker, period string) ([]domain.PricePoint, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("source not configured")
	}
	points, err := fetcher.FetchHistory(ticker, period)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("empty series for %s", ticker)
	}
	return points, nil
}
