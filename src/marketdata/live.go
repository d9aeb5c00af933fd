package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/folioboard/backend/src/logger"
	"golang.org/x/net/publicsuffix"
)

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"previousClose"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

// LiveSource fetches quotes from a Yahoo-style chart API. Quotes are cached
// briefly so that dashboard polling does not hammer the upstream.
type LiveSource struct {
	baseURL    string
	httpClient *http.Client
	quoteCache *cache.Cache
}

// NewLiveSource builds a live quote client. The cookie jar is required by the
// upstream for consent/session cookies.
func NewLiveSource(baseURL string, timeout, cacheTTL time.Duration) *LiveSource {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Warn("Could not create cookie jar for market data client", "error", err)
	}
	return &LiveSource{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		quoteCache: cache.New(cacheTTL, 2*cacheTTL),
	}
}

// Quotes fetches each symbol's latest quote, serving from cache where fresh.
// Symbols that fail individually are skipped; an error is returned only when
// every symbol failed.
func (ls *LiveSource) Quotes(ctx context.Context, symbols []string) (map[string]Quote, error) {
	out := make(map[string]Quote, len(symbols))
	var lastErr error
	for _, symbol := range symbols {
		if cached, found := ls.quoteCache.Get(symbol); found {
			out[symbol] = cached.(Quote)
			continue
		}
		q, err := ls.fetchQuote(ctx, symbol)
		if err != nil {
			logger.L.Warn("Quote fetch failed", "symbol", symbol, "error", err)
			lastErr = err
			continue
		}
		ls.quoteCache.Set(symbol, q, cache.DefaultExpiration)
		out[symbol] = q
	}
	if len(out) == 0 && lastErr != nil {
		return nil, fmt.Errorf("no quotes available: %w", lastErr)
	}
	return out, nil
}

// Nudge is a no-op: live prices come from the market, not from fills.
func (ls *LiveSource) Nudge(string, float64) {}

func (ls *LiveSource) fetchQuote(ctx context.Context, symbol string) (Quote, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", ls.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; folioboard/1.0)")

	resp, err := ls.httpClient.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Quote{}, fmt.Errorf("chart request for %s returned status %d", symbol, resp.StatusCode)
	}

	var parsed chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Quote{}, fmt.Errorf("decoding chart response for %s: %w", symbol, err)
	}
	if parsed.Chart.Error != nil || len(parsed.Chart.Result) == 0 {
		return Quote{}, fmt.Errorf("chart response for %s carried no result", symbol)
	}

	meta := parsed.Chart.Result[0].Meta
	prev := meta.PreviousClose
	if prev == 0 {
		prev = meta.ChartPreviousClose
	}
	if meta.RegularMarketPrice <= 0 {
		return Quote{}, fmt.Errorf("chart response for %s had no market price", symbol)
	}
	return Quote{
		Symbol:        symbol,
		Price:         meta.RegularMarketPrice,
		PreviousClose: prev,
	}, nil
}
