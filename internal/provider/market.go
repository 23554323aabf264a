package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/skyplan-dev/skyplan/pkg/models"
)

// DefaultMarketBaseURL is the public CoinGecko API.
const DefaultMarketBaseURL = "https://api.coingecko.com/api/v3"

// trackedCoins are the space-adjacent assets the market provider quotes.
var trackedCoins = []string{"bitcoin", "ethereum", "dogecoin", "solana"}

// CoinQuote is a single asset quote.
type CoinQuote struct {
	// PriceUSD is the current price in US dollars.
	PriceUSD float64 `json:"price_usd"`
	// Change24h is the 24-hour percentage change.
	Change24h float64 `json:"change_24h"`
}

// MarketData aggregates asset quotes and a coarse sentiment score.
type MarketData struct {
	// Coins maps asset ID to its quote.
	Coins map[string]CoinQuote `json:"coins"`
	// SentimentScore is the mean 24h change mapped into [-1, 1].
	SentimentScore float64 `json:"sentiment_score"`
	// Label is positive, negative or neutral.
	Label string `json:"label"`
}

// Market fetches crypto quotes as a proxy for space-sector market mood.
// It depends on the launch capability so quotes are tied to a mission run.
type Market struct {
	baseURL string
	hc      *http.Client
}

// NewMarket creates a market provider against the public API.
func NewMarket() *Market {
	return NewMarketWith(DefaultMarketBaseURL, newHTTPClient())
}

// NewMarketWith creates a market provider with an explicit base URL and
// client, primarily for tests.
func NewMarketWith(baseURL string, hc *http.Client) *Market {
	return &Market{baseURL: baseURL, hc: hc}
}

// ID implements Provider.
func (m *Market) ID() string { return "market" }

// RequiredInputs implements Provider.
func (m *Market) RequiredInputs() []string { return []string{KeyLaunchData} }

// ProducedOutputs implements Provider.
func (m *Market) ProducedOutputs() []string { return []string{KeyMarketData} }

// CanProcess implements Provider.
func (m *Market) CanProcess(c models.Context) bool { return hasInputs(m, c) }

// Invoke fetches quotes for the tracked assets and emits market_data.
func (m *Market) Invoke(ctx context.Context, _ models.Context) (map[string]any, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(trackedCoins, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")

	// CoinGecko returns {"bitcoin": {"usd": 1.0, "usd_24h_change": 2.0}, ...}
	var resp map[string]map[string]float64
	if err := getJSON(ctx, m.hc, m.baseURL+"/simple/price?"+q.Encode(), &resp); err != nil {
		return nil, &Error{Capability: m.ID(), Err: err}
	}

	data := MarketData{Coins: make(map[string]CoinQuote, len(resp))}
	var total float64
	var counted int
	for coin, fields := range resp {
		quote := CoinQuote{
			PriceUSD:  fields["usd"],
			Change24h: fields["usd_24h_change"],
		}
		data.Coins[coin] = quote
		total += quote.Change24h
		counted++
	}
	if counted > 0 {
		// A ±10% mean daily move saturates the score.
		data.SentimentScore = clamp(total/float64(counted)/10, -1, 1)
	}
	data.Label = SentimentLabel(data.SentimentScore)

	return map[string]any{KeyMarketData: data}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
