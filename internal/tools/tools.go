// Package tools classifies queries and dispatches them to the stub API
// collaborators: a weather service, a market-data service, and a local
// arithmetic evaluator.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
)

// Kind is the classified API type for a tools_apis query.
type Kind string

const (
	KindWeather     Kind = "weather"
	KindStock       Kind = "stock"
	KindCalculation Kind = "calculation"
	KindGeneral     Kind = "general"
)

var (
	weatherCues = []string{"weather", "temperature", "rain", "sunny", "cloudy", "forecast"}
	stockCues   = []string{"stock", "price", "market", "trading", "shares"}
	calcCues    = []string{"calculate", "math", "compute", "+", "-", "*", "/", "equation"}
)

// Classify picks the API type by keyword match over the query text.
func Classify(query string) Kind {
	q := strings.ToLower(query)
	for _, cue := range weatherCues {
		if strings.Contains(q, cue) {
			return KindWeather
		}
	}
	for _, cue := range stockCues {
		if strings.Contains(q, cue) {
			return KindStock
		}
	}
	for _, cue := range calcCues {
		if strings.Contains(q, cue) {
			return KindCalculation
		}
	}
	return KindGeneral
}

// Invoker dispatches classified queries. Empty service URLs switch the
// matching branch to deterministic mock payloads, so the workflow keeps
// working with nothing deployed. Failures come back inside the payload
// under "error", never as a Go error.
type Invoker struct {
	WeatherURL string
	MarketURL  string
	client     *http.Client
}

func NewInvoker(weatherURL, marketURL string) *Invoker {
	return &Invoker{
		WeatherURL: weatherURL,
		MarketURL:  marketURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Classify satisfies the workflow's ToolInvoker interface.
func (i *Invoker) Classify(query string) string {
	return string(Classify(query))
}

func (i *Invoker) Invoke(ctx context.Context, query, kind string) map[string]any {
	switch Kind(kind) {
	case KindWeather:
		return i.weather(ctx, query)
	case KindStock:
		return i.stock(ctx, query)
	case KindCalculation:
		return Calculate(query)
	default:
		return map[string]any{"error": fmt.Sprintf("API type %q not supported", kind)}
	}
}

func (i *Invoker) weather(ctx context.Context, query string) map[string]any {
	city := cityFromQuery(query)
	if i.WeatherURL == "" {
		return map[string]any{
			"city":        city,
			"weather":     "sunny",
			"temperature": "22°C",
			"note":        "mock weather data - weather service not configured",
		}
	}
	endpoint := strings.TrimRight(i.WeatherURL, "/") + "/weather?city=" + url.QueryEscape(city)
	return i.get(ctx, endpoint)
}

func (i *Invoker) stock(ctx context.Context, query string) map[string]any {
	symbol := symbolFromQuery(query)
	if i.MarketURL == "" {
		return map[string]any{
			"symbol": symbol,
			"price":  "$150.25",
			"change": "+2.5%",
			"note":   "mock stock data - market service not configured",
		}
	}
	endpoint := strings.TrimRight(i.MarketURL, "/") + "/quote?symbol=" + url.QueryEscape(symbol)
	return i.get(ctx, endpoint)
}

func (i *Invoker) get(ctx context.Context, endpoint string) map[string]any {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return map[string]any{"error": "API call failed: " + err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return map[string]any{"error": fmt.Sprintf("API call failed: http %d", resp.StatusCode)}
	}
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return map[string]any{"error": "API call failed: " + err.Error()}
	}
	return payload
}

// cityFromQuery takes the phrase after "in", e.g. "weather in Paris today"
// yields "Paris". Defaults to London when no city is named.
func cityFromQuery(query string) string {
	words := strings.Fields(query)
	for idx, w := range words {
		if strings.EqualFold(w, "in") && idx+1 < len(words) {
			return strings.TrimFunc(words[idx+1], func(r rune) bool {
				return !unicode.IsLetter(r)
			})
		}
	}
	return "London"
}

// symbolFromQuery picks the first all-uppercase token of 2-5 letters,
// defaulting to AAPL.
func symbolFromQuery(query string) string {
	for _, w := range strings.Fields(query) {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) })
		if len(w) >= 2 && len(w) <= 5 && w == strings.ToUpper(w) && w != strings.ToLower(w) {
			return w
		}
	}
	return "AAPL"
}
