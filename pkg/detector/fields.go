package detector

import (
	"math"
	"strconv"

	"github.com/tidwall/gjson"
)

// criticalField is one entry of the fixed allow-list of numeric
// market-data attributes tracked for change detection.
type criticalField struct {
	// Name is the canonical field name used in snapshots and results.
	Name string

	// Paths are gjson lookup paths tried in order against the incoming
	// payload, covering flat, snake_case and nested quote-array shapes.
	Paths []string

	// PriceFamily marks fields whose moves dominate the verdict.
	PriceFamily bool
}

// criticalFields is the allow-list, in comparison order.
var criticalFields = []criticalField{
	{Name: "lastPrice", Paths: []string{"lastPrice", "last_price", "price", "quote.0.lastPrice", "quote.0.price"}, PriceFamily: true},
	{Name: "change", Paths: []string{"change", "quote.0.change"}},
	{Name: "changePercent", Paths: []string{"changePercent", "change_percent", "quote.0.changePercent"}},
	{Name: "volume", Paths: []string{"volume", "quote.0.volume"}},
	{Name: "high", Paths: []string{"high", "dayHigh", "quote.0.high"}, PriceFamily: true},
	{Name: "low", Paths: []string{"low", "dayLow", "quote.0.low"}, PriceFamily: true},
	{Name: "open", Paths: []string{"open", "quote.0.open"}, PriceFamily: true},
	{Name: "bid", Paths: []string{"bid", "bidPrice", "quote.0.bid"}, PriceFamily: true},
	{Name: "ask", Paths: []string{"ask", "askPrice", "quote.0.ask"}, PriceFamily: true},
	{Name: "bidSize", Paths: []string{"bidSize", "bid_size", "quote.0.bidSize"}},
	{Name: "askSize", Paths: []string{"askSize", "ask_size", "quote.0.askSize"}},
}

// extractValue resolves a field against the payload, trying each lookup
// path in order. Returns false when no path yields a number; malformed
// segments never raise.
func extractValue(data []byte, field criticalField) (float64, bool) {
	for _, path := range field.Paths {
		res := gjson.GetBytes(data, path)
		if !res.Exists() {
			continue
		}
		switch res.Type {
		case gjson.Number:
			return res.Float(), true
		case gjson.String:
			// Some upstream feeds quote their numbers.
			f, err := strconv.ParseFloat(res.Str, 64)
			if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
				return f, true
			}
		}
	}
	return 0, false
}

// extractCriticalValues pulls every resolvable critical field out of a
// payload. Fields absent from the payload are simply omitted.
func extractCriticalValues(data []byte) map[string]float64 {
	values := make(map[string]float64, len(criticalFields))
	for _, field := range criticalFields {
		if v, ok := extractValue(data, field); ok {
			values[field.Name] = v
		}
	}
	return values
}
