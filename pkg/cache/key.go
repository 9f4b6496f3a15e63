package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Key identifies a cached market-data payload.
type Key struct {
	// Prefix is the payload class (e.g. "quote", "snapshot", "orderbook").
	Prefix string

	// Symbol is the instrument symbol (e.g. "AAPL", "700.HK").
	Symbol string

	// Params are additional qualifiers (e.g. {"market": "US"}).
	Params map[string]string
}

// String generates a deterministic cache key string.
// Format: md:prefix:symbol:param1=val1:param2=val2
//
// Example:
//
//	md:quote:AAPL:market=US
func (k Key) String() string {
	parts := []string{"md"}

	if prefix := strings.Trim(k.Prefix, ":"); prefix != "" {
		parts = append(parts, prefix)
	}
	if k.Symbol != "" {
		parts = append(parts, k.Symbol)
	}

	// Params sorted for determinism
	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params[name]))
		}
	}

	return strings.Join(parts, ":")
}

// Pattern returns a glob matching every key in this prefix/symbol scope,
// suitable for DelByPattern.
func (k Key) Pattern() string {
	parts := []string{"md"}
	if prefix := strings.Trim(k.Prefix, ":"); prefix != "" {
		parts = append(parts, prefix)
	}
	if k.Symbol != "" {
		parts = append(parts, k.Symbol)
	}
	return strings.Join(parts, ":") + ":*"
}
