package detector

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// checksumPrecision is the number of decimal places values are rounded
// to before hashing, so float jitter below it cannot cause false
// positives.
const checksumPrecision = 4

// roundValue normalizes a float for comparison and hashing.
func roundValue(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(checksumPrecision)
}

// computeChecksum produces a cheap aggregate over the critical values.
// Equal checksums short-circuit the field-by-field diff entirely.
func computeChecksum(values map[string]float64) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(roundValue(values[name]).String())
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}
