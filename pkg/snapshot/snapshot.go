// Package snapshot holds last-seen market-data state per symbol for
// change detection: a bounded in-process store evicting by data recency,
// optionally mirrored through the distributed cache so detection state
// survives restarts across a cluster.
package snapshot

// Snapshot is the last accepted observation for a symbol.
type Snapshot struct {
	// Symbol is the instrument symbol.
	Symbol string `json:"symbol"`

	// Checksum is a cheap aggregate over the critical numeric fields,
	// used to short-circuit field-by-field comparison.
	Checksum string `json:"checksum"`

	// CriticalValues are the allow-listed numeric fields last observed.
	CriticalValues map[string]float64 `json:"critical_values"`

	// Timestamp is when this snapshot was taken, in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	values := make(map[string]float64, len(s.CriticalValues))
	for k, v := range s.CriticalValues {
		values[k] = v
	}
	return &Snapshot{
		Symbol:         s.Symbol,
		Checksum:       s.Checksum,
		CriticalValues: values,
		Timestamp:      s.Timestamp,
	}
}
