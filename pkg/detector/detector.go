// Package detector decides whether freshly fetched market data differs
// meaningfully from what was last cached: a checksum fast path skips
// unchanged payloads, and on mismatch a field-level diff with
// session-aware thresholds classifies the change with a reason code and
// confidence score.
package detector

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/market-cache/pkg/logging"
	"github.com/Sternrassler/market-cache/pkg/snapshot"
)

// Reason classifies a detection verdict.
type Reason string

const (
	ReasonFirstTime             Reason = "first_time"
	ReasonNoChange              Reason = "no_change"
	ReasonPriceSignificant      Reason = "price_significant"
	ReasonTradingAnyChange      Reason = "trading_any_change"
	ReasonNonTradingSignificant Reason = "non_trading_significant"
	ReasonNotSignificant        Reason = "not_significant"
	ReasonDetectionFailed       Reason = "detection_failed"
)

// Result is the outcome of one detection call. It is a pure output
// value and is not stored.
type Result struct {
	HasChanged         bool     `json:"has_changed"`
	ChangedFields      []string `json:"changed_fields,omitempty"`
	SignificantChanges []string `json:"significant_changes,omitempty"`
	Reason             Reason   `json:"reason"`
	Confidence         float64  `json:"confidence"`
}

// Config holds the detection thresholds.
type Config struct {
	// PriceThreshold is the relative change on a price-family field that
	// dominates the verdict regardless of session phase.
	PriceThreshold float64

	// StatusThresholds maps session phase to the minimum relative change
	// counting as significant for non-price fields.
	StatusThresholds map[MarketStatus]float64
}

// DefaultConfig returns the default threshold configuration.
func DefaultConfig() Config {
	thresholds := make(map[MarketStatus]float64, len(defaultStatusThresholds))
	for status, t := range defaultStatusThresholds {
		thresholds[status] = t
	}
	return Config{
		PriceThreshold:   0.0005,
		StatusThresholds: thresholds,
	}
}

// Engine performs change detection against a snapshot store.
type Engine struct {
	store  *snapshot.Store
	config Config
	logger zerolog.Logger
}

// New creates a detection engine.
func New(store *snapshot.Store, config Config) *Engine {
	if store == nil {
		panic("snapshot store cannot be nil")
	}
	if config.PriceThreshold <= 0 {
		config.PriceThreshold = 0.0005
	}
	if len(config.StatusThresholds) == 0 {
		config.StatusThresholds = DefaultConfig().StatusThresholds
	}
	return &Engine{
		store:  store,
		config: config,
		logger: logging.NewLogger("detector"),
	}
}

// DetectSignificantChange decides whether newData (a raw market-data
// payload) should propagate for symbol, given the market and its current
// session phase. Faults inside the comparison pipeline never propagate:
// they yield a conservative "assume changed" verdict, since dropping a
// real change is worse than over-propagating.
func (e *Engine) DetectSignificantChange(ctx context.Context, symbol string, newData []byte, market string, status MarketStatus) (result Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("symbol", symbol).
				Any("panic", r).
				Msg("Detection pipeline fault, assuming changed")
			result = failedResult()
		}
		Detections.WithLabelValues(string(result.Reason)).Inc()
		DetectionDuration.Observe(time.Since(start).Seconds())
	}()

	values := extractCriticalValues(newData)
	if len(values) == 0 {
		// Nothing extractable means either corrupt data or an unknown
		// shape; either way the comparison cannot be trusted.
		e.logger.Warn().
			Str("symbol", symbol).
			Str("market", market).
			Msg("No critical fields extractable, assuming changed")
		return failedResult()
	}

	checksum := computeChecksum(values)
	prior := e.store.Get(ctx, symbol)

	if prior == nil {
		e.persist(ctx, symbol, checksum, values)
		return Result{
			HasChanged:    true,
			ChangedFields: fieldNames(values),
			Reason:        ReasonFirstTime,
			Confidence:    1.0,
		}
	}

	// Checksum fast path: identical rounded critical values need no
	// field diff.
	if checksum == prior.Checksum {
		return Result{Reason: ReasonNoChange, Confidence: 1.0}
	}

	result = e.compare(values, prior.CriticalValues, status)
	if result.HasChanged {
		e.persist(ctx, symbol, checksum, values)
	}
	return result
}

// compare performs the field-level diff with two-tier sensitivity:
// price-family moves over PriceThreshold short-circuit the verdict, and
// the remaining fields are held against the session-phase threshold.
func (e *Engine) compare(values, prior map[string]float64, status MarketStatus) Result {
	threshold := e.config.threshold(status)

	var changed []string
	var significant []string

	for _, field := range criticalFields {
		newValue, okNew := values[field.Name]
		oldValue, okOld := prior[field.Name]
		if !okNew || !okOld {
			continue
		}
		if roundValue(newValue).Equal(roundValue(oldValue)) {
			continue
		}
		changed = append(changed, field.Name)

		ratio := changeRatio(oldValue, newValue)

		// Price moves dominate: a tripped price-family field decides
		// the whole verdict.
		if field.PriceFamily && ratio > e.config.PriceThreshold {
			return Result{
				HasChanged:         true,
				ChangedFields:      changed,
				SignificantChanges: append(significant, field.Name),
				Reason:             ReasonPriceSignificant,
				Confidence:         0.95,
			}
		}

		if ratio > threshold {
			significant = append(significant, field.Name)
		}
	}

	if len(changed) == 0 {
		// The checksum mismatch came from a field present on only one
		// side; nothing comparable actually moved.
		return Result{Reason: ReasonNotSignificant, Confidence: 0.7}
	}

	if status.IsTradingSession() {
		return Result{
			HasChanged:         true,
			ChangedFields:      changed,
			SignificantChanges: significant,
			Reason:             ReasonTradingAnyChange,
			Confidence:         0.8,
		}
	}

	if len(significant) > 0 {
		return Result{
			HasChanged:         true,
			ChangedFields:      changed,
			SignificantChanges: significant,
			Reason:             ReasonNonTradingSignificant,
			Confidence:         0.9,
		}
	}

	return Result{
		ChangedFields: changed,
		Reason:        ReasonNotSignificant,
		Confidence:    0.7,
	}
}

// changeRatio is the relative change versus the baseline, or the
// absolute delta when the baseline is exactly zero.
func changeRatio(oldValue, newValue float64) float64 {
	delta := math.Abs(newValue - oldValue)
	if oldValue == 0 {
		return delta
	}
	return delta / math.Abs(oldValue)
}

func (e *Engine) persist(ctx context.Context, symbol, checksum string, values map[string]float64) {
	e.store.Put(ctx, &snapshot.Snapshot{
		Symbol:         symbol,
		Checksum:       checksum,
		CriticalValues: values,
		Timestamp:      time.Now().UnixMilli(),
	})
}

func failedResult() Result {
	return Result{
		HasChanged: true,
		Reason:     ReasonDetectionFailed,
		Confidence: 0.5,
	}
}

func fieldNames(values map[string]float64) []string {
	names := make([]string, 0, len(values))
	for _, field := range criticalFields {
		if _, ok := values[field.Name]; ok {
			names = append(names, field.Name)
		}
	}
	return names
}
