package detector

// MarketStatus is the trading-session phase that modulates how sensitive
// change detection is.
type MarketStatus string

const (
	StatusTrading    MarketStatus = "trading"
	StatusPreMarket  MarketStatus = "pre_market"
	StatusAfterHours MarketStatus = "after_hours"
	StatusClosed     MarketStatus = "closed"
	StatusWeekend    MarketStatus = "weekend"
	StatusHoliday    MarketStatus = "holiday"
)

// IsTradingSession reports whether any change at all should propagate.
// During an active session liquidity makes even small moves meaningful.
func (s MarketStatus) IsTradingSession() bool {
	return s == StatusTrading
}

// defaultStatusThresholds maps session phase to the minimum relative
// change that counts as significant. Trading sessions are tightest;
// closed/weekend/holiday data is noisier and less actionable, so the
// bar rises progressively.
var defaultStatusThresholds = map[MarketStatus]float64{
	StatusTrading:    0.001,
	StatusPreMarket:  0.005,
	StatusAfterHours: 0.005,
	StatusClosed:     0.01,
	StatusWeekend:    0.02,
	StatusHoliday:    0.02,
}

// threshold returns the significance threshold for a status, falling
// back to the closed-market value for unknown phases.
func (c Config) threshold(status MarketStatus) float64 {
	if t, ok := c.StatusThresholds[status]; ok {
		return t
	}
	return c.StatusThresholds[StatusClosed]
}
