package models

// SecurityProfile describes one monitored security. MarketValue is the
// tradable (free-float) market value computed once per session from the
// opening reference price times the float share count. A security whose
// market value cannot be resolved has no profile at all; absence is
// distinguishable from a legitimately tiny value.
type SecurityProfile struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	MarketValue float64 `json:"market_value"`
}
