package models

import "time"

// RateRecord maps an ISO currency code to units of that currency per USD.
type RateRecord map[string]float64

// Listing is one token entry from the listings source, all amounts in USD.
type Listing struct {
	Symbol            string  `json:"symbol"`
	PriceUSD          float64 `json:"price_usd"`
	Volume24hUSD      float64 `json:"volume_24h_usd"`
	CirculatingSupply float64 `json:"circulating_supply"`
}

// ListingRecord maps a token symbol to its listing.
type ListingRecord map[string]Listing

// AggregatedView is the combined ticker view served to callers.
// Currency values are fixed two-place strings; Volume and Supply are in millions with an M suffix.
type AggregatedView struct {
	Anchor      string            `json:"anchor"`
	Price       string            `json:"price"`
	Volume      string            `json:"vol"`
	Supply      string            `json:"supply"`
	Fiat        map[string]string `json:"fiat"`
	ERC20       map[string]string `json:"erc20"`
	Omitted     []string          `json:"omitted,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Partial reports whether any derived field was omitted.
func (v *AggregatedView) Partial() bool {
	return v != nil && len(v.Omitted) > 0
}

// NarrowFiat returns a copy of the view restricted to a single fiat currency.
func (v *AggregatedView) NarrowFiat(code string) *AggregatedView {
	out := *v
	out.Fiat = map[string]string{}
	if val, ok := v.Fiat[code]; ok {
		out.Fiat[code] = val
	}
	return &out
}
