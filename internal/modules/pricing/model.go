// README: Pricing rate table and the config keys it is loaded from.
package pricing

const (
	KeyPrefix        = "pricing_"
	KeyBaseRatePerKm = "pricing_base_rate_per_km"
	KeyMinimumCharge = "pricing_minimum_charge"
	KeyWorkerRate    = "pricing_worker_rate"
)

// Rates are the tunables of the cost formula, all in credits.
type Rates struct {
	BaseRatePerKm float64 `json:"base_rate_per_km"`
	MinimumCharge float64 `json:"minimum_charge"`
	WorkerRate    float64 `json:"worker_rate"`
}

// DefaultRates apply to any key missing from system_config.
var DefaultRates = Rates{
	BaseRatePerKm: 1,
	MinimumCharge: 5,
	WorkerRate:    50,
}
