package types

// Asset identifies a stakeable token kind. The set is open: scenarios may
// register any asset symbol, each backed by exactly one pool and one
// price/sentiment series.
type Asset string

// Common assets used by the default scenario. Scenarios are free to define others.
const (
	AssetAVL Asset = "AVL"
	AssetETH Asset = "ETH"
	AssetBTC Asset = "BTC"
)

// PoolLifecycle is the admin-controlled lifecycle state of a pool.
type PoolLifecycle string

const (
	// PoolInactive pools exist but have not been activated yet (no rewards, no flows).
	PoolInactive PoolLifecycle = "inactive"
	// PoolActive pools participate in rewards and flows.
	PoolActive PoolLifecycle = "active"
	// PoolPaused pools block new deposits but still allow withdrawals.
	PoolPaused PoolLifecycle = "paused"
	// PoolDeleted is terminal: balance frozen at zero, no further processing.
	PoolDeleted PoolLifecycle = "deleted"
)

// MarketSignal is the per-asset exogenous input for one timestep.
// Price is in USD and must be positive; Sentiment is in [-1, 1].
type MarketSignal struct {
	Price     float64 `json:"price"`
	Sentiment float64 `json:"sentiment"`
}
