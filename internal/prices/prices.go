/*
This file generates the synthetic price and sentiment series that drive the
flow engine. Series are fully precomputed at construction from a single seed,
so a run's signals are deterministic and can be replayed bit-identically.

These are deliberately simple trajectory shapes (linear, compound,
trend-with-noise), not market models: realism of the price process is out of
scope, the engine only needs plausible, controllable inputs.
*/

package prices

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/avail-network/stakesim/internal/types"
)

// ProcessType selects the price trajectory shape.
type ProcessType string

const (
	// ProcessConstant holds the starting price flat.
	ProcessConstant ProcessType = "constant"
	// ProcessLinear grows the price by a fixed amount per day.
	ProcessLinear ProcessType = "linear"
	// ProcessCompound grows the price geometrically.
	ProcessCompound ProcessType = "compound"
	// ProcessTrendWithNoise adds Gaussian noise on top of a linear or
	// compound trend.
	ProcessTrendWithNoise ProcessType = "trend_with_noise"
)

const deltaYears = 1.0 / 365.0

// SeriesConfig describes one asset's signal series.
type SeriesConfig struct {
	Process       ProcessType `json:"process" yaml:"process"`
	StartingPrice float64     `json:"starting_price" yaml:"starting_price"`

	// AnnualGrowthPct is the trend over one year, e.g. 0.5 for +50%.
	AnnualGrowthPct float64 `json:"annual_growth_pct" yaml:"annual_growth_pct"`

	// Volatility is the noise standard deviation as a fraction of the current
	// price. Only used by trend_with_noise.
	Volatility float64 `json:"volatility" yaml:"volatility"`

	// NoiseTrend picks the underlying trend for trend_with_noise:
	// "linear" (default) or "compound".
	NoiseTrend string `json:"noise_trend,omitempty" yaml:"noise_trend,omitempty"`

	// Sentiment is the base market-mood value in [-1, 1].
	Sentiment float64 `json:"sentiment" yaml:"sentiment"`

	// SentimentVolatility adds Gaussian noise to the base sentiment, clamped
	// back into [-1, 1]. Zero keeps sentiment constant.
	SentimentVolatility float64 `json:"sentiment_volatility,omitempty" yaml:"sentiment_volatility,omitempty"`
}

// Validate checks a series config.
func (c SeriesConfig) Validate() error {
	switch c.Process {
	case ProcessConstant, ProcessLinear, ProcessCompound, ProcessTrendWithNoise:
	default:
		return fmt.Errorf("unknown price process %q", c.Process)
	}
	if c.StartingPrice <= 0 {
		return fmt.Errorf("starting price must be positive, got %f", c.StartingPrice)
	}
	if c.Volatility < 0 || c.SentimentVolatility < 0 {
		return fmt.Errorf("volatility values must be non-negative")
	}
	if c.Sentiment < -1 || c.Sentiment > 1 {
		return fmt.Errorf("sentiment must be in [-1, 1], got %f", c.Sentiment)
	}
	return nil
}

// LinearGrowth returns timesteps+1 prices growing by a fixed daily increment
// that sums to the annual percentage over the full horizon.
func LinearGrowth(startingPrice, annualPct float64, timesteps int) []float64 {
	perStep := startingPrice * annualPct / float64(timesteps)
	series := make([]float64, timesteps+1)
	for i := range series {
		series[i] = startingPrice + float64(i)*perStep
	}
	return series
}

// CompoundGrowth returns timesteps+1 prices with geometric daily growth
// equivalent to the annual rate.
func CompoundGrowth(startingPrice, annualRate float64, timesteps int) []float64 {
	perStepRate := math.Pow(1+annualRate, deltaYears) - 1
	series := make([]float64, timesteps+1)
	for i := range series {
		series[i] = startingPrice * math.Pow(1+perStepRate, float64(i))
	}
	return series
}

// TrendWithNoise overlays price-proportional Gaussian noise on a trend,
// flooring at 0.1% of the starting price so prices stay positive.
func TrendWithNoise(startingPrice, annualPct, volatility float64, trend string, timesteps int, rng *rand.Rand) []float64 {
	var base []float64
	if trend == "compound" {
		base = CompoundGrowth(startingPrice, annualPct, timesteps)
	} else {
		base = LinearGrowth(startingPrice, annualPct, timesteps)
	}

	floor := 0.001 * startingPrice
	series := make([]float64, len(base))
	for i, price := range base {
		noisy := price + rng.NormFloat64()*volatility*price
		series[i] = math.Max(noisy, floor)
	}
	return series
}

// Source serves precomputed per-timestep signals for every asset.
type Source struct {
	signals []map[types.Asset]types.MarketSignal
}

// NewSource precomputes timesteps+1 signal sets (t=0 through t=timesteps) for
// the configured assets. Assets are processed in sorted order and all
// randomness comes from the single seed, so the same inputs always produce the
// same series.
func NewSource(configs map[types.Asset]SeriesConfig, timesteps int, seed int64) (*Source, error) {
	if timesteps <= 0 {
		return nil, fmt.Errorf("timesteps must be positive, got %d", timesteps)
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("at least one series config is required")
	}

	assets := make([]types.Asset, 0, len(configs))
	for asset := range configs {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })

	rng := rand.New(rand.NewSource(seed))
	perAsset := make(map[types.Asset][]types.MarketSignal, len(configs))

	for _, asset := range assets {
		cfg := configs[asset]
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("series for %s: %w", asset, err)
		}

		var priceSeries []float64
		switch cfg.Process {
		case ProcessConstant:
			priceSeries = make([]float64, timesteps+1)
			for i := range priceSeries {
				priceSeries[i] = cfg.StartingPrice
			}
		case ProcessLinear:
			priceSeries = LinearGrowth(cfg.StartingPrice, cfg.AnnualGrowthPct, timesteps)
		case ProcessCompound:
			priceSeries = CompoundGrowth(cfg.StartingPrice, cfg.AnnualGrowthPct, timesteps)
		case ProcessTrendWithNoise:
			priceSeries = TrendWithNoise(cfg.StartingPrice, cfg.AnnualGrowthPct, cfg.Volatility, cfg.NoiseTrend, timesteps, rng)
		}

		signals := make([]types.MarketSignal, timesteps+1)
		for i := range signals {
			sentiment := cfg.Sentiment
			if cfg.SentimentVolatility > 0 {
				sentiment += rng.NormFloat64() * cfg.SentimentVolatility
			}
			sentiment = math.Max(-1, math.Min(1, sentiment))
			signals[i] = types.MarketSignal{Price: priceSeries[i], Sentiment: sentiment}
		}
		perAsset[asset] = signals
	}

	source := &Source{signals: make([]map[types.Asset]types.MarketSignal, timesteps+1)}
	for t := 0; t <= timesteps; t++ {
		step := make(map[types.Asset]types.MarketSignal, len(assets))
		for _, asset := range assets {
			step[asset] = perAsset[asset][t]
		}
		source.signals[t] = step
	}
	return source, nil
}

// At returns the signal set for the timestep.
func (s *Source) At(timestep int) (map[types.Asset]types.MarketSignal, error) {
	if timestep < 0 || timestep >= len(s.signals) {
		return nil, fmt.Errorf("timestep %d outside generated range [0, %d]", timestep, len(s.signals)-1)
	}
	return s.signals[timestep], nil
}

// Horizon returns the last timestep the source can serve.
func (s *Source) Horizon() int {
	return len(s.signals) - 1
}
