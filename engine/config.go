// Package engine orchestrates the matchcore stages: it owns the
// risk/matching/marketdata components, wires them together over bounded
// queues, and exposes the single entry point external callers use to
// submit orders and cancels (§4.5).
package engine

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"matchcore/fxp"
	"matchcore/risk"
)

func intoPosition(v int64) fxp.Position { return fxp.Position(v) }
func intoNotional(v int64) fxp.Notional { return fxp.Notional(v * fxp.Scale) }
func intoPrice(v int64) fxp.Price       { return fxp.Price(v * fxp.Scale) }

// Config holds every recognized option from §6's configuration table.
// Values are expressed in real (unscaled) decimal units at load time and
// converted to fixed-point once, here, rather than at every call site.
type Config struct {
	MaxPosition        int64
	MaxNotional        int64
	MaxOrdersPerSecond float64
	MaxLossPerDay      int64
	MaxOrderSize       uint64
	MaxPriceDeviation  int64

	QueueCapacity int
	OrderPoolSize int
	TradePoolSize int
	LevelPoolSize int
}

// LoadConfig reads configuration from a .env file (if present) and the
// process environment, the same two-layer precedence the rest of the
// pack's services use (godotenv for local dev, then the environment wins).
// path may be empty, in which case only the environment is consulted.
func LoadConfig(path string) (Config, error) {
	if path != "" {
		_ = godotenv.Load(path) // missing .env is not an error; env vars still apply
	}

	v := viper.New()
	v.SetEnvPrefix("MATCHCORE")
	v.AutomaticEnv()

	v.SetDefault("MAX_POSITION", 100_000)
	v.SetDefault("MAX_NOTIONAL", 10_000_000)
	v.SetDefault("MAX_ORDERS_PER_SECOND", 1000.0)
	v.SetDefault("MAX_LOSS_PER_DAY", 50_000)
	v.SetDefault("MAX_ORDER_SIZE", 10_000)
	v.SetDefault("MAX_PRICE_DEVIATION", 1000)
	v.SetDefault("QUEUE_CAPACITY", 4096)
	v.SetDefault("ORDER_POOL_SIZE", 65536)
	v.SetDefault("TRADE_POOL_SIZE", 65536)
	v.SetDefault("LEVEL_POOL_SIZE", 4096)

	return Config{
		MaxPosition:        v.GetInt64("MAX_POSITION"),
		MaxNotional:        v.GetInt64("MAX_NOTIONAL"),
		MaxOrdersPerSecond: v.GetFloat64("MAX_ORDERS_PER_SECOND"),
		MaxLossPerDay:      v.GetInt64("MAX_LOSS_PER_DAY"),
		MaxOrderSize:       uint64(v.GetInt64("MAX_ORDER_SIZE")),
		MaxPriceDeviation:  v.GetInt64("MAX_PRICE_DEVIATION"),
		QueueCapacity:      v.GetInt("QUEUE_CAPACITY"),
		OrderPoolSize:      v.GetInt("ORDER_POOL_SIZE"),
		TradePoolSize:      v.GetInt("TRADE_POOL_SIZE"),
		LevelPoolSize:      v.GetInt("LEVEL_POOL_SIZE"),
	}, nil
}

// RiskLimits converts the loaded Config into fixed-point risk.Limits.
func (c Config) RiskLimits() risk.Limits {
	return risk.Limits{
		MaxPosition:         intoPosition(c.MaxPosition),
		MaxNotional:         intoNotional(c.MaxNotional),
		MaxOrderSize:        fxp.Qty(c.MaxOrderSize),
		MaxPriceDeviation:   intoPrice(c.MaxPriceDeviation),
		MaxLossPerDay:       intoNotional(c.MaxLossPerDay),
		MaxOrdersPerSecond:  c.MaxOrdersPerSecond,
		TokenBucketCapacity: c.MaxOrdersPerSecond,
	}
}
