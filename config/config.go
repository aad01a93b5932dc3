package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/krazyTry/gamma-go/gamma/shared"
)

// MintConfig describes one side of the simulated pool.
type MintConfig struct {
	Address   string
	Decimals  uint8
	Token2022 bool
	// Transfer fee; zero BasisPoints means the mint has no fee.
	TransferFeeBps uint16
	TransferFeeMax uint64
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL   string
	PGDSN    string
	LogLevel string

	TradeFeeRate    uint64
	ProtocolFeeRate uint64
	FundFeeRate     uint64
	ReferralProject string

	PoolID   string
	Reserve0 uint64
	Reserve1 uint64
	OpenTime uint64
	Token0   MintConfig
	Token1   MintConfig

	TwapWindow           uint64
	VolatilityFactor     uint64
	MaxFeeRate           uint64
	SegmenterDiscountBps uint64

	Epoch     uint64
	Timestamp uint64
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GAMMA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("trade-fee-rate", uint64(2_500))
	v.SetDefault("protocol-fee-rate", uint64(120_000))
	v.SetDefault("fund-fee-rate", uint64(40_000))
	v.SetDefault("reserve0", uint64(1_000_000_000))
	v.SetDefault("reserve1", uint64(1_000_000_000))
	v.SetDefault("token0-decimals", 9)
	v.SetDefault("token1-decimals", 6)
	v.SetDefault("twap-window", uint64(300))

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("gamma")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:   v.GetString("rpc"),
		PGDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),

		TradeFeeRate:    v.GetUint64("trade-fee-rate"),
		ProtocolFeeRate: v.GetUint64("protocol-fee-rate"),
		FundFeeRate:     v.GetUint64("fund-fee-rate"),
		ReferralProject: v.GetString("referral-project"),

		PoolID:   v.GetString("pool"),
		Reserve0: v.GetUint64("reserve0"),
		Reserve1: v.GetUint64("reserve1"),
		OpenTime: v.GetUint64("open-time"),
		Token0:   mintConfig(v, "token0"),
		Token1:   mintConfig(v, "token1"),

		TwapWindow:           v.GetUint64("twap-window"),
		VolatilityFactor:     v.GetUint64("volatility-factor"),
		MaxFeeRate:           v.GetUint64("max-fee-rate"),
		SegmenterDiscountBps: v.GetUint64("segmenter-discount-bps"),

		Epoch:     v.GetUint64("epoch"),
		Timestamp: v.GetUint64("timestamp"),
	}

	return cfg, cfg.Validate()
}

func mintConfig(v *viper.Viper, prefix string) MintConfig {
	return MintConfig{
		Address:        v.GetString(prefix + "-mint"),
		Decimals:       uint8(v.GetUint(prefix + "-decimals")),
		Token2022:      v.GetBool(prefix + "-token2022"),
		TransferFeeBps: uint16(v.GetUint(prefix + "-transfer-fee-bps")),
		TransferFeeMax: v.GetUint64(prefix + "-transfer-fee-max"),
	}
}

// Validate rejects rates the swap core would refuse.
func (c Config) Validate() error {
	if c.TradeFeeRate >= shared.FeeRateDenominator {
		return fmt.Errorf("%w: trade-fee-rate %d", shared.ErrInvalidConfig, c.TradeFeeRate)
	}
	if c.ProtocolFeeRate+c.FundFeeRate > shared.FeeRateDenominator {
		return fmt.Errorf("%w: protocol-fee-rate + fund-fee-rate exceed %d", shared.ErrInvalidConfig, shared.FeeRateDenominator)
	}
	if c.SegmenterDiscountBps > shared.BasisPointMax {
		return fmt.Errorf("%w: segmenter-discount-bps %d", shared.ErrInvalidConfig, c.SegmenterDiscountBps)
	}
	for _, m := range []MintConfig{c.Token0, c.Token1} {
		if m.TransferFeeBps > shared.BasisPointMax {
			return fmt.Errorf("%w: transfer fee %d bps", shared.ErrInvalidConfig, m.TransferFeeBps)
		}
		if m.TransferFeeBps > 0 && !m.Token2022 {
			return fmt.Errorf("%w: transfer fee on a legacy mint", shared.ErrInvalidConfig)
		}
	}
	return nil
}
