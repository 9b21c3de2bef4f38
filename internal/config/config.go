package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Network  string
	RPCURL   string
	WSURL    string
	PgDSN    string
	LogLevel string

	Simulation Simulation
}

// Simulation sizes the scenario run by the simulate command.
type Simulation struct {
	BaseAmount  uint64
	QuoteAmount uint64
	SwapAmount  uint64
	Steps       int
}

// Load merges config file, environment variables, and flags into Config.
// Environment variables use the RAYDIUM_ prefix, with dashes as underscores.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RAYDIUM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("network", "")
	v.SetDefault("rpc", "https://api.mainnet-beta.solana.com")
	v.SetDefault("ws", "wss://api.mainnet-beta.solana.com")
	v.SetDefault("pg-dsn", "")
	v.SetDefault("log-level", "info")
	v.SetDefault("base-amount", uint64(1_000_000_000_000))
	v.SetDefault("quote-amount", uint64(2_000_000_000))
	v.SetDefault("swap-amount", uint64(10_000_000_000))
	v.SetDefault("steps", 3)

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
		v.SetConfigName("raydium")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Network:  v.GetString("network"),
		RPCURL:   v.GetString("rpc"),
		WSURL:    v.GetString("ws"),
		PgDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
		Simulation: Simulation{
			BaseAmount:  v.GetUint64("base-amount"),
			QuoteAmount: v.GetUint64("quote-amount"),
			SwapAmount:  v.GetUint64("swap-amount"),
			Steps:       v.GetInt("steps"),
		},
	}
	if cfg.Simulation.Steps < 0 {
		return Config{}, fmt.Errorf("steps must not be negative")
	}
	return cfg, nil
}
