package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mkell/chainlend/internal/chain"
)

// Config holds application configuration.
type Config struct {
	Chain    ChainConfig
	Database DatabaseConfig
	UI       UIConfig
}

// ChainConfig holds node and contract settings.
type ChainConfig struct {
	RPCURL          string `mapstructure:"rpc_url"`
	RPCFallbackURL  string `mapstructure:"rpc_fallback_url"`
	ContractAddress string `mapstructure:"contract_address"`
}

// DatabaseConfig holds sqlite settings for the activity journal.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	FiatCurrency    string `mapstructure:"fiat_currency"`
	AccountPollSecs int    `mapstructure:"account_poll_secs"`
	Timezone        string `mapstructure:"timezone"`
}

// Load reads configuration from file and env. Env var overrides use prefix CHAINLEND_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("chain.rpc_url", chain.DefaultRPCURL)
	v.SetDefault("chain.rpc_fallback_url", "")
	v.SetDefault("chain.contract_address", chain.LendingContractAddress)
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "chainlend", "chainlend.db"))
	v.SetDefault("ui.fiat_currency", "usd")
	v.SetDefault("ui.account_poll_secs", 5)
	v.SetDefault("ui.timezone", "")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("CHAINLEND_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "chainlend"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("CHAINLEND")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := os.Getenv("CHAINLEND_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "chainlend", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("chain.rpc_url", cfg.Chain.RPCURL)
	v.Set("chain.rpc_fallback_url", cfg.Chain.RPCFallbackURL)
	v.Set("chain.contract_address", cfg.Chain.ContractAddress)
	v.Set("database.path", cfg.Database.Path)
	v.Set("ui.fiat_currency", cfg.UI.FiatCurrency)
	v.Set("ui.account_poll_secs", cfg.UI.AccountPollSecs)
	v.Set("ui.timezone", cfg.UI.Timezone)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
