// Package config loads operator settings from flags, environment variables,
// an optional .env file and an optional rewards.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/cosmo-local-credit/rewards/publish"
	"github.com/cosmo-local-credit/rewards/publish/contracts/rewarddistribution"
	"github.com/cosmo-local-credit/rewards/publish/deployargs"
	"github.com/cosmo-local-credit/rewards/publish/verify"
)

const (
	KeyConfigFile     = "config"
	KeyNetwork        = "network"
	KeyArgs           = "args"
	KeyArtifacts      = "artifacts"
	KeyRPCURL         = "rpc-url"
	KeyChainID        = "chain-id"
	KeyPrivateKey     = "private-key"
	KeyGasFeeCap      = "gas-fee-cap"
	KeyGasTipCap      = "gas-tip-cap"
	KeyGasLimit       = "gas-limit"
	KeyTimeoutSeconds = "timeout-seconds"
	KeyExplorerURL    = "explorer-api-url"
	KeyExplorerKey    = "explorer-api-key"
	KeyVerifyPoll     = "verify-poll-seconds"
	KeyLogLevel       = "log-level"

	EnvPrefix = "REWARDS"
)

// Config holds the resolved settings for one command run.
type Config struct {
	Network            string
	ArgsPath           string
	ArtifactsDir       string
	RPCURL             string
	ChainID            int64
	PrivateKeys        []string
	GasFeeCap          int64
	GasTipCap          int64
	GasLimit           uint64
	Timeout            time.Duration
	ExplorerAPIURL     string
	ExplorerAPIKey     string
	VerifyPollInterval time.Duration
	LogLevel           slog.Level
}

// Network is one entry under `networks:` in rewards.yaml.
type Network struct {
	RPCURL         string `mapstructure:"rpc-url"`
	ChainID        int64  `mapstructure:"chain-id"`
	ExplorerAPIURL string `mapstructure:"explorer-api-url"`
}

// Defaults registers fallback values. Keys a network section may supply
// (rpc-url, chain-id, explorer-api-url) must stay unset here.
func Defaults(v *viper.Viper) {
	v.SetDefault(KeyArgs, deployargs.DefaultPath)
	v.SetDefault(KeyArtifacts, "./artifacts")
	v.SetDefault(KeyGasFeeCap, int64(2_000_000_000))
	v.SetDefault(KeyGasTipCap, int64(1_000_000_000))
	v.SetDefault(KeyGasLimit, rewarddistribution.GasLimit)
	v.SetDefault(KeyTimeoutSeconds, 600)
	v.SetDefault(KeyVerifyPoll, 5)
	v.SetDefault(KeyLogLevel, "info")
}

// BindEnv maps REWARDS_* variables onto keys, plus the names hardhat
// projects already keep in .env.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	aliases := map[string]string{
		KeyRPCURL:      "RPC_URL",
		KeyChainID:     "CHAIN_ID",
		KeyPrivateKey:  "PRIVATE_KEY",
		KeyExplorerKey: "ETHERSCAN_API_KEY",
	}
	for key, alias := range aliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// LoadDotEnv loads .env into the process environment if present. Existing
// variables win.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load resolves a Config from v. Values set explicitly (flag, env, top-level
// config) take precedence over the selected network section.
func Load(v *viper.Viper) (Config, error) {
	if err := readConfigFile(v); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Network:            strings.TrimSpace(v.GetString(KeyNetwork)),
		ArgsPath:           v.GetString(KeyArgs),
		ArtifactsDir:       v.GetString(KeyArtifacts),
		RPCURL:             strings.TrimSpace(v.GetString(KeyRPCURL)),
		ChainID:            v.GetInt64(KeyChainID),
		PrivateKeys:        splitCSV(v.GetString(KeyPrivateKey)),
		GasFeeCap:          v.GetInt64(KeyGasFeeCap),
		GasTipCap:          v.GetInt64(KeyGasTipCap),
		GasLimit:           v.GetUint64(KeyGasLimit),
		Timeout:            time.Duration(v.GetInt(KeyTimeoutSeconds)) * time.Second,
		ExplorerAPIURL:     strings.TrimSpace(v.GetString(KeyExplorerURL)),
		ExplorerAPIKey:     strings.TrimSpace(v.GetString(KeyExplorerKey)),
		VerifyPollInterval: time.Duration(v.GetInt(KeyVerifyPoll)) * time.Second,
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return Config{}, fmt.Errorf("log-level: %w", err)
	}

	if cfg.Network != "" {
		sub := v.Sub("networks." + cfg.Network)
		if sub == nil {
			return Config{}, fmt.Errorf("unknown network %q", cfg.Network)
		}
		var n Network
		if err := sub.Unmarshal(&n); err != nil {
			return Config{}, fmt.Errorf("network %q: %w", cfg.Network, err)
		}
		if cfg.RPCURL == "" {
			cfg.RPCURL = n.RPCURL
		}
		if cfg.ChainID == 0 {
			cfg.ChainID = n.ChainID
		}
		if cfg.ExplorerAPIURL == "" {
			cfg.ExplorerAPIURL = n.ExplorerAPIURL
		}
	}
	if cfg.ExplorerAPIURL == "" {
		cfg.ExplorerAPIURL = verify.DefaultEtherscanURL
	}

	if cfg.Timeout <= 0 {
		return Config{}, errors.New("timeout-seconds must be positive")
	}
	return cfg, nil
}

func readConfigFile(v *viper.Viper) error {
	if path := v.GetString(KeyConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("rewards")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// ValidateDeploy checks what a deployment needs.
func (c Config) ValidateDeploy() error {
	if c.RPCURL == "" || len(c.PrivateKeys) == 0 {
		return errors.New("rpc-url and private-key are required")
	}
	if c.GasLimit == 0 {
		return errors.New("gas-limit must be positive")
	}
	return nil
}

// ValidateVerify checks what a verification request needs.
func (c Config) ValidateVerify() error {
	if c.ExplorerAPIKey == "" {
		return errors.New("explorer-api-key is required")
	}
	if c.ChainID == 0 {
		return errors.New("chain-id is required for verification")
	}
	return nil
}

func (c Config) EnvironmentConfig() publish.EnvironmentConfig {
	return publish.EnvironmentConfig{
		RPCURL:       c.RPCURL,
		ChainID:      c.ChainID,
		PrivateKeys:  c.PrivateKeys,
		GasFeeCap:    big.NewInt(c.GasFeeCap),
		GasTipCap:    big.NewInt(c.GasTipCap),
		GasLimit:     c.GasLimit,
		ArtifactsDir: c.ArtifactsDir,
	}
}

func (c Config) EtherscanConfig(contractName string) verify.EtherscanConfig {
	return verify.EtherscanConfig{
		APIURL:       c.ExplorerAPIURL,
		APIKey:       c.ExplorerAPIKey,
		ChainID:      c.ChainID,
		ArtifactsDir: c.ArtifactsDir,
		ContractName: contractName,
		PollInterval: c.VerifyPollInterval,
	}
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
