package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cosmo-local-credit/rewards/publish/config"
)

// NewRootCommand builds the CLI from the dispatch table.
func NewRootCommand(rt *Runtime) *cobra.Command {
	v := viper.New()
	config.Defaults(v)

	root := &cobra.Command{
		Use:   "rewards-publish",
		Short: "Deploy and verify the RewardDistribution contract",
		Long: `Deploy RewardDistribution with constructor arguments read from
./deployargs/deployRewardDistributionArgs.json, and verify a deployed
instance on an Etherscan-compatible explorer with the same arguments.

Examples:
  rewards-publish deploy:RewardDistribution --network sepolia
  rewards-publish verify:RewardDistribution --network sepolia --address 0x...`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String(config.KeyConfigFile, "", "config file (default ./rewards.yaml)")
	pf.String(config.KeyNetwork, "", "network section of the config file")
	pf.String(config.KeyArgs, v.GetString(config.KeyArgs), "constructor arguments file")
	pf.String(config.KeyArtifacts, v.GetString(config.KeyArtifacts), "hardhat artifacts directory")
	pf.String(config.KeyRPCURL, "", "RPC URL (or RPC_URL)")
	pf.Int64(config.KeyChainID, 0, "chain id (or CHAIN_ID)")
	pf.String(config.KeyPrivateKey, "", "comma-separated private keys, first one signs (or PRIVATE_KEY)")
	pf.Int64(config.KeyGasFeeCap, v.GetInt64(config.KeyGasFeeCap), "EIP-1559 fee cap")
	pf.Int64(config.KeyGasTipCap, v.GetInt64(config.KeyGasTipCap), "EIP-1559 tip cap")
	pf.Uint64(config.KeyGasLimit, v.GetUint64(config.KeyGasLimit), "deployment gas limit")
	pf.Int(config.KeyTimeoutSeconds, v.GetInt(config.KeyTimeoutSeconds), "timeout in seconds")
	pf.String(config.KeyExplorerURL, "", "explorer API URL")
	pf.String(config.KeyExplorerKey, "", "explorer API key (or ETHERSCAN_API_KEY)")
	pf.Int(config.KeyVerifyPoll, v.GetInt(config.KeyVerifyPoll), "verification status poll interval in seconds")
	pf.String(config.KeyLogLevel, v.GetString(config.KeyLogLevel), "debug|info|warn|error")

	for _, c := range Commands() {
		root.AddCommand(newSubcommand(rt, v, c))
	}
	return root
}

func newSubcommand(rt *Runtime, v *viper.Viper, c Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   c.Name,
		Short: c.Short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			if err := config.BindEnv(v); err != nil {
				return err
			}
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("bind flags: %w", err)
			}

			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			params := make(map[string]string, len(c.Params))
			for _, p := range c.Params {
				val, err := cmd.Flags().GetString(p.Name)
				if err != nil {
					return err
				}
				params[p.Name] = val
			}

			logger := slog.New(slog.NewTextHandler(rt.Err, &slog.HandlerOptions{Level: cfg.LogLevel}))
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
			defer cancel()

			return c.Handler(ctx, rt, Invocation{
				Config: cfg,
				Logger: logger,
				Params: params,
			})
		},
	}

	for _, p := range c.Params {
		cmd.Flags().String(p.Name, "", p.Usage)
		if p.Required {
			_ = cmd.MarkFlagRequired(p.Name)
		}
	}
	return cmd
}
