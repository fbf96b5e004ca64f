// Package command implements the deploy and verify operations for
// RewardDistribution and the table the CLI dispatches them from.
package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cosmo-local-credit/rewards/publish"
	"github.com/cosmo-local-credit/rewards/publish/contracts/rewarddistribution"
	"github.com/cosmo-local-credit/rewards/publish/deployargs"
	"github.com/cosmo-local-credit/rewards/publish/verify"
)

// Environment is what a deployment needs from the network side.
type Environment interface {
	Signers(ctx context.Context) ([]publish.Signer, error)
	ContractFactory(name string) (publish.Factory, error)
}

// Deploy creates a RewardDistribution with the arguments at argsPath, signed by
// the environment's first signer, and waits for it to be mined.
func Deploy(ctx context.Context, env Environment, argsPath string, logger *slog.Logger) (common.Address, error) {
	args, err := deployargs.Load(argsPath)
	if err != nil {
		return common.Address{}, err
	}
	ctorArgs, err := rewarddistribution.NewConstructorArgs(args)
	if err != nil {
		return common.Address{}, err
	}

	signers, err := env.Signers(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("get signers: %w", err)
	}
	if len(signers) == 0 {
		return common.Address{}, publish.ErrNoSigners
	}

	factory, err := env.ContractFactory(rewarddistribution.Name())
	if err != nil {
		return common.Address{}, err
	}

	contract, err := factory.Connect(signers[0]).Deploy(ctx, ctorArgs.Values()...)
	if err != nil {
		return common.Address{}, err
	}

	logger.Info("waiting for deployment",
		slog.String("contract", rewarddistribution.Name()),
		slog.String("tx", contract.DeploymentTransaction().Hex()),
		slog.String("reward_treasury", ctorArgs.RewardTreasury.Hex()),
		slog.String("token", ctorArgs.Token.Hex()),
	)

	if err := contract.WaitForDeployment(ctx); err != nil {
		return common.Address{}, err
	}
	return contract.Address(), nil
}

// Verify submits the contract at address for source verification with the
// constructor arguments at argsPath, in declaration order.
func Verify(ctx context.Context, svc verify.Service, argsPath, address string, logger *slog.Logger) error {
	if _, err := deployargs.ParseAddress(address); err != nil {
		return fmt.Errorf("address: %w", err)
	}

	args, err := deployargs.Load(argsPath)
	if err != nil {
		return err
	}
	if _, err := args.Addresses(); err != nil {
		return err
	}

	req := verify.Request{
		Address:              address,
		ConstructorArguments: args.Values(),
	}
	logger.Info("verifying",
		slog.String("contract", rewarddistribution.Name()),
		slog.String("address", address),
	)

	if err := svc.Verify(ctx, req); err != nil {
		return fmt.Errorf("verify %s at %s: %w", rewarddistribution.Name(), address, err)
	}
	return nil
}
