package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cosmo-local-credit/rewards/publish"
	"github.com/cosmo-local-credit/rewards/publish/config"
	"github.com/cosmo-local-credit/rewards/publish/contracts/rewarddistribution"
	"github.com/cosmo-local-credit/rewards/publish/verify"
)

const (
	DeployName = "deploy:RewardDistribution"
	VerifyName = "verify:RewardDistribution"
)

// Param is a named operator-supplied value.
type Param struct {
	Name     string
	Usage    string
	Required bool
}

// Invocation carries everything one handler run needs.
type Invocation struct {
	Config config.Config
	Logger *slog.Logger
	Params map[string]string
}

type Handler func(ctx context.Context, rt *Runtime, inv Invocation) error

type Command struct {
	Name    string
	Short   string
	Params  []Param
	Handler Handler
}

// Runtime holds the process-level collaborators. Tests swap the constructors.
type Runtime struct {
	Out            io.Writer
	Err            io.Writer
	NewEnvironment func(ctx context.Context, cfg config.Config, logger *slog.Logger) (Environment, error)
	NewVerifier    func(cfg config.Config, logger *slog.Logger) (verify.Service, error)
}

func DefaultRuntime() *Runtime {
	return &Runtime{
		Out: os.Stdout,
		Err: os.Stderr,
		NewEnvironment: func(ctx context.Context, cfg config.Config, logger *slog.Logger) (Environment, error) {
			return publish.NewEnvironment(ctx, cfg.EnvironmentConfig(), logger)
		},
		NewVerifier: func(cfg config.Config, logger *slog.Logger) (verify.Service, error) {
			return verify.NewEtherscanClient(cfg.EtherscanConfig(rewarddistribution.Name()), logger)
		},
	}
}

// Commands is the dispatch table.
func Commands() []Command {
	return []Command{
		{
			Name:    DeployName,
			Short:   "Deploy RewardDistribution with the arguments file",
			Handler: runDeploy,
		},
		{
			Name:  VerifyName,
			Short: "Verify a deployed RewardDistribution on the block explorer",
			Params: []Param{
				{Name: "address", Usage: "The contract address", Required: true},
			},
			Handler: runVerify,
		},
	}
}

// Lookup finds a command by name.
func Lookup(name string) (Command, bool) {
	for _, c := range Commands() {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}

func runDeploy(ctx context.Context, rt *Runtime, inv Invocation) error {
	if err := inv.Config.ValidateDeploy(); err != nil {
		return err
	}

	env, err := rt.NewEnvironment(ctx, inv.Config, inv.Logger)
	if err != nil {
		return err
	}
	if closer, ok := env.(io.Closer); ok {
		defer closer.Close()
	}

	addr, err := Deploy(ctx, env, inv.Config.ArgsPath, inv.Logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(rt.Out, "%s deployed to:  %s\n", rewarddistribution.Name(), addr.Hex())
	return nil
}

func runVerify(ctx context.Context, rt *Runtime, inv Invocation) error {
	if err := inv.Config.ValidateVerify(); err != nil {
		return err
	}

	svc, err := rt.NewVerifier(inv.Config, inv.Logger)
	if err != nil {
		return err
	}

	address := inv.Params["address"]
	if err := Verify(ctx, svc, inv.Config.ArgsPath, address, inv.Logger); err != nil {
		return err
	}
	inv.Logger.Info("verified", slog.String("contract", rewarddistribution.Name()), slog.String("address", address))
	return nil
}
