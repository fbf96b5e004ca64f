package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
)

// Signer is an identity able to authorize transactions.
type Signer interface {
	Address() common.Address
}

// Factory produces deployable instances of one compiled contract.
type Factory interface {
	Connect(signer Signer) Factory
	Deploy(ctx context.Context, args ...any) (DeployedContract, error)
}

// DeployedContract is a submitted contract-creation transaction.
type DeployedContract interface {
	WaitForDeployment(ctx context.Context) error
	Address() common.Address
	DeploymentTransaction() common.Hash
}

type EnvironmentConfig struct {
	RPCURL       string
	ChainID      int64
	PrivateKeys  []string
	GasFeeCap    *big.Int
	GasTipCap    *big.Int
	GasLimit     uint64
	ArtifactsDir string
	PollInterval time.Duration
}

// Environment binds a provider, the configured keys and the artifacts tree.
type Environment struct {
	client       *w3.Client
	chainID      *big.Int
	signers      []*Deployer
	gasLimit     uint64
	artifactsDir string
	logger       *slog.Logger
}

func NewEnvironment(ctx context.Context, cfg EnvironmentConfig, logger *slog.Logger) (*Environment, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("rpc url is required")
	}

	client, err := w3.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial rpc: %v", ErrProvider, err)
	}

	env, err := newEnvironment(ctx, client, cfg, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	return env, nil
}

func newEnvironment(ctx context.Context, client *w3.Client, cfg EnvironmentConfig, logger *slog.Logger) (*Environment, error) {
	chainID, err := ChainID(ctx, client)
	if err != nil {
		return nil, err
	}
	if cfg.ChainID != 0 && chainID.Int64() != cfg.ChainID {
		return nil, fmt.Errorf("%w: configured %d, provider reports %s", ErrChainMismatch, cfg.ChainID, chainID)
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	signers := make([]*Deployer, 0, len(cfg.PrivateKeys))
	for i, raw := range cfg.PrivateKeys {
		key, _, err := ParsePrivateKey(raw)
		if err != nil {
			return nil, fmt.Errorf("private key[%d]: %w", i, err)
		}
		d := NewDeployer(client, chainID, key, cfg.GasFeeCap, cfg.GasTipCap)
		d.pollInterval = pollInterval
		signers = append(signers, d)
	}

	logger.Debug("environment ready",
		slog.String("chain_id", chainID.String()),
		slog.Int("signers", len(signers)),
	)

	return &Environment{
		client:       client,
		chainID:      chainID,
		signers:      signers,
		gasLimit:     cfg.GasLimit,
		artifactsDir: cfg.ArtifactsDir,
		logger:       logger,
	}, nil
}

func (e *Environment) ChainID() *big.Int {
	return new(big.Int).Set(e.chainID)
}

// Signers returns one signer per configured key, in configuration order.
func (e *Environment) Signers(ctx context.Context) ([]Signer, error) {
	out := make([]Signer, len(e.signers))
	for i, s := range e.signers {
		out[i] = s
	}
	return out, nil
}

// ContractFactory loads the compiled artifact named name.
func (e *Environment) ContractFactory(name string) (Factory, error) {
	artifact, err := LoadArtifact(e.artifactsDir, name)
	if err != nil {
		return nil, err
	}
	parsed, err := artifact.ParsedABI()
	if err != nil {
		return nil, err
	}
	code, err := artifact.CreationCode()
	if err != nil {
		return nil, err
	}
	return &artifactFactory{
		name:     name,
		abi:      parsed,
		bytecode: code,
		gasLimit: e.gasLimit,
		logger:   e.logger,
	}, nil
}

func (e *Environment) Close() error {
	return e.client.Close()
}

type artifactFactory struct {
	name     string
	abi      abi.ABI
	bytecode []byte
	gasLimit uint64
	deployer *Deployer
	signer   Signer
	logger   *slog.Logger
}

func (f *artifactFactory) Connect(signer Signer) Factory {
	connected := *f
	connected.signer = signer
	connected.deployer, _ = signer.(*Deployer)
	return &connected
}

func (f *artifactFactory) Deploy(ctx context.Context, args ...any) (DeployedContract, error) {
	switch {
	case f.signer == nil:
		return nil, fmt.Errorf("%s factory is not connected to a signer", f.name)
	case f.deployer == nil:
		return nil, fmt.Errorf("%s factory: signer %T (%s) cannot sign transactions for this environment", f.name, f.signer, f.signer.Address().Hex())
	}

	packed, err := f.abi.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s constructor: %w", f.name, err)
	}

	data := make([]byte, 0, len(f.bytecode)+len(packed))
	data = append(data, f.bytecode...)
	data = append(data, packed...)

	result, err := f.deployer.DeployContract(ctx, data, f.gasLimit)
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", f.name, err)
	}

	f.logger.Info("deployment submitted",
		slog.String("contract", f.name),
		slog.String("tx", result.TxHash.Hex()),
		slog.String("from", f.deployer.Address().Hex()),
	)

	return &deployedContract{
		name:     f.name,
		deployer: f.deployer,
		result:   result,
	}, nil
}

type deployedContract struct {
	name     string
	deployer *Deployer
	result   DeployResult
}

func (c *deployedContract) WaitForDeployment(ctx context.Context) error {
	receipt, err := c.deployer.WaitForReceipt(ctx, c.result.TxHash)
	if err != nil {
		return fmt.Errorf("wait %s deployment: %w", c.name, err)
	}
	if receipt.Status != 1 {
		return fmt.Errorf("%w: %s deployment %s", ErrTransactionFailed, c.name, receipt.TxHash.Hex())
	}

	code, err := c.deployer.CodeAt(ctx, c.result.ContractAddress)
	if err != nil {
		return err
	}
	if len(code) == 0 {
		return fmt.Errorf("%w: no code at %s", ErrTransactionFailed, c.result.ContractAddress.Hex())
	}
	return nil
}

func (c *deployedContract) Address() common.Address {
	return c.result.ContractAddress
}

func (c *deployedContract) DeploymentTransaction() common.Hash {
	return c.result.TxHash
}
