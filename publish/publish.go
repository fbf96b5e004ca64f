package publish

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"
)

const defaultPollInterval = 2 * time.Second

var (
	ErrProvider          = errors.New("publish: provider error")
	ErrTransactionFailed = errors.New("publish: transaction reverted or failed")
	ErrChainMismatch     = errors.New("publish: chain id mismatch")
	ErrArtifactNotFound  = errors.New("publish: artifact not found")
	ErrNoSigners         = errors.New("publish: no signers available")
)

type (
	DeployResult struct {
		TxHash          common.Hash
		ContractAddress common.Address
	}

	// Deployer signs and submits EIP-1559 transactions for a single key.
	Deployer struct {
		client       *w3.Client
		signer       types.Signer
		key          *ecdsa.PrivateKey
		address      common.Address
		gasFeeCap    *big.Int
		gasTipCap    *big.Int
		pollInterval time.Duration
	}
)

func NewDeployer(client *w3.Client, chainID *big.Int, privateKey *ecdsa.PrivateKey, gasFeeCap, gasTipCap *big.Int) *Deployer {
	return &Deployer{
		client:       client,
		signer:       types.NewLondonSigner(chainID),
		key:          privateKey,
		address:      crypto.PubkeyToAddress(privateKey.PublicKey),
		gasFeeCap:    gasFeeCap,
		gasTipCap:    gasTipCap,
		pollInterval: defaultPollInterval,
	}
}

// Address implements Signer.
func (d *Deployer) Address() common.Address {
	return d.address
}

func (d *Deployer) getNonce(ctx context.Context) (uint64, error) {
	var nonce uint64
	if err := d.client.CallCtx(ctx, eth.Nonce(d.address, nil).Returns(&nonce)); err != nil {
		return 0, fmt.Errorf("%w: get nonce: %v", ErrProvider, err)
	}
	return nonce, nil
}

func (d *Deployer) sendTx(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	signedTx, err := types.SignTx(tx, d.signer, d.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	var txHash common.Hash
	if err := d.client.CallCtx(ctx, eth.SendTx(signedTx).Returns(&txHash)); err != nil {
		return common.Hash{}, fmt.Errorf("%w: send tx: %v", ErrProvider, err)
	}
	if txHash != signedTx.Hash() {
		return common.Hash{}, fmt.Errorf("%w: send tx: provider returned hash %s, signed %s", ErrProvider, txHash.Hex(), signedTx.Hash().Hex())
	}
	return txHash, nil
}

// DeployContract submits a contract-creation transaction carrying data
// (creation bytecode followed by the packed constructor arguments).
func (d *Deployer) DeployContract(ctx context.Context, data []byte, gasLimit uint64) (DeployResult, error) {
	nonce, err := d.getNonce(ctx)
	if err != nil {
		return DeployResult{}, err
	}

	contractAddr := crypto.CreateAddress(d.address, nonce)

	//  EIP-1559 only
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   d.signer.ChainID(),
		Nonce:     nonce,
		GasFeeCap: d.gasFeeCap,
		GasTipCap: d.gasTipCap,
		Gas:       gasLimit,
		Data:      data,
	})

	txHash, err := d.sendTx(ctx, tx)
	if err != nil {
		return DeployResult{}, err
	}

	return DeployResult{
		TxHash:          txHash,
		ContractAddress: contractAddr,
	}, nil
}

func (d *Deployer) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		var receipt *types.Receipt
		err := d.client.CallCtx(ctx, eth.TxReceipt(txHash).Returns(&receipt))
		switch {
		case err == nil && receipt != nil:
			return receipt, nil
		case err != nil && !isNotFound(err):
			return nil, fmt.Errorf("%w: get receipt %s: %v", ErrProvider, txHash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// isNotFound reports whether a single call failed only because the provider
// returned null, as it does for a receipt that is not mined yet.
func isNotFound(err error) bool {
	var callErrs w3.CallErrors
	if !errors.As(err, &callErrs) || len(callErrs) != 1 || callErrs[0] == nil {
		return false
	}
	return callErrs[0].Error() == "not found"
}

func (d *Deployer) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	var code []byte
	if err := d.client.CallCtx(ctx, eth.Code(addr, nil).Returns(&code)); err != nil {
		return nil, fmt.Errorf("%w: get code: %v", ErrProvider, err)
	}
	return code, nil
}

// ChainID asks the provider for its chain id.
func ChainID(ctx context.Context, client *w3.Client) (*big.Int, error) {
	var id uint64
	if err := client.CallCtx(ctx, eth.ChainID().Returns(&id)); err != nil {
		return nil, fmt.Errorf("%w: get chain id: %v", ErrProvider, err)
	}
	return new(big.Int).SetUint64(id), nil
}

// ParsePrivateKey accepts a hex key with or without the 0x prefix.
func ParsePrivateKey(v string) (*ecdsa.PrivateKey, common.Address, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "0x")
	key, err := crypto.HexToECDSA(v)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("parse private key: %w", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}
