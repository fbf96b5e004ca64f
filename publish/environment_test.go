package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmo-local-credit/rewards/publish/publishtest"
)

var (
	treasury = common.HexToAddress("0x1111111111111111111111111111111111111111")
	token    = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type chain struct {
	*publishtest.RPCServer
	sent          []*types.Transaction
	receiptStatus string
	code          string
	pendingPolls  int
}

func newChain(t *testing.T) *chain {
	c := &chain{
		RPCServer:     publishtest.NewRPCServer(t),
		receiptStatus: "0x1",
		code:          "0x6001600155",
	}
	c.Result("eth_chainId", "0x7a69")
	c.Result("eth_getTransactionCount", "0x3")
	c.Handle("eth_sendRawTransaction", func(params []json.RawMessage) (any, error) {
		var raw string
		if err := json.Unmarshal(params[0], &raw); err != nil {
			return nil, err
		}
		var tx types.Transaction
		if err := tx.UnmarshalBinary(hexutil.MustDecode(raw)); err != nil {
			return nil, err
		}
		c.sent = append(c.sent, &tx)
		return tx.Hash().Hex(), nil
	})
	c.Handle("eth_getTransactionReceipt", func(params []json.RawMessage) (any, error) {
		if c.pendingPolls > 0 {
			c.pendingPolls--
			return nil, nil
		}
		var hash string
		if err := json.Unmarshal(params[0], &hash); err != nil {
			return nil, err
		}
		return map[string]any{
			"type":              "0x2",
			"status":            c.receiptStatus,
			"cumulativeGasUsed": "0x5208",
			"gasUsed":           "0x5208",
			"effectiveGasPrice": "0x3b9aca00",
			"logsBloom":         "0x" + strings.Repeat("00", 256),
			"logs":              []any{},
			"transactionHash":   hash,
			"transactionIndex":  "0x0",
			"blockHash":         common.HexToHash("0xabc").Hex(),
			"blockNumber":       "0x10",
		}, nil
	})
	c.Handle("eth_getCode", func([]json.RawMessage) (any, error) {
		return c.code, nil
	})
	return c
}

func (c *chain) environment(t *testing.T, artifacts string) *Environment {
	t.Helper()
	env, err := NewEnvironment(context.Background(), EnvironmentConfig{
		RPCURL:       c.URL,
		ChainID:      31337,
		PrivateKeys:  []string{publishtest.HardhatKey},
		GasFeeCap:    big.NewInt(2_000_000_000),
		GasTipCap:    big.NewInt(1_000_000_000),
		GasLimit:     3_000_000,
		ArtifactsDir: artifacts,
		PollInterval: 10 * time.Millisecond,
	}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	return env
}

func deploy(t *testing.T, env *Environment) (DeployedContract, error) {
	t.Helper()
	signers, err := env.Signers(context.Background())
	require.NoError(t, err)
	require.Len(t, signers, 1)

	factory, err := env.ContractFactory(publishtest.ContractName)
	require.NoError(t, err)
	return factory.Connect(signers[0]).Deploy(context.Background(), treasury, token)
}

func TestNewEnvironment(t *testing.T) {
	c := newChain(t)
	env := c.environment(t, publishtest.WriteArtifacts(t))

	assert.Equal(t, big.NewInt(31337), env.ChainID())
	signers, err := env.Signers(context.Background())
	require.NoError(t, err)
	require.Len(t, signers, 1)
	assert.Equal(t, common.HexToAddress(publishtest.HardhatAddress), signers[0].Address())
}

func TestNewEnvironment_ChainMismatch(t *testing.T) {
	c := newChain(t)
	_, err := NewEnvironment(context.Background(), EnvironmentConfig{
		RPCURL:  c.URL,
		ChainID: 11155111,
	}, discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChainMismatch)
}

func TestNewEnvironment_ProviderError(t *testing.T) {
	c := newChain(t)
	c.Handle("eth_chainId", func([]json.RawMessage) (any, error) {
		return nil, errors.New("upstream unavailable")
	})
	_, err := NewEnvironment(context.Background(), EnvironmentConfig{RPCURL: c.URL}, discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestNewEnvironment_BadKey(t *testing.T) {
	c := newChain(t)
	_, err := NewEnvironment(context.Background(), EnvironmentConfig{
		RPCURL:      c.URL,
		PrivateKeys: []string{"0xnothex"},
	}, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private key[0]")
}

func TestFactory_Deploy(t *testing.T) {
	c := newChain(t)
	c.pendingPolls = 2
	env := c.environment(t, publishtest.WriteArtifacts(t))

	contract, err := deploy(t, env)
	require.NoError(t, err)
	require.NoError(t, contract.WaitForDeployment(context.Background()))

	deployer := common.HexToAddress(publishtest.HardhatAddress)
	assert.Equal(t, crypto.CreateAddress(deployer, 3), contract.Address())

	require.Len(t, c.sent, 1)
	tx := c.sent[0]
	assert.Equal(t, contract.DeploymentTransaction(), tx.Hash())
	assert.Nil(t, tx.To())
	assert.Equal(t, uint64(3), tx.Nonce())
	assert.Equal(t, uint64(3_000_000), tx.Gas())
	assert.Equal(t, big.NewInt(31337), tx.ChainId())
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())

	sender, err := types.Sender(types.NewLondonSigner(big.NewInt(31337)), tx)
	require.NoError(t, err)
	assert.Equal(t, deployer, sender)

	code := hexutil.MustDecode(publishtest.Bytecode)
	require.True(t, len(tx.Data()) > len(code))
	assert.Equal(t, code, tx.Data()[:len(code)])

	addressTy, err := abi.NewType("address", "", nil)
	require.NoError(t, err)
	args, err := abi.Arguments{{Type: addressTy}, {Type: addressTy}}.Unpack(tx.Data()[len(code):])
	require.NoError(t, err)
	assert.Equal(t, []any{treasury, token}, args)

	assert.GreaterOrEqual(t, c.Calls("eth_getTransactionReceipt"), 3)
}

func TestFactory_DeployReverted(t *testing.T) {
	c := newChain(t)
	c.receiptStatus = "0x0"
	env := c.environment(t, publishtest.WriteArtifacts(t))

	contract, err := deploy(t, env)
	require.NoError(t, err)
	err = contract.WaitForDeployment(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransactionFailed)
}

func TestFactory_DeployNoCode(t *testing.T) {
	c := newChain(t)
	c.code = "0x"
	env := c.environment(t, publishtest.WriteArtifacts(t))

	contract, err := deploy(t, env)
	require.NoError(t, err)
	err = contract.WaitForDeployment(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransactionFailed)
}

func TestFactory_DeploySendRejected(t *testing.T) {
	c := newChain(t)
	c.Handle("eth_sendRawTransaction", func([]json.RawMessage) (any, error) {
		return nil, errors.New("insufficient funds for gas * price + value")
	})
	env := c.environment(t, publishtest.WriteArtifacts(t))

	_, err := deploy(t, env)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestFactory_WaitHonoursContext(t *testing.T) {
	c := newChain(t)
	c.pendingPolls = 1 << 30
	env := c.environment(t, publishtest.WriteArtifacts(t))

	contract, err := deploy(t, env)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = contract.WaitForDeployment(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFactory_ReceiptProviderError(t *testing.T) {
	c := newChain(t)
	c.Handle("eth_getTransactionReceipt", func([]json.RawMessage) (any, error) {
		return nil, errors.New("internal error: database corrupted")
	})
	env := c.environment(t, publishtest.WriteArtifacts(t))

	contract, err := deploy(t, env)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = contract.WaitForDeployment(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "database corrupted")
	assert.Equal(t, 1, c.Calls("eth_getTransactionReceipt"))
}

func TestDeployer_SendReturnsProviderHash(t *testing.T) {
	c := newChain(t)
	env := c.environment(t, publishtest.WriteArtifacts(t))

	result, err := env.signers[0].DeployContract(context.Background(), []byte{0x60, 0x80}, 100_000)
	require.NoError(t, err)
	require.Len(t, c.sent, 1)
	assert.Equal(t, c.sent[0].Hash(), result.TxHash)
	assert.Equal(t, 1, c.Calls("eth_sendRawTransaction"))

	c.Handle("eth_sendRawTransaction", func([]json.RawMessage) (any, error) {
		return common.HexToHash("0xdead").Hex(), nil
	})
	_, err = env.signers[0].DeployContract(context.Background(), []byte{0x60, 0x80}, 100_000)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestFactory_WrongArgumentCount(t *testing.T) {
	c := newChain(t)
	env := c.environment(t, publishtest.WriteArtifacts(t))

	signers, err := env.Signers(context.Background())
	require.NoError(t, err)
	factory, err := env.ContractFactory(publishtest.ContractName)
	require.NoError(t, err)

	_, err = factory.Connect(signers[0]).Deploy(context.Background(), treasury)
	require.Error(t, err)
	assert.Empty(t, c.sent)
}

type foreignSigner struct{}

func (foreignSigner) Address() common.Address { return common.Address{} }

func TestFactory_UnconnectedSigner(t *testing.T) {
	c := newChain(t)
	env := c.environment(t, publishtest.WriteArtifacts(t))

	factory, err := env.ContractFactory(publishtest.ContractName)
	require.NoError(t, err)

	_, err = factory.Deploy(context.Background(), treasury, token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")

	_, err = factory.Connect(foreignSigner{}).Deploy(context.Background(), treasury, token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish.foreignSigner")
	assert.Empty(t, c.sent)
}

func TestContractFactory_MissingArtifact(t *testing.T) {
	c := newChain(t)
	env := c.environment(t, publishtest.WriteArtifacts(t))

	_, err := env.ContractFactory("Unknown")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}
