package rewarddistribution

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmo-local-credit/rewards/publish/deployargs"
)

func TestNewConstructorArgs(t *testing.T) {
	args, err := NewConstructorArgs(deployargs.ContractArgs{
		RewardTreasury: "0x1111111111111111111111111111111111111111",
		Token:          "0x2222222222222222222222222222222222222222",
	})
	require.NoError(t, err)
	assert.Equal(t, []any{
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
	}, args.Values())
}

func TestNewConstructorArgs_Invalid(t *testing.T) {
	_, err := NewConstructorArgs(deployargs.ContractArgs{RewardTreasury: "undefined", Token: "0x2222222222222222222222222222222222222222"})
	require.Error(t, err)
	assert.ErrorIs(t, err, deployargs.ErrInvalidAddress)
}
