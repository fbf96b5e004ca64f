package rewarddistribution

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/cosmo-local-credit/rewards/publish/deployargs"
)

const (
	name            = "RewardDistribution"
	GasLimit uint64 = 3_000_000
)

// ConstructorArgs mirrors constructor(address rewardTreasury, address token).
type ConstructorArgs struct {
	RewardTreasury common.Address
	Token          common.Address
}

func Name() string { return name }

// NewConstructorArgs validates the resolved arguments file.
func NewConstructorArgs(args deployargs.ContractArgs) (ConstructorArgs, error) {
	addrs, err := args.Addresses()
	if err != nil {
		return ConstructorArgs{}, err
	}
	return ConstructorArgs{
		RewardTreasury: addrs[0],
		Token:          addrs[1],
	}, nil
}

// Values returns the arguments positionally, as the constructor takes them.
func (a ConstructorArgs) Values() []any {
	return []any{a.RewardTreasury, a.Token}
}
