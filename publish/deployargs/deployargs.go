// Package deployargs resolves the RewardDistribution constructor arguments
// from the operator's JSON arguments file.
package deployargs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultPath is where the arguments file lives relative to the working directory.
const DefaultPath = "./deployargs/deployRewardDistributionArgs.json"

const (
	FieldRewardTreasury = "rewardTreasury"
	FieldToken          = "token"
)

var (
	ErrConfigNotFound = errors.New("deployargs: config not found")
	ErrConfigParse    = errors.New("deployargs: config is not a valid JSON object")
	ErrMissingField   = errors.New("deployargs: missing field")
	ErrInvalidField   = errors.New("deployargs: field is not a scalar")
	ErrInvalidAddress = errors.New("deployargs: invalid address")
)

// ContractArgs holds the RewardDistribution constructor arguments. Field order
// matches the constructor signature.
type ContractArgs struct {
	RewardTreasury string
	Token          string
}

// Values returns the arguments in constructor order.
func (a ContractArgs) Values() []string {
	return []string{a.RewardTreasury, a.Token}
}

// Addresses validates both fields and returns them in constructor order.
func (a ContractArgs) Addresses() ([]common.Address, error) {
	fields := []struct {
		name  string
		value string
	}{
		{FieldRewardTreasury, a.RewardTreasury},
		{FieldToken, a.Token},
	}

	out := make([]common.Address, len(fields))
	for i, f := range fields {
		addr, err := ParseAddress(f.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		out[i] = addr
	}
	return out, nil
}

// ParseAddress accepts a 20-byte hex address with or without the 0x prefix.
func ParseAddress(v string) (common.Address, error) {
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, v)
	}
	return common.HexToAddress(v), nil
}

// Load reads the arguments file at path. Every call re-reads the file.
func Load(path string) (ContractArgs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ContractArgs{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return ContractArgs{}, fmt.Errorf("read %s: %w", path, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return ContractArgs{}, fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
	}
	if doc == nil {
		return ContractArgs{}, fmt.Errorf("%w: %s: document is null", ErrConfigParse, path)
	}

	rewardTreasury, err := field(doc, FieldRewardTreasury)
	if err != nil {
		return ContractArgs{}, fmt.Errorf("%s: %w", path, err)
	}
	token, err := field(doc, FieldToken)
	if err != nil {
		return ContractArgs{}, fmt.Errorf("%s: %w", path, err)
	}

	return ContractArgs{
		RewardTreasury: rewardTreasury,
		Token:          token,
	}, nil
}

// field returns the string form of a scalar JSON value. Numbers keep their
// literal text so large integers survive unchanged.
func field(doc map[string]json.RawMessage, name string) (string, error) {
	raw, ok := doc[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, name)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrConfigParse, name, err)
	}

	switch t := v.(type) {
	case nil:
		return "", fmt.Errorf("%w: %s is null", ErrMissingField, name)
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidField, name)
	}
}
