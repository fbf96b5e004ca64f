package verify

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var bigIntType = reflect.TypeOf((*big.Int)(nil))

// EncodeConstructorArguments converts string arguments to the constructor's
// declared types and ABI-encodes them.
func EncodeConstructorArguments(contractABI abi.ABI, values []string) ([]byte, error) {
	inputs := contractABI.Constructor.Inputs
	if len(inputs) != len(values) {
		return nil, fmt.Errorf("constructor takes %d arguments, got %d", len(inputs), len(values))
	}

	args := make([]any, len(values))
	for i, input := range inputs {
		v, err := convert(input.Type, values[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s %s): %w", i, input.Type.String(), input.Name, err)
		}
		args[i] = v
	}
	return inputs.Pack(args...)
}

func convert(t abi.Type, v string) (any, error) {
	switch t.T {
	case abi.AddressTy:
		if !common.IsHexAddress(v) {
			return nil, fmt.Errorf("invalid address %q", v)
		}
		return common.HexToAddress(v), nil
	case abi.BoolTy:
		return strconv.ParseBool(v)
	case abi.StringTy:
		return v, nil
	case abi.BytesTy:
		return hexutil.Decode(v)
	case abi.FixedBytesTy:
		b, err := hexutil.Decode(v)
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("want %d bytes, got %d", t.Size, len(b))
		}
		rv := reflect.New(t.GetType()).Elem()
		reflect.Copy(rv, reflect.ValueOf(b))
		return rv.Interface(), nil
	case abi.UintTy, abi.IntTy:
		return convertInteger(t, v)
	default:
		return nil, fmt.Errorf("unsupported constructor argument type %s", t.String())
	}
}

func convertInteger(t abi.Type, v string) (any, error) {
	n, ok := new(big.Int).SetString(v, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", v)
	}

	if t.T == abi.UintTy {
		if n.Sign() < 0 || n.BitLen() > t.Size {
			return nil, fmt.Errorf("%s out of range for %s", v, t.String())
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("%s out of range for %s", v, t.String())
		}
	}

	rt := t.GetType()
	if rt == bigIntType {
		return n, nil
	}
	rv := reflect.New(rt).Elem()
	if t.T == abi.UintTy {
		rv.SetUint(n.Uint64())
	} else {
		rv.SetInt(n.Int64())
	}
	return rv.Interface(), nil
}
