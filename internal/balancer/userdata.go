package balancer

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"

	"liquidityBuilder/internal/model"
)

// v2 join kinds are shared by weighted and composable stable pools.
const (
	joinExactTokensIn          = 1
	joinTokenInForExactBptOut  = 2
	joinAllTokensInForExactBpt = 3
)

// exitKinds differ between pool types.
type exitKinds struct {
	oneToken     int64
	proportional int64
	exactTokens  int64
}

func exitKindsFor(poolType string) exitKinds {
	if poolType == model.PoolTypeComposableStable {
		return exitKinds{oneToken: 0, exactTokens: 1, proportional: 2}
	}
	return exitKinds{oneToken: 0, proportional: 1, exactTokens: 2}
}

var (
	uint256Type  = mustType("uint256")
	uint256sType = mustType("uint256[]")
)

func mustType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(fmt.Sprintf("abi type %s: %v", name, err))
	}
	return t
}

func encodeUserData(types []abi.Type, values ...interface{}) ([]byte, error) {
	args := make(abi.Arguments, 0, len(types))
	for _, t := range types {
		args = append(args, abi.Argument{Type: t})
	}
	data, err := args.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("pack user data: %w", err)
	}
	return data, nil
}

func userDataExactTokensIn(amountsIn []*big.Int, minBptOut *big.Int) ([]byte, error) {
	return encodeUserData([]abi.Type{uint256Type, uint256sType, uint256Type}, big.NewInt(joinExactTokensIn), amountsIn, minBptOut)
}

func userDataTokenInForExactBptOut(bptOut *big.Int, tokenIndex int) ([]byte, error) {
	return encodeUserData([]abi.Type{uint256Type, uint256Type, uint256Type}, big.NewInt(joinTokenInForExactBptOut), bptOut, big.NewInt(int64(tokenIndex)))
}

func userDataAllTokensInForExactBptOut(bptOut *big.Int) ([]byte, error) {
	return encodeUserData([]abi.Type{uint256Type, uint256Type}, big.NewInt(joinAllTokensInForExactBpt), bptOut)
}

func userDataExactBptInForOneTokenOut(kinds exitKinds, bptIn *big.Int, tokenIndex int) ([]byte, error) {
	return encodeUserData([]abi.Type{uint256Type, uint256Type, uint256Type}, big.NewInt(kinds.oneToken), bptIn, big.NewInt(int64(tokenIndex)))
}

func userDataExactBptInForTokensOut(kinds exitKinds, bptIn *big.Int) ([]byte, error) {
	return encodeUserData([]abi.Type{uint256Type, uint256Type}, big.NewInt(kinds.proportional), bptIn)
}

func userDataBptInForExactTokensOut(kinds exitKinds, amountsOut []*big.Int, maxBptIn *big.Int) ([]byte, error) {
	return encodeUserData([]abi.Type{uint256Type, uint256sType, uint256Type}, big.NewInt(kinds.exactTokens), amountsOut, maxBptIn)
}

// v2Layout maps pool tokens onto vault asset slots. Composable pools register their own BPT
// as an asset, but user data amounts and indices skip it.
type v2Layout struct {
	assets   []common.Address
	decimals []uint8
	bptIndex int
}

func newV2Layout(pool *model.PoolState) v2Layout {
	l := v2Layout{bptIndex: -1}
	for i, token := range pool.Tokens {
		l.assets = append(l.assets, token.Address)
		l.decimals = append(l.decimals, token.Decimals)
		if token.Address == pool.Address {
			l.bptIndex = i
		}
	}
	return l
}

func (l v2Layout) assetIndex(address common.Address) int {
	for i, a := range l.assets {
		if a == address {
			return i
		}
	}
	return -1
}

// userIndex converts an asset slot into the index user data expects.
func (l v2Layout) userIndex(assetIdx int) int {
	if l.bptIndex >= 0 && assetIdx > l.bptIndex {
		return assetIdx - 1
	}
	return assetIdx
}

// slots lays amounts out in asset order; missing assets are zero.
func (l v2Layout) slots(amounts []model.TokenAmount) ([]*big.Int, error) {
	out := zeros(len(l.assets))
	for _, amount := range amounts {
		idx := l.assetIndex(amount.Address)
		if idx < 0 {
			return nil, fmt.Errorf("token %s is not a pool asset", amount.Address.Hex())
		}
		out[idx] = new(big.Int).Set(amount.Amount())
	}
	return out, nil
}

// dropBpt removes the BPT slot from per-asset values.
func (l v2Layout) dropBpt(values []*big.Int) []*big.Int {
	if l.bptIndex < 0 || l.bptIndex >= len(values) {
		return values
	}
	out := make([]*big.Int, 0, len(values)-1)
	out = append(out, values[:l.bptIndex]...)
	return append(out, values[l.bptIndex+1:]...)
}

// amounts converts per-asset values into token amounts, skipping the BPT slot.
func (l v2Layout) amounts(values []*big.Int) ([]model.TokenAmount, error) {
	if len(values) != len(l.assets) {
		return nil, fmt.Errorf("expected %d amounts, got %d", len(l.assets), len(values))
	}
	out := make([]model.TokenAmount, 0, len(values))
	for i, v := range values {
		if i == l.bptIndex {
			continue
		}
		out = append(out, model.NewTokenAmount(l.assets[i], l.decimals[i], v))
	}
	return out, nil
}

// unlimited allows any amount in every asset slot except the BPT.
func (l v2Layout) unlimited() []*big.Int {
	out := make([]*big.Int, len(l.assets))
	for i := range out {
		out[i] = new(big.Int)
		if i != l.bptIndex {
			out[i] = unlimitedAmount()
		}
	}
	return out
}

func unlimitedAmount() *big.Int {
	return new(big.Int).Set(math.MaxBig256)
}

func zeros(n int) []*big.Int {
	out := make([]*big.Int, n)
	for i := range out {
		out[i] = new(big.Int)
	}
	return out
}
