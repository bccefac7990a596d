package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityBuilder/internal/model"
)

// FetchTokenMeta loads token metadata via ERC20 calls. Decimals are required; symbol and name
// fall back to the bytes32 variant and are otherwise left empty.
func FetchTokenMeta(ctx context.Context, client *Client, token common.Address, logger *zap.Logger) (model.Token, error) {
	meta := model.Token{Address: token}
	if client == nil {
		return meta, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, err := ERC20ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 abi: %w", err)
	}
	bytes32ABI, err := erc20Bytes32ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := client.Call(ctx, token, stringABI, "decimals")
	if err != nil {
		return meta, err
	}
	if len(values) == 0 {
		return meta, fmt.Errorf("decimals: empty response")
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	readText := func(method string) string {
		if values, err := client.Call(ctx, token, stringABI, method); err == nil && len(values) > 0 {
			if text, ok := values[0].(string); ok {
				return text
			}
		}
		values, err := client.Call(ctx, token, bytes32ABI, method)
		if err != nil || len(values) == 0 {
			logger.Debug("token text call failed", zap.String("token", token.Hex()), zap.String("method", method), zap.Error(err))
			return ""
		}
		text, _ := bytes32ToString(values[0])
		return text
	}
	meta.Symbol = readText("symbol")
	meta.Name = readText("name")

	return meta, nil
}
