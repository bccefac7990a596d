package signer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"liquidityBuilder/internal/model"
)

var permitBatchTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"PermitBatch": {
		{Name: "details", Type: "PermitDetails[]"},
		{Name: "spender", Type: "address"},
		{Name: "sigDeadline", Type: "uint256"},
	},
	"PermitDetails": {
		{Name: "token", Type: "address"},
		{Name: "amount", Type: "uint160"},
		{Name: "expiration", Type: "uint48"},
		{Name: "nonce", Type: "uint48"},
	},
}

var erc20PermitTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Permit": {
		{Name: "owner", Type: "address"},
		{Name: "spender", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	},
}

// PermitBatchTypedData builds the Permit2 PermitBatch message for permit.
func PermitBatchTypedData(chainID *big.Int, permit2 common.Address, permit *model.SignedPermit) *apitypes.TypedData {
	details := make([]interface{}, 0, len(permit.Details))
	for _, d := range permit.Details {
		details = append(details, map[string]interface{}{
			"token":      d.Token.Hex(),
			"amount":     decimalString(d.Amount),
			"expiration": decimalString(d.Expiration),
			"nonce":      decimalString(d.Nonce),
		})
	}
	return &apitypes.TypedData{
		Types:       permitBatchTypes,
		PrimaryType: "PermitBatch",
		Domain: apitypes.TypedDataDomain{
			Name:              "Permit2",
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(chainID)),
			VerifyingContract: permit2.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"details":     details,
			"spender":     permit.Spender.Hex(),
			"sigDeadline": decimalString(permit.Deadline),
		},
	}
}

// ERC20PermitTypedData builds the EIP-2612 Permit message for the single detail of permit.
// tokenName is the token's EIP-712 domain name; for pool shares that is the pool name.
func ERC20PermitTypedData(chainID *big.Int, tokenName string, permit *model.SignedPermit) *apitypes.TypedData {
	var detail model.PermitDetail
	if len(permit.Details) > 0 {
		detail = permit.Details[0]
	}
	return &apitypes.TypedData{
		Types:       erc20PermitTypes,
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              tokenName,
			Version:           "1",
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(chainID)),
			VerifyingContract: detail.Token.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"owner":    permit.Owner.Hex(),
			"spender":  permit.Spender.Hex(),
			"value":    decimalString(detail.Amount),
			"nonce":    decimalString(detail.Nonce),
			"deadline": decimalString(permit.Deadline),
		},
	}
}

func decimalString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
