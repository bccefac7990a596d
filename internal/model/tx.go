package model

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BoundKind tells which side of an operation slippage protects.
type BoundKind int

const (
	BoundNone BoundKind = iota
	// BoundMinOut caps the worst acceptable output of an exact-in operation.
	BoundMinOut
	// BoundMaxIn caps the worst acceptable input of an exact-out operation.
	BoundMaxIn
)

// Bound holds the slippage-adjusted amounts written into a call.
type Bound struct {
	Kind    BoundKind
	Amounts []TokenAmount
}

// TransactionCall is a submittable call description. It is never sent by this service.
type TransactionCall struct {
	To    common.Address
	Data  []byte
	Value *big.Int
	Bound Bound
}

type transactionCallJSON struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

// MarshalJSON writes the call in the shape wallets expect: hex data and a decimal value.
func (c TransactionCall) MarshalJSON() ([]byte, error) {
	value := "0"
	if c.Value != nil {
		value = c.Value.String()
	}
	return json.Marshal(transactionCallJSON{
		To:    c.To.Hex(),
		Data:  hexutil.Encode(c.Data),
		Value: value,
	})
}

// ApprovalInstruction describes an allowance the caller may have to grant before submitting.
type ApprovalInstruction struct {
	Token    common.Address
	Spender  common.Address
	Amount   *big.Int
	Required bool
}

type approvalJSON struct {
	Token    string `json:"token"`
	Spender  string `json:"spender"`
	Amount   string `json:"amount"`
	Required bool   `json:"required"`
}

func (a ApprovalInstruction) MarshalJSON() ([]byte, error) {
	amount := "0"
	if a.Amount != nil {
		amount = a.Amount.String()
	}
	return json.Marshal(approvalJSON{
		Token:    a.Token.Hex(),
		Spender:  a.Spender.Hex(),
		Amount:   amount,
		Required: a.Required,
	})
}

// PermitKind selects the on-chain verification path of a signed permit.
type PermitKind int

const (
	// PermitBatch2 is a Permit2 PermitBatch covering the operation inputs.
	PermitBatch2 PermitKind = iota + 1
	// PermitERC20 is an EIP-2612 permit on a single token, used for pool shares.
	PermitERC20
)

// PermitDetail is one token entry of a permit.
type PermitDetail struct {
	Token      common.Address
	Amount     *big.Int
	Expiration *big.Int
	Nonce      *big.Int
}

// SignedPermit is an off-chain authorization. It stays inside the process and is only ever
// embedded into a TransactionCall.
type SignedPermit struct {
	Kind      PermitKind
	Owner     common.Address
	Spender   common.Address
	Deadline  *big.Int
	Details   []PermitDetail
	Signature []byte
}
