package server

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"liquidityBuilder/internal/model"
	"liquidityBuilder/internal/pipeline"
)

const maxBodyBytes = 1 << 20

// Quantity is a base-unit amount sent either as a decimal string or as a JSON integer literal.
// Values above 2^256-1, fractions and negatives are rejected.
type Quantity struct {
	value *uint256.Int
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		q.value = nil
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
	}
	if text == "" || strings.ContainsAny(text[:1], "+-") {
		return fmt.Errorf("invalid amount %q", text)
	}
	value, err := uint256.FromDecimal(text)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", text, err)
	}
	q.value = value
	return nil
}

// IsSet reports whether the field was present.
func (q Quantity) IsSet() bool { return q.value != nil }

// Big returns the value, or nil when unset.
func (q Quantity) Big() *big.Int {
	if q.value == nil {
		return nil
	}
	return q.value.ToBig()
}

// flexText keeps a number-or-string field as text.
type flexText struct {
	text string
	set  bool
}

func (f *flexText) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*f = flexText{}
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexText{text: strings.TrimSpace(s), set: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected a number or string, got %s", raw)
	}
	*f = flexText{text: n.String(), set: true}
	return nil
}

type inputAmount struct {
	Address   string   `json:"address"`
	Decimals  *int     `json:"decimals"`
	RawAmount Quantity `json:"rawAmount"`
}

func (a *inputAmount) toModel(field string) (model.TokenAmount, error) {
	addr, err := parseAddress(a.Address, field+".address")
	if err != nil {
		return model.TokenAmount{}, err
	}
	if a.Decimals == nil || *a.Decimals < 0 || *a.Decimals > 255 {
		return model.TokenAmount{}, pipeline.Errorf(pipeline.KindInvalidRequest, "%s.decimals must be between 0 and 255", field)
	}
	if !a.RawAmount.IsSet() {
		return model.TokenAmount{}, pipeline.Errorf(pipeline.KindInvalidRequest, "%s.rawAmount is required", field)
	}
	return model.NewTokenAmount(addr, uint8(*a.Decimals), a.RawAmount.Big()), nil
}

func toModels(list []inputAmount, field string) ([]model.TokenAmount, error) {
	if len(list) == 0 {
		return nil, nil
	}
	out := make([]model.TokenAmount, 0, len(list))
	for i := range list {
		amount, err := list[i].toModel(fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		out = append(out, amount)
	}
	return out, nil
}

func parseAddress(input, field string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, pipeline.Errorf(pipeline.KindInvalidRequest, "invalid %s: %q", field, input)
	}
	return common.HexToAddress(input), nil
}

// parseUser leaves the address zero when absent so request validation reports it.
func parseUser(input string) (common.Address, error) {
	if strings.TrimSpace(input) == "" {
		return common.Address{}, nil
	}
	return parseAddress(input, "userAddress")
}

func parseAddresses(inputs []string, field string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(inputs))
	for i, input := range inputs {
		addr, err := parseAddress(input, fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return pipeline.Errorf(pipeline.KindInvalidRequest, "request body is required")
		}
		return &pipeline.Error{Kind: pipeline.KindInvalidRequest, Message: "invalid request body", Err: err}
	}
	return nil
}

type liquidityBody struct {
	UserAddress     string        `json:"userAddress"`
	PoolID          string        `json:"poolId"`
	Slippage        flexText      `json:"slippage"`
	AmountsIn       []inputAmount `json:"amountsIn"`
	AmountsOut      []inputAmount `json:"amountsOut"`
	ReferenceAmount *inputAmount  `json:"referenceAmount"`
	BptOut          *inputAmount  `json:"bptOut"`
	BptIn           *inputAmount  `json:"bptIn"`
	AmountOut       *inputAmount  `json:"amountOut"`
	TokenIn         string        `json:"tokenIn"`
	TokenOut        string        `json:"tokenOut"`
	TokensIn        []string      `json:"tokensIn"`
}

// liquidityRoute binds an endpoint to an operation and names the body fields it reads.
type liquidityRoute struct {
	path      string
	action    pipeline.Action
	operation pipeline.Operation
	family    pipeline.Family
	single    string
	token     string
}

func (b *liquidityBody) singleField(name string) *inputAmount {
	switch name {
	case "referenceAmount":
		return b.ReferenceAmount
	case "bptOut":
		return b.BptOut
	case "bptIn":
		return b.BptIn
	case "amountOut":
		return b.AmountOut
	}
	return nil
}

// anySingle names the first single-amount field present, for routes that take a list.
func (b *liquidityBody) anySingle() string {
	for _, name := range []string{"referenceAmount", "bptOut", "bptIn", "amountOut"} {
		if b.singleField(name) != nil {
			return name
		}
	}
	return ""
}

func (b *liquidityBody) tokenField(name string) string {
	switch name {
	case "tokenIn":
		return b.TokenIn
	case "tokenOut":
		return b.TokenOut
	}
	return ""
}

// request maps the body onto a typed request. Both the list and the single-amount field are
// carried over when present so that a request mixing shapes is rejected by validation.
func (rt liquidityRoute) request(body *liquidityBody) (*pipeline.Request, error) {
	user, err := parseUser(body.UserAddress)
	if err != nil {
		return nil, err
	}
	if !body.Slippage.set {
		return nil, pipeline.Errorf(pipeline.KindInvalidRequest, "slippage is required")
	}
	slippage, err := pipeline.ParseSlippage(body.Slippage.text, decimal.Zero)
	if err != nil {
		return nil, err
	}

	req := &pipeline.Request{
		Action:    rt.action,
		Operation: rt.operation,
		Family:    rt.family,
		PoolID:    strings.TrimSpace(body.PoolID),
		User:      user,
		Slippage:  slippage,
	}

	listField, list := "amountsIn", body.AmountsIn
	if rt.action == pipeline.ActionRemove {
		listField, list = "amountsOut", body.AmountsOut
	}
	if req.Amounts, err = toModels(list, listField); err != nil {
		return nil, err
	}

	singleName := rt.single
	if singleName == "" {
		singleName = body.anySingle()
	}
	if in := body.singleField(singleName); in != nil {
		amount, err := in.toModel(singleName)
		if err != nil {
			return nil, err
		}
		req.Amount = &amount
	}
	if rt.token != "" {
		if raw := body.tokenField(rt.token); strings.TrimSpace(raw) != "" {
			if req.Token, err = parseAddress(raw, rt.token); err != nil {
				return nil, err
			}
		}
	}
	if len(body.TokensIn) > 0 {
		if req.TokensIn, err = parseAddresses(body.TokensIn, "tokensIn"); err != nil {
			return nil, err
		}
	}
	return req, nil
}

type swapBody struct {
	UserAddress string   `json:"userAddress"`
	TokenIn     string   `json:"tokenIn"`
	TokenOut    string   `json:"tokenOut"`
	Amount      flexText `json:"amount"`
	Slippage    flexText `json:"slippage"`
}

func (b *swapBody) request(defaultSlippage decimal.Decimal) (*pipeline.Request, error) {
	user, err := parseUser(b.UserAddress)
	if err != nil {
		return nil, err
	}
	slippage, err := pipeline.ParseSlippage(b.Slippage.text, defaultSlippage)
	if err != nil {
		return nil, err
	}
	var amount decimal.Decimal
	if b.Amount.set {
		if amount, err = decimal.NewFromString(b.Amount.text); err != nil {
			return nil, pipeline.Errorf(pipeline.KindInvalidRequest, "invalid amount %q", b.Amount.text)
		}
	}
	return &pipeline.Request{
		Operation:  pipeline.OpSwap,
		User:       user,
		Slippage:   slippage,
		TokenIn:    strings.TrimSpace(b.TokenIn),
		TokenOut:   strings.TrimSpace(b.TokenOut),
		SwapAmount: amount,
	}, nil
}

type stakeBody struct {
	UserAddress  string   `json:"userAddress"`
	Amount       Quantity `json:"amount"`
	AmountShares Quantity `json:"amountShares"`
	WithdrawID   Quantity `json:"withdrawId"`
}

func (b *stakeBody) request(op pipeline.Operation) (*pipeline.Request, error) {
	req := &pipeline.Request{Operation: op}
	if op != pipeline.OpStakeWithdraw {
		user, err := parseUser(b.UserAddress)
		if err != nil {
			return nil, err
		}
		req.User = user
	}
	switch op {
	case pipeline.OpStakeDeposit:
		req.StakeAmount = b.Amount.Big()
	case pipeline.OpStakeUndelegate:
		req.StakeAmount = b.AmountShares.Big()
	case pipeline.OpStakeWithdraw:
		req.WithdrawID = b.WithdrawID.Big()
	}
	return req, nil
}
