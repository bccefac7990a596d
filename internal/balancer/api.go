package balancer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hasura/go-graphql-client"
	"github.com/shopspring/decimal"

	"liquidityBuilder/internal/model"
	"liquidityBuilder/internal/pipeline"
)

// GraphQL custom scalars and enums. The Go type name is the GraphQL variable type.
type (
	GqlChain            string
	GqlSorSwapType      string
	AmountHumanReadable string
)

const swapTypeExactIn GqlSorSwapType = "EXACT_IN"

// APIClient reads pool state, token lists and swap routes from the Balancer API.
type APIClient struct {
	client *graphql.Client
	chain  GqlChain
}

// NewAPIClient creates a client for url. chain is the API chain enum, e.g. SONIC.
func NewAPIClient(url, chain string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &APIClient{
		client: graphql.NewClient(url, httpClient),
		chain:  GqlChain(strings.ToUpper(chain)),
	}
}

type apiUnderlying struct {
	Address  string
	Decimals int
	Symbol   string
}

type apiPoolToken struct {
	Address         string
	Decimals        int
	Symbol          string
	Index           int
	Balance         string
	BalanceUSD      float64 `graphql:"balanceUSD"`
	PriceRate       string
	IsErc4626       bool `graphql:"isErc4626"`
	UnderlyingToken *apiUnderlying
}

type apiPool struct {
	ID              string `graphql:"id"`
	Address         string
	Name            string
	Type            string
	ProtocolVersion int
	PoolTokens      []apiPoolToken
	DynamicData     struct {
		TotalShares    string
		TotalLiquidity string
	}
}

// FetchPool returns a fresh snapshot of poolID. Unknown pools fail with KindPoolNotFound and
// malformed payloads with KindInternal.
func (c *APIClient) FetchPool(ctx context.Context, poolID string) (*model.PoolState, error) {
	var q struct {
		PoolGetPool apiPool `graphql:"poolGetPool(id: $id, chain: $chain)"`
	}
	vars := map[string]interface{}{
		"id":    poolID,
		"chain": c.chain,
	}
	if err := c.client.Query(ctx, &q, vars); err != nil {
		if apiRejected(err) {
			return nil, &pipeline.Error{Kind: pipeline.KindPoolNotFound, Message: "pool " + poolID, Err: err}
		}
		return nil, &pipeline.Error{Kind: pipeline.KindInternal, Message: "query pool " + poolID, Err: err}
	}
	if q.PoolGetPool.Address == "" {
		return nil, pipeline.Errorf(pipeline.KindPoolNotFound, "pool %s not found", poolID)
	}
	pool, err := toPoolState(q.PoolGetPool)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.KindInternal, err, "decode pool "+poolID)
	}
	return pool, nil
}

// Error codes the graphql client assigns to its own transport and codec failures.
var clientErrorCodes = map[string]bool{
	"request_error":        true,
	"json_encode_error":    true,
	"json_decode_error":    true,
	"graphql_encode_error": true,
	"graphql_decode_error": true,
}

// apiRejected reports whether the API itself answered with errors, as opposed to the request
// never completing.
func apiRejected(err error) bool {
	var errs graphql.Errors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return false
	}
	for _, e := range errs {
		if code, _ := e.Extensions["code"].(string); clientErrorCodes[code] {
			return false
		}
	}
	return true
}

func toPoolState(raw apiPool) (*model.PoolState, error) {
	if !common.IsHexAddress(raw.Address) {
		return nil, fmt.Errorf("pool %s: invalid address %q", raw.ID, raw.Address)
	}
	pool := &model.PoolState{
		ID:              raw.ID,
		Address:         common.HexToAddress(raw.Address),
		Name:            raw.Name,
		Type:            raw.Type,
		ProtocolVersion: raw.ProtocolVersion,
		Tokens:          make([]model.PoolToken, 0, len(raw.PoolTokens)),
	}

	shares, err := parseDecimal(raw.DynamicData.TotalShares)
	if err != nil {
		return nil, fmt.Errorf("pool %s total shares: %w", raw.ID, err)
	}
	pool.TotalShares = shares.Shift(model.BptDecimals).BigInt()
	if pool.TotalLiquidityUSD, err = parseDecimal(raw.DynamicData.TotalLiquidity); err != nil {
		return nil, fmt.Errorf("pool %s total liquidity: %w", raw.ID, err)
	}

	for _, t := range raw.PoolTokens {
		if !common.IsHexAddress(t.Address) {
			return nil, fmt.Errorf("pool %s: invalid token address %q", raw.ID, t.Address)
		}
		balance, err := parseDecimal(t.Balance)
		if err != nil {
			return nil, fmt.Errorf("pool %s token %s balance: %w", raw.ID, t.Address, err)
		}
		token := model.PoolToken{
			Address:  common.HexToAddress(t.Address),
			Symbol:   t.Symbol,
			Decimals: uint8(t.Decimals),
			Index:    t.Index,
			Balance:  balance.Shift(int32(t.Decimals)).BigInt(),
		}
		if balance.IsPositive() {
			token.PriceUSD = decimal.NewFromFloat(t.BalanceUSD).Div(balance)
		}
		if t.IsErc4626 && t.UnderlyingToken != nil && common.IsHexAddress(t.UnderlyingToken.Address) {
			underlying := &model.UnderlyingToken{
				Token: model.Token{
					Address:  common.HexToAddress(t.UnderlyingToken.Address),
					Symbol:   t.UnderlyingToken.Symbol,
					Decimals: uint8(t.UnderlyingToken.Decimals),
				},
			}
			if rate, err := parseDecimal(t.PriceRate); err == nil && rate.IsPositive() {
				underlying.PriceUSD = token.PriceUSD.Div(rate)
			}
			token.Underlying = underlying
		}
		pool.Tokens = append(pool.Tokens, token)
	}
	sort.SliceStable(pool.Tokens, func(i, j int) bool { return pool.Tokens[i].Index < pool.Tokens[j].Index })
	return pool, nil
}

// APIToken is an entry of the API token list.
type APIToken struct {
	Address  string
	Chain    string
	Name     string
	Symbol   string
	Decimals int
}

// Tokens lists every token the API knows on the configured chain.
func (c *APIClient) Tokens(ctx context.Context) ([]APIToken, error) {
	var q struct {
		TokenGetTokens []APIToken `graphql:"tokenGetTokens(chains: $chains)"`
	}
	vars := map[string]interface{}{
		"chains": []GqlChain{c.chain},
	}
	if err := c.client.Query(ctx, &q, vars); err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	return q.TokenGetTokens, nil
}

type apiSwapPaths struct {
	ReturnAmountRaw string
	ProtocolVersion int
	PriceImpact     struct {
		PriceImpact *string
		Error       *string
	}
	Paths []apiSwapPath
}

type apiSwapPath struct {
	InputAmountRaw  string
	OutputAmountRaw string
	Pools           []string
	IsBuffer        []bool
	Tokens          []apiPathToken
}

type apiPathToken struct {
	Address  string
	Decimals int
}

// QuoteSwap asks the smart order router for an exact-in route. The API reports price impact
// as a fraction; the quote carries it in percent.
func (c *APIClient) QuoteSwap(ctx context.Context, tokenIn, tokenOut model.Token, amountIn *big.Int) (*model.SwapQuote, error) {
	var q struct {
		SorGetSwapPaths apiSwapPaths `graphql:"sorGetSwapPaths(chain: $chain, swapAmount: $swapAmount, swapType: $swapType, tokenIn: $tokenIn, tokenOut: $tokenOut)"`
	}
	vars := map[string]interface{}{
		"chain":      c.chain,
		"swapAmount": AmountHumanReadable(pipeline.FromRawAmount(amountIn, tokenIn.Decimals).String()),
		"swapType":   swapTypeExactIn,
		"tokenIn":    strings.ToLower(tokenIn.Address.Hex()),
		"tokenOut":   strings.ToLower(tokenOut.Address.Hex()),
	}
	if err := c.client.Query(ctx, &q, vars); err != nil {
		return nil, fmt.Errorf("query swap paths: %w", err)
	}
	return toSwapQuote(q.SorGetSwapPaths, tokenIn, tokenOut, amountIn)
}

func toSwapQuote(raw apiSwapPaths, tokenIn, tokenOut model.Token, amountIn *big.Int) (*model.SwapQuote, error) {
	if len(raw.Paths) == 0 {
		return nil, pipeline.Errorf(pipeline.KindQuote, "no swap route from %s to %s", tokenIn.Address.Hex(), tokenOut.Address.Hex())
	}
	if raw.PriceImpact.Error != nil && *raw.PriceImpact.Error != "" {
		return nil, pipeline.Errorf(pipeline.KindQuote, "price impact unavailable: %s", *raw.PriceImpact.Error)
	}
	amountOut, ok := new(big.Int).SetString(raw.ReturnAmountRaw, 10)
	if !ok {
		return nil, pipeline.Errorf(pipeline.KindQuote, "invalid return amount %q", raw.ReturnAmountRaw)
	}
	impact := decimal.Zero
	if raw.PriceImpact.PriceImpact != nil {
		fraction, err := parseDecimal(*raw.PriceImpact.PriceImpact)
		if err != nil {
			return nil, pipeline.Errorf(pipeline.KindQuote, "invalid price impact %q", *raw.PriceImpact.PriceImpact)
		}
		impact = fraction.Mul(decimal.NewFromInt(100))
	}

	quote := &model.SwapQuote{
		TokenIn:         tokenIn,
		TokenOut:        tokenOut,
		AmountIn:        new(big.Int).Set(amountIn),
		AmountOut:       amountOut,
		PriceImpact:     impact,
		ProtocolVersion: raw.ProtocolVersion,
		Paths:           make([]model.SwapPath, 0, len(raw.Paths)),
	}
	for _, p := range raw.Paths {
		in, okIn := new(big.Int).SetString(p.InputAmountRaw, 10)
		out, okOut := new(big.Int).SetString(p.OutputAmountRaw, 10)
		if !okIn || !okOut {
			return nil, pipeline.Errorf(pipeline.KindQuote, "invalid path amounts %q/%q", p.InputAmountRaw, p.OutputAmountRaw)
		}
		if len(p.Tokens) != len(p.Pools)+1 {
			return nil, pipeline.Errorf(pipeline.KindQuote, "path has %d pools but %d tokens", len(p.Pools), len(p.Tokens))
		}
		path := model.SwapPath{
			Pools:     append([]string(nil), p.Pools...),
			IsBuffer:  append([]bool(nil), p.IsBuffer...),
			AmountIn:  in,
			AmountOut: out,
		}
		for _, t := range p.Tokens {
			path.Tokens = append(path.Tokens, model.Token{Address: common.HexToAddress(t.Address), Decimals: uint8(t.Decimals)})
		}
		quote.Paths = append(quote.Paths, path)
	}
	return quote, nil
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
