package tokens

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"liquidityBuilder/internal/balancer"
	"liquidityBuilder/internal/model"
)

const (
	wsAddr   = "0x039e2fB66102314Ce7b64Ce5Ce3E5183bc94aD38"
	usdcAddr = "0x29219dd400f2Bf60E5a23d13Be72B486D4038894"
	fakeAddr = "0x3333333333333333333333333333333333333333"
)

type staticLister struct {
	tokens []balancer.APIToken
	err    error
	calls  int
}

func (l *staticLister) Tokens(ctx context.Context) ([]balancer.APIToken, error) {
	l.calls++
	return l.tokens, l.err
}

func sonicList() []balancer.APIToken {
	return []balancer.APIToken{
		{Address: wsAddr, Chain: "SONIC", Name: "Wrapped Sonic", Symbol: "wS", Decimals: 18},
		{Address: usdcAddr, Chain: "SONIC", Name: "Bridged USDC", Symbol: "USDC.e", Decimals: 6},
		// a name colliding with another token's symbol must lose to the symbol match
		{Address: fakeAddr, Chain: "SONIC", Name: "wS", Symbol: "FAKE", Decimals: 18},
	}
}

func TestMatch(t *testing.T) {
	tokens, err := FromAPI(sonicList())
	require.NoError(t, err)

	cases := []struct {
		name       string
		identifier string
		want       string
	}{
		{"address lowercase", "0x29219dd400f2bf60e5a23d13be72b486d4038894", usdcAddr},
		{"address checksummed", usdcAddr, usdcAddr},
		{"symbol", "USDC.e", usdcAddr},
		{"symbol before name", "wS", wsAddr},
		{"name", "Bridged USDC", usdcAddr},
		{"padded", "  FAKE ", fakeAddr},
		{"symbol is case sensitive", "usdc.e", ""},
		{"unknown address", "0x4444444444444444444444444444444444444444", ""},
		{"malformed address", "0x1234", ""},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Match(tokens, tc.identifier)
			if tc.want == "" {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, common.HexToAddress(tc.want), got.Address)
		})
	}
}

func TestFromAPIRejectsBadRecords(t *testing.T) {
	_, err := FromAPI([]balancer.APIToken{{Address: "not-an-address", Decimals: 18}})
	require.Error(t, err)

	_, err = FromAPI([]balancer.APIToken{{Address: wsAddr, Decimals: 300}})
	require.Error(t, err)
}

func TestAPIResolver(t *testing.T) {
	lister := &staticLister{tokens: sonicList()}
	resolver := NewAPIResolver(lister)

	token, err := resolver.ResolveToken(context.Background(), "USDC.e")
	require.NoError(t, err)
	require.NotNil(t, token)
	require.Equal(t, uint8(6), token.Decimals)

	token, err = resolver.ResolveToken(context.Background(), "NOPE")
	require.NoError(t, err)
	require.Nil(t, token)
	require.Equal(t, 2, lister.calls)

	lister.err = errors.New("api down")
	_, err = resolver.ResolveToken(context.Background(), "wS")
	require.ErrorContains(t, err, "api down")
}

type mapCatalog struct {
	byAddress map[common.Address]model.Token
	byText    map[string]model.Token
	lookups   int
}

func (c *mapCatalog) TokenByAddress(ctx context.Context, address common.Address) (*model.Token, error) {
	c.lookups++
	if token, ok := c.byAddress[address]; ok {
		return &token, nil
	}
	return nil, nil
}

func (c *mapCatalog) TokenBySymbolOrName(ctx context.Context, identifier string) (*model.Token, error) {
	c.lookups++
	if token, ok := c.byText[identifier]; ok {
		return &token, nil
	}
	return nil, nil
}

func TestCatalogResolver(t *testing.T) {
	usdc := model.Token{Address: common.HexToAddress(usdcAddr), Symbol: "USDC.e", Decimals: 6}
	catalog := &mapCatalog{
		byAddress: map[common.Address]model.Token{usdc.Address: usdc},
		byText:    map[string]model.Token{"USDC.e": usdc},
	}
	resolver := NewCatalogResolver(catalog)

	token, err := resolver.ResolveToken(context.Background(), "0x29219DD400F2BF60E5A23D13BE72B486D4038894")
	require.NoError(t, err)
	require.Equal(t, usdc.Address, token.Address)

	token, err = resolver.ResolveToken(context.Background(), "USDC.e")
	require.NoError(t, err)
	require.Equal(t, "USDC.e", token.Symbol)

	token, err = resolver.ResolveToken(context.Background(), "0xnothex")
	require.NoError(t, err)
	require.Nil(t, token)
	require.Equal(t, 2, catalog.lookups, "malformed address never reaches the catalog")
}
