// Package tokens resolves user-supplied token identifiers and maintains the optional Postgres
// token catalog.
package tokens

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"liquidityBuilder/internal/balancer"
	"liquidityBuilder/internal/model"
)

// Lister returns the full token list of the configured chain.
type Lister interface {
	Tokens(ctx context.Context) ([]balancer.APIToken, error)
}

// APIResolver looks tokens up in the API token list. The list is fetched per lookup.
type APIResolver struct {
	lister Lister
}

func NewAPIResolver(lister Lister) *APIResolver {
	return &APIResolver{lister: lister}
}

// ResolveToken matches a 0x address case-insensitively, otherwise an exact symbol and then an
// exact name. It returns nil, nil when nothing matches.
func (r *APIResolver) ResolveToken(ctx context.Context, identifier string) (*model.Token, error) {
	list, err := r.lister.Tokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	tokens, err := FromAPI(list)
	if err != nil {
		return nil, err
	}
	return Match(tokens, identifier), nil
}

// Match applies the identifier rules to tokens.
func Match(tokens []model.Token, identifier string) *model.Token {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil
	}
	if isAddress(identifier) {
		if !common.IsHexAddress(identifier) {
			return nil
		}
		want := common.HexToAddress(identifier)
		for i := range tokens {
			if tokens[i].Address == want {
				return &tokens[i]
			}
		}
		return nil
	}
	for i := range tokens {
		if tokens[i].Symbol == identifier {
			return &tokens[i]
		}
	}
	for i := range tokens {
		if tokens[i].Name == identifier {
			return &tokens[i]
		}
	}
	return nil
}

func isAddress(identifier string) bool {
	return strings.HasPrefix(strings.ToLower(identifier), "0x")
}

// FromAPI converts API token records, rejecting malformed addresses.
func FromAPI(list []balancer.APIToken) ([]model.Token, error) {
	out := make([]model.Token, 0, len(list))
	for _, t := range list {
		if !common.IsHexAddress(t.Address) {
			return nil, fmt.Errorf("invalid token address: %s", t.Address)
		}
		if t.Decimals < 0 || t.Decimals > 255 {
			return nil, fmt.Errorf("token %s: invalid decimals %d", t.Address, t.Decimals)
		}
		out = append(out, model.Token{
			Address:  common.HexToAddress(t.Address),
			Symbol:   t.Symbol,
			Name:     t.Name,
			Decimals: uint8(t.Decimals),
		})
	}
	return out, nil
}

// Catalog is a persisted token table.
type Catalog interface {
	TokenByAddress(ctx context.Context, address common.Address) (*model.Token, error)
	TokenBySymbolOrName(ctx context.Context, identifier string) (*model.Token, error)
}

// CatalogResolver resolves against a Catalog with the same rules as APIResolver.
type CatalogResolver struct {
	catalog Catalog
}

func NewCatalogResolver(catalog Catalog) *CatalogResolver {
	return &CatalogResolver{catalog: catalog}
}

func (r *CatalogResolver) ResolveToken(ctx context.Context, identifier string) (*model.Token, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}
	if isAddress(identifier) {
		if !common.IsHexAddress(identifier) {
			return nil, nil
		}
		return r.catalog.TokenByAddress(ctx, common.HexToAddress(identifier))
	}
	return r.catalog.TokenBySymbolOrName(ctx, identifier)
}
