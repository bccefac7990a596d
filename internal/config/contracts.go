package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Contracts are the parsed protocol addresses.
type Contracts struct {
	V2Vault           common.Address
	V2Queries         common.Address
	V3Router          common.Address
	V3BatchRouter     common.Address
	V3CompositeRouter common.Address
	Permit2           common.Address
	StakingContract   common.Address
	StakingPool       common.Address
}

// Contracts parses every configured contract address.
func (c Config) Contracts() (Contracts, error) {
	var out Contracts
	fields := []struct {
		key   string
		value string
		dst   *common.Address
	}{
		{"v2-vault", c.V2Vault, &out.V2Vault},
		{"v2-queries", c.V2Queries, &out.V2Queries},
		{"v3-router", c.V3Router, &out.V3Router},
		{"v3-batch-router", c.V3BatchRouter, &out.V3BatchRouter},
		{"v3-composite-router", c.V3CompositeRouter, &out.V3CompositeRouter},
		{"permit2", c.Permit2, &out.Permit2},
		{"staking-contract", c.StakingContract, &out.StakingContract},
		{"staking-pool", c.StakingPool, &out.StakingPool},
	}
	for _, field := range fields {
		addr, err := ParseAddress(field.value)
		if err != nil {
			return Contracts{}, fmt.Errorf("%s: %w", field.key, err)
		}
		*field.dst = addr
	}
	return out, nil
}

// ParseAddress converts a hex string into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}

// ParseAddresses converts string addresses into common.Address, skipping blanks.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		addr, err := ParseAddress(input)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}
