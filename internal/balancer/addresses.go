package balancer

import "github.com/ethereum/go-ethereum/common"

// Addresses are the protocol contracts calls are built against.
type Addresses struct {
	V2Vault           common.Address
	V2Queries         common.Address
	V3Router          common.Address
	V3BatchRouter     common.Address
	V3CompositeRouter common.Address
	Permit2           common.Address
}

// Sonic deployments.
var SonicAddresses = Addresses{
	V2Vault:           common.HexToAddress("0xBA12222222228d8Ba445958a75a0704d566BF2C8"),
	V2Queries:         common.HexToAddress("0x4B29DB997Ec0efDFEF13bAeE2a2D7783bCf67f17"),
	V3Router:          common.HexToAddress("0x6077b9801B5627a65A5eeE70697C793751D1a71c"),
	V3BatchRouter:     common.HexToAddress("0x7761659F9e9834ad367e4d25E0306ba7A4968DAf"),
	V3CompositeRouter: common.HexToAddress("0xE42FFA682A26EF8F25891db4882932711D42e467"),
	Permit2:           common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3"),
}
