package chain

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20ABIJSON = `[
  {"inputs": [{"name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}], "name": "nonces", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

// Some older tokens return bytes32 for symbol and name.
const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

const permit2ABIJSON = `[
  {
    "inputs": [
      {"name": "owner", "type": "address"},
      {"name": "token", "type": "address"},
      {"name": "spender", "type": "address"}
    ],
    "name": "allowance",
    "outputs": [
      {"name": "amount", "type": "uint160"},
      {"name": "expiration", "type": "uint48"},
      {"name": "nonce", "type": "uint48"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const stakingABIJSON = `[
  {"inputs": [], "name": "deposit", "outputs": [], "stateMutability": "payable", "type": "function"},
  {"inputs": [{"name": "amountShares", "type": "uint256"}], "name": "undelegateFromPool", "outputs": [{"name": "withdrawId", "type": "uint256"}], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "withdrawId", "type": "uint256"}, {"name": "emergency", "type": "bool"}], "name": "withdraw", "outputs": [], "stateMutability": "nonpayable", "type": "function"}
]`

type lazyABI struct {
	once   sync.Once
	source string
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.source))
	})
	return l.parsed, l.err
}

var (
	erc20ABI        = &lazyABI{source: erc20ABIJSON}
	erc20ABIBytes32 = &lazyABI{source: erc20ABIBytes32JSON}
	permit2ABI      = &lazyABI{source: permit2ABIJSON}
	stakingABI      = &lazyABI{source: stakingABIJSON}
)

// ERC20ABI returns the parsed ERC-20 read ABI, including EIP-2612 nonces.
func ERC20ABI() (abi.ABI, error) { return erc20ABI.get() }

// Permit2ABI returns the parsed Permit2 allowance ABI.
func Permit2ABI() (abi.ABI, error) { return permit2ABI.get() }

// StakingABI returns the parsed staking contract ABI.
func StakingABI() (abi.ABI, error) { return stakingABI.get() }

func erc20Bytes32ABI() (abi.ABI, error) { return erc20ABIBytes32.get() }
