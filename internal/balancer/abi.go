package balancer

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const vaultV2ABIJSON = `[
  {
    "name": "joinPool", "type": "function", "stateMutability": "payable", "outputs": [],
    "inputs": [
      {"name": "poolId", "type": "bytes32"},
      {"name": "sender", "type": "address"},
      {"name": "recipient", "type": "address"},
      {"name": "request", "type": "tuple", "components": [
        {"name": "assets", "type": "address[]"},
        {"name": "maxAmountsIn", "type": "uint256[]"},
        {"name": "userData", "type": "bytes"},
        {"name": "fromInternalBalance", "type": "bool"}
      ]}
    ]
  },
  {
    "name": "exitPool", "type": "function", "stateMutability": "nonpayable", "outputs": [],
    "inputs": [
      {"name": "poolId", "type": "bytes32"},
      {"name": "sender", "type": "address"},
      {"name": "recipient", "type": "address"},
      {"name": "request", "type": "tuple", "components": [
        {"name": "assets", "type": "address[]"},
        {"name": "minAmountsOut", "type": "uint256[]"},
        {"name": "userData", "type": "bytes"},
        {"name": "toInternalBalance", "type": "bool"}
      ]}
    ]
  },
  {
    "name": "batchSwap", "type": "function", "stateMutability": "payable",
    "inputs": [
      {"name": "kind", "type": "uint8"},
      {"name": "swaps", "type": "tuple[]", "components": [
        {"name": "poolId", "type": "bytes32"},
        {"name": "assetInIndex", "type": "uint256"},
        {"name": "assetOutIndex", "type": "uint256"},
        {"name": "amount", "type": "uint256"},
        {"name": "userData", "type": "bytes"}
      ]},
      {"name": "assets", "type": "address[]"},
      {"name": "funds", "type": "tuple", "components": [
        {"name": "sender", "type": "address"},
        {"name": "fromInternalBalance", "type": "bool"},
        {"name": "recipient", "type": "address"},
        {"name": "toInternalBalance", "type": "bool"}
      ]},
      {"name": "limits", "type": "int256[]"},
      {"name": "deadline", "type": "uint256"}
    ],
    "outputs": [{"name": "assetDeltas", "type": "int256[]"}]
  }
]`

const queriesV2ABIJSON = `[
  {
    "name": "queryJoin", "type": "function", "stateMutability": "nonpayable",
    "inputs": [
      {"name": "poolId", "type": "bytes32"},
      {"name": "sender", "type": "address"},
      {"name": "recipient", "type": "address"},
      {"name": "request", "type": "tuple", "components": [
        {"name": "assets", "type": "address[]"},
        {"name": "maxAmountsIn", "type": "uint256[]"},
        {"name": "userData", "type": "bytes"},
        {"name": "fromInternalBalance", "type": "bool"}
      ]}
    ],
    "outputs": [{"name": "bptOut", "type": "uint256"}, {"name": "amountsIn", "type": "uint256[]"}]
  },
  {
    "name": "queryExit", "type": "function", "stateMutability": "nonpayable",
    "inputs": [
      {"name": "poolId", "type": "bytes32"},
      {"name": "sender", "type": "address"},
      {"name": "recipient", "type": "address"},
      {"name": "request", "type": "tuple", "components": [
        {"name": "assets", "type": "address[]"},
        {"name": "minAmountsOut", "type": "uint256[]"},
        {"name": "userData", "type": "bytes"},
        {"name": "toInternalBalance", "type": "bool"}
      ]}
    ],
    "outputs": [{"name": "bptIn", "type": "uint256"}, {"name": "amountsOut", "type": "uint256[]"}]
  }
]`

const routerV3ABIJSON = `[
  {"name": "addLiquidityUnbalanced", "type": "function", "stateMutability": "payable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "exactAmountsIn", "type": "uint256[]"}, {"name": "minBptAmountOut", "type": "uint256"}, {"name": "wethIsEth", "type": "bool"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "bptAmountOut", "type": "uint256"}]},
  {"name": "addLiquidityProportional", "type": "function", "stateMutability": "payable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "maxAmountsIn", "type": "uint256[]"}, {"name": "exactBptAmountOut", "type": "uint256"}, {"name": "wethIsEth", "type": "bool"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "amountsIn", "type": "uint256[]"}]},
  {"name": "addLiquiditySingleTokenExactOut", "type": "function", "stateMutability": "payable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "tokenIn", "type": "address"}, {"name": "maxAmountIn", "type": "uint256"}, {"name": "exactBptAmountOut", "type": "uint256"}, {"name": "wethIsEth", "type": "bool"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "amountIn", "type": "uint256"}]},
  {"name": "removeLiquidityProportional", "type": "function", "stateMutability": "payable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "exactBptAmountIn", "type": "uint256"}, {"name": "minAmountsOut", "type": "uint256[]"}, {"name": "wethIsEth", "type": "bool"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "amountsOut", "type": "uint256[]"}]},
  {"name": "removeLiquiditySingleTokenExactIn", "type": "function", "stateMutability": "payable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "exactBptAmountIn", "type": "uint256"}, {"name": "tokenOut", "type": "address"}, {"name": "minAmountOut", "type": "uint256"}, {"name": "wethIsEth", "type": "bool"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "amountOut", "type": "uint256"}]},
  {"name": "removeLiquiditySingleTokenExactOut", "type": "function", "stateMutability": "payable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "maxBptAmountIn", "type": "uint256"}, {"name": "tokenOut", "type": "address"}, {"name": "exactAmountOut", "type": "uint256"}, {"name": "wethIsEth", "type": "bool"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "bptAmountIn", "type": "uint256"}]},

  {"name": "queryAddLiquidityUnbalanced", "type": "function", "stateMutability": "nonpayable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "exactAmountsIn", "type": "uint256[]"}, {"name": "sender", "type": "address"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "bptAmountOut", "type": "uint256"}]},
  {"name": "queryAddLiquidityProportional", "type": "function", "stateMutability": "nonpayable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "exactBptAmountOut", "type": "uint256"}, {"name": "sender", "type": "address"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "amountsIn", "type": "uint256[]"}]},
  {"name": "queryAddLiquiditySingleTokenExactOut", "type": "function", "stateMutability": "nonpayable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "tokenIn", "type": "address"}, {"name": "exactBptAmountOut", "type": "uint256"}, {"name": "sender", "type": "address"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "amountIn", "type": "uint256"}]},
  {"name": "queryRemoveLiquidityProportional", "type": "function", "stateMutability": "nonpayable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "exactBptAmountIn", "type": "uint256"}, {"name": "sender", "type": "address"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "amountsOut", "type": "uint256[]"}]},
  {"name": "queryRemoveLiquiditySingleTokenExactIn", "type": "function", "stateMutability": "nonpayable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "exactBptAmountIn", "type": "uint256"}, {"name": "tokenOut", "type": "address"}, {"name": "sender", "type": "address"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "amountOut", "type": "uint256"}]},
  {"name": "queryRemoveLiquiditySingleTokenExactOut", "type": "function", "stateMutability": "nonpayable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "tokenOut", "type": "address"}, {"name": "exactAmountOut", "type": "uint256"}, {"name": "sender", "type": "address"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "bptAmountIn", "type": "uint256"}]},

  {"name": "permitBatchAndCall", "type": "function", "stateMutability": "payable",
   "inputs": [
     {"name": "permitBatch", "type": "tuple[]", "components": [
       {"name": "token", "type": "address"},
       {"name": "owner", "type": "address"},
       {"name": "spender", "type": "address"},
       {"name": "amount", "type": "uint256"},
       {"name": "nonce", "type": "uint256"},
       {"name": "deadline", "type": "uint256"}
     ]},
     {"name": "permitSignatures", "type": "bytes[]"},
     {"name": "permit2Batch", "type": "tuple", "components": [
       {"name": "details", "type": "tuple[]", "components": [
         {"name": "token", "type": "address"},
         {"name": "amount", "type": "uint160"},
         {"name": "expiration", "type": "uint48"},
         {"name": "nonce", "type": "uint48"}
       ]},
       {"name": "spender", "type": "address"},
       {"name": "sigDeadline", "type": "uint256"}
     ]},
     {"name": "permit2Signature", "type": "bytes"},
     {"name": "multicallData", "type": "bytes[]"}
   ],
   "outputs": [{"name": "results", "type": "bytes[]"}]}
]`

const compositeRouterV3ABIJSON = `[
  {"name": "addLiquidityUnbalancedToERC4626Pool", "type": "function", "stateMutability": "payable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "wrapUnderlying", "type": "bool[]"}, {"name": "exactAmountsIn", "type": "uint256[]"}, {"name": "minBptAmountOut", "type": "uint256"}, {"name": "wethIsEth", "type": "bool"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "bptAmountOut", "type": "uint256"}]},
  {"name": "addLiquidityProportionalToERC4626Pool", "type": "function", "stateMutability": "payable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "wrapUnderlying", "type": "bool[]"}, {"name": "maxAmountsIn", "type": "uint256[]"}, {"name": "exactBptAmountOut", "type": "uint256"}, {"name": "wethIsEth", "type": "bool"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "amountsIn", "type": "uint256[]"}]},
  {"name": "removeLiquidityProportionalFromERC4626Pool", "type": "function", "stateMutability": "payable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "unwrapWrapped", "type": "bool[]"}, {"name": "exactBptAmountIn", "type": "uint256"}, {"name": "minAmountsOut", "type": "uint256[]"}, {"name": "wethIsEth", "type": "bool"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "amountsOut", "type": "uint256[]"}]},
  {"name": "queryAddLiquidityUnbalancedToERC4626Pool", "type": "function", "stateMutability": "nonpayable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "wrapUnderlying", "type": "bool[]"}, {"name": "exactAmountsIn", "type": "uint256[]"}, {"name": "sender", "type": "address"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "bptAmountOut", "type": "uint256"}]},
  {"name": "queryAddLiquidityProportionalToERC4626Pool", "type": "function", "stateMutability": "nonpayable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "wrapUnderlying", "type": "bool[]"}, {"name": "exactBptAmountOut", "type": "uint256"}, {"name": "sender", "type": "address"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "amountsIn", "type": "uint256[]"}]},
  {"name": "queryRemoveLiquidityProportionalFromERC4626Pool", "type": "function", "stateMutability": "nonpayable",
   "inputs": [{"name": "pool", "type": "address"}, {"name": "unwrapWrapped", "type": "bool[]"}, {"name": "exactBptAmountIn", "type": "uint256"}, {"name": "sender", "type": "address"}, {"name": "userData", "type": "bytes"}],
   "outputs": [{"name": "amountsOut", "type": "uint256[]"}]},
  {"name": "permitBatchAndCall", "type": "function", "stateMutability": "payable",
   "inputs": [
     {"name": "permitBatch", "type": "tuple[]", "components": [
       {"name": "token", "type": "address"},
       {"name": "owner", "type": "address"},
       {"name": "spender", "type": "address"},
       {"name": "amount", "type": "uint256"},
       {"name": "nonce", "type": "uint256"},
       {"name": "deadline", "type": "uint256"}
     ]},
     {"name": "permitSignatures", "type": "bytes[]"},
     {"name": "permit2Batch", "type": "tuple", "components": [
       {"name": "details", "type": "tuple[]", "components": [
         {"name": "token", "type": "address"},
         {"name": "amount", "type": "uint160"},
         {"name": "expiration", "type": "uint48"},
         {"name": "nonce", "type": "uint48"}
       ]},
       {"name": "spender", "type": "address"},
       {"name": "sigDeadline", "type": "uint256"}
     ]},
     {"name": "permit2Signature", "type": "bytes"},
     {"name": "multicallData", "type": "bytes[]"}
   ],
   "outputs": [{"name": "results", "type": "bytes[]"}]}
]`

const batchRouterV3ABIJSON = `[
  {"name": "swapExactIn", "type": "function", "stateMutability": "payable",
   "inputs": [
     {"name": "paths", "type": "tuple[]", "components": [
       {"name": "tokenIn", "type": "address"},
       {"name": "steps", "type": "tuple[]", "components": [
         {"name": "pool", "type": "address"},
         {"name": "tokenOut", "type": "address"},
         {"name": "isBuffer", "type": "bool"}
       ]},
       {"name": "exactAmountIn", "type": "uint256"},
       {"name": "minAmountOut", "type": "uint256"}
     ]},
     {"name": "deadline", "type": "uint256"},
     {"name": "wethIsEth", "type": "bool"},
     {"name": "userData", "type": "bytes"}
   ],
   "outputs": [
     {"name": "pathAmountsOut", "type": "uint256[]"},
     {"name": "tokensOut", "type": "address[]"},
     {"name": "amountsOut", "type": "uint256[]"}
   ]}
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
	vaultV2ABI         = &lazyABI{source: vaultV2ABIJSON}
	queriesV2ABI       = &lazyABI{source: queriesV2ABIJSON}
	routerV3ABI        = &lazyABI{source: routerV3ABIJSON}
	compositeRouterABI = &lazyABI{source: compositeRouterV3ABIJSON}
	batchRouterV3ABI   = &lazyABI{source: batchRouterV3ABIJSON}
)
