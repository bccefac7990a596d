package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Backend is the subset of ethclient.Client the builder reads through.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Client wraps go-ethereum RPC and provides the reads the pipeline needs. It never sends
// transactions.
type Client struct {
	rpcClient *rpc.Client
	backend   Backend
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		backend:   ethclient.NewClient(rpcClient),
	}, nil
}

// NewClientWithBackend wraps an existing backend, such as a simulated chain.
func NewClientWithBackend(backend Backend) *Client {
	return &Client{backend: backend}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.backend.ChainID(ctx)
}

// CallContract performs an eth_call against the latest block when blockNumber is nil.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.backend.CallContract(ctx, msg, blockNumber)
}

// Call packs method, runs eth_call against to and unpacks the result.
func (c *Client) Call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return c.CallData(ctx, to, parsed, method, data)
}

// CallData runs eth_call with pre-encoded data and unpacks the outputs of method.
func (c *Client) CallData(ctx context.Context, to common.Address, parsed abi.ABI, method string, data []byte) ([]interface{}, error) {
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := c.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// TokenBalance reads balanceOf(holder) on token.
func (c *Client) TokenBalance(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := c.Call(ctx, token, parsed, "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	return firstBigInt(values, "balanceOf")
}

// NativeBalance reads the account balance of holder.
func (c *Client) NativeBalance(ctx context.Context, holder common.Address) (*big.Int, error) {
	return c.backend.BalanceAt(ctx, holder, nil)
}

// PermitNonce reads the EIP-2612 nonce of owner on token.
func (c *Client) PermitNonce(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := c.Call(ctx, token, parsed, "nonces", owner)
	if err != nil {
		return nil, err
	}
	return firstBigInt(values, "nonces")
}

// Permit2Nonce reads the allowance nonce Permit2 tracks for (owner, token, spender).
func (c *Client) Permit2Nonce(ctx context.Context, permit2, owner, token, spender common.Address) (*big.Int, error) {
	parsed, err := Permit2ABI()
	if err != nil {
		return nil, fmt.Errorf("parse permit2 abi: %w", err)
	}
	values, err := c.Call(ctx, permit2, parsed, "allowance", owner, token, spender)
	if err != nil {
		return nil, err
	}
	if len(values) < 3 {
		return nil, errors.New("allowance: short response")
	}
	return AsBigInt(values[2])
}

func firstBigInt(values []interface{}, method string) (*big.Int, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: empty response", method)
	}
	v, err := AsBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return v, nil
}
