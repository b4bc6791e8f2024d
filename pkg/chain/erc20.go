package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABIJSON = `[
	{
		"name": "decimals",
		"type": "function",
		"inputs": [],
		"outputs": [{"name": "", "type": "uint8"}],
		"stateMutability": "view"
	},
	{
		"name": "symbol",
		"type": "function",
		"inputs": [],
		"outputs": [{"name": "", "type": "string"}],
		"stateMutability": "view"
	},
	{
		"name": "name",
		"type": "function",
		"inputs": [],
		"outputs": [{"name": "", "type": "string"}],
		"stateMutability": "view"
	}
]`

// ERC20Reader 代币元数据只读访问，decimals解析一次后缓存
type ERC20Reader struct {
	client *Client
	abi    abi.ABI

	decimalsCache sync.Map // 小写地址 -> int
}

func NewERC20Reader(client *Client) (*ERC20Reader, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}
	return &ERC20Reader{client: client, abi: parsed}, nil
}

// Decimals 代币精度，读取失败时回退18
func (r *ERC20Reader) Decimals(ctx context.Context, token common.Address) int {
	key := strings.ToLower(token.Hex())
	if cached, ok := r.decimalsCache.Load(key); ok {
		return cached.(int)
	}

	decimals := 18
	data, err := r.abi.Pack("decimals")
	if err == nil {
		if result, err := r.client.Call(ctx, token, data); err == nil {
			var value uint8
			if err := r.abi.UnpackIntoInterface(&value, "decimals", result); err == nil {
				decimals = int(value)
			}
		}
	}

	r.decimalsCache.Store(key, decimals)
	return decimals
}

// Symbol 代币符号，失败返回空串
func (r *ERC20Reader) Symbol(ctx context.Context, token common.Address) string {
	return r.callString(ctx, token, "symbol")
}

// Name 代币名称，失败返回空串
func (r *ERC20Reader) Name(ctx context.Context, token common.Address) string {
	return r.callString(ctx, token, "name")
}

func (r *ERC20Reader) callString(ctx context.Context, token common.Address, method string) string {
	data, err := r.abi.Pack(method)
	if err != nil {
		return ""
	}
	result, err := r.client.Call(ctx, token, data)
	if err != nil {
		return ""
	}
	var value string
	if err := r.abi.UnpackIntoInterface(&value, method, result); err != nil {
		return ""
	}
	return value
}
