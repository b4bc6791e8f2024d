package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// 金库合约方法
const (
	MethodBNBBalances          = "bnbBalances"
	MethodBalances             = "balances"
	MethodSwapBNBForTokens     = "swapBNBForTokens"
	MethodSwapAgentBNBForTokens = "swapAgentBNBForTokens"
	MethodSwapTokensForBNB     = "swapTokensForBNB"
	MethodReimburseGas         = "reimburseGas"
)

const vaultABIJSON = `[
	{
		"name": "bnbBalances",
		"type": "function",
		"inputs": [{"name": "agentId", "type": "uint256"}],
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view"
	},
	{
		"name": "balances",
		"type": "function",
		"inputs": [
			{"name": "agentId", "type": "uint256"},
			{"name": "token", "type": "address"}
		],
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view"
	},
	{
		"name": "swapBNBForTokens",
		"type": "function",
		"inputs": [
			{"name": "agentId", "type": "uint256"},
			{"name": "token", "type": "address"},
			{"name": "minOut", "type": "uint256"}
		],
		"outputs": [{"name": "amountOut", "type": "uint256"}],
		"stateMutability": "payable"
	},
	{
		"name": "swapAgentBNBForTokens",
		"type": "function",
		"inputs": [
			{"name": "agentId", "type": "uint256"},
			{"name": "token", "type": "address"},
			{"name": "amountBNB", "type": "uint256"},
			{"name": "minOut", "type": "uint256"}
		],
		"outputs": [{"name": "amountOut", "type": "uint256"}],
		"stateMutability": "nonpayable"
	},
	{
		"name": "swapTokensForBNB",
		"type": "function",
		"inputs": [
			{"name": "agentId", "type": "uint256"},
			{"name": "token", "type": "address"},
			{"name": "amountIn", "type": "uint256"},
			{"name": "minOut", "type": "uint256"}
		],
		"outputs": [{"name": "amountOut", "type": "uint256"}],
		"stateMutability": "nonpayable"
	},
	{
		"name": "reimburseGas",
		"type": "function",
		"inputs": [
			{"name": "agentId", "type": "uint256"},
			{"name": "amount", "type": "uint256"}
		],
		"outputs": [],
		"stateMutability": "nonpayable"
	}
]`

// 交易类调用的gas上限
const (
	swapGasLimit      = uint64(500000)
	reimburseGasLimit = uint64(100000)
)

// Vault Agent金库合约，持有每个Agent的BNB与代币余额并执行swap
type Vault struct {
	client  *Client
	address common.Address
	abi     abi.ABI
}

func NewVault(client *Client, address string) (*Vault, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid vault address: %s", address)
	}
	parsed, err := abi.JSON(strings.NewReader(vaultABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault abi: %w", err)
	}
	return &Vault{
		client:  client,
		address: common.HexToAddress(address),
		abi:     parsed,
	}, nil
}

// BNBBalance 金库内部记账的Agent BNB余额（wei）
func (v *Vault) BNBBalance(ctx context.Context, agentID uint64) (*big.Int, error) {
	return v.callUint(ctx, MethodBNBBalances, new(big.Int).SetUint64(agentID))
}

// TokenBalance 金库内Agent持有的代币余额（最小单位）
func (v *Vault) TokenBalance(ctx context.Context, agentID uint64, token common.Address) (*big.Int, error) {
	return v.callUint(ctx, MethodBalances, new(big.Int).SetUint64(agentID), token)
}

// SwapAgentBNBForTokens 用金库内部BNB余额买入代币
func (v *Vault) SwapAgentBNBForTokens(ctx context.Context, agentID uint64, token common.Address, amountWei, minOut *big.Int) (*types.Receipt, error) {
	data, err := v.abi.Pack(MethodSwapAgentBNBForTokens, new(big.Int).SetUint64(agentID), token, amountWei, minOut)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", MethodSwapAgentBNBForTokens, err)
	}
	return v.client.Transact(ctx, v.address, nil, data, swapGasLimit)
}

// SwapBNBForTokens 随调用附带BNB买入代币（合约不支持内部余额路径时的备选）
func (v *Vault) SwapBNBForTokens(ctx context.Context, agentID uint64, token common.Address, amountWei, minOut *big.Int) (*types.Receipt, error) {
	data, err := v.abi.Pack(MethodSwapBNBForTokens, new(big.Int).SetUint64(agentID), token, minOut)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", MethodSwapBNBForTokens, err)
	}
	return v.client.Transact(ctx, v.address, amountWei, data, swapGasLimit)
}

// SwapTokensForBNB 卖出代币换回BNB
func (v *Vault) SwapTokensForBNB(ctx context.Context, agentID uint64, token common.Address, amountIn, minOut *big.Int) (*types.Receipt, error) {
	data, err := v.abi.Pack(MethodSwapTokensForBNB, new(big.Int).SetUint64(agentID), token, amountIn, minOut)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", MethodSwapTokensForBNB, err)
	}
	return v.client.Transact(ctx, v.address, nil, data, swapGasLimit)
}

// ReimburseGas 从Agent金库余额补偿keeper的gas花费
func (v *Vault) ReimburseGas(ctx context.Context, agentID uint64, amountWei *big.Int) (*types.Receipt, error) {
	data, err := v.abi.Pack(MethodReimburseGas, new(big.Int).SetUint64(agentID), amountWei)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", MethodReimburseGas, err)
	}
	return v.client.Transact(ctx, v.address, nil, data, reimburseGasLimit)
}

func (v *Vault) callUint(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	data, err := v.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	result, err := v.client.Call(ctx, v.address, data)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	var value *big.Int
	if err := v.abi.UnpackIntoInterface(&value, method, result); err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return value, nil
}
