package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const registryABIJSON = `[
	{
		"name": "ownerOf",
		"type": "function",
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"outputs": [{"name": "", "type": "address"}],
		"stateMutability": "view"
	},
	{
		"name": "getAgentTier",
		"type": "function",
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"outputs": [{"name": "", "type": "uint8"}],
		"stateMutability": "view"
	},
	{
		"name": "agentFunds",
		"type": "function",
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view"
	}
]`

// Registry Agent NFT注册合约，只读：持有人、等级、NFT关联资金
type Registry struct {
	client  *Client
	address common.Address
	abi     abi.ABI
}

func NewRegistry(client *Client, address string) (*Registry, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid registry address: %s", address)
	}
	parsed, err := abi.JSON(strings.NewReader(registryABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry abi: %w", err)
	}
	return &Registry{
		client:  client,
		address: common.HexToAddress(address),
		abi:     parsed,
	}, nil
}

// OwnerOf NFT持有人地址
func (r *Registry) OwnerOf(ctx context.Context, agentID uint64) (common.Address, error) {
	data, err := r.abi.Pack("ownerOf", new(big.Int).SetUint64(agentID))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to pack ownerOf: %w", err)
	}
	result, err := r.client.Call(ctx, r.address, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to call ownerOf: %w", err)
	}
	var owner common.Address
	if err := r.abi.UnpackIntoInterface(&owner, "ownerOf", result); err != nil {
		return common.Address{}, fmt.Errorf("failed to unpack ownerOf: %w", err)
	}
	return owner, nil
}

// GetAgentTier Agent等级 1-5
func (r *Registry) GetAgentTier(ctx context.Context, agentID uint64) (int, error) {
	data, err := r.abi.Pack("getAgentTier", new(big.Int).SetUint64(agentID))
	if err != nil {
		return 0, fmt.Errorf("failed to pack getAgentTier: %w", err)
	}
	result, err := r.client.Call(ctx, r.address, data)
	if err != nil {
		return 0, fmt.Errorf("failed to call getAgentTier: %w", err)
	}
	var tier uint8
	if err := r.abi.UnpackIntoInterface(&tier, "getAgentTier", result); err != nil {
		return 0, fmt.Errorf("failed to unpack getAgentTier: %w", err)
	}
	return int(tier), nil
}

// AgentFunds NFT关联的资金余额（wei）。链上托管分两处，
// 买入前的余量判断必须把它和金库内部余额求和。
func (r *Registry) AgentFunds(ctx context.Context, agentID uint64) (*big.Int, error) {
	data, err := r.abi.Pack("agentFunds", new(big.Int).SetUint64(agentID))
	if err != nil {
		return nil, fmt.Errorf("failed to pack agentFunds: %w", err)
	}
	result, err := r.client.Call(ctx, r.address, data)
	if err != nil {
		return nil, fmt.Errorf("failed to call agentFunds: %w", err)
	}
	var funds *big.Int
	if err := r.abi.UnpackIntoInterface(&funds, "agentFunds", result); err != nil {
		return nil, fmt.Errorf("failed to unpack agentFunds: %w", err)
	}
	return funds, nil
}
