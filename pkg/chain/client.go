package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const defaultTxWait = 120 * time.Second

// Client BSC链访问客户端，封装合约读写与交易签名提交
type Client struct {
	logger *zap.Logger

	eth        *ethclient.Client
	chainID    *big.Int
	privateKey *ecdsa.PrivateKey
	address    common.Address
	txWait     time.Duration
}

// NewClient 创建链客户端。RPC地址或签名私钥缺失/非法视为致命错误，
// 由调用方决定是否放弃启动keeper，不影响宿主应用的其他功能。
func NewClient(rpcURL string, chainID int64, privateKeyHex string, txWaitSeconds int, logger *zap.Logger) (*Client, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("chain rpc url is required")
	}
	if privateKeyHex == "" {
		return nil, fmt.Errorf("keeper private key is required")
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid keeper private key: %w", err)
	}

	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc %s: %w", rpcURL, err)
	}

	txWait := defaultTxWait
	if txWaitSeconds > 0 {
		txWait = time.Duration(txWaitSeconds) * time.Second
	}

	address := crypto.PubkeyToAddress(privateKey.PublicKey)

	logger.Info("chain client initialized",
		zap.Int64("chain_id", chainID),
		zap.String("keeper_address", address.Hex()),
		zap.Duration("tx_wait", txWait))

	return &Client{
		logger:     logger,
		eth:        eth,
		chainID:    big.NewInt(chainID),
		privateKey: privateKey,
		address:    address,
		txWait:     txWait,
	}, nil
}

// KeeperAddress keeper签名地址
func (c *Client) KeeperAddress() common.Address {
	return c.address
}

// Call 只读合约调用
func (c *Client) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &to,
		Data: data,
	}, nil)
}

// Transact 构造、签名并提交交易，等待上链确认。
// 等待受txWait超时约束，RPC卡死不会无限期冻结整个keeper周期。
func (c *Client) Transact(ctx context.Context, to common.Address, value *big.Int, data []byte, gasLimit uint64) (*types.Receipt, error) {
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get account nonce: %w", err)
	}

	if value == nil {
		value = big.NewInt(0)
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.Info("transaction sent",
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.String("to", to.Hex()))

	waitCtx, cancel := context.WithTimeout(ctx, c.txWait)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, c.eth, signedTx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for transaction %s: %w", signedTx.Hash().Hex(), err)
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, fmt.Errorf("transaction %s reverted", signedTx.Hash().Hex())
	}

	return receipt, nil
}

// GasCost 从回执计算实际gas花费（wei），数据不全时返回nil
func GasCost(receipt *types.Receipt) *big.Int {
	if receipt == nil || receipt.EffectiveGasPrice == nil || receipt.GasUsed == 0 {
		return nil
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), receipt.EffectiveGasPrice)
}

// IsValidAddress 校验hex地址格式
func IsValidAddress(address string) bool {
	return common.IsHexAddress(address)
}
