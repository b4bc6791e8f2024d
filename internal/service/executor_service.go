package service

import (
	"context"
	"fmt"
	"math/big"

	"github.com/agentfi/keeper/internal/config"
	"github.com/agentfi/keeper/internal/models"
	"github.com/agentfi/keeper/pkg/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// ExecuteResult 一次交易执行的结果，由keeper负责记录，执行层本身不写日志表
type ExecuteResult struct {
	Success          bool    `json:"success"`
	Action           string  `json:"action"`
	TokenAddress     string  `json:"token_address"`
	AmountBNB        float64 `json:"amount_bnb"`
	SoldTokens       float64 `json:"sold_tokens,omitempty"`
	TxHash           string  `json:"tx_hash,omitempty"`
	GasReimbursedBNB float64 `json:"gas_reimbursed_bnb,omitempty"`
	Error            string  `json:"error,omitempty"`
}

func failResult(action, token string, amount float64, format string, args ...any) ExecuteResult {
	return ExecuteResult{
		Success:      false,
		Action:       action,
		TokenAddress: token,
		AmountBNB:    amount,
		Error:        fmt.Sprintf(format, args...),
	}
}

// ExecutorService 交易执行服务，将通过校验的信号转换为金库合约调用
type ExecutorService struct {
	logger *zap.Logger

	conf      config.KeeperConf
	vault     *chain.Vault
	registry  *chain.Registry
	erc20     *chain.ERC20Reader
	blacklist *Blacklist
	store     *StoreService
}

// NewExecutorService 创建交易执行服务
func NewExecutorService(conf *config.Config, vault *chain.Vault, registry *chain.Registry,
	erc20 *chain.ERC20Reader, blacklist *Blacklist, store *StoreService, logger *zap.Logger) *ExecutorService {
	return &ExecutorService{
		logger:    logger,
		conf:      conf.Keeper,
		vault:     vault,
		registry:  registry,
		erc20:     erc20,
		blacklist: blacklist,
		store:     store,
	}
}

// SpendableBalance Agent可用的BNB余额，链上设计把托管拆在两处，
// 容量检查前必须把两处余额相加
type SpendableBalance struct {
	VaultBNB  float64 `json:"vault_bnb"`  // 金库内部余额
	AgentFund float64 `json:"agent_fund"` // NFT关联的资金余额
}

func (b SpendableBalance) Total() float64 {
	return b.VaultBNB + b.AgentFund
}

// ReadSpendableBalance 读取Agent两处BNB余额
func (s *ExecutorService) ReadSpendableBalance(ctx context.Context, agentID uint64) (SpendableBalance, error) {
	var balance SpendableBalance

	vaultWei, err := s.vault.BNBBalance(ctx, agentID)
	if err != nil {
		return balance, fmt.Errorf("failed to read vault balance: %w", err)
	}
	balance.VaultBNB = chain.WeiToBNB(vaultWei)

	fundWei, err := s.registry.AgentFunds(ctx, agentID)
	if err != nil {
		return balance, fmt.Errorf("failed to read agent funds: %w", err)
	}
	balance.AgentFund = chain.WeiToBNB(fundWei)

	return balance, nil
}

// ExecuteTradeForAgent 执行一笔已通过校验的交易。
// 所有链上失败都以结果形式返回而不抛出，本函数内不做重试，
// 下一个keeper周期自然就是重试机会
func (s *ExecutorService) ExecuteTradeForAgent(ctx context.Context, cfg *models.AgentConfig,
	signal *TradeSignal, tradeAmount float64) ExecuteResult {

	// 执行层的第三道防线：地址合法性与黑名单
	if !chain.IsValidAddress(signal.TokenAddress) {
		return failResult(signal.Action, signal.TokenAddress, tradeAmount,
			"invalid token address: %s", signal.TokenAddress)
	}
	if s.blacklist.Contains(signal.TokenAddress, signal.Token) {
		return failResult(signal.Action, signal.TokenAddress, tradeAmount,
			"token %s is blacklisted", signal.Token)
	}

	token := common.HexToAddress(signal.TokenAddress)
	decimals := s.erc20.Decimals(ctx, token)

	switch signal.Action {
	case ActionBuy:
		return s.executeBuy(ctx, cfg, signal, token, decimals, tradeAmount)
	case ActionSell:
		return s.executeSell(ctx, cfg, signal, token, decimals, tradeAmount)
	default:
		// 校验层已经拦截了hold，走到这里说明出了bug，必须显式失败
		return failResult(signal.Action, signal.TokenAddress, tradeAmount,
			"unexpected action %q reached executor", signal.Action)
	}
}

// executeBuy 买入：优先走金库内部余额路径，合约不支持时回退到附带转账的调用
func (s *ExecutorService) executeBuy(ctx context.Context, cfg *models.AgentConfig,
	signal *TradeSignal, token common.Address, decimals int, tradeAmount float64) ExecuteResult {

	balance, err := s.ReadSpendableBalance(ctx, cfg.AgentID)
	if err != nil {
		return failResult(ActionBuy, signal.TokenAddress, tradeAmount, "%v", err)
	}
	if balance.Total() < tradeAmount {
		return failResult(ActionBuy, signal.TokenAddress, tradeAmount,
			"insufficient balance %.6f BNB, deposit BNB to agent vault first", balance.Total())
	}

	amountWei := chain.BNBToWei(tradeAmount)
	minOut := big.NewInt(0)

	receipt, err := s.vault.SwapAgentBNBForTokens(ctx, cfg.AgentID, token, amountWei, minOut)
	if err != nil {
		s.logger.Warn("internal balance swap failed, trying value-attached path",
			zap.Uint64("agent_id", cfg.AgentID),
			zap.Error(err))
		receipt, err = s.vault.SwapBNBForTokens(ctx, cfg.AgentID, token, amountWei, minOut)
	}
	if err != nil {
		return failResult(ActionBuy, signal.TokenAddress, tradeAmount, "swap failed: %v", err)
	}

	symbol := s.erc20.Symbol(ctx, token)
	if symbol == "" {
		symbol = signal.Token
	}
	name := s.erc20.Name(ctx, token)
	if name == "" {
		name = signal.TokenName
	}
	if err := s.store.TrackPosition(ctx, cfg.AgentID, signal.TokenAddress, symbol, name, decimals); err != nil {
		s.logger.Error("failed to track position",
			zap.Uint64("agent_id", cfg.AgentID),
			zap.String("token", signal.TokenAddress),
			zap.Error(err))
	}

	reimbursed := s.reimburseGas(ctx, cfg.AgentID, receipt)

	return ExecuteResult{
		Success:          true,
		Action:           ActionBuy,
		TokenAddress:     signal.TokenAddress,
		AmountBNB:        tradeAmount,
		TxHash:           receipt.TxHash.Hex(),
		GasReimbursedBNB: reimbursed,
	}
}

// executeSell 卖出：卖出量不超过持仓的固定比例，也不超过单笔上限折算的比例
func (s *ExecutorService) executeSell(ctx context.Context, cfg *models.AgentConfig,
	signal *TradeSignal, token common.Address, decimals int, tradeAmount float64) ExecuteResult {

	heldWei, err := s.vault.TokenBalance(ctx, cfg.AgentID, token)
	if err != nil {
		return failResult(ActionSell, signal.TokenAddress, tradeAmount,
			"failed to read token balance: %v", err)
	}
	held := chain.FromTokenUnits(heldWei, decimals)
	if held <= 0 {
		return failResult(ActionSell, signal.TokenAddress, tradeAmount,
			"no %s balance to sell", signal.Token)
	}

	fraction := sellFraction(tradeAmount, cfg.MaxTradeBNB, s.conf.MaxSellFraction)
	sellTokens := held * fraction
	if sellTokens <= 0 {
		return failResult(ActionSell, signal.TokenAddress, tradeAmount, "sell amount is zero")
	}

	amountIn := chain.ToTokenUnits(sellTokens, decimals)
	receipt, err := s.vault.SwapTokensForBNB(ctx, cfg.AgentID, token, amountIn, big.NewInt(0))
	if err != nil {
		return failResult(ActionSell, signal.TokenAddress, tradeAmount, "swap failed: %v", err)
	}

	// 卖出后重读余额，降到粉尘以下就移除仓位记录
	if remainingWei, err := s.vault.TokenBalance(ctx, cfg.AgentID, token); err == nil {
		if dustSettled(chain.FromTokenUnits(remainingWei, decimals), s.conf.DustThreshold) {
			if err := s.store.RemovePosition(ctx, cfg.AgentID, signal.TokenAddress); err != nil {
				s.logger.Error("failed to remove position",
					zap.Uint64("agent_id", cfg.AgentID),
					zap.String("token", signal.TokenAddress),
					zap.Error(err))
			}
		}
	}

	reimbursed := s.reimburseGas(ctx, cfg.AgentID, receipt)

	return ExecuteResult{
		Success:          true,
		Action:           ActionSell,
		TokenAddress:     signal.TokenAddress,
		AmountBNB:        tradeAmount,
		SoldTokens:       sellTokens,
		TxHash:           receipt.TxHash.Hex(),
		GasReimbursedBNB: reimbursed,
	}
}

// dustSettled 卖出后的剩余持仓是否已降到粉尘、应当移除仓位记录。
// 阈值未配置时默认1e-6
func dustSettled(remaining, threshold float64) bool {
	if threshold <= 0 {
		threshold = 0.000001
	}
	return remaining <= threshold
}

// sellFraction 单笔卖出占持仓的比例：
// 不超过配置的上限（默认50%），也不超过交易金额相对单笔上限折算的比例
func sellFraction(tradeAmount, maxTradeBNB, maxFraction float64) float64 {
	if maxFraction <= 0 || maxFraction > 1 {
		maxFraction = 0.5
	}
	fraction := maxFraction
	if maxTradeBNB > 0 {
		if implied := tradeAmount / maxTradeBNB; implied < fraction {
			fraction = implied
		}
	}
	if fraction < 0 {
		return 0
	}
	return fraction
}

// reimburseGas 交易成功后从Agent金库补偿keeper的gas支出。
// 补偿金额不超过配置上限，金库余额不足或回执缺少gas信息时跳过，
// 补偿失败只记日志，不影响交易结果
func (s *ExecutorService) reimburseGas(ctx context.Context, agentID uint64, receipt *types.Receipt) float64 {
	costWei := chain.GasCost(receipt)
	if costWei == nil || costWei.Sign() <= 0 {
		return 0
	}

	capBNB := s.conf.GasReimburseCap
	if capBNB <= 0 {
		capBNB = 0.005
	}
	capWei := chain.BNBToWei(capBNB)
	if costWei.Cmp(capWei) > 0 {
		costWei = capWei
	}

	vaultWei, err := s.vault.BNBBalance(ctx, agentID)
	if err != nil || vaultWei.Cmp(costWei) < 0 {
		s.logger.Warn("skip gas reimbursement",
			zap.Uint64("agent_id", agentID),
			zap.Error(err))
		return 0
	}

	if _, err := s.vault.ReimburseGas(ctx, agentID, costWei); err != nil {
		s.logger.Warn("gas reimbursement failed",
			zap.Uint64("agent_id", agentID),
			zap.Error(err))
		return 0
	}
	return chain.WeiToBNB(costWei)
}
