package service

import (
	"context"
	"strings"
	"time"

	"github.com/agentfi/keeper/internal/models"
	"github.com/agentfi/keeper/internal/xe"
	"github.com/agentfi/keeper/pkg/chain"
	"go.uber.org/zap"
)

// ControlService 自动交易的控制面：开启、关闭、状态查询与模拟执行。
// 所有修改操作都要求调用方地址与链上NFT持有人一致
type ControlService struct {
	logger *zap.Logger

	store     *StoreService
	registry  *chain.Registry
	discovery *DiscoveryService
	market    *MarketService
	signal    *SignalService
	executor  *ExecutorService
	blacklist *Blacklist
}

// NewControlService 创建控制面服务
func NewControlService(store *StoreService, registry *chain.Registry,
	discovery *DiscoveryService, market *MarketService, signal *SignalService,
	executor *ExecutorService, blacklist *Blacklist, logger *zap.Logger) *ControlService {
	return &ControlService{
		logger:    logger,
		store:     store,
		registry:  registry,
		discovery: discovery,
		market:    market,
		signal:    signal,
		executor:  executor,
		blacklist: blacklist,
	}
}

// EnableParams 开启自动交易的参数
type EnableParams struct {
	AgentID       uint64
	OwnerAddress  string
	Strategy      string
	MaxTradeBNB   float64
	DailyCapBNB   float64
	SlippageBps   int
	CooldownMins  int
	StopLossPct   float64
	TakeProfitPct float64
}

// Enable 开启Agent的自动交易。
// 校验链上持有人与等级（4级以上），限额按等级上限收敛后保存
func (s *ControlService) Enable(ctx context.Context, params EnableParams) (*models.AgentConfig, error) {
	switch params.Strategy {
	case models.StrategyConservative, models.StrategyBalanced, models.StrategyAggressive:
	default:
		return nil, xe.ErrInvalidStrategy
	}

	owner, err := s.registry.OwnerOf(ctx, params.AgentID)
	if err != nil {
		s.logger.Error("failed to read agent owner",
			zap.Uint64("agent_id", params.AgentID),
			zap.Error(err))
		return nil, xe.ErrChainUnavailable
	}
	if !strings.EqualFold(owner.Hex(), params.OwnerAddress) {
		return nil, xe.ErrNotAgentOwner
	}

	tier, err := s.registry.GetAgentTier(ctx, params.AgentID)
	if err != nil {
		s.logger.Error("failed to read agent tier",
			zap.Uint64("agent_id", params.AgentID),
			zap.Error(err))
		return nil, xe.ErrChainUnavailable
	}
	if tier < models.MinAutoTradeTier {
		return nil, xe.ErrTierTooLow
	}

	cfg, err := s.store.SetConfig(ctx, params.AgentID, func(cfg *models.AgentConfig) {
		cfg.Enabled = true
		cfg.OwnerAddress = params.OwnerAddress
		cfg.Tier = tier
		cfg.Strategy = params.Strategy
		if params.MaxTradeBNB > 0 {
			cfg.MaxTradeBNB = params.MaxTradeBNB
		}
		if params.DailyCapBNB > 0 {
			cfg.DailyCapBNB = params.DailyCapBNB
		}
		if params.SlippageBps > 0 {
			cfg.SlippageBps = params.SlippageBps
		}
		if params.CooldownMins > 0 {
			cfg.CooldownMins = params.CooldownMins
		}
		if params.StopLossPct > 0 {
			cfg.StopLossPct = params.StopLossPct
		}
		if params.TakeProfitPct > 0 {
			cfg.TakeProfitPct = params.TakeProfitPct
		}
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("auto trade enabled",
		zap.Uint64("agent_id", params.AgentID),
		zap.Int("tier", tier),
		zap.String("strategy", params.Strategy),
		zap.Float64("max_trade_bnb", cfg.MaxTradeBNB),
		zap.Float64("daily_cap_bnb", cfg.DailyCapBNB))

	return cfg, nil
}

// Disable 关闭Agent的自动交易。
// 优先匹配配置中的持有人地址，不一致时再查链上持有人兜底
func (s *ControlService) Disable(ctx context.Context, agentID uint64, ownerAddress string) error {
	cfg, err := s.store.GetConfig(ctx, agentID)
	if err != nil {
		return err
	}
	if cfg == nil {
		return xe.ErrAgentNotConfigured
	}

	if !strings.EqualFold(cfg.OwnerAddress, ownerAddress) {
		owner, err := s.registry.OwnerOf(ctx, agentID)
		if err != nil {
			return xe.ErrChainUnavailable
		}
		if !strings.EqualFold(owner.Hex(), ownerAddress) {
			return xe.ErrNotAgentOwner
		}
	}

	if _, err := s.store.SetConfig(ctx, agentID, func(cfg *models.AgentConfig) {
		cfg.Enabled = false
	}); err != nil {
		return err
	}

	if err := s.store.AppendLog(ctx, agentID, 0, models.LogTypeDisabled, map[string]any{
		"by": strings.ToLower(ownerAddress),
	}); err != nil {
		s.logger.Error("failed to log disable", zap.Uint64("agent_id", agentID), zap.Error(err))
	}

	s.logger.Info("auto trade disabled", zap.Uint64("agent_id", agentID))
	return nil
}

// AgentStatus Agent自动交易状态
type AgentStatus struct {
	Configured     bool                 `json:"configured"`
	Enabled        bool                 `json:"enabled"`
	Strategy       string               `json:"strategy,omitempty"`
	Tier           int                  `json:"tier,omitempty"`
	MaxTradeBNB    float64              `json:"max_trade_bnb,omitempty"`
	DailyCapBNB    float64              `json:"daily_cap_bnb,omitempty"`
	DailySpent     float64              `json:"daily_spent"`
	DailyRemaining float64              `json:"daily_remaining"`
	CooldownMins   int                  `json:"cooldown_mins,omitempty"`
	CooldownLeft   float64              `json:"cooldown_left_mins"`
	LastTradeAt    int64                `json:"last_trade_at,omitempty"`
	TotalTrades    int64                `json:"total_trades"`
	TotalVolumeBNB float64              `json:"total_volume_bnb"`
	Positions      int                  `json:"positions"`
	Balance        *SpendableBalance    `json:"balance,omitempty"`
}

// Status 查询Agent的配置与派生状态，未配置时Configured为false
func (s *ControlService) Status(ctx context.Context, agentID uint64) (*AgentStatus, error) {
	cfg, err := s.store.GetConfig(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return &AgentStatus{Configured: false}, nil
	}

	status := &AgentStatus{
		Configured:     true,
		Enabled:        cfg.Enabled,
		Strategy:       cfg.Strategy,
		Tier:           cfg.Tier,
		MaxTradeBNB:    cfg.MaxTradeBNB,
		DailyCapBNB:    cfg.DailyCapBNB,
		DailySpent:     cfg.DailySpent,
		DailyRemaining: cfg.DailyRemaining(),
		CooldownMins:   cfg.CooldownMins,
		CooldownLeft:   cfg.CooldownRemaining(time.Now()).Minutes(),
		LastTradeAt:    cfg.LastTradeAt,
		TotalTrades:    cfg.TotalTrades,
		TotalVolumeBNB: cfg.TotalVolumeBNB,
	}

	if positions, err := s.store.GetTrackedTokens(ctx, agentID); err == nil {
		status.Positions = len(positions)
	}

	// 链上余额查询失败不影响状态返回
	if balance, err := s.executor.ReadSpendableBalance(ctx, agentID); err == nil {
		status.Balance = &balance
	} else {
		s.logger.Warn("failed to read balance for status",
			zap.Uint64("agent_id", agentID),
			zap.Error(err))
	}

	return status, nil
}

// SimulateResult 模拟执行的结果
type SimulateResult struct {
	Signal       *TradeSignal     `json:"signal"`
	Validation   ValidationResult `json:"validation"`
	WouldExecute bool             `json:"would_execute"`
}

// Simulate 对指定Agent做一次完整的发现+信号+校验流程，不产生任何链上或存储副作用
func (s *ControlService) Simulate(ctx context.Context, agentID uint64, ownerAddress string) (*SimulateResult, error) {
	cfg, err := s.store.GetConfig(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, xe.ErrAgentNotConfigured
	}
	if !strings.EqualFold(cfg.OwnerAddress, ownerAddress) {
		return nil, xe.ErrNotAgentOwner
	}

	balance, err := s.executor.ReadSpendableBalance(ctx, agentID)
	if err != nil {
		return nil, xe.ErrChainUnavailable
	}

	positions, err := s.store.GetTrackedTokens(ctx, agentID)
	if err != nil {
		return nil, err
	}

	candidates := s.discovery.DiscoverTokens(ctx, cfg.Strategy)
	marketContext := s.market.CollectContext(ctx)

	signal, err := s.signal.GenerateTradeSignal(ctx, &PromptData{
		Config:          cfg,
		Candidates:      candidates,
		Positions:       positions,
		VaultBalanceBNB: balance.Total(),
		Market:          marketContext,
	})
	if err != nil {
		signal = HoldSignal("信号生成失败：" + err.Error())
	}

	validation := ValidateSignal(signal, cfg, positions, s.blacklist, time.Now())

	return &SimulateResult{
		Signal:       signal,
		Validation:   validation,
		WouldExecute: validation.Valid,
	}, nil
}

// Logs 查询自动交易日志，agentID为0时返回全部
func (s *ControlService) Logs(ctx context.Context, agentID uint64, limit int) ([]models.TradeLog, error) {
	return s.store.GetLogs(ctx, agentID, limit)
}
