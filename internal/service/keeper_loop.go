package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/agentfi/keeper/internal/config"
	"github.com/agentfi/keeper/internal/models"
	"github.com/agentfi/keeper/internal/telegram"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// KeeperLoop 自动交易keeper的调度循环。
// 每个周期串行处理所有开启自动交易的Agent，
// 周期之间由in-flight标记互斥，慢周期会让后续tick直接跳过而不是排队
type KeeperLoop struct {
	logger *zap.Logger

	conf      config.KeeperConf
	store     *StoreService
	discovery *DiscoveryService
	market    *MarketService
	signal    *SignalService
	executor  *ExecutorService
	notifier  *telegram.Notifier

	cycle     int
	startTime time.Time
	inFlight  atomic.Bool
	isRunning bool
	stopChan  chan struct{}
	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewKeeperLoop 创建keeper循环
func NewKeeperLoop(
	conf *config.Config,
	store *StoreService,
	discovery *DiscoveryService,
	market *MarketService,
	signal *SignalService,
	executor *ExecutorService,
	notifier *telegram.Notifier,
	logger *zap.Logger,
) *KeeperLoop {
	return &KeeperLoop{
		logger:    logger,
		conf:      conf.Keeper,
		store:     store,
		discovery: discovery,
		market:    market,
		signal:    signal,
		executor:  executor,
		notifier:  notifier,
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
	}
}

// Start 启动keeper循环，阻塞到Stop或ctx取消
func (k *KeeperLoop) Start(ctx context.Context) error {
	if k.isRunning {
		return fmt.Errorf("keeper loop is already running")
	}

	k.isRunning = true
	k.startTime = time.Now()
	k.stopChan = make(chan struct{})
	k.ctx, k.cancel = context.WithCancel(ctx)

	// 从日志表恢复周期编号，重启后不从0开始
	if lastCycle, err := k.store.LatestCycle(ctx); err != nil {
		k.logger.Warn("failed to load latest cycle, fallback to 0", zap.Error(err))
	} else if lastCycle > 0 {
		k.cycle = lastCycle
		k.logger.Info("resume cycle counter from history", zap.Int("cycle", k.cycle))
	}

	interval := k.conf.IntervalSeconds
	if interval <= 0 {
		interval = 120
	}
	cronExpr := fmt.Sprintf("@every %ds", interval)

	k.logger.Info("keeper loop started",
		zap.Int("interval_seconds", interval),
		zap.String("cron_expression", cronExpr))

	k.cron = cron.New()
	_, err := k.cron.AddFunc(cronExpr, func() {
		if err := k.ExecuteCycle(context.Background()); err != nil {
			k.logger.Error("cycle execution failed", zap.Error(err))
		}
	})
	if err != nil {
		k.isRunning = false
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	k.cron.Start()

	// 延迟几秒执行第一轮，避开进程初始化
	startDelay := k.conf.StartDelaySeconds
	if startDelay <= 0 {
		startDelay = 5
	}
	go func() {
		select {
		case <-time.After(time.Duration(startDelay) * time.Second):
		case <-k.ctx.Done():
			return
		}
		if err := k.ExecuteCycle(context.Background()); err != nil {
			k.logger.Error("first cycle execution failed", zap.Error(err))
		}
	}()

	select {
	case <-k.stopChan:
		k.logger.Info("keeper loop stopped by user")
		return nil
	case <-ctx.Done():
		k.logger.Info("keeper loop stopped by context")
		return ctx.Err()
	}
}

// Stop 停止keeper循环
func (k *KeeperLoop) Stop() {
	if !k.isRunning {
		return
	}

	k.logger.Info("stopping keeper loop...")

	if k.cron != nil {
		ctx := k.cron.Stop()
		<-ctx.Done() // 等待正在执行的周期完成
		k.logger.Info("cron scheduler stopped")
	}

	if k.cancel != nil {
		k.cancel()
	}

	k.isRunning = false
	close(k.stopChan)
	k.logger.Info("keeper loop stopped")
}

// ExecuteCycle 执行一个keeper周期。
// 上一个周期还在执行时直接丢弃本次tick
func (k *KeeperLoop) ExecuteCycle(ctx context.Context) error {
	if !k.inFlight.CompareAndSwap(false, true) {
		k.logger.Warn("previous cycle still running, tick dropped", zap.Int("cycle", k.cycle))
		return nil
	}
	defer k.inFlight.Store(false)

	k.cycle++
	cycleStart := time.Now()

	k.logger.Info("========== KEEPER CYCLE START ==========",
		zap.Int("cycle", k.cycle),
		zap.Time("start_time", cycleStart))

	// ========== Step 1: 重置过期的每日额度 ==========
	k.logger.Info("[STEP 1/4] Resetting expired daily caps...")
	if err := k.store.ResetDailyCaps(ctx); err != nil {
		return fmt.Errorf("step 1 failed - reset daily caps: %w", err)
	}

	// ========== Step 2: 加载开启自动交易的Agent ==========
	k.logger.Info("[STEP 2/4] Loading enabled agents...")
	agents, err := k.store.GetEnabledAgents(ctx)
	if err != nil {
		return fmt.Errorf("step 2 failed - load enabled agents: %w", err)
	}
	if len(agents) == 0 {
		k.logger.Info("no enabled agents, cycle skipped")
		return nil
	}
	k.logger.Info("[STEP 2/4] Enabled agents loaded", zap.Int("count", len(agents)))

	// ========== Step 3: 发现候选代币与市场环境（本周期共享） ==========
	// 发现只做一次，流动性门槛取第一个Agent的策略，
	// 混合策略的Agent会共用同一份候选列表
	k.logger.Info("[STEP 3/4] Discovering candidate tokens...",
		zap.String("strategy", agents[0].Strategy))
	candidates := k.discovery.DiscoverTokens(ctx, agents[0].Strategy)
	marketContext := k.market.CollectContext(ctx)
	k.logger.Info("[STEP 3/4] Discovery finished",
		zap.Int("candidates", len(candidates)),
		zap.Bool("market_context", marketContext != nil))

	// ========== Step 4: 逐个处理Agent ==========
	k.logger.Info("[STEP 4/4] Processing agents...")
	for i := range agents {
		k.processAgent(ctx, &agents[i], candidates, marketContext)
	}

	k.logger.Info("========== KEEPER CYCLE END ==========",
		zap.Int("cycle", k.cycle),
		zap.Duration("duration", time.Since(cycleStart)),
		zap.Int("agents", len(agents)))

	return nil
}

// processAgent 处理单个Agent的一个周期：读余额、生成信号、校验、执行、记录。
// 任何panic都在这里兜住，一个Agent的故障不能中断本周期其余Agent
func (k *KeeperLoop) processAgent(ctx context.Context, cfg *models.AgentConfig,
	candidates []CandidateToken, marketContext *MarketContext) {

	defer func() {
		if r := recover(); r != nil {
			k.logger.Error("agent processing panicked",
				zap.Uint64("agent_id", cfg.AgentID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			k.appendLog(ctx, cfg.AgentID, models.LogTypeError, map[string]any{
				"error": fmt.Sprint(r),
			})
		}
	}()

	balance, err := k.executor.ReadSpendableBalance(ctx, cfg.AgentID)
	if err != nil {
		k.logger.Error("failed to read agent balance",
			zap.Uint64("agent_id", cfg.AgentID),
			zap.Error(err))
		k.appendLog(ctx, cfg.AgentID, models.LogTypeError, map[string]any{
			"error": err.Error(),
		})
		return
	}

	positions, err := k.store.GetTrackedTokens(ctx, cfg.AgentID)
	if err != nil {
		k.appendLog(ctx, cfg.AgentID, models.LogTypeError, map[string]any{
			"error": err.Error(),
		})
		return
	}

	signal, err := k.signal.GenerateTradeSignal(ctx, &PromptData{
		Config:          cfg,
		Candidates:      candidates,
		Positions:       positions,
		VaultBalanceBNB: balance.Total(),
		Market:          marketContext,
	})
	if err != nil {
		// LLM不可用属于预期内的临时故障，跳过本周期
		k.logger.Warn("no signal this cycle",
			zap.Uint64("agent_id", cfg.AgentID),
			zap.Error(err))
		k.appendLog(ctx, cfg.AgentID, models.LogTypeSkip, map[string]any{
			"reason": "信号生成失败：" + err.Error(),
		})
		return
	}

	validation := ValidateSignal(signal, cfg, positions, k.signal.blacklist, time.Now())
	if !validation.Valid {
		k.logger.Info("signal rejected",
			zap.Uint64("agent_id", cfg.AgentID),
			zap.String("action", signal.Action),
			zap.String("reason", validation.Reason))
		k.appendLog(ctx, cfg.AgentID, models.LogTypeSkip, map[string]any{
			"signal": signal,
			"reason": validation.Reason,
		})
		return
	}

	result := k.executor.ExecuteTradeForAgent(ctx, cfg, signal, validation.TradeAmount)
	if !result.Success {
		k.logger.Warn("trade execution failed",
			zap.Uint64("agent_id", cfg.AgentID),
			zap.String("error", result.Error))
		k.appendLog(ctx, cfg.AgentID, models.LogTypeFailed, result)
		return
	}

	record := TradeRecord{
		AgentID:    cfg.AgentID,
		Action:     result.Action,
		Token:      signal.Token,
		TokenAddr:  result.TokenAddress,
		AmountBNB:  result.AmountBNB,
		TxHash:     result.TxHash,
		Reasoning:  signal.Reasoning,
		TokensUsed: signal.TokensUsed,
	}
	if err := k.store.RecordTrade(ctx, k.cycle, record); err != nil {
		// 交易已经上链但记录失败，这种不一致必须显式暴露出来
		k.logger.Error("failed to record executed trade",
			zap.Uint64("agent_id", cfg.AgentID),
			zap.String("tx_hash", result.TxHash),
			zap.Error(err))
		return
	}

	k.logger.Info("trade executed",
		zap.Uint64("agent_id", cfg.AgentID),
		zap.String("action", result.Action),
		zap.String("token", signal.Token),
		zap.Float64("amount_bnb", result.AmountBNB),
		zap.String("tx_hash", result.TxHash))

	k.notifyTrade(cfg, signal, result)
}

func (k *KeeperLoop) appendLog(ctx context.Context, agentID uint64, logType string, payload any) {
	if err := k.store.AppendLog(ctx, agentID, k.cycle, logType, payload); err != nil {
		k.logger.Error("failed to append trade log",
			zap.Uint64("agent_id", agentID),
			zap.String("type", logType),
			zap.Error(err))
	}
}

// notifyTrade 成交后推送Telegram通知，未配置时跳过
func (k *KeeperLoop) notifyTrade(cfg *models.AgentConfig, signal *TradeSignal, result ExecuteResult) {
	if k.notifier == nil {
		return
	}
	msg := fmt.Sprintf("Agent #%d %s %s\n金额: %.4f BNB\n交易: %s\n理由: %s",
		cfg.AgentID, result.Action, signal.Token, result.AmountBNB, result.TxHash, signal.Reasoning)
	if err := k.notifier.Notify(msg); err != nil {
		k.logger.Warn("failed to send telegram notification", zap.Error(err))
	}
}

// IsRunning 检查是否正在运行
func (k *KeeperLoop) IsRunning() bool {
	return k.isRunning
}

// GetStatus 获取循环状态
func (k *KeeperLoop) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"is_running":       k.isRunning,
		"cycle":            k.cycle,
		"cycle_in_flight":  k.inFlight.Load(),
		"start_time":       k.startTime,
		"elapsed_hours":    time.Since(k.startTime).Hours(),
		"interval_seconds": k.conf.IntervalSeconds,
	}
}
