package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/agentfi/keeper/internal/models"
	"github.com/agentfi/keeper/internal/repo"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StoreService Agent配置、持仓与日志的唯一写入方，
// keeper与控制接口的所有持久化修改都经过这里
type StoreService struct {
	logger *zap.Logger

	*orz.Service

	configRepo   *repo.AgentConfigRepo
	positionRepo *repo.TrackedPositionRepo
	logRepo      *repo.TradeLogRepo

	// 保护load-merge-write序列，避免控制接口与keeper周期并发写同一Agent时丢失更新
	mu sync.Mutex
}

// NewStoreService 创建配置存储服务
func NewStoreService(db *gorm.DB, logger *zap.Logger) *StoreService {
	return &StoreService{
		logger:       logger,
		Service:      orz.NewService(db),
		configRepo:   repo.NewAgentConfigRepo(db),
		positionRepo: repo.NewTrackedPositionRepo(db),
		logRepo:      repo.NewTradeLogRepo(db),
	}
}

// GetConfig 查询Agent配置，不存在时返回nil而非错误
func (s *StoreService) GetConfig(ctx context.Context, agentID uint64) (*models.AgentConfig, error) {
	cfg, err := s.configRepo.FindById(ctx, agentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// defaultConfig 配置模板，SetConfig在此基础上合并调用方的字段
func defaultConfig(agentID uint64) *models.AgentConfig {
	return &models.AgentConfig{
		AgentID:      agentID,
		Enabled:      false,
		Strategy:     models.StrategyBalanced,
		MaxTradeBNB:  0.1,
		DailyCapBNB:  0.5,
		SlippageBps:  300,
		CooldownMins: 30,
		DailyResetAt: time.Now().UnixMilli(),
	}
}

// SetConfig 加载（或创建默认）配置，应用apply的修改后收敛到等级上限并保存
func (s *StoreService) SetConfig(ctx context.Context, agentID uint64, apply func(*models.AgentConfig)) (*models.AgentConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.GetConfig(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = defaultConfig(agentID)
	}

	apply(cfg)
	cfg.ClampToTier()
	cfg.OwnerAddress = strings.ToLower(cfg.OwnerAddress)

	if err := s.configRepo.Save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetEnabledAgents 返回所有开启自动交易的Agent配置，keeper每周期的工作单元
func (s *StoreService) GetEnabledAgents(ctx context.Context) ([]models.AgentConfig, error) {
	return s.configRepo.FindEnabled(ctx)
}

// ResetDailyCaps 清零超过24小时窗口的每日额度
func (s *StoreService) ResetDailyCaps(ctx context.Context) error {
	affected, err := s.configRepo.ResetExpiredDailyCaps(ctx, time.Now())
	if err != nil {
		return err
	}
	if affected > 0 {
		s.logger.Info("daily caps reset", zap.Int64("agents", affected))
	}
	return nil
}

// TradeRecord 一次成交的持久化数据
type TradeRecord struct {
	AgentID   uint64  `json:"agent_id"`
	Action    string  `json:"action"`
	Token     string  `json:"token"`
	TokenAddr string  `json:"token_address"`
	AmountBNB float64 `json:"amount_bnb"`
	TxHash    string  `json:"tx_hash"`
	Reasoning string  `json:"reasoning"`

	TokensUsed int64 `json:"tokens_used,omitempty"` // 信号生成消耗的LLM token数
}

// RecordTrade 记录一次成交：更新冷却时间、每日已用额度与累计计数，
// 并追加一条trade日志，整体在一个事务内完成
func (s *StoreService) RecordTrade(ctx context.Context, cycle int, record TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.Transaction(ctx, func(ctx context.Context) error {
		cfg, err := s.configRepo.FindById(ctx, record.AgentID)
		if err != nil {
			return err
		}

		cfg.LastTradeAt = time.Now().UnixMilli()
		cfg.DailySpent += record.AmountBNB
		cfg.TotalTrades++
		cfg.TotalVolumeBNB += record.AmountBNB

		if err := s.configRepo.Save(ctx, &cfg); err != nil {
			return err
		}
		return s.appendLog(ctx, record.AgentID, cycle, models.LogTypeTrade, record)
	})
}

// TrackPosition 登记新买入的代币仓位，已存在时只更新元数据
func (s *StoreService) TrackPosition(ctx context.Context, agentID uint64, tokenAddress, symbol, name string, decimals int) error {
	tokenAddress = strings.ToLower(tokenAddress)

	existing, err := s.positionRepo.FindByAgentAndToken(ctx, agentID, tokenAddress)
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}
	if err == nil {
		existing.Symbol = symbol
		existing.Name = name
		existing.Decimals = decimals
		return s.positionRepo.Save(ctx, &existing)
	}

	position := models.TrackedPosition{
		ID:           ulid.Make().String(),
		AgentID:      agentID,
		TokenAddress: tokenAddress,
		Symbol:       symbol,
		Name:         name,
		Decimals:     decimals,
		TrackedAt:    time.Now(),
	}
	return s.positionRepo.Create(ctx, &position)
}

// RemovePosition 移除仓位记录，链上余额降到粉尘以下时调用
func (s *StoreService) RemovePosition(ctx context.Context, agentID uint64, tokenAddress string) error {
	return s.positionRepo.DeleteByAgentAndToken(ctx, agentID, tokenAddress)
}

// GetTrackedTokens 返回Agent当前登记的全部仓位
func (s *StoreService) GetTrackedTokens(ctx context.Context, agentID uint64) ([]models.TrackedPosition, error) {
	return s.positionRepo.FindByAgent(ctx, agentID)
}

// AppendLog 追加一条自动交易日志
func (s *StoreService) AppendLog(ctx context.Context, agentID uint64, cycle int, logType string, payload any) error {
	return s.appendLog(ctx, agentID, cycle, logType, payload)
}

func (s *StoreService) appendLog(ctx context.Context, agentID uint64, cycle int, logType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	entry := models.TradeLog{
		ID:      ulid.Make().String(),
		AgentID: agentID,
		Cycle:   cycle,
		Type:    logType,
		Payload: datatypes.JSON(data),
	}
	if err := s.logRepo.Create(ctx, &entry); err != nil {
		return err
	}

	// 超过容量时裁剪到一半，避免每次写入都触发删除
	count, err := s.logRepo.Count(ctx)
	if err != nil {
		return err
	}
	if count > models.MaxLogEntries {
		if err := s.logRepo.TrimOldest(ctx, models.LogTrimTo); err != nil {
			return err
		}
		s.logger.Info("trade logs trimmed",
			zap.Int64("before", count),
			zap.Int("keep", models.LogTrimTo))
	}
	return nil
}

// GetLogs 按时间正序返回最近的日志，agentID为0时返回全部Agent的日志
func (s *StoreService) GetLogs(ctx context.Context, agentID uint64, limit int) ([]models.TradeLog, error) {
	if limit <= 0 {
		limit = 50
	} else if limit > models.MaxLogEntries {
		limit = models.MaxLogEntries
	}
	return s.logRepo.FindRecent(ctx, agentID, limit)
}

// LatestCycle 最近一次写入日志的周期编号，keeper重启后从这里续号
func (s *StoreService) LatestCycle(ctx context.Context) (int, error) {
	return s.logRepo.FindLatestCycle(ctx)
}
