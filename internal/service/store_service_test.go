package service

import (
	"context"
	"testing"
	"time"

	"github.com/agentfi/keeper/internal/models"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *StoreService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	if err := db.AutoMigrate(models.AgentConfig{}, models.TrackedPosition{}, models.TradeLog{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewStoreService(db, zap.NewNop())
}

func enableAgent(t *testing.T, store *StoreService, agentID uint64) *models.AgentConfig {
	t.Helper()

	cfg, err := store.SetConfig(context.Background(), agentID, func(cfg *models.AgentConfig) {
		cfg.Enabled = true
		cfg.OwnerAddress = "0x00000000000000000000000000000000000000AA"
		cfg.Tier = 4
		cfg.Strategy = models.StrategyBalanced
		cfg.MaxTradeBNB = 0.5
		cfg.DailyCapBNB = 1.0
	})
	if err != nil {
		t.Fatalf("failed to set config: %v", err)
	}
	return cfg
}

func TestSetConfig_MergesOntoDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := enableAgent(t, store, 1)

	// 未指定的字段来自默认模板
	if cfg.SlippageBps != 300 {
		t.Errorf("expected default slippage 300, got %d", cfg.SlippageBps)
	}
	if cfg.CooldownMins != 30 {
		t.Errorf("expected default cooldown 30, got %d", cfg.CooldownMins)
	}
	// 地址持久化为小写
	if cfg.OwnerAddress != "0x00000000000000000000000000000000000000aa" {
		t.Errorf("expected lowercased owner, got %s", cfg.OwnerAddress)
	}

	loaded, err := store.GetConfig(ctx, 1)
	if err != nil {
		t.Fatalf("failed to get config: %v", err)
	}
	if loaded == nil || !loaded.Enabled {
		t.Fatal("expected persisted enabled config")
	}
}

func TestSetConfig_ClampsToTierCeilings(t *testing.T) {
	store := newTestStore(t)

	cfg, err := store.SetConfig(context.Background(), 2, func(cfg *models.AgentConfig) {
		cfg.Tier = 4
		cfg.MaxTradeBNB = 999
		cfg.DailyCapBNB = 999
	})
	if err != nil {
		t.Fatalf("failed to set config: %v", err)
	}

	if cfg.MaxTradeBNB != models.Tier4MaxTradeBNB {
		t.Errorf("expected max trade clamped to %v, got %v", models.Tier4MaxTradeBNB, cfg.MaxTradeBNB)
	}
	if cfg.DailyCapBNB != models.Tier4DailyCapBNB {
		t.Errorf("expected daily cap clamped to %v, got %v", models.Tier4DailyCapBNB, cfg.DailyCapBNB)
	}
}

func TestGetConfig_MissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	cfg, err := store.GetConfig(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil for missing config, got %+v", cfg)
	}
}

func TestGetEnabledAgents_Ordering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	enableAgent(t, store, 3)
	enableAgent(t, store, 1)
	enableAgent(t, store, 2)
	if _, err := store.SetConfig(ctx, 4, func(cfg *models.AgentConfig) {
		cfg.Enabled = false
	}); err != nil {
		t.Fatalf("failed to set config: %v", err)
	}

	agents, err := store.GetEnabledAgents(ctx)
	if err != nil {
		t.Fatalf("failed to get enabled agents: %v", err)
	}
	if len(agents) != 3 {
		t.Fatalf("expected 3 enabled agents, got %d", len(agents))
	}
	for i, want := range []uint64{1, 2, 3} {
		if agents[i].AgentID != want {
			t.Errorf("position %d: expected agent %d, got %d", i, want, agents[i].AgentID)
		}
	}
}

// TestRecordTrade_DailySpentMonotonicity 多次成交后dailySpent等于金额之和
func TestRecordTrade_DailySpentMonotonicity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	enableAgent(t, store, 1)

	amounts := []float64{0.1, 0.2, 0.05}
	for _, amount := range amounts {
		if err := store.RecordTrade(ctx, 1, TradeRecord{
			AgentID:   1,
			Action:    ActionBuy,
			Token:     "ABC",
			TokenAddr: testToken,
			AmountBNB: amount,
			TxHash:    "0xdead",
		}); err != nil {
			t.Fatalf("failed to record trade: %v", err)
		}
	}

	cfg, err := store.GetConfig(ctx, 1)
	if err != nil {
		t.Fatalf("failed to get config: %v", err)
	}
	if diff := cfg.DailySpent - 0.35; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("expected daily spent 0.35, got %v", cfg.DailySpent)
	}
	if cfg.TotalTrades != 3 {
		t.Errorf("expected 3 total trades, got %d", cfg.TotalTrades)
	}
	if cfg.LastTradeAt == 0 {
		t.Error("expected last trade timestamp to be set")
	}

	// 每笔成交都写入一条trade日志
	logs, err := store.GetLogs(ctx, 1, 10)
	if err != nil {
		t.Fatalf("failed to get logs: %v", err)
	}
	if len(logs) != 3 {
		t.Errorf("expected 3 trade logs, got %d", len(logs))
	}
	for _, entry := range logs {
		if entry.Type != models.LogTypeTrade {
			t.Errorf("expected trade log type, got %s", entry.Type)
		}
	}
}

func TestResetDailyCaps(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	enableAgent(t, store, 1)
	enableAgent(t, store, 2)

	// Agent 1 的窗口已超过24小时，Agent 2 的窗口还在有效期内
	stale := time.Now().Add(-25 * time.Hour).UnixMilli()
	if _, err := store.SetConfig(ctx, 1, func(cfg *models.AgentConfig) {
		cfg.DailySpent = 0.8
		cfg.DailyResetAt = stale
	}); err != nil {
		t.Fatalf("failed to set config: %v", err)
	}
	if _, err := store.SetConfig(ctx, 2, func(cfg *models.AgentConfig) {
		cfg.DailySpent = 0.3
		cfg.DailyResetAt = time.Now().UnixMilli()
	}); err != nil {
		t.Fatalf("failed to set config: %v", err)
	}

	if err := store.ResetDailyCaps(ctx); err != nil {
		t.Fatalf("failed to reset daily caps: %v", err)
	}

	cfg1, _ := store.GetConfig(ctx, 1)
	if cfg1.DailySpent != 0 {
		t.Errorf("expected agent 1 daily spent reset to 0, got %v", cfg1.DailySpent)
	}
	if cfg1.DailyResetAt <= stale {
		t.Error("expected agent 1 reset timestamp bumped")
	}

	cfg2, _ := store.GetConfig(ctx, 2)
	if cfg2.DailySpent != 0.3 {
		t.Errorf("expected agent 2 daily spent untouched, got %v", cfg2.DailySpent)
	}
}

func TestPositionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.TrackPosition(ctx, 1, "0x0000000000000000000000000000000000000ABC", "ABC", "Alpha Beta", 18); err != nil {
		t.Fatalf("failed to track position: %v", err)
	}

	positions, err := store.GetTrackedTokens(ctx, 1)
	if err != nil {
		t.Fatalf("failed to get positions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	// 地址持久化为小写
	if positions[0].TokenAddress != "0x0000000000000000000000000000000000000abc" {
		t.Errorf("expected lowercased address, got %s", positions[0].TokenAddress)
	}

	// 重复登记只更新元数据，不产生新记录
	if err := store.TrackPosition(ctx, 1, "0x0000000000000000000000000000000000000abc", "ABC", "Alpha Beta Token", 9); err != nil {
		t.Fatalf("failed to re-track position: %v", err)
	}
	positions, _ = store.GetTrackedTokens(ctx, 1)
	if len(positions) != 1 {
		t.Fatalf("expected 1 position after re-track, got %d", len(positions))
	}
	if positions[0].Decimals != 9 {
		t.Errorf("expected updated decimals 9, got %d", positions[0].Decimals)
	}

	if err := store.RemovePosition(ctx, 1, "0x0000000000000000000000000000000000000ABC"); err != nil {
		t.Fatalf("failed to remove position: %v", err)
	}
	positions, _ = store.GetTrackedTokens(ctx, 1)
	if len(positions) != 0 {
		t.Errorf("expected no positions after removal, got %d", len(positions))
	}
}

func TestAppendLog_TrimsAtCapacity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// 写满到刚好超过容量，触发一次裁剪
	for i := 0; i < models.MaxLogEntries+1; i++ {
		if err := store.AppendLog(ctx, 1, 1, models.LogTypeSkip, map[string]any{"i": i}); err != nil {
			t.Fatalf("failed to append log %d: %v", i, err)
		}
	}

	count, err := store.logRepo.Count(ctx)
	if err != nil {
		t.Fatalf("failed to count logs: %v", err)
	}
	if count > int64(models.LogTrimTo) {
		t.Errorf("expected at most %d logs after trim, got %d", models.LogTrimTo, count)
	}
}

func TestGetLogs_LimitClamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		if err := store.AppendLog(ctx, 1, 1, models.LogTypeSkip, map[string]any{"i": i}); err != nil {
			t.Fatalf("failed to append log: %v", err)
		}
	}

	// 超过容量的limit收敛到容量上限，而不是回落到默认值
	logs, err := store.GetLogs(ctx, 1, models.MaxLogEntries+1)
	if err != nil {
		t.Fatalf("failed to get logs: %v", err)
	}
	if len(logs) != 60 {
		t.Errorf("expected all 60 logs for an oversized limit, got %d", len(logs))
	}

	// 未指定limit时用默认值
	logs, err = store.GetLogs(ctx, 1, 0)
	if err != nil {
		t.Fatalf("failed to get logs: %v", err)
	}
	if len(logs) != 50 {
		t.Errorf("expected default limit of 50 logs, got %d", len(logs))
	}
}

func TestLatestCycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cycle, err := store.LatestCycle(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cycle != 0 {
		t.Errorf("expected cycle 0 on empty store, got %d", cycle)
	}

	for _, c := range []int{1, 3, 2} {
		if err := store.AppendLog(ctx, 1, c, models.LogTypeSkip, nil); err != nil {
			t.Fatalf("failed to append log: %v", err)
		}
	}

	cycle, err = store.LatestCycle(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cycle != 3 {
		t.Errorf("expected latest cycle 3, got %d", cycle)
	}
}
