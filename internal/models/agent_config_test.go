package models

import (
	"testing"
	"time"
)

func TestDailyRemaining(t *testing.T) {
	cfg := &AgentConfig{DailyCapBNB: 0.5, DailySpent: 0.2}
	if got := cfg.DailyRemaining(); got != 0.3 {
		t.Errorf("expected 0.3 remaining, got %v", got)
	}

	// 超支时不出现负数
	cfg.DailySpent = 0.6
	if got := cfg.DailyRemaining(); got != 0 {
		t.Errorf("expected 0 remaining when overspent, got %v", got)
	}
}

func TestCooldownRemaining(t *testing.T) {
	now := time.Now()
	cfg := &AgentConfig{CooldownMins: 30}

	// 从未成交
	if got := cfg.CooldownRemaining(now); got != 0 {
		t.Errorf("expected no cooldown before first trade, got %v", got)
	}

	cfg.LastTradeAt = now.Add(-10 * time.Minute).UnixMilli()
	got := cfg.CooldownRemaining(now)
	if got < 19*time.Minute || got > 21*time.Minute {
		t.Errorf("expected ~20m cooldown left, got %v", got)
	}

	cfg.LastTradeAt = now.Add(-31 * time.Minute).UnixMilli()
	if got := cfg.CooldownRemaining(now); got != 0 {
		t.Errorf("expected cooldown elapsed, got %v", got)
	}
}

func TestClampToTier(t *testing.T) {
	tests := []struct {
		name         string
		tier         int
		maxTrade     float64
		dailyCap     float64
		wantMaxTrade float64
		wantDailyCap float64
	}{
		{"tier4 over both", 4, 50, 100, Tier4MaxTradeBNB, Tier4DailyCapBNB},
		{"tier4 within", 4, 0.1, 0.5, 0.1, 0.5},
		{"tier5 over both", 5, 1000, 1000, Tier5MaxTradeBNB, Tier5DailyCapBNB},
		{"tier5 within", 5, 50, 300, 50, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &AgentConfig{Tier: tt.tier, MaxTradeBNB: tt.maxTrade, DailyCapBNB: tt.dailyCap}
			cfg.ClampToTier()
			if cfg.MaxTradeBNB != tt.wantMaxTrade {
				t.Errorf("max trade = %v, want %v", cfg.MaxTradeBNB, tt.wantMaxTrade)
			}
			if cfg.DailyCapBNB != tt.wantDailyCap {
				t.Errorf("daily cap = %v, want %v", cfg.DailyCapBNB, tt.wantDailyCap)
			}
		})
	}
}
