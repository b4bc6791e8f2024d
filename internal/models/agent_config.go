package models

import (
	"time"
)

// 交易策略
const (
	StrategyConservative = "conservative"
	StrategyBalanced     = "balanced"
	StrategyAggressive   = "aggressive"
)

// 等级上限：4级和5级Agent的单笔/每日限额（BNB）
const (
	Tier4MaxTradeBNB = 10.0
	Tier4DailyCapBNB = 20.0
	Tier5MaxTradeBNB = 100.0
	Tier5DailyCapBNB = 500.0

	// 自动交易最低等级要求
	MinAutoTradeTier = 4
)

// AgentConfig Agent自动交易配置，每个链上Agent（NFT tokenId）一条
type AgentConfig struct {
	AgentID        uint64    `gorm:"primaryKey;autoIncrement:false" json:"agent_id"`
	Enabled        bool      `gorm:"not null;index" json:"enabled"`
	OwnerAddress   string    `gorm:"type:varchar(42);not null;index" json:"owner_address"` // 小写hex地址
	Tier           int       `gorm:"not null" json:"tier"`                                 // 链上NFT等级 1-5
	Strategy       string    `gorm:"type:varchar(16);not null" json:"strategy"`
	MaxTradeBNB    float64   `gorm:"not null" json:"max_trade_bnb"`   // 单笔上限
	DailyCapBNB    float64   `gorm:"not null" json:"daily_cap_bnb"`   // 每日上限
	SlippageBps    int       `gorm:"not null" json:"slippage_bps"`    // 滑点（基点）
	CooldownMins   int       `gorm:"not null" json:"cooldown_mins"`   // 两笔交易之间的冷却时间
	StopLossPct    float64   `json:"stop_loss_pct"`                   // 止损百分比
	TakeProfitPct  float64   `json:"take_profit_pct"`                 // 止盈百分比
	LastTradeAt    int64     `json:"last_trade_at"`                   // 最近一次成交时间（毫秒），0表示从未
	DailySpent     float64   `gorm:"not null;default:0" json:"daily_spent"`
	DailyResetAt   int64     `gorm:"not null" json:"daily_reset_at"`  // 每日额度窗口起点（毫秒）
	TotalTrades    int64     `gorm:"not null;default:0" json:"total_trades"`
	TotalVolumeBNB float64   `gorm:"not null;default:0" json:"total_volume_bnb"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AgentConfig) TableName() string {
	return "agent_configs"
}

// DailyRemaining 当日剩余可用额度
func (c *AgentConfig) DailyRemaining() float64 {
	remaining := c.DailyCapBNB - c.DailySpent
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CooldownRemaining 剩余冷却时间，已过冷却返回0
func (c *AgentConfig) CooldownRemaining(now time.Time) time.Duration {
	if c.LastTradeAt == 0 || c.CooldownMins <= 0 {
		return 0
	}
	elapsed := now.Sub(time.UnixMilli(c.LastTradeAt))
	cooldown := time.Duration(c.CooldownMins) * time.Minute
	if elapsed >= cooldown {
		return 0
	}
	return cooldown - elapsed
}

// ClampToTier 按等级上限收敛限额，配置写入前调用
func (c *AgentConfig) ClampToTier() {
	maxTrade, dailyCap := TierCeilings(c.Tier)
	if c.MaxTradeBNB > maxTrade {
		c.MaxTradeBNB = maxTrade
	}
	if c.DailyCapBNB > dailyCap {
		c.DailyCapBNB = dailyCap
	}
}

// TierCeilings 返回指定等级的单笔/每日限额上限
func TierCeilings(tier int) (maxTrade, dailyCap float64) {
	if tier >= 5 {
		return Tier5MaxTradeBNB, Tier5DailyCapBNB
	}
	return Tier4MaxTradeBNB, Tier4DailyCapBNB
}
