package models

import (
	"time"
)

// TrackedPosition Agent持有的代币仓位，按(agentId, 代币地址)唯一
// 首次买入成功时建立，链上余额降到粉尘以下时移除
type TrackedPosition struct {
	ID           string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	AgentID      uint64    `gorm:"not null;uniqueIndex:idx_agent_token" json:"agent_id"`
	TokenAddress string    `gorm:"type:varchar(42);not null;uniqueIndex:idx_agent_token" json:"token_address"` // 小写hex地址
	Symbol       string    `gorm:"type:varchar(32)" json:"symbol"`
	Name         string    `gorm:"type:varchar(128)" json:"name"`
	Decimals     int       `gorm:"not null;default:18" json:"decimals"` // 从代币合约解析一次后缓存
	TrackedAt    time.Time `gorm:"not null" json:"tracked_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TrackedPosition) TableName() string {
	return "tracked_positions"
}
