package models

import (
	"time"

	"gorm.io/datatypes"
)

// 日志类型
const (
	LogTypeTrade    = "trade"    // 成功执行的交易
	LogTypeFailed   = "failed"   // 执行失败
	LogTypeSkip     = "skip"     // 校验未通过，本周期跳过
	LogTypeError    = "error"    // 处理过程中的异常
	LogTypeDisabled = "disabled" // 被关闭自动交易
)

// 日志容量：超过MaxLogEntries条时裁剪到TrimTo条
const (
	MaxLogEntries = 1000
	LogTrimTo     = 500
)

// TradeLog 自动交易日志，追加写入，按容量裁剪
type TradeLog struct {
	ID        string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	AgentID   uint64         `gorm:"not null;index" json:"agent_id"`
	Cycle     int            `gorm:"not null;index" json:"cycle"` // keeper周期编号
	Type      string         `gorm:"type:varchar(10);not null;index" json:"type"`
	Payload   datatypes.JSON `json:"payload"` // 类型相关的载荷：信号、校验原因、执行结果或错误信息
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (TradeLog) TableName() string {
	return "trade_logs"
}
