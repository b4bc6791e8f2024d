package repo

import (
	"context"
	"time"

	"github.com/agentfi/keeper/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewAgentConfigRepo(db *gorm.DB) *AgentConfigRepo {
	return &AgentConfigRepo{
		Repository: orz.NewRepository[models.AgentConfig, uint64](db),
	}
}

type AgentConfigRepo struct {
	orz.Repository[models.AgentConfig, uint64]
}

// FindEnabled 按agentId升序返回所有开启自动交易的配置
func (r AgentConfigRepo) FindEnabled(ctx context.Context) ([]models.AgentConfig, error) {
	var configs []models.AgentConfig
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("enabled = ?", true).
		Order("agent_id ASC").
		Find(&configs).Error
	return configs, err
}

// ResetExpiredDailyCaps 批量清零超过24小时窗口的每日额度，单条SQL完成
func (r AgentConfigRepo) ResetExpiredDailyCaps(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-24 * time.Hour).UnixMilli()
	db := r.GetDB(ctx)
	result := db.Table(r.GetTableName()).
		Where("daily_reset_at < ?", cutoff).
		Updates(map[string]interface{}{
			"daily_spent":    0,
			"daily_reset_at": now.UnixMilli(),
		})
	return result.RowsAffected, result.Error
}
