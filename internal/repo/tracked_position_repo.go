package repo

import (
	"context"
	"strings"

	"github.com/agentfi/keeper/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewTrackedPositionRepo(db *gorm.DB) *TrackedPositionRepo {
	return &TrackedPositionRepo{
		Repository: orz.NewRepository[models.TrackedPosition, string](db),
	}
}

type TrackedPositionRepo struct {
	orz.Repository[models.TrackedPosition, string]
}

// FindByAgent 返回指定Agent的全部持仓
func (r TrackedPositionRepo) FindByAgent(ctx context.Context, agentID uint64) ([]models.TrackedPosition, error) {
	var positions []models.TrackedPosition
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("agent_id = ?", agentID).
		Order("tracked_at ASC").
		Find(&positions).Error
	return positions, err
}

// FindByAgentAndToken 按(agentId, 代币地址)查找持仓，地址统一小写
func (r TrackedPositionRepo) FindByAgentAndToken(ctx context.Context, agentID uint64, tokenAddress string) (m models.TrackedPosition, err error) {
	db := r.GetDB(ctx)
	err = db.Table(r.GetTableName()).
		Where("agent_id = ? AND token_address = ?", agentID, strings.ToLower(tokenAddress)).
		First(&m).Error
	return m, err
}

// DeleteByAgentAndToken 移除持仓记录
func (r TrackedPositionRepo) DeleteByAgentAndToken(ctx context.Context, agentID uint64, tokenAddress string) error {
	db := r.GetDB(ctx)
	return db.Where("agent_id = ? AND token_address = ?", agentID, strings.ToLower(tokenAddress)).
		Delete(&models.TrackedPosition{}).Error
}
