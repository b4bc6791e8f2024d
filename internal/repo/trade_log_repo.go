package repo

import (
	"context"

	"github.com/agentfi/keeper/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewTradeLogRepo(db *gorm.DB) *TradeLogRepo {
	return &TradeLogRepo{
		Repository: orz.NewRepository[models.TradeLog, string](db),
	}
}

type TradeLogRepo struct {
	orz.Repository[models.TradeLog, string]
}

// FindRecent 按时间正序返回最近limit条日志，agentID为0时不过滤
func (r TradeLogRepo) FindRecent(ctx context.Context, agentID uint64, limit int) ([]models.TradeLog, error) {
	var logs []models.TradeLog
	db := r.GetDB(ctx).Table(r.GetTableName())
	if agentID > 0 {
		db = db.Where("agent_id = ?", agentID)
	}
	// 先倒序取limit条，再反转成时间正序
	err := db.Order("created_at DESC").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

// Count 日志总条数
func (r TradeLogRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).Count(&count).Error
	return count, err
}

// TrimOldest 删除最旧的日志，只保留keep条
func (r TradeLogRepo) TrimOldest(ctx context.Context, keep int) error {
	db := r.GetDB(ctx)
	var cutoff models.TradeLog
	// 找到按时间倒序第keep条的时间戳，删除更早的全部日志
	err := db.Table(r.GetTableName()).
		Order("created_at DESC").
		Offset(keep - 1).
		Limit(1).
		First(&cutoff).Error
	if err != nil {
		return err
	}
	return db.Where("created_at < ?", cutoff.CreatedAt).Delete(&models.TradeLog{}).Error
}

// FindLatestCycle 最近一次写入日志的keeper周期编号
func (r TradeLogRepo) FindLatestCycle(ctx context.Context) (int, error) {
	var log models.TradeLog
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("cycle DESC").
		First(&log).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return log.Cycle, nil
}
