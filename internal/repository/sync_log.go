package repository

import (
	"context"
	"errors"
	"time"

	"tenantsync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncLogFilter 台账查询条件，零值表示不限
type SyncLogFilter struct {
	TenantID  *int64
	SyncTypes []model.SyncType
}

// StatusCount 按 (sync_type, tenant_id, status) 分组的计数
type StatusCount struct {
	SyncType model.SyncType   `gorm:"column:sync_type"`
	TenantID int64            `gorm:"column:tenant_id"`
	Status   model.SyncStatus `gorm:"column:status"`
	Total    int64            `gorm:"column:total"`
}

type SyncLogRepository interface {
	Create(ctx context.Context, entry *model.SyncLog) error
	// CompareAndSave 仅当行仍处于 (status, retryCount) 时写回状态列，返回是否写入
	CompareAndSave(ctx context.Context, entry *model.SyncLog, status model.SyncStatus, retryCount int) (bool, error)
	GetByID(ctx context.Context, id int64) (*model.SyncLog, error)
	ListByBatch(ctx context.Context, batchID string) ([]*model.SyncLog, error)
	// IncrementStats 在行锁内累加 sync_stats，返回累加后的结果
	IncrementStats(ctx context.Context, id int64, delta model.SyncStats) (model.SyncStats, error)
	ListRetryable(ctx context.Context, filter SyncLogFilter, limit int) ([]*model.SyncLog, error)
	CountByStatus(ctx context.Context, since time.Time, filter SyncLogFilter) ([]StatusCount, error)
	ListCompletedSince(ctx context.Context, since time.Time, filter SyncLogFilter) ([]*model.SyncLog, error)
	ListRecentFailures(ctx context.Context, since time.Time, filter SyncLogFilter, limit int) ([]*model.SyncLog, error)
	CountExpired(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

func NewSyncLogRepository(r *Repository) SyncLogRepository {
	return &syncLogRepository{Repository: r}
}

type syncLogRepository struct {
	*Repository
}

func (r *syncLogRepository) Create(ctx context.Context, entry *model.SyncLog) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *syncLogRepository) CompareAndSave(ctx context.Context, entry *model.SyncLog, status model.SyncStatus, retryCount int) (bool, error) {
	result := r.DB(ctx).Model(&model.SyncLog{}).
		Where("id = ? AND status = ? AND retry_count = ?", entry.Id, status, retryCount).
		Updates(map[string]interface{}{
			"status":           entry.Status,
			"operation":        entry.Operation,
			"retry_count":      entry.RetryCount,
			"target_record_id": entry.TargetRecordID,
			"started_at":       entry.StartedAt,
			"completed_at":     entry.CompletedAt,
			"failed_at":        entry.FailedAt,
			"cancelled_at":     entry.CancelledAt,
			"duration_ms":      entry.DurationMs,
			"sync_stats":       entry.Stats,
			"error_message":    entry.ErrorMessage,
			"error_context":    entry.ErrorContext,
			"resolution_data":  entry.ResolutionData,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *syncLogRepository) GetByID(ctx context.Context, id int64) (*model.SyncLog, error) {
	var entry model.SyncLog
	if err := r.DB(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *syncLogRepository) ListByBatch(ctx context.Context, batchID string) ([]*model.SyncLog, error) {
	var entries []*model.SyncLog
	if err := r.DB(ctx).Where("batch_id = ?", batchID).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *syncLogRepository) IncrementStats(ctx context.Context, id int64, delta model.SyncStats) (model.SyncStats, error) {
	var merged model.SyncStats
	err := r.Transaction(ctx, func(ctx context.Context) error {
		query := r.DB(ctx)
		// sqlite 不支持 SELECT ... FOR UPDATE，单写连接本身已串行
		if query.Dialector.Name() != "sqlite" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var entry model.SyncLog
		if err := query.Where("id = ?", id).First(&entry).Error; err != nil {
			return err
		}
		if err := entry.AddStats(delta); err != nil {
			return err
		}
		merged = entry.SyncStats()
		return r.DB(ctx).Model(&model.SyncLog{}).
			Where("id = ?", id).
			Update("sync_stats", entry.Stats).Error
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (r *syncLogRepository) ListRetryable(ctx context.Context, filter SyncLogFilter, limit int) ([]*model.SyncLog, error) {
	var entries []*model.SyncLog
	query := r.filtered(ctx, filter).
		Where("status = ?", model.SyncStatusFailed).
		Where("retry_count < max_retries").
		Order("priority DESC, failed_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *syncLogRepository) CountByStatus(ctx context.Context, since time.Time, filter SyncLogFilter) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.filtered(ctx, filter).
		Model(&model.SyncLog{}).
		Select("sync_type, tenant_id, status, COUNT(*) AS total").
		Where("started_at >= ?", since).
		Group("sync_type, tenant_id, status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *syncLogRepository) ListCompletedSince(ctx context.Context, since time.Time, filter SyncLogFilter) ([]*model.SyncLog, error) {
	var entries []*model.SyncLog
	err := r.filtered(ctx, filter).
		Select("id", "duration_ms", "sync_stats").
		Where("status = ?", model.SyncStatusCompleted).
		Where("started_at >= ?", since).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *syncLogRepository) ListRecentFailures(ctx context.Context, since time.Time, filter SyncLogFilter, limit int) ([]*model.SyncLog, error) {
	var entries []*model.SyncLog
	err := r.filtered(ctx, filter).
		Where("status = ?", model.SyncStatusFailed).
		Where("started_at >= ?", since).
		Order("failed_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *syncLogRepository) CountExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	if err := r.expired(ctx, cutoff).Model(&model.SyncLog{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *syncLogRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.expired(ctx, cutoff).Delete(&model.SyncLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// expired 终态且超过保留期：completed 按 completed_at，cancelled 按 cancelled_at，
// 重试耗尽的 failed 按 failed_at
func (r *syncLogRepository) expired(ctx context.Context, cutoff time.Time) *gorm.DB {
	return r.DB(ctx).Where(
		"(status = ? AND completed_at < ?) OR (status = ? AND cancelled_at < ?) OR (status = ? AND retry_count >= max_retries AND failed_at < ?)",
		model.SyncStatusCompleted, cutoff,
		model.SyncStatusCancelled, cutoff,
		model.SyncStatusFailed, cutoff,
	)
}

func (r *syncLogRepository) filtered(ctx context.Context, filter SyncLogFilter) *gorm.DB {
	query := r.DB(ctx)
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if len(filter.SyncTypes) > 0 {
		query = query.Where("sync_type IN ?", filter.SyncTypes)
	}
	return query
}
