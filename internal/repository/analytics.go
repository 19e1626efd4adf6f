package repository

import (
	"context"
	"time"

	"tenantsync/internal/model"

	"gorm.io/gorm/clause"
)

type AnalyticsRepository interface {
	// Upsert 按 (tenant_id, metric_type, aggregation_period, period_start) 写入或覆盖指标值
	Upsert(ctx context.Context, rows []*model.SuperAdminAnalytics) error
	List(ctx context.Context, tenantID int64, period string, periodStart time.Time) ([]*model.SuperAdminAnalytics, error)
}

func NewAnalyticsRepository(r *Repository) AnalyticsRepository {
	return &analyticsRepository{Repository: r}
}

type analyticsRepository struct {
	*Repository
}

func (r *analyticsRepository) Upsert(ctx context.Context, rows []*model.SuperAdminAnalytics) error {
	if len(rows) == 0 {
		return nil
	}
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"},
			{Name: "metric_type"},
			{Name: "aggregation_period"},
			{Name: "period_start"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"metric_value", "period_end", "metadata", "updated_at"}),
	}).Create(&rows).Error
}

func (r *analyticsRepository) List(ctx context.Context, tenantID int64, period string, periodStart time.Time) ([]*model.SuperAdminAnalytics, error) {
	var rows []*model.SuperAdminAnalytics
	err := r.DB(ctx).
		Where("tenant_id = ? AND aggregation_period = ? AND period_start = ?", tenantID, period, periodStart).
		Order("metric_type ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
