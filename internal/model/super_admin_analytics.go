package model

import (
	"time"

	"gorm.io/datatypes"
)

// SuperAdminAnalytics 全局聚合指标，按 (tenant_id, metric_type, aggregation_period, period_start) 唯一
type SuperAdminAnalytics struct {
	Id                int64             `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	TenantID          int64             `json:"tenant_id" gorm:"column:tenant_id;not null;uniqueIndex:idx_analytics_metric_period"`
	MetricType        string            `json:"metric_type" gorm:"column:metric_type;size:100;not null;uniqueIndex:idx_analytics_metric_period"`
	AggregationPeriod string            `json:"aggregation_period" gorm:"column:aggregation_period;size:20;not null;uniqueIndex:idx_analytics_metric_period"`
	PeriodStart       time.Time         `json:"period_start" gorm:"column:period_start;not null;uniqueIndex:idx_analytics_metric_period"`
	PeriodEnd         time.Time         `json:"period_end" gorm:"column:period_end;not null"`
	MetricValue       float64           `json:"metric_value" gorm:"column:metric_value;not null;default:0"`
	Metadata          datatypes.JSONMap `json:"metadata" gorm:"column:metadata"`
	CreatedAt         time.Time         `json:"created_at" gorm:"column:created_at"`
	UpdatedAt         time.Time         `json:"updated_at" gorm:"column:updated_at"`
}

func (SuperAdminAnalytics) TableName() string {
	return "super_admin_analytics"
}

const AggregationPeriodDaily = "daily"

// 报名聚合指标
const (
	MetricTotalEnrollments     = "total_enrollments"
	MetricActiveEnrollments    = "active_enrollments"
	MetricCompletedEnrollments = "completed_enrollments"
	MetricNewEnrollments       = "new_enrollments"
)

// EventMetricPrefix 租户行为事件聚合后的指标前缀，如 event.login
const EventMetricPrefix = "event."
