package model

import (
	"fmt"
	"time"

	v1 "tenantsync/api/v1"

	"gorm.io/datatypes"
)

// SyncType 同步类型
type SyncType string

const (
	SyncTypeUser               SyncType = "user_sync"
	SyncTypeCourse             SyncType = "course_sync"
	SyncTypeEnrollment         SyncType = "enrollment_sync"
	SyncTypeAnalytics          SyncType = "analytics_sync"
	SyncTypeConflictResolution SyncType = "conflict_resolution"
)

// DataSyncTypes 参与双向同步的实体类型（不含冲突处理）
var DataSyncTypes = []SyncType{SyncTypeUser, SyncTypeCourse, SyncTypeEnrollment, SyncTypeAnalytics}

func (t SyncType) Valid() bool {
	switch t {
	case SyncTypeUser, SyncTypeCourse, SyncTypeEnrollment, SyncTypeAnalytics, SyncTypeConflictResolution:
		return true
	}
	return false
}

// SyncOperation 同步操作
type SyncOperation string

const (
	SyncOperationCreate    SyncOperation = "create"
	SyncOperationUpdate    SyncOperation = "update"
	SyncOperationReconcile SyncOperation = "reconcile"
)

// SyncDirection 同步方向
type SyncDirection string

const (
	SyncDirectionGlobalToTenant SyncDirection = "global_to_tenant"
	SyncDirectionTenantToGlobal SyncDirection = "tenant_to_global"
	SyncDirectionBidirectional  SyncDirection = "bidirectional"
)

// SyncStatus 同步日志状态
type SyncStatus string

const (
	SyncStatusPending    SyncStatus = "pending"
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"
	SyncStatusCancelled  SyncStatus = "cancelled"
	SyncStatusRetrying   SyncStatus = "retrying"
)

const (
	DefaultMaxRetryAttempts = 3
	DefaultSyncPriority     = 5
)

// 常用统计项
const (
	StatRecordsProcessed = "records_processed"
	StatRecordsCreated   = "records_created"
	StatRecordsUpdated   = "records_updated"
	StatRecordsFailed    = "records_failed"
)

// SyncStats 同步统计（records_processed / records_created / records_updated ...）
type SyncStats map[string]int64

// SyncLog 同步日志：每一次同步尝试对应一条记录，同时也是重试的依据
type SyncLog struct {
	Id             int64         `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	SyncType       SyncType      `json:"sync_type" gorm:"column:sync_type;size:50;not null;index"`
	Operation      SyncOperation `json:"operation" gorm:"column:operation;size:20;not null"`
	SourceTable    string        `json:"source_table" gorm:"column:source_table;size:100;not null"`
	TargetTable    string        `json:"target_table" gorm:"column:target_table;size:100;not null"`
	TenantID       int64         `json:"tenant_id" gorm:"column:tenant_id;not null;index"`
	SourceRecordID *int64        `json:"source_record_id" gorm:"column:source_record_id"`
	TargetRecordID *int64        `json:"target_record_id" gorm:"column:target_record_id"`
	SyncDirection  SyncDirection `json:"sync_direction" gorm:"column:sync_direction;size:20;not null"`

	BatchID  string `json:"batch_id" gorm:"column:batch_id;size:36;index"`
	Priority int    `json:"priority" gorm:"column:priority;not null;default:5"`

	Status     SyncStatus `json:"status" gorm:"column:status;size:20;not null;default:'pending';index"`
	RetryCount int        `json:"retry_count" gorm:"column:retry_count;not null;default:0"`
	MaxRetries int        `json:"max_retries" gorm:"column:max_retries;not null;default:3"`

	StartedAt   *time.Time `json:"started_at" gorm:"column:started_at;index"`
	CompletedAt *time.Time `json:"completed_at" gorm:"column:completed_at"`
	FailedAt    *time.Time `json:"failed_at" gorm:"column:failed_at"`
	CancelledAt *time.Time `json:"cancelled_at" gorm:"column:cancelled_at"`
	DurationMs  *int64     `json:"duration_ms" gorm:"column:duration_ms"`

	Stats          datatypes.JSONType[SyncStats] `json:"sync_stats" gorm:"column:sync_stats"`
	Metadata       datatypes.JSONMap             `json:"metadata" gorm:"column:metadata"`
	ErrorMessage   string                        `json:"error_message" gorm:"column:error_message;type:text"`
	ErrorContext   datatypes.JSONMap             `json:"error_context" gorm:"column:error_context"`
	ResolutionData datatypes.JSONMap             `json:"resolution_data" gorm:"column:resolution_data"`

	CreateTime time.Time `json:"create_time" gorm:"column:gmt_create;autoCreateTime"`
	UpdateTime time.Time `json:"update_time" gorm:"column:gmt_modified;autoUpdateTime"`
}

func (SyncLog) TableName() string {
	return "sync_logs"
}

// Start pending/retrying -> in_progress
func (l *SyncLog) Start(now time.Time) error {
	if l.Status != SyncStatusPending && l.Status != SyncStatusRetrying {
		return l.invalid("start")
	}
	l.Status = SyncStatusInProgress
	l.StartedAt = &now
	l.CompletedAt = nil
	l.FailedAt = nil
	l.DurationMs = nil
	return nil
}

// Complete in_progress -> completed，stats 按 key 覆盖合并进 sync_stats
func (l *SyncLog) Complete(now time.Time, stats SyncStats) error {
	if l.Status != SyncStatusInProgress {
		return l.invalid("complete")
	}
	merged := l.SyncStats()
	for k, v := range stats {
		merged[k] = v
	}
	l.Stats = datatypes.NewJSONType(merged)
	l.Status = SyncStatusCompleted
	l.CompletedAt = &now
	l.setDuration(now)
	return nil
}

// Fail in_progress -> failed
func (l *SyncLog) Fail(now time.Time, message string, errCtx map[string]interface{}) error {
	if l.Status != SyncStatusInProgress {
		return l.invalid("fail")
	}
	l.Status = SyncStatusFailed
	l.FailedAt = &now
	l.ErrorMessage = message
	l.ErrorContext = datatypes.JSONMap(errCtx)
	l.setDuration(now)
	return nil
}

// Retry failed -> retrying，retry_count 加一；达到上限后返回 ErrRetryExhausted
func (l *SyncLog) Retry() error {
	if l.RetryCount >= l.maxRetries() {
		return fmt.Errorf("%w: sync log %d retried %d times", v1.ErrRetryExhausted, l.Id, l.RetryCount)
	}
	if l.Status != SyncStatusFailed {
		return l.invalid("retry")
	}
	l.RetryCount++
	l.Status = SyncStatusRetrying
	return nil
}

// Cancel 任意状态 -> cancelled（终态）
func (l *SyncLog) Cancel(now time.Time) {
	if l.Status == SyncStatusInProgress {
		l.setDuration(now)
	}
	l.Status = SyncStatusCancelled
	l.CancelledAt = &now
}

// CanRetry 仅 failed 且未达到重试上限时可重试
func (l *SyncLog) CanRetry() bool {
	return l.Status == SyncStatusFailed && l.RetryCount < l.maxRetries()
}

// AddStats 累加统计，仅在 in_progress 时允许
func (l *SyncLog) AddStats(delta SyncStats) error {
	if l.Status != SyncStatusInProgress {
		return l.invalid("update stats")
	}
	merged := l.SyncStats()
	for k, v := range delta {
		merged[k] += v
	}
	l.Stats = datatypes.NewJSONType(merged)
	return nil
}

// IsTerminal completed、cancelled 以及重试耗尽的 failed 为终态
func (l *SyncLog) IsTerminal() bool {
	switch l.Status {
	case SyncStatusCompleted, SyncStatusCancelled:
		return true
	case SyncStatusFailed:
		return !l.CanRetry()
	}
	return false
}

// SyncStats 返回统计的副本，永不为 nil
func (l *SyncLog) SyncStats() SyncStats {
	out := SyncStats{}
	for k, v := range l.Stats.Data() {
		out[k] = v
	}
	return out
}

func (l *SyncLog) Duration() time.Duration {
	if l.DurationMs == nil {
		return 0
	}
	return time.Duration(*l.DurationMs) * time.Millisecond
}

func (l *SyncLog) setDuration(now time.Time) {
	if l.StartedAt == nil {
		return
	}
	ms := now.Sub(*l.StartedAt).Milliseconds()
	if ms < 0 {
		ms = 0
	}
	l.DurationMs = &ms
}

func (l *SyncLog) maxRetries() int {
	if l.MaxRetries <= 0 {
		return DefaultMaxRetryAttempts
	}
	return l.MaxRetries
}

func (l *SyncLog) invalid(action string) error {
	return fmt.Errorf("%w: cannot %s sync log %d in status %s", v1.ErrInvalidState, action, l.Id, l.Status)
}
