package v1

import "time"

// SyncTotals 时间窗口内按状态的计数
type SyncTotals struct {
	TotalSyncs     int64 `json:"total_syncs"`
	CompletedSyncs int64 `json:"completed_syncs"`
	FailedSyncs    int64 `json:"failed_syncs"`
	RunningSyncs   int64 `json:"running_syncs"`
	PendingSyncs   int64 `json:"pending_syncs"`
	RetryingSyncs  int64 `json:"retrying_syncs"`
	CancelledSyncs int64 `json:"cancelled_syncs"`
}

type SyncBreakdown struct {
	Total       int64   `json:"total"`
	Completed   int64   `json:"completed"`
	Failed      int64   `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

type FailedSync struct {
	ID           int64      `json:"id"`
	SyncType     string     `json:"sync_type"`
	TenantID     int64      `json:"tenant_id"`
	ErrorMessage string     `json:"error_message"`
	FailedAt     *time.Time `json:"failed_at"`
	RetryCount   int        `json:"retry_count"`
	CanRetry     bool       `json:"can_retry"`
}

type SyncPerformance struct {
	AvgDurationMs         float64 `json:"avg_duration_ms"`
	MinDurationMs         int64   `json:"min_duration_ms"`
	MaxDurationMs         int64   `json:"max_duration_ms"`
	TotalRecordsProcessed int64   `json:"total_records_processed"`
	ThroughputPerHour     float64 `json:"throughput_per_hour"`
}

type SyncStatusData struct {
	TenantID       *int64                   `json:"tenant_id,omitempty"`
	Hours          int                      `json:"hours"`
	Since          time.Time                `json:"since"`
	Totals         SyncTotals               `json:"totals"`
	BySyncType     map[string]SyncBreakdown `json:"by_sync_type"`
	ByTenant       map[int64]SyncBreakdown  `json:"by_tenant"`
	RecentFailures []FailedSync             `json:"recent_failures"`
	Performance    SyncPerformance          `json:"performance"`
}

type RetryOutcome struct {
	ID         int64  `json:"id"`
	SyncType   string `json:"sync_type"`
	TenantID   int64  `json:"tenant_id"`
	Status     string `json:"status"`
	RetryCount int    `json:"retry_count"`
	Error      string `json:"error,omitempty"`
}

type RetryResult struct {
	Attempted int            `json:"attempted"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	Entries   []RetryOutcome `json:"entries"`
}

type CleanupResult struct {
	DaysToKeep           int       `json:"days_to_keep"`
	Cutoff               time.Time `json:"cutoff"`
	DryRun               bool      `json:"dry_run"`
	RecordsFound         int64     `json:"records_found"`
	RecordsDeleted       *int64    `json:"records_deleted,omitempty"`
	CacheKeysInvalidated int64     `json:"cache_keys_invalidated"`
}

// IntegrityIssue 一致性检查发现的问题
type IntegrityIssue struct {
	Type           string `json:"type"`
	TenantRecordID int64  `json:"tenant_record_id,omitempty"`
	GlobalRecordID int64  `json:"global_record_id,omitempty"`
	Detail         string `json:"detail"`
}

type CheckResult struct {
	Status  string           `json:"status"`
	Issues  []IntegrityIssue `json:"issues"`
	Message string           `json:"message,omitempty"`
}

const (
	CheckStatusValid   = "valid"
	CheckStatusInvalid = "invalid"
	CheckStatusError   = "error"
)

type TenantIntegrity struct {
	TenantID int64                  `json:"tenant_id"`
	Checks   map[string]CheckResult `json:"checks"`
}

type IntegrityReport struct {
	CheckedAt time.Time         `json:"checked_at"`
	Valid     bool              `json:"valid"`
	Tenants   []TenantIntegrity `json:"tenants"`
}

// SyncEntry 面向调用方的台账条目视图
type SyncEntry struct {
	ID             int64            `json:"id"`
	BatchID        string           `json:"batch_id"`
	SyncType       string           `json:"sync_type"`
	Operation      string           `json:"operation"`
	SyncDirection  string           `json:"sync_direction"`
	TenantID       int64            `json:"tenant_id"`
	SourceRecordID *int64           `json:"source_record_id,omitempty"`
	TargetRecordID *int64           `json:"target_record_id,omitempty"`
	Status         string           `json:"status"`
	RetryCount     int              `json:"retry_count"`
	DurationMs     *int64           `json:"duration_ms,omitempty"`
	SyncStats      map[string]int64 `json:"sync_stats"`
	ErrorMessage   string           `json:"error_message,omitempty"`
}

type SyncBatchData struct {
	BatchID string      `json:"batch_id"`
	Entries []SyncEntry `json:"entries"`
	Failed  int         `json:"failed"`
}

type DirectionReport struct {
	SyncType  string      `json:"sync_type"`
	Direction string      `json:"direction"`
	Skipped   bool        `json:"skipped"`
	Error     string      `json:"error,omitempty"`
	Entries   []SyncEntry `json:"entries"`
}

type BidirectionalReport struct {
	BatchID    string            `json:"batch_id"`
	TenantID   int64             `json:"tenant_id"`
	Directions []DirectionReport `json:"directions"`
}
