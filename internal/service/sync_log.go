package service

import (
	"context"
	"fmt"

	v1 "tenantsync/api/v1"
	"tenantsync/internal/model"
	"tenantsync/internal/repository"

	"gorm.io/datatypes"
)

// SyncOptions 创建台账条目时的可选项
type SyncOptions struct {
	BatchID        string
	Priority       int
	SourceRecordID *int64
	Direction      model.SyncDirection
	Metadata       map[string]interface{}
}

// SyncLogService 同步台账：条目的创建与状态流转，所有变更立即持久化
type SyncLogService interface {
	CreateSync(ctx context.Context, syncType model.SyncType, operation model.SyncOperation, sourceTable, targetTable string, tenantID int64, opts SyncOptions) (*model.SyncLog, error)
	Start(ctx context.Context, entry *model.SyncLog) error
	Complete(ctx context.Context, entry *model.SyncLog, stats model.SyncStats) error
	Fail(ctx context.Context, entry *model.SyncLog, message string, errCtx map[string]interface{}) error
	Retry(ctx context.Context, entry *model.SyncLog) error
	// UpdateStats 原子累加 sync_stats，并刷新 entry 上的统计
	UpdateStats(ctx context.Context, entry *model.SyncLog, delta model.SyncStats) error
	Cancel(ctx context.Context, id int64) (*model.SyncLog, error)
	Get(ctx context.Context, id int64) (*model.SyncLog, error)
	ListByBatch(ctx context.Context, batchID string) ([]*model.SyncLog, error)
}

func NewSyncLogService(
	service *Service,
	cfg *SyncConfig,
	syncLogRepo repository.SyncLogRepository,
) SyncLogService {
	return &syncLogService{
		Service:     service,
		cfg:         cfg,
		syncLogRepo: syncLogRepo,
	}
}

type syncLogService struct {
	*Service
	cfg         *SyncConfig
	syncLogRepo repository.SyncLogRepository
}

func (s *syncLogService) CreateSync(ctx context.Context, syncType model.SyncType, operation model.SyncOperation, sourceTable, targetTable string, tenantID int64, opts SyncOptions) (*model.SyncLog, error) {
	if !syncType.Valid() {
		return nil, fmt.Errorf("%w: %q", v1.ErrUnsupportedSyncType, syncType)
	}
	direction := opts.Direction
	if direction == "" {
		direction = model.SyncDirectionGlobalToTenant
	}
	priority := opts.Priority
	if priority <= 0 {
		priority = s.cfg.DefaultPriority
	}
	entry := &model.SyncLog{
		SyncType:       syncType,
		Operation:      operation,
		SourceTable:    sourceTable,
		TargetTable:    targetTable,
		TenantID:       tenantID,
		SourceRecordID: opts.SourceRecordID,
		SyncDirection:  direction,
		BatchID:        opts.BatchID,
		Priority:       priority,
		Status:         model.SyncStatusPending,
		MaxRetries:     s.cfg.MaxRetryAttempts,
		Stats:          datatypes.NewJSONType(model.SyncStats{}),
		Metadata:       datatypes.JSONMap(opts.Metadata),
	}
	if err := s.syncLogRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create sync log: %w", err)
	}
	return entry, nil
}

func (s *syncLogService) Start(ctx context.Context, entry *model.SyncLog) error {
	status, retryCount := entry.Status, entry.RetryCount
	if err := entry.Start(s.now()); err != nil {
		return err
	}
	return s.save(ctx, entry, status, retryCount)
}

func (s *syncLogService) Complete(ctx context.Context, entry *model.SyncLog, stats model.SyncStats) error {
	status, retryCount := entry.Status, entry.RetryCount
	if err := entry.Complete(s.now(), stats); err != nil {
		return err
	}
	return s.save(ctx, entry, status, retryCount)
}

func (s *syncLogService) Fail(ctx context.Context, entry *model.SyncLog, message string, errCtx map[string]interface{}) error {
	status, retryCount := entry.Status, entry.RetryCount
	if err := entry.Fail(s.now(), message, errCtx); err != nil {
		return err
	}
	return s.save(ctx, entry, status, retryCount)
}

func (s *syncLogService) Retry(ctx context.Context, entry *model.SyncLog) error {
	status, retryCount := entry.Status, entry.RetryCount
	if err := entry.Retry(); err != nil {
		return err
	}
	return s.save(ctx, entry, status, retryCount)
}

func (s *syncLogService) UpdateStats(ctx context.Context, entry *model.SyncLog, delta model.SyncStats) error {
	if entry.Status != model.SyncStatusInProgress {
		return fmt.Errorf("%w: cannot update stats of sync log %d in status %s", v1.ErrInvalidState, entry.Id, entry.Status)
	}
	merged, err := s.syncLogRepo.IncrementStats(ctx, entry.Id, delta)
	if err != nil {
		return fmt.Errorf("update stats of sync log %d: %w", entry.Id, err)
	}
	entry.Stats = datatypes.NewJSONType(merged)
	return nil
}

func (s *syncLogService) Cancel(ctx context.Context, id int64) (*model.SyncLog, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	status, retryCount := entry.Status, entry.RetryCount
	entry.Cancel(s.now())
	if err := s.save(ctx, entry, status, retryCount); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *syncLogService) Get(ctx context.Context, id int64) (*model.SyncLog, error) {
	entry, err := s.syncLogRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get sync log %d: %w", id, err)
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: sync log %d", v1.ErrNotFound, id)
	}
	return entry, nil
}

func (s *syncLogService) ListByBatch(ctx context.Context, batchID string) ([]*model.SyncLog, error) {
	return s.syncLogRepo.ListByBatch(ctx, batchID)
}

// save 以读到的 (status, retry_count) 作为版本条件写回；其他写入者已推进该条目时返回 ErrInvalidState
func (s *syncLogService) save(ctx context.Context, entry *model.SyncLog, status model.SyncStatus, retryCount int) error {
	ok, err := s.syncLogRepo.CompareAndSave(ctx, entry, status, retryCount)
	if err != nil {
		return fmt.Errorf("save sync log %d: %w", entry.Id, err)
	}
	if !ok {
		return fmt.Errorf("%w: sync log %d is no longer %s with %d retries",
			v1.ErrInvalidState, entry.Id, status, retryCount)
	}
	return nil
}
