package job

import (
	"context"
	"errors"
	"fmt"

	v1 "tenantsync/api/v1"
	"tenantsync/internal/model"
	"tenantsync/internal/repository"
	"tenantsync/internal/service"

	"go.uber.org/zap"
)

const (
	JobBidirectional = "bidirectional"
	JobRetry         = "retry"
	JobCleanup       = "cleanup"
)

type SyncJob interface {
	// SyncActiveTenants 对每个 active 租户做一次双向同步，租户已被锁定时跳过
	SyncActiveTenants(ctx context.Context) error
	RetryFailed(ctx context.Context) error
	Cleanup(ctx context.Context) error
}

func NewSyncJob(
	job *Job,
	tenantRepo repository.TenantRepository,
	syncService service.SyncService,
	monitorService service.MonitorService,
) SyncJob {
	return &syncJob{
		Job:            job,
		tenantRepo:     tenantRepo,
		syncService:    syncService,
		monitorService: monitorService,
	}
}

type syncJob struct {
	*Job
	tenantRepo     repository.TenantRepository
	syncService    service.SyncService
	monitorService service.MonitorService
}

func (j *syncJob) SyncActiveTenants(ctx context.Context) error {
	ctx = j.withTrace(ctx, JobBidirectional)
	logger := j.logger.WithContext(ctx)

	tenants, err := j.tenantRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active tenants: %w", err)
	}

	var errs []error
	var synced, skipped, failedUnits int
	for _, tenant := range tenants {
		report, err := j.syncService.PerformBidirectionalSync(ctx, tenant.Id, nil, service.SyncOptions{})
		if errors.Is(err, v1.ErrSyncInProgress) {
			skipped++
			logger.Info("tenant sync already running, skipped", zap.Int64("tenant_id", tenant.Id))
			continue
		}
		if err != nil {
			logger.Error("bidirectional sync failed", zap.Int64("tenant_id", tenant.Id), zap.Error(err))
			errs = append(errs, fmt.Errorf("tenant %d: %w", tenant.Id, err))
			continue
		}
		synced++
		for _, d := range report.Directions {
			for _, e := range d.Entries {
				if e.Status == string(model.SyncStatusFailed) {
					failedUnits++
				}
			}
		}
	}

	logger.Info("bidirectional sync finished",
		zap.Int("tenants", len(tenants)),
		zap.Int("synced", synced),
		zap.Int("skipped", skipped),
		zap.Int("failed_units", failedUnits))
	return errors.Join(errs...)
}

func (j *syncJob) RetryFailed(ctx context.Context) error {
	ctx = j.withTrace(ctx, JobRetry)
	result, err := j.monitorService.RetryFailedSyncs(ctx, nil, nil, 0)
	if err != nil {
		return err
	}
	j.logger.WithContext(ctx).Info("retry pass finished",
		zap.Int("attempted", result.Attempted),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))
	return nil
}

func (j *syncJob) Cleanup(ctx context.Context) error {
	ctx = j.withTrace(ctx, JobCleanup)
	result, err := j.monitorService.CleanupSyncData(ctx, 0, false)
	if err != nil {
		return err
	}
	var deleted int64
	if result.RecordsDeleted != nil {
		deleted = *result.RecordsDeleted
	}
	j.logger.WithContext(ctx).Info("retention cleanup finished",
		zap.Int("days_to_keep", result.DaysToKeep),
		zap.Int64("records_deleted", deleted))
	return nil
}
