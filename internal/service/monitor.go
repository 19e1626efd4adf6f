package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	v1 "tenantsync/api/v1"
	"tenantsync/internal/model"
	"tenantsync/internal/repository"

	"github.com/duke-git/lancet/v2/mathutil"
	"go.uber.org/zap"
)

const recentFailureLimit = 10

// MonitorService 台账统计、失败重试与保留期清理
type MonitorService interface {
	GetSyncStatus(ctx context.Context, tenantID *int64, hours int) (*v1.SyncStatusData, error)
	RetryFailedSyncs(ctx context.Context, tenantID *int64, syncTypes []model.SyncType, limit int) (*v1.RetryResult, error)
	CleanupSyncData(ctx context.Context, daysToKeep int, dryRun bool) (*v1.CleanupResult, error)
}

func NewMonitorService(
	service *Service,
	cfg *SyncConfig,
	syncLogRepo repository.SyncLogRepository,
	syncService SyncService,
	cache repository.SyncCache,
) MonitorService {
	return &monitorService{
		Service:     service,
		cfg:         cfg,
		syncLogRepo: syncLogRepo,
		syncService: syncService,
		cache:       cache,
	}
}

type monitorService struct {
	*Service
	cfg         *SyncConfig
	syncLogRepo repository.SyncLogRepository
	syncService SyncService
	cache       repository.SyncCache
}

func (s *monitorService) GetSyncStatus(ctx context.Context, tenantID *int64, hours int) (*v1.SyncStatusData, error) {
	if hours <= 0 {
		hours = 24
	}
	key := statusCacheKey(tenantID, hours)
	if cached, ok := s.cachedStatus(ctx, key); ok {
		return cached, nil
	}

	since := s.now().Add(-time.Duration(hours) * time.Hour)
	filter := repository.SyncLogFilter{TenantID: tenantID}
	counts, err := s.syncLogRepo.CountByStatus(ctx, since, filter)
	if err != nil {
		return nil, fmt.Errorf("count sync logs: %w", err)
	}
	failures, err := s.syncLogRepo.ListRecentFailures(ctx, since, filter, recentFailureLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent failures: %w", err)
	}
	completed, err := s.syncLogRepo.ListCompletedSince(ctx, since, filter)
	if err != nil {
		return nil, fmt.Errorf("list completed syncs: %w", err)
	}

	data := &v1.SyncStatusData{
		TenantID:       tenantID,
		Hours:          hours,
		Since:          since,
		BySyncType:     make(map[string]v1.SyncBreakdown),
		ByTenant:       make(map[int64]v1.SyncBreakdown),
		RecentFailures: make([]v1.FailedSync, 0, len(failures)),
	}
	for _, c := range counts {
		addCount(&data.Totals, c)
		data.BySyncType[string(c.SyncType)] = addBreakdown(data.BySyncType[string(c.SyncType)], c)
		data.ByTenant[c.TenantID] = addBreakdown(data.ByTenant[c.TenantID], c)
	}
	for k, b := range data.BySyncType {
		data.BySyncType[k] = withSuccessRate(b)
	}
	for k, b := range data.ByTenant {
		data.ByTenant[k] = withSuccessRate(b)
	}
	for _, f := range failures {
		data.RecentFailures = append(data.RecentFailures, v1.FailedSync{
			ID:           f.Id,
			SyncType:     string(f.SyncType),
			TenantID:     f.TenantID,
			ErrorMessage: f.ErrorMessage,
			FailedAt:     f.FailedAt,
			RetryCount:   f.RetryCount,
			CanRetry:     f.CanRetry(),
		})
	}
	data.Performance = performance(completed, hours)

	s.storeStatus(ctx, key, data)
	return data, nil
}

func (s *monitorService) RetryFailedSyncs(ctx context.Context, tenantID *int64, syncTypes []model.SyncType, limit int) (*v1.RetryResult, error) {
	if limit <= 0 {
		limit = s.cfg.RetryBatchLimit
	}
	entries, err := s.syncLogRepo.ListRetryable(ctx, repository.SyncLogFilter{TenantID: tenantID, SyncTypes: syncTypes}, limit)
	if err != nil {
		return nil, fmt.Errorf("list retryable sync logs: %w", err)
	}

	result := &v1.RetryResult{Entries: make([]v1.RetryOutcome, 0, len(entries))}
	for _, entry := range entries {
		outcome := v1.RetryOutcome{ID: entry.Id, SyncType: string(entry.SyncType), TenantID: entry.TenantID}
		unit, err := s.syncService.RetrySync(ctx, entry)
		switch {
		case err != nil:
			// 未进入执行：类型不支持重试或已达上限
			result.Skipped++
			outcome.Error = err.Error()
			s.logger.WithContext(ctx).Warn("sync retry skipped",
				zap.Int64("sync_log_id", entry.Id), zap.String("sync_type", string(entry.SyncType)), zap.Error(err))
		case unit.Err != nil:
			result.Attempted++
			result.Failed++
			outcome.Error = unit.Err.Error()
		default:
			result.Attempted++
			result.Succeeded++
		}
		outcome.Status = string(entry.Status)
		outcome.RetryCount = entry.RetryCount
		result.Entries = append(result.Entries, outcome)
	}

	if result.Attempted > 0 {
		s.invalidate(ctx)
	}
	return result, nil
}

func (s *monitorService) CleanupSyncData(ctx context.Context, daysToKeep int, dryRun bool) (*v1.CleanupResult, error) {
	if daysToKeep <= 0 {
		daysToKeep = s.cfg.RetentionDays
	}
	cutoff := s.now().AddDate(0, 0, -daysToKeep)
	found, err := s.syncLogRepo.CountExpired(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("count expired sync logs: %w", err)
	}
	result := &v1.CleanupResult{
		DaysToKeep:   daysToKeep,
		Cutoff:       cutoff,
		DryRun:       dryRun,
		RecordsFound: found,
	}
	if dryRun {
		return result, nil
	}

	deleted, err := s.syncLogRepo.DeleteExpired(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("delete expired sync logs: %w", err)
	}
	result.RecordsDeleted = &deleted
	result.CacheKeysInvalidated = s.invalidate(ctx)

	s.logger.WithContext(ctx).Info("sync data cleaned up",
		zap.Int("days_to_keep", daysToKeep), zap.Int64("records_deleted", deleted))
	return result, nil
}

func (s *monitorService) invalidate(ctx context.Context) int64 {
	return s.invalidateStatus(ctx, s.cache)
}

func (s *monitorService) cachedStatus(ctx context.Context, key string) (*v1.SyncStatusData, bool) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithContext(ctx).Warn("read sync status cache failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var data v1.SyncStatusData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.WithContext(ctx).Warn("decode sync status cache failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &data, true
}

func (s *monitorService) storeStatus(ctx context.Context, key string, data *v1.SyncStatusData) {
	raw, err := json.Marshal(data)
	if err == nil {
		err = s.cache.Set(ctx, key, raw, s.cfg.StatusCacheTTL)
	}
	if err != nil {
		s.logger.WithContext(ctx).Warn("write sync status cache failed", zap.String("key", key), zap.Error(err))
	}
}

func statusCacheKey(tenantID *int64, hours int) string {
	if tenantID == nil {
		return fmt.Sprintf("%sstatus:all:%d", repository.SyncCachePrefix, hours)
	}
	return fmt.Sprintf("%sstatus:%d:%d", repository.SyncCachePrefix, *tenantID, hours)
}

func addCount(t *v1.SyncTotals, c repository.StatusCount) {
	t.TotalSyncs += c.Total
	switch c.Status {
	case model.SyncStatusCompleted:
		t.CompletedSyncs += c.Total
	case model.SyncStatusFailed:
		t.FailedSyncs += c.Total
	case model.SyncStatusInProgress:
		t.RunningSyncs += c.Total
	case model.SyncStatusPending:
		t.PendingSyncs += c.Total
	case model.SyncStatusRetrying:
		t.RetryingSyncs += c.Total
	case model.SyncStatusCancelled:
		t.CancelledSyncs += c.Total
	}
}

func addBreakdown(b v1.SyncBreakdown, c repository.StatusCount) v1.SyncBreakdown {
	b.Total += c.Total
	switch c.Status {
	case model.SyncStatusCompleted:
		b.Completed += c.Total
	case model.SyncStatusFailed:
		b.Failed += c.Total
	}
	return b
}

func withSuccessRate(b v1.SyncBreakdown) v1.SyncBreakdown {
	if b.Total > 0 {
		b.SuccessRate = mathutil.RoundToFloat(float64(b.Completed)/float64(b.Total)*100, 2)
	}
	return b
}

func performance(completed []*model.SyncLog, hours int) v1.SyncPerformance {
	var (
		perf        v1.SyncPerformance
		sum         int64
		measured    int64
		minDuration int64 = math.MaxInt64
	)
	for _, e := range completed {
		perf.TotalRecordsProcessed += e.SyncStats()[model.StatRecordsProcessed]
		if e.DurationMs == nil {
			continue
		}
		d := *e.DurationMs
		measured++
		sum += d
		if d < minDuration {
			minDuration = d
		}
		if d > perf.MaxDurationMs {
			perf.MaxDurationMs = d
		}
	}
	if measured > 0 {
		perf.MinDurationMs = minDuration
		perf.AvgDurationMs = mathutil.RoundToFloat(float64(sum)/float64(measured), 2)
	}
	perf.ThroughputPerHour = mathutil.RoundToFloat(float64(perf.TotalRecordsProcessed)/float64(hours), 2)
	return perf
}
