package service

import (
	"context"
	"errors"
	"fmt"

	v1 "tenantsync/api/v1"
	"tenantsync/internal/model"

	"go.uber.org/zap"
)

// UnitFunc 一个同步单元的实际工作，返回写入台账的统计
type UnitFunc func(ctx context.Context, entry *model.SyncLog) (model.SyncStats, error)

// UnitResult 一个同步单元（一个租户 / 一种类型）的结果。
// Entry 为空表示台账条目本身没能创建。
type UnitResult struct {
	TenantID int64
	Entry    *model.SyncLog
	Err      error
}

// SyncBatch 一次编排产生的全部单元结果
type SyncBatch struct {
	BatchID string
	Results []UnitResult
}

func (b *SyncBatch) Entries() []*model.SyncLog {
	entries := make([]*model.SyncLog, 0, len(b.Results))
	for _, r := range b.Results {
		if r.Entry != nil {
			entries = append(entries, r.Entry)
		}
	}
	return entries
}

func (b *SyncBatch) Data() *v1.SyncBatchData {
	return &v1.SyncBatchData{
		BatchID: b.BatchID,
		Entries: toSyncEntries(b.Results),
		Failed:  len(b.Failed()),
	}
}

func (b *SyncBatch) Failed() []UnitResult {
	var failed []UnitResult
	for _, r := range b.Results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// execute start -> run -> complete/fail，单元内的错误只记录到台账，不向上传播
func (s *Service) execute(ctx context.Context, ledger SyncLogService, entry *model.SyncLog, run UnitFunc, retry bool) UnitResult {
	result := UnitResult{TenantID: entry.TenantID, Entry: entry}
	logger := s.logger.WithContext(ctx).With(
		zap.Int64("sync_log_id", entry.Id),
		zap.Int64("tenant_id", entry.TenantID),
		zap.String("sync_type", string(entry.SyncType)),
		zap.String("batch_id", entry.BatchID),
	)

	if err := ledger.Start(ctx, entry); err != nil {
		logger.Error("start sync failed", zap.Error(err))
		result.Err = err
		return result
	}

	stats, err := safeRun(ctx, entry, run)
	if err != nil {
		message := err.Error()
		if retry {
			message = "Retry failed: " + message
		}
		logger.Error("sync unit failed", zap.Bool("retry", retry), zap.Error(err))
		if ferr := ledger.Fail(ctx, entry, message, errorContext(err)); ferr != nil {
			logger.Error("record sync failure failed", zap.Error(ferr))
		}
		result.Err = err
		return result
	}

	if err := ledger.Complete(ctx, entry, stats); err != nil {
		logger.Error("complete sync failed", zap.Error(err))
		result.Err = err
	}
	return result
}

func safeRun(ctx context.Context, entry *model.SyncLog, run UnitFunc) (stats model.SyncStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return run(ctx, entry)
}

func errorContext(err error) map[string]interface{} {
	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T", e))
	}
	return map[string]interface{}{
		"error_type":  fmt.Sprintf("%T", err),
		"error_code":  v1.ErrorCode(err),
		"error_chain": chain,
	}
}

