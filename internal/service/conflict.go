package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	v1 "tenantsync/api/v1"
	"tenantsync/internal/model"
	"tenantsync/internal/repository"
	"tenantsync/pkg/hash"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ConflictStrategy 冲突处理策略
type ConflictStrategy string

const (
	StrategyGlobalWins ConflictStrategy = "global_wins"
	StrategyTenantWins ConflictStrategy = "tenant_wins"
	StrategyMerge      ConflictStrategy = "merge"
	StrategyManual     ConflictStrategy = "manual"
)

func (s ConflictStrategy) Valid() bool {
	switch s {
	case StrategyGlobalWins, StrategyTenantWins, StrategyMerge, StrategyManual:
		return true
	}
	return false
}

// 处理结果动作，写入 resolution_data.action
const (
	ActionTenantOverwritten = "tenant_overwritten"
	ActionGlobalOverwritten = "global_overwritten"
	ActionMerged            = "merged"
	ActionFlaggedForReview  = "flagged_for_review"
)

// MergeFunc 字段级合并策略，由调用方提供；返回的值同时写回全局与租户两侧
type MergeFunc func(global, tenant map[string]interface{}) (map[string]interface{}, error)

// Conflict 同一逻辑记录的全局版本与租户版本
type Conflict struct {
	TenantID       int64
	GlobalTable    string
	TenantTable    string
	GlobalRecordID int64
	TenantRecordID int64
	// Fields 参与处理的字段，为空时取两侧共有的非元数据字段
	Fields []string
}

type ConflictService interface {
	ResolveConflict(ctx context.Context, conflict Conflict, strategy ConflictStrategy, merge MergeFunc, opts SyncOptions) (UnitResult, error)
}

func NewConflictService(
	service *Service,
	ledger SyncLogService,
	tenantRepo repository.TenantRepository,
	recordRepo repository.RecordRepository,
	switcher repository.TenantSwitcher,
) ConflictService {
	return &conflictService{
		Service:    service,
		ledger:     ledger,
		tenantRepo: tenantRepo,
		recordRepo: recordRepo,
		switcher:   switcher,
	}
}

type conflictService struct {
	*Service
	ledger     SyncLogService
	tenantRepo repository.TenantRepository
	recordRepo repository.RecordRepository
	switcher   repository.TenantSwitcher
}

func (s *conflictService) ResolveConflict(ctx context.Context, conflict Conflict, strategy ConflictStrategy, merge MergeFunc, opts SyncOptions) (UnitResult, error) {
	result := UnitResult{TenantID: conflict.TenantID}
	if !strategy.Valid() {
		return result, fmt.Errorf("%w: %q", v1.ErrUnknownStrategy, strategy)
	}
	if strategy == StrategyMerge && merge == nil {
		return result, v1.ErrMergePolicyRequired
	}
	if err := validateConflict(conflict); err != nil {
		return result, err
	}
	tenant, err := s.tenantRepo.GetByID(ctx, conflict.TenantID)
	if err != nil {
		return result, fmt.Errorf("get tenant %d: %w", conflict.TenantID, err)
	}
	if tenant == nil {
		return result, fmt.Errorf("%w: %d", v1.ErrTenantNotFound, conflict.TenantID)
	}

	if opts.BatchID == "" {
		opts.BatchID = s.newBatchID()
	}
	globalID := conflict.GlobalRecordID
	opts.SourceRecordID = &globalID
	opts.Direction = model.SyncDirectionBidirectional
	opts.Metadata = map[string]interface{}{
		"strategy":         string(strategy),
		"tenant_record_id": conflict.TenantRecordID,
	}
	entry, err := s.ledger.CreateSync(ctx, model.SyncTypeConflictResolution, model.SyncOperationReconcile,
		conflict.GlobalTable, conflict.TenantTable, conflict.TenantID, opts)
	if err != nil {
		return result, err
	}
	return s.execute(ctx, s.ledger, entry, s.resolve(conflict, strategy, merge), false), nil
}

func (s *conflictService) resolve(conflict Conflict, strategy ConflictStrategy, merge MergeFunc) UnitFunc {
	return func(ctx context.Context, entry *model.SyncLog) (model.SyncStats, error) {
		global, err := s.recordRepo.Get(ctx, conflict.GlobalTable, conflict.GlobalRecordID)
		if err != nil {
			return nil, fmt.Errorf("get global record: %w", err)
		}
		if global == nil {
			return nil, fmt.Errorf("%w: %s %d", v1.ErrRecordNotFound, conflict.GlobalTable, conflict.GlobalRecordID)
		}
		tenant, err := s.readTenant(ctx, conflict)
		if err != nil {
			return nil, err
		}

		fields := conflictFields(conflict.Fields, global, tenant)
		now := s.now()
		var (
			action   string
			toTenant map[string]interface{}
			toGlobal map[string]interface{}
			writes   int64
		)
		switch strategy {
		case StrategyGlobalWins:
			action = ActionTenantOverwritten
			toTenant = pick(global, fields)
		case StrategyTenantWins:
			action = ActionGlobalOverwritten
			toGlobal = pick(tenant, fields)
		case StrategyMerge:
			merged, err := merge(pick(global, fields), pick(tenant, fields))
			if err != nil {
				return nil, fmt.Errorf("merge policy: %w", err)
			}
			for k := range merged {
				if !repository.ValidIdentifier(k) {
					return nil, fmt.Errorf("%w: merged field %q", v1.ErrInvalidIdentifier, k)
				}
			}
			action = ActionMerged
			toTenant = merged
			toGlobal = merged
		case StrategyManual:
			action = ActionFlaggedForReview
		}

		if len(toTenant) > 0 {
			touch(toTenant, tenant, now)
			if err := s.switcher.WithTenant(ctx, conflict.TenantID, func(ctx context.Context, p *repository.Partition) error {
				return p.Table(conflict.TenantTable).Where("id = ?", conflict.TenantRecordID).Updates(toTenant).Error
			}); err != nil {
				return nil, fmt.Errorf("write tenant record: %w", err)
			}
			writes++
		}
		if len(toGlobal) > 0 {
			touch(toGlobal, global, now)
			if err := s.recordRepo.Update(ctx, conflict.GlobalTable, conflict.GlobalRecordID, toGlobal); err != nil {
				return nil, fmt.Errorf("write global record: %w", err)
			}
			writes++
		}

		entry.ResolutionData = datatypes.JSONMap{
			"strategy":    string(strategy),
			"action":      action,
			"resolved_at": now.Format(time.RFC3339),
			"fields":      fields,
		}
		return model.SyncStats{
			model.StatRecordsProcessed: 1,
			model.StatRecordsUpdated:   writes,
		}, nil
	}
}

func (s *conflictService) readTenant(ctx context.Context, conflict Conflict) (map[string]interface{}, error) {
	record := map[string]interface{}{}
	err := s.switcher.WithTenant(ctx, conflict.TenantID, func(ctx context.Context, p *repository.Partition) error {
		return p.Table(conflict.TenantTable).Where("id = ?", conflict.TenantRecordID).Take(&record).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s %d", v1.ErrRecordNotFound, conflict.TenantTable, conflict.TenantRecordID)
		}
		return nil, fmt.Errorf("get tenant record: %w", err)
	}
	return record, nil
}

func validateConflict(c Conflict) error {
	for _, name := range append([]string{c.GlobalTable, c.TenantTable}, c.Fields...) {
		if !repository.ValidIdentifier(name) {
			return fmt.Errorf("%w: %q", v1.ErrInvalidIdentifier, name)
		}
	}
	return nil
}

// conflictFields 指定字段优先，否则取两侧共有的业务字段
func conflictFields(fields []string, global, tenant map[string]interface{}) []string {
	if len(fields) > 0 {
		return fields
	}
	shared := make([]string, 0, len(global))
	for k := range global {
		if _, ok := tenant[k]; ok && !hash.IsBookkeeping(k) {
			shared = append(shared, k)
		}
	}
	sort.Strings(shared)
	return shared
}

func pick(record map[string]interface{}, fields []string) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		if v, ok := record[f]; ok {
			out[f] = v
		}
	}
	return out
}

func touch(values, target map[string]interface{}, now time.Time) {
	if _, ok := target["updated_at"]; ok {
		values["updated_at"] = now
	}
}
