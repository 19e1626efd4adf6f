package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	v1 "tenantsync/api/v1"
	"tenantsync/internal/model"
	"tenantsync/internal/repository"

	"github.com/duke-git/lancet/v2/slice"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultTenantRole = "member"

type SyncService interface {
	// SyncGlobalUserToTenants 把全局用户投影到目标租户，tenantIDs 为空时取用户所属的全部租户
	SyncGlobalUserToTenants(ctx context.Context, userID int64, tenantIDs []int64, opts SyncOptions) (*SyncBatch, error)
	// SyncGlobalCourseToTenants 把全局课程投影到目标租户，tenantIDs 为空时取有 offering 的全部租户
	SyncGlobalCourseToTenants(ctx context.Context, courseID int64, tenantIDs []int64, opts SyncOptions) (*SyncBatch, error)
	// SyncTenantDataToGlobal 租户数据回写全局；error 只用于调用错误，单元失败记录在 UnitResult 中
	SyncTenantDataToGlobal(ctx context.Context, tenantID int64, syncType model.SyncType, recordIDs []int64, opts SyncOptions) (UnitResult, error)
	PerformBidirectionalSync(ctx context.Context, tenantID int64, syncTypes []model.SyncType, opts SyncOptions) (*v1.BidirectionalReport, error)
	// RetrySync 对失败条目调用 retry 并在同一条目上重新执行原操作
	RetrySync(ctx context.Context, entry *model.SyncLog) (UnitResult, error)
	RegisterRetryHandler(syncType model.SyncType, handler UnitFunc)
}

type toTenantHandler func(ctx context.Context, tenantID int64, opts SyncOptions) ([]UnitResult, error)

type toGlobalHandler struct {
	operation model.SyncOperation
	source    string
	target    string
	run       func(recordIDs []int64) UnitFunc
}

func NewSyncService(
	service *Service,
	cfg *SyncConfig,
	ledger SyncLogService,
	tenantRepo repository.TenantRepository,
	userRepo repository.GlobalUserRepository,
	courseRepo repository.GlobalCourseRepository,
	analyticsRepo repository.AnalyticsRepository,
	switcher repository.TenantSwitcher,
	locker repository.TenantLocker,
	cache repository.SyncCache,
) SyncService {
	s := &syncService{
		Service:       service,
		cfg:           cfg,
		ledger:        ledger,
		tenantRepo:    tenantRepo,
		userRepo:      userRepo,
		courseRepo:    courseRepo,
		analyticsRepo: analyticsRepo,
		switcher:      switcher,
		locker:        locker,
		cache:         cache,
		retryHandlers: make(map[model.SyncType]UnitFunc),
	}
	s.toTenant = map[model.SyncType]toTenantHandler{
		model.SyncTypeUser:   s.syncTenantUsers,
		model.SyncTypeCourse: s.syncTenantCourses,
	}
	s.toGlobal = map[model.SyncType]toGlobalHandler{
		model.SyncTypeUser: {
			operation: model.SyncOperationUpdate,
			source:    model.TenantUser{}.TableName(),
			target:    model.GlobalUser{}.TableName(),
			run:       s.mergeBackUsers,
		},
		model.SyncTypeEnrollment: {
			operation: model.SyncOperationReconcile,
			source:    model.TenantEnrollment{}.TableName(),
			target:    model.SuperAdminAnalytics{}.TableName(),
			run:       s.aggregateEnrollments,
		},
		model.SyncTypeAnalytics: {
			operation: model.SyncOperationReconcile,
			source:    model.TenantAnalyticsEvent{}.TableName(),
			target:    model.SuperAdminAnalytics{}.TableName(),
			run:       s.aggregateAnalytics,
		},
	}
	return s
}

type syncService struct {
	*Service
	cfg           *SyncConfig
	ledger        SyncLogService
	tenantRepo    repository.TenantRepository
	userRepo      repository.GlobalUserRepository
	courseRepo    repository.GlobalCourseRepository
	analyticsRepo repository.AnalyticsRepository
	switcher      repository.TenantSwitcher
	locker        repository.TenantLocker
	cache         repository.SyncCache

	toTenant      map[model.SyncType]toTenantHandler
	toGlobal      map[model.SyncType]toGlobalHandler
	retryHandlers map[model.SyncType]UnitFunc
}

func (s *syncService) RegisterRetryHandler(syncType model.SyncType, handler UnitFunc) {
	s.retryHandlers[syncType] = handler
}

func (s *syncService) SyncGlobalUserToTenants(ctx context.Context, userID int64, tenantIDs []int64, opts SyncOptions) (*SyncBatch, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get global user %d: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: global user %d", v1.ErrRecordNotFound, userID)
	}
	if len(tenantIDs) == 0 {
		if tenantIDs, err = s.tenantRepo.ListTenantIDsByUser(ctx, userID); err != nil {
			return nil, fmt.Errorf("list tenants of user %d: %w", userID, err)
		}
	}

	batch := s.newBatch(&opts)
	batch.Results = s.fanOut(ctx, slice.Unique(tenantIDs), func(ctx context.Context, tenantID int64) UnitResult {
		return s.userToTenant(ctx, user, tenantID, opts)
	})
	s.invalidateStatus(ctx, s.cache)
	return batch, nil
}

func (s *syncService) SyncGlobalCourseToTenants(ctx context.Context, courseID int64, tenantIDs []int64, opts SyncOptions) (*SyncBatch, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("get global course %d: %w", courseID, err)
	}
	if course == nil {
		return nil, fmt.Errorf("%w: global course %d", v1.ErrRecordNotFound, courseID)
	}
	if len(tenantIDs) == 0 {
		if tenantIDs, err = s.courseRepo.ListOfferingTenantIDs(ctx, courseID); err != nil {
			return nil, fmt.Errorf("list offerings of course %d: %w", courseID, err)
		}
	}

	batch := s.newBatch(&opts)
	batch.Results = s.fanOut(ctx, slice.Unique(tenantIDs), func(ctx context.Context, tenantID int64) UnitResult {
		return s.courseToTenant(ctx, course, tenantID, opts)
	})
	s.invalidateStatus(ctx, s.cache)
	return batch, nil
}

func (s *syncService) SyncTenantDataToGlobal(ctx context.Context, tenantID int64, syncType model.SyncType, recordIDs []int64, opts SyncOptions) (UnitResult, error) {
	handler, ok := s.toGlobal[syncType]
	if !ok {
		return UnitResult{TenantID: tenantID}, fmt.Errorf("%w: %s to global", v1.ErrUnsupportedSyncType, syncType)
	}
	if err := s.ensureTenant(ctx, tenantID); err != nil {
		return UnitResult{TenantID: tenantID}, err
	}
	s.newBatch(&opts)
	result := s.tenantToGlobal(ctx, tenantID, syncType, handler, recordIDs, opts)
	s.invalidateStatus(ctx, s.cache)
	return result, nil
}

func (s *syncService) PerformBidirectionalSync(ctx context.Context, tenantID int64, syncTypes []model.SyncType, opts SyncOptions) (*v1.BidirectionalReport, error) {
	if len(syncTypes) == 0 {
		syncTypes = model.DataSyncTypes
	}
	for _, t := range syncTypes {
		if !t.Valid() || t == model.SyncTypeConflictResolution {
			return nil, fmt.Errorf("%w: %q", v1.ErrUnsupportedSyncType, t)
		}
	}
	if err := s.ensureTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	token, err := s.sid.GenString()
	if err != nil {
		return nil, fmt.Errorf("generate lock token: %w", err)
	}
	key := repository.TenantLockKey(tenantID)
	acquired, err := s.locker.Acquire(ctx, key, token, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("%w: tenant %d", v1.ErrSyncInProgress, tenantID)
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger.WithContext(ctx).Error("release sync lock failed", zap.Int64("tenant_id", tenantID), zap.Error(err))
		}
	}()

	batch := s.newBatch(&opts)
	report := &v1.BidirectionalReport{BatchID: batch.BatchID, TenantID: tenantID}
	for _, t := range slice.Unique(syncTypes) {
		report.Directions = append(report.Directions,
			s.runToTenant(ctx, tenantID, t, opts),
			s.runToGlobal(ctx, tenantID, t, opts),
		)
	}
	s.invalidateStatus(ctx, s.cache)
	return report, nil
}

func (s *syncService) RetrySync(ctx context.Context, entry *model.SyncLog) (UnitResult, error) {
	run, err := s.retryUnit(entry)
	if err != nil {
		return UnitResult{TenantID: entry.TenantID, Entry: entry}, err
	}
	if err := s.ledger.Retry(ctx, entry); err != nil {
		return UnitResult{TenantID: entry.TenantID, Entry: entry}, err
	}
	return s.execute(ctx, s.ledger, entry, run, true), nil
}

func (s *syncService) retryUnit(entry *model.SyncLog) (UnitFunc, error) {
	if handler, ok := s.retryHandlers[entry.SyncType]; ok {
		return handler, nil
	}
	switch entry.SyncDirection {
	case model.SyncDirectionGlobalToTenant:
		if entry.SourceRecordID == nil {
			break
		}
		sourceID := *entry.SourceRecordID
		switch entry.SyncType {
		case model.SyncTypeUser:
			return func(ctx context.Context, entry *model.SyncLog) (model.SyncStats, error) {
				user, err := s.userRepo.GetByID(ctx, sourceID)
				if err != nil {
					return nil, err
				}
				if user == nil {
					return nil, fmt.Errorf("%w: global user %d", v1.ErrRecordNotFound, sourceID)
				}
				return s.projectUser(user)(ctx, entry)
			}, nil
		case model.SyncTypeCourse:
			return func(ctx context.Context, entry *model.SyncLog) (model.SyncStats, error) {
				course, err := s.courseRepo.GetByID(ctx, sourceID)
				if err != nil {
					return nil, err
				}
				if course == nil {
					return nil, fmt.Errorf("%w: global course %d", v1.ErrRecordNotFound, sourceID)
				}
				return s.projectCourse(course)(ctx, entry)
			}, nil
		}
	case model.SyncDirectionTenantToGlobal:
		if handler, ok := s.toGlobal[entry.SyncType]; ok {
			return handler.run(retryRecordIDs(entry)), nil
		}
	}
	return nil, fmt.Errorf("%w: %s (%s)", v1.ErrRetryNotSupported, entry.SyncType, entry.SyncDirection)
}

func (s *syncService) runToTenant(ctx context.Context, tenantID int64, syncType model.SyncType, opts SyncOptions) v1.DirectionReport {
	report := v1.DirectionReport{SyncType: string(syncType), Direction: string(model.SyncDirectionGlobalToTenant)}
	handler, ok := s.toTenant[syncType]
	if !ok {
		report.Skipped = true
		return report
	}
	results, err := handler(ctx, tenantID, opts)
	if err != nil {
		s.logger.WithContext(ctx).Error("global to tenant sync failed",
			zap.Int64("tenant_id", tenantID), zap.String("sync_type", string(syncType)), zap.Error(err))
		report.Error = err.Error()
	}
	report.Entries = toSyncEntries(results)
	return report
}

func (s *syncService) runToGlobal(ctx context.Context, tenantID int64, syncType model.SyncType, opts SyncOptions) v1.DirectionReport {
	report := v1.DirectionReport{SyncType: string(syncType), Direction: string(model.SyncDirectionTenantToGlobal)}
	handler, ok := s.toGlobal[syncType]
	if !ok {
		report.Skipped = true
		return report
	}
	result := s.tenantToGlobal(ctx, tenantID, syncType, handler, nil, opts)
	if result.Err != nil {
		report.Error = result.Err.Error()
	}
	report.Entries = toSyncEntries([]UnitResult{result})
	return report
}

func (s *syncService) syncTenantUsers(ctx context.Context, tenantID int64, opts SyncOptions) ([]UnitResult, error) {
	users, err := s.userRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list users of tenant %d: %w", tenantID, err)
	}
	results := make([]UnitResult, 0, len(users))
	for _, user := range users {
		results = append(results, s.userToTenant(ctx, user, tenantID, opts))
	}
	return results, nil
}

func (s *syncService) syncTenantCourses(ctx context.Context, tenantID int64, opts SyncOptions) ([]UnitResult, error) {
	courses, err := s.courseRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list courses of tenant %d: %w", tenantID, err)
	}
	results := make([]UnitResult, 0, len(courses))
	for _, course := range courses {
		results = append(results, s.courseToTenant(ctx, course, tenantID, opts))
	}
	return results, nil
}

func (s *syncService) userToTenant(ctx context.Context, user *model.GlobalUser, tenantID int64, opts SyncOptions) UnitResult {
	userID := user.Id
	opts.SourceRecordID = &userID
	opts.Direction = model.SyncDirectionGlobalToTenant
	entry, err := s.ledger.CreateSync(ctx, model.SyncTypeUser, model.SyncOperationUpdate,
		model.GlobalUser{}.TableName(), model.TenantUser{}.TableName(), tenantID, opts)
	if err != nil {
		s.logger.WithContext(ctx).Error("create sync log failed",
			zap.Int64("tenant_id", tenantID), zap.Int64("global_user_id", userID), zap.Error(err))
		return UnitResult{TenantID: tenantID, Err: err}
	}
	return s.execute(ctx, s.ledger, entry, s.projectUser(user), false)
}

func (s *syncService) courseToTenant(ctx context.Context, course *model.GlobalCourse, tenantID int64, opts SyncOptions) UnitResult {
	courseID := course.Id
	opts.SourceRecordID = &courseID
	opts.Direction = model.SyncDirectionGlobalToTenant
	entry, err := s.ledger.CreateSync(ctx, model.SyncTypeCourse, model.SyncOperationUpdate,
		model.GlobalCourse{}.TableName(), model.TenantCourse{}.TableName(), tenantID, opts)
	if err != nil {
		s.logger.WithContext(ctx).Error("create sync log failed",
			zap.Int64("tenant_id", tenantID), zap.Int64("global_course_id", courseID), zap.Error(err))
		return UnitResult{TenantID: tenantID, Err: err}
	}
	return s.execute(ctx, s.ledger, entry, s.projectCourse(course), false)
}

func (s *syncService) tenantToGlobal(ctx context.Context, tenantID int64, syncType model.SyncType, handler toGlobalHandler, recordIDs []int64, opts SyncOptions) UnitResult {
	opts.Direction = model.SyncDirectionTenantToGlobal
	opts.SourceRecordID = nil
	if len(recordIDs) > 0 {
		metadata := make(map[string]interface{}, len(opts.Metadata)+1)
		for k, v := range opts.Metadata {
			metadata[k] = v
		}
		metadata["record_ids"] = recordIDs
		opts.Metadata = metadata
	}
	entry, err := s.ledger.CreateSync(ctx, syncType, handler.operation, handler.source, handler.target, tenantID, opts)
	if err != nil {
		s.logger.WithContext(ctx).Error("create sync log failed",
			zap.Int64("tenant_id", tenantID), zap.String("sync_type", string(syncType)), zap.Error(err))
		return UnitResult{TenantID: tenantID, Err: err}
	}
	return s.execute(ctx, s.ledger, entry, handler.run(recordIDs), false)
}

func (s *syncService) projectUser(user *model.GlobalUser) UnitFunc {
	return func(ctx context.Context, entry *model.SyncLog) (model.SyncStats, error) {
		now := s.now()
		var (
			row     model.TenantUser
			created bool
		)
		err := s.switcher.WithTenant(ctx, entry.TenantID, func(ctx context.Context, p *repository.Partition) error {
			err := p.Table(row.TableName()).Where("global_user_id = ?", user.Id).First(&row).Error
			switch {
			case err == nil:
				user.ProjectTo(&row)
				row.UpdatedAt = now
				return p.Table(row.TableName()).Save(&row).Error
			case errors.Is(err, gorm.ErrRecordNotFound):
				row = model.TenantUser{Role: defaultTenantRole, CreatedAt: now, UpdatedAt: now}
				user.ProjectTo(&row)
				created = true
				return p.Table(row.TableName()).Create(&row).Error
			default:
				return err
			}
		})
		if err != nil {
			return nil, err
		}
		return projected(entry, row.Id, created), nil
	}
}

func (s *syncService) projectCourse(course *model.GlobalCourse) UnitFunc {
	return func(ctx context.Context, entry *model.SyncLog) (model.SyncStats, error) {
		offering, err := s.courseRepo.GetOffering(ctx, course.Id, entry.TenantID)
		if err != nil {
			return nil, fmt.Errorf("get offering: %w", err)
		}
		if offering == nil {
			return nil, fmt.Errorf("%w: course %d tenant %d", v1.ErrMissingOffering, course.Id, entry.TenantID)
		}
		profile := model.ProjectCourse(course, offering)

		now := s.now()
		var (
			row     model.TenantCourse
			created bool
		)
		err = s.switcher.WithTenant(ctx, entry.TenantID, func(ctx context.Context, p *repository.Partition) error {
			err := p.Table(row.TableName()).Where("global_course_id = ?", course.Id).First(&row).Error
			switch {
			case err == nil:
				row.Apply(course.Id, profile)
				row.UpdatedAt = now
				return p.Table(row.TableName()).Save(&row).Error
			case errors.Is(err, gorm.ErrRecordNotFound):
				row = model.TenantCourse{CreatedAt: now, UpdatedAt: now}
				row.Apply(course.Id, profile)
				created = true
				return p.Table(row.TableName()).Create(&row).Error
			default:
				return err
			}
		})
		if err != nil {
			return nil, err
		}
		return projected(entry, row.Id, created), nil
	}
}

// projected target_record_id 只在新建成功后写入
func projected(entry *model.SyncLog, targetID int64, created bool) model.SyncStats {
	if created {
		entry.TargetRecordID = &targetID
		entry.Operation = model.SyncOperationCreate
		return model.SyncStats{model.StatRecordsProcessed: 1, model.StatRecordsCreated: 1}
	}
	entry.Operation = model.SyncOperationUpdate
	return model.SyncStats{model.StatRecordsProcessed: 1, model.StatRecordsUpdated: 1}
}

// retryRecordIDs 读回 tenantToGlobal 写入 metadata 的 record_ids；入库后的 JSON 数字为 float64
func retryRecordIDs(entry *model.SyncLog) []int64 {
	switch ids := entry.Metadata["record_ids"].(type) {
	case []int64:
		return ids
	case []interface{}:
		out := make([]int64, 0, len(ids))
		for _, v := range ids {
			switch n := v.(type) {
			case float64:
				out = append(out, int64(n))
			case int64:
				out = append(out, n)
			case json.Number:
				if i, err := n.Int64(); err == nil {
					out = append(out, i)
				}
			}
		}
		return out
	}
	return nil
}

// mergeBackUsers 租户侧 last_login_at 晚于全局 last_activity_at 时回写
func (s *syncService) mergeBackUsers(recordIDs []int64) UnitFunc {
	return func(ctx context.Context, entry *model.SyncLog) (model.SyncStats, error) {
		var rows []model.TenantUser
		err := s.switcher.WithTenant(ctx, entry.TenantID, func(ctx context.Context, p *repository.Partition) error {
			query := p.Table(model.TenantUser{}.TableName()).Where("global_user_id IS NOT NULL")
			if len(recordIDs) > 0 {
				query = query.Where("id IN ?", recordIDs)
			}
			return query.Order("id ASC").Find(&rows).Error
		})
		if err != nil {
			return nil, err
		}

		delta := model.SyncStats{
			model.StatRecordsProcessed: int64(len(rows)),
			model.StatRecordsUpdated:   0,
			model.StatRecordsFailed:    0,
		}
		for _, row := range rows {
			if row.LastLoginAt == nil {
				continue
			}
			updated, err := s.userRepo.TouchActivity(ctx, *row.GlobalUserID, row.LastLoginAt.UTC())
			if err != nil {
				s.logger.WithContext(ctx).Warn("merge back user activity failed",
					zap.Int64("tenant_id", entry.TenantID), zap.Int64("tenant_user_id", row.Id), zap.Error(err))
				delta[model.StatRecordsFailed]++
				continue
			}
			if updated {
				delta[model.StatRecordsUpdated]++
			}
		}
		if err := s.ledger.UpdateStats(ctx, entry, delta); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func (s *syncService) aggregateEnrollments(_ []int64) UnitFunc {
	return func(ctx context.Context, entry *model.SyncLog) (model.SyncStats, error) {
		start, end := s.currentPeriod()
		var total, active, completed, created int64
		err := s.switcher.WithTenant(ctx, entry.TenantID, func(ctx context.Context, p *repository.Partition) error {
			table := model.TenantEnrollment{}.TableName()
			if err := p.Table(table).Count(&total).Error; err != nil {
				return err
			}
			if err := p.Table(table).Where("status = ?", model.EnrollmentStatusActive).Count(&active).Error; err != nil {
				return err
			}
			if err := p.Table(table).Where("status = ?", model.EnrollmentStatusCompleted).Count(&completed).Error; err != nil {
				return err
			}
			return p.Table(table).Where("enrolled_at >= ? AND enrolled_at < ?", start, end).Count(&created).Error
		})
		if err != nil {
			return nil, err
		}

		rows := []*model.SuperAdminAnalytics{
			s.metric(entry, model.MetricTotalEnrollments, total, start, end),
			s.metric(entry, model.MetricActiveEnrollments, active, start, end),
			s.metric(entry, model.MetricCompletedEnrollments, completed, start, end),
			s.metric(entry, model.MetricNewEnrollments, created, start, end),
		}
		if err := s.analyticsRepo.Upsert(ctx, rows); err != nil {
			return nil, fmt.Errorf("upsert enrollment metrics: %w", err)
		}
		return model.SyncStats{
			model.StatRecordsProcessed: total,
			model.StatRecordsUpdated:   int64(len(rows)),
		}, nil
	}
}

type eventCount struct {
	EventType string `gorm:"column:event_type"`
	Total     int64  `gorm:"column:total"`
}

func (s *syncService) aggregateAnalytics(_ []int64) UnitFunc {
	return func(ctx context.Context, entry *model.SyncLog) (model.SyncStats, error) {
		start, end := s.currentPeriod()
		var counts []eventCount
		err := s.switcher.WithTenant(ctx, entry.TenantID, func(ctx context.Context, p *repository.Partition) error {
			return p.Table(model.TenantAnalyticsEvent{}.TableName()).
				Select("event_type, COUNT(*) AS total").
				Where("occurred_at >= ? AND occurred_at < ?", start, end).
				Group("event_type").
				Order("event_type").
				Scan(&counts).Error
		})
		if err != nil {
			return nil, err
		}

		var processed int64
		rows := make([]*model.SuperAdminAnalytics, 0, len(counts))
		for _, c := range counts {
			processed += c.Total
			rows = append(rows, s.metric(entry, model.EventMetricPrefix+c.EventType, c.Total, start, end))
		}
		if err := s.analyticsRepo.Upsert(ctx, rows); err != nil {
			return nil, fmt.Errorf("upsert event metrics: %w", err)
		}
		return model.SyncStats{
			model.StatRecordsProcessed: processed,
			model.StatRecordsUpdated:   int64(len(rows)),
		}, nil
	}
}

func (s *syncService) metric(entry *model.SyncLog, metricType string, value int64, start, end time.Time) *model.SuperAdminAnalytics {
	now := s.now()
	return &model.SuperAdminAnalytics{
		TenantID:          entry.TenantID,
		MetricType:        metricType,
		AggregationPeriod: model.AggregationPeriodDaily,
		PeriodStart:       start,
		PeriodEnd:         end,
		MetricValue:       float64(value),
		Metadata: datatypes.JSONMap{
			"batch_id":    entry.BatchID,
			"sync_log_id": entry.Id,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// currentPeriod 当天 [00:00, 次日 00:00) UTC
func (s *syncService) currentPeriod() (time.Time, time.Time) {
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

func (s *syncService) ensureTenant(ctx context.Context, tenantID int64) error {
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("get tenant %d: %w", tenantID, err)
	}
	if tenant == nil {
		return fmt.Errorf("%w: %d", v1.ErrTenantNotFound, tenantID)
	}
	return nil
}

func (s *syncService) newBatch(opts *SyncOptions) *SyncBatch {
	if opts.BatchID == "" {
		opts.BatchID = s.newBatchID()
	}
	return &SyncBatch{BatchID: opts.BatchID}
}

// fanOut 逐个租户执行；sync.parallelism > 1 时以 errgroup 限流并发
func (s *syncService) fanOut(ctx context.Context, tenantIDs []int64, unit func(ctx context.Context, tenantID int64) UnitResult) []UnitResult {
	results := make([]UnitResult, len(tenantIDs))
	if s.cfg.Parallelism <= 1 || len(tenantIDs) <= 1 {
		for i, tenantID := range tenantIDs {
			results[i] = unit(ctx, tenantID)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.Parallelism)
	for i, tenantID := range tenantIDs {
		i, tenantID := i, tenantID
		g.Go(func() error {
			results[i] = unit(ctx, tenantID)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func toSyncEntries(results []UnitResult) []v1.SyncEntry {
	entries := make([]v1.SyncEntry, 0, len(results))
	for _, r := range results {
		if r.Entry == nil {
			continue
		}
		entries = append(entries, SyncEntryData(r.Entry))
	}
	return entries
}

// SyncEntryData 台账条目的输出形式
func SyncEntryData(e *model.SyncLog) v1.SyncEntry {
	return v1.SyncEntry{
		ID:             e.Id,
		BatchID:        e.BatchID,
		SyncType:       string(e.SyncType),
		Operation:      string(e.Operation),
		SyncDirection:  string(e.SyncDirection),
		TenantID:       e.TenantID,
		SourceRecordID: e.SourceRecordID,
		TargetRecordID: e.TargetRecordID,
		Status:         string(e.Status),
		RetryCount:     e.RetryCount,
		DurationMs:     e.DurationMs,
		SyncStats:      e.SyncStats(),
		ErrorMessage:   e.ErrorMessage,
	}
}
