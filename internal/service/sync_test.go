package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	v1 "tenantsync/api/v1"
	"tenantsync/internal/model"
	"tenantsync/internal/repository"
	"tenantsync/internal/repository/mocks"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenSwitcher 对指定租户的分区访问直接报错
type brokenSwitcher struct {
	repository.TenantSwitcher
	broken int64
}

func (s brokenSwitcher) WithTenant(ctx context.Context, tenantID int64, fn func(ctx context.Context, p *repository.Partition) error) error {
	if tenantID == s.broken {
		return errors.New("connection reset by peer")
	}
	return s.TenantSwitcher.WithTenant(ctx, tenantID, fn)
}

// interleavingLocker 第一次拿到锁后立即执行 onAcquired，模拟并发的第二个调用方
type interleavingLocker struct {
	repository.TenantLocker
	onAcquired func()
}

func (l *interleavingLocker) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ok, err := l.TenantLocker.Acquire(ctx, key, token, ttl)
	if ok && l.onAcquired != nil {
		hook := l.onAcquired
		l.onAcquired = nil
		hook()
	}
	return ok, err
}

func TestSyncGlobalUserToTenants_Idempotent(t *testing.T) {
	f := newFixture(t)
	tenant := f.addTenant(t, "acme")
	user := f.addUser(t, "ada@example.com", tenant.Id)

	first, err := f.sync.SyncGlobalUserToTenants(ctx, user.Id, []int64{tenant.Id}, SyncOptions{})
	require.NoError(t, err)
	require.Len(t, first.Results, 1)
	require.NoError(t, first.Results[0].Err)
	created := first.Results[0].Entry
	assert.Equal(t, model.SyncStatusCompleted, created.Status)
	assert.Equal(t, model.SyncOperationCreate, created.Operation)
	assert.Equal(t, int64(1), created.SyncStats()[model.StatRecordsCreated])

	user.Name = "Ada King"
	require.NoError(t, f.users.Update(ctx, user))
	second, err := f.sync.SyncGlobalUserToTenants(ctx, user.Id, []int64{tenant.Id}, SyncOptions{})
	require.NoError(t, err)
	require.NoError(t, second.Results[0].Err)
	updated := second.Results[0].Entry
	assert.Equal(t, model.SyncOperationUpdate, updated.Operation)
	assert.Equal(t, int64(1), updated.SyncStats()[model.StatRecordsUpdated])
	require.NotNil(t, created.TargetRecordID)
	assert.Nil(t, updated.TargetRecordID)
	assert.Nil(t, f.reload(t, updated.Id).TargetRecordID)
	assert.NotEqual(t, first.BatchID, second.BatchID)

	assert.Equal(t, int64(1), f.countRows(t, tenant.Id, "users"))
	var row model.TenantUser
	f.inTenant(t, tenant.Id, func(p *repository.Partition) error {
		return p.Table("users").First(&row).Error
	})
	assert.Equal(t, "Ada King", row.Name)
	assert.Equal(t, user.Id, *row.GlobalUserID)
}

func TestSyncGlobalUserToTenants_DefaultsToMemberships(t *testing.T) {
	f := newFixture(t)
	a := f.addTenant(t, "acme")
	b := f.addTenant(t, "globex")
	f.addTenant(t, "initech")
	user := f.addUser(t, "ada@example.com", a.Id, b.Id)

	batch, err := f.sync.SyncGlobalUserToTenants(ctx, user.Id, nil, SyncOptions{BatchID: "nightly"})
	require.NoError(t, err)
	assert.Equal(t, "nightly", batch.BatchID)
	require.Len(t, batch.Entries(), 2)
	assert.Empty(t, batch.Failed())

	entries, err := f.ledger.ListByBatch(ctx, "nightly")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSyncGlobalUserToTenants_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.sync.SyncGlobalUserToTenants(ctx, 404, nil, SyncOptions{})
	assert.ErrorIs(t, err, v1.ErrRecordNotFound)
}

func TestSyncGlobalUserToTenants_IsolatesTenantFailure(t *testing.T) {
	f := newFixture(t)
	a := f.addTenant(t, "acme")
	b := f.addTenant(t, "globex")
	c := f.addTenant(t, "initech")
	user := f.addUser(t, "ada@example.com", a.Id, b.Id, c.Id)

	svc := f.newSyncService(brokenSwitcher{TenantSwitcher: f.switcher, broken: b.Id}, f.locker)
	batch, err := svc.SyncGlobalUserToTenants(ctx, user.Id, []int64{a.Id, b.Id, c.Id}, SyncOptions{})
	require.NoError(t, err)
	require.Len(t, batch.Results, 3)

	statuses := map[int64]model.SyncStatus{}
	for _, r := range batch.Results {
		require.NotNil(t, r.Entry)
		statuses[r.TenantID] = r.Entry.Status
	}
	assert.Equal(t, model.SyncStatusCompleted, statuses[a.Id])
	assert.Equal(t, model.SyncStatusFailed, statuses[b.Id])
	assert.Equal(t, model.SyncStatusCompleted, statuses[c.Id])

	failed := batch.Failed()
	require.Len(t, failed, 1)
	stored := f.reload(t, failed[0].Entry.Id)
	assert.Equal(t, "connection reset by peer", stored.ErrorMessage)
	assert.NotEmpty(t, stored.ErrorContext["error_type"])
	assert.NotNil(t, stored.FailedAt)

	assert.Equal(t, int64(1), f.countRows(t, a.Id, "users"))
	assert.Equal(t, int64(1), f.countRows(t, c.Id, "users"))
}

func TestSyncGlobalUserToTenants_Parallel(t *testing.T) {
	f := newFixture(t)
	f.cfg.Parallelism = 4
	var ids []int64
	for _, schema := range []string{"acme", "globex", "initech"} {
		ids = append(ids, f.addTenant(t, schema).Id)
	}
	user := f.addUser(t, "ada@example.com", ids...)

	batch, err := f.sync.SyncGlobalUserToTenants(ctx, user.Id, ids, SyncOptions{})
	require.NoError(t, err)
	require.Len(t, batch.Results, 3)
	for i, r := range batch.Results {
		assert.Equal(t, ids[i], r.TenantID)
		assert.NoError(t, r.Err)
	}
}

func TestSyncGlobalCourseToTenants_MissingOffering(t *testing.T) {
	f := newFixture(t)
	a := f.addTenant(t, "acme")
	b := f.addTenant(t, "globex")
	course := f.addCourse(t, "CS101")
	f.addOffering(t, course, a.Id, "Intro to Computing")

	batch, err := f.sync.SyncGlobalCourseToTenants(ctx, course.Id, []int64{a.Id, b.Id}, SyncOptions{})
	require.NoError(t, err)
	require.Len(t, batch.Results, 2)

	ok, missing := batch.Results[0], batch.Results[1]
	require.NoError(t, ok.Err)
	assert.Equal(t, model.SyncStatusCompleted, ok.Entry.Status)
	assert.ErrorIs(t, missing.Err, v1.ErrMissingOffering)
	assert.Equal(t, model.SyncStatusFailed, missing.Entry.Status)

	var row model.TenantCourse
	f.inTenant(t, a.Id, func(p *repository.Partition) error {
		return p.Table("courses").First(&row).Error
	})
	assert.Equal(t, "Intro to Computing", row.Title)
	assert.Equal(t, "CS101", row.Code)
	assert.Equal(t, 99.0, row.Price)
	assert.Equal(t, int64(0), f.countRows(t, b.Id, "courses"))
}

func TestSyncGlobalCourseToTenants_DefaultsToOfferings(t *testing.T) {
	f := newFixture(t)
	a := f.addTenant(t, "acme")
	f.addTenant(t, "globex")
	course := f.addCourse(t, "CS101")
	f.addOffering(t, course, a.Id, "")

	batch, err := f.sync.SyncGlobalCourseToTenants(ctx, course.Id, nil, SyncOptions{})
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)
	assert.Equal(t, a.Id, batch.Results[0].TenantID)
	assert.NoError(t, batch.Results[0].Err)
}

func TestSyncTenantDataToGlobal_Unsupported(t *testing.T) {
	f := newFixture(t)
	tenant := f.addTenant(t, "acme")

	_, err := f.sync.SyncTenantDataToGlobal(ctx, tenant.Id, model.SyncTypeCourse, nil, SyncOptions{})
	assert.ErrorIs(t, err, v1.ErrUnsupportedSyncType)
	_, err = f.sync.SyncTenantDataToGlobal(ctx, tenant.Id, model.SyncTypeConflictResolution, nil, SyncOptions{})
	assert.ErrorIs(t, err, v1.ErrUnsupportedSyncType)
	_, err = f.sync.SyncTenantDataToGlobal(ctx, 404, model.SyncTypeUser, nil, SyncOptions{})
	assert.ErrorIs(t, err, v1.ErrTenantNotFound)

	var n int64
	require.NoError(t, f.db.Model(&model.SyncLog{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestSyncTenantDataToGlobal_MergesUserActivity(t *testing.T) {
	f := newFixture(t)
	tenant := f.addTenant(t, "acme")
	user := f.addUser(t, "ada@example.com", tenant.Id)
	_, err := f.sync.SyncGlobalUserToTenants(ctx, user.Id, nil, SyncOptions{})
	require.NoError(t, err)

	loginAt := f.clock.Add(-time.Hour)
	f.inTenant(t, tenant.Id, func(p *repository.Partition) error {
		return p.Table("users").Where("global_user_id = ?", user.Id).Update("last_login_at", loginAt).Error
	})

	result, err := f.sync.SyncTenantDataToGlobal(ctx, tenant.Id, model.SyncTypeUser, nil, SyncOptions{})
	require.NoError(t, err)
	require.NoError(t, result.Err)
	assert.Equal(t, model.SyncDirectionTenantToGlobal, result.Entry.SyncDirection)
	stats := f.reload(t, result.Entry.Id).SyncStats()
	assert.Equal(t, int64(1), stats[model.StatRecordsProcessed])
	assert.Equal(t, int64(1), stats[model.StatRecordsUpdated])

	global, err := f.users.GetByID(ctx, user.Id)
	require.NoError(t, err)
	require.NotNil(t, global.LastActivityAt)
	assert.True(t, loginAt.Equal(*global.LastActivityAt))

	// 全局已是最新，不再回写
	again, err := f.sync.SyncTenantDataToGlobal(ctx, tenant.Id, model.SyncTypeUser, []int64{1}, SyncOptions{})
	require.NoError(t, err)
	require.NoError(t, again.Err)
	assert.Equal(t, int64(0), f.reload(t, again.Entry.Id).SyncStats()[model.StatRecordsUpdated])
	assert.Equal(t, []interface{}{float64(1)}, f.reload(t, again.Entry.Id).Metadata["record_ids"])
}

func TestSyncTenantDataToGlobal_AggregatesEnrollments(t *testing.T) {
	f := newFixture(t)
	tenant := f.addTenant(t, "acme")
	today := f.clock.Add(-2 * time.Hour)
	yesterday := f.clock.Add(-26 * time.Hour)
	f.inTenant(t, tenant.Id, func(p *repository.Partition) error {
		return p.Table("enrollments").Create([]*model.TenantEnrollment{
			{UserID: 1, CourseID: 1, Status: model.EnrollmentStatusActive, EnrolledAt: today},
			{UserID: 2, CourseID: 1, Status: model.EnrollmentStatusCompleted, EnrolledAt: yesterday, CompletedAt: &today},
			{UserID: 3, CourseID: 1, Status: model.EnrollmentStatusDropped, EnrolledAt: today},
		}).Error
	})

	result, err := f.sync.SyncTenantDataToGlobal(ctx, tenant.Id, model.SyncTypeEnrollment, nil, SyncOptions{})
	require.NoError(t, err)
	require.NoError(t, result.Err)
	assert.Equal(t, int64(3), result.Entry.SyncStats()[model.StatRecordsProcessed])

	periodStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	metrics := f.metrics(t, tenant.Id, periodStart)
	assert.Equal(t, map[string]float64{
		model.MetricTotalEnrollments:     3,
		model.MetricActiveEnrollments:    1,
		model.MetricCompletedEnrollments: 1,
		model.MetricNewEnrollments:       2,
	}, metrics)

	// 同一周期再次聚合覆盖旧值
	f.inTenant(t, tenant.Id, func(p *repository.Partition) error {
		return p.Table("enrollments").Create(&model.TenantEnrollment{
			UserID: 4, CourseID: 1, Status: model.EnrollmentStatusActive, EnrolledAt: today,
		}).Error
	})
	_, err = f.sync.SyncTenantDataToGlobal(ctx, tenant.Id, model.SyncTypeEnrollment, nil, SyncOptions{})
	require.NoError(t, err)
	metrics = f.metrics(t, tenant.Id, periodStart)
	assert.Len(t, metrics, 4)
	assert.Equal(t, 4.0, metrics[model.MetricTotalEnrollments])
	assert.Equal(t, 3.0, metrics[model.MetricNewEnrollments])
}

func TestSyncTenantDataToGlobal_AggregatesEvents(t *testing.T) {
	f := newFixture(t)
	tenant := f.addTenant(t, "acme")
	at := f.clock.Add(-time.Hour)
	f.inTenant(t, tenant.Id, func(p *repository.Partition) error {
		return p.Table("analytics_events").Create([]*model.TenantAnalyticsEvent{
			{EventType: "login", OccurredAt: at},
			{EventType: "login", OccurredAt: at},
			{EventType: "page_view", OccurredAt: at},
			{EventType: "login", OccurredAt: at.Add(-48 * time.Hour)},
		}).Error
	})

	result, err := f.sync.SyncTenantDataToGlobal(ctx, tenant.Id, model.SyncTypeAnalytics, nil, SyncOptions{})
	require.NoError(t, err)
	require.NoError(t, result.Err)
	assert.Equal(t, int64(3), result.Entry.SyncStats()[model.StatRecordsProcessed])
	assert.Equal(t, map[string]float64{
		"event.login":     2,
		"event.page_view": 1,
	}, f.metrics(t, tenant.Id, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func (f *fixture) metrics(t *testing.T, tenantID int64, periodStart time.Time) map[string]float64 {
	t.Helper()
	rows, err := f.analytics.List(ctx, tenantID, model.AggregationPeriodDaily, periodStart)
	require.NoError(t, err)
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.MetricType] = r.MetricValue
	}
	return out
}

func TestPerformBidirectionalSync(t *testing.T) {
	f := newFixture(t)
	tenant := f.addTenant(t, "acme")
	f.addUser(t, "ada@example.com", tenant.Id)
	course := f.addCourse(t, "CS101")
	f.addOffering(t, course, tenant.Id, "")

	report, err := f.sync.PerformBidirectionalSync(ctx, tenant.Id, nil, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, tenant.Id, report.TenantID)
	require.Len(t, report.Directions, 8)

	byKey := map[string]v1.DirectionReport{}
	for _, d := range report.Directions {
		byKey[d.SyncType+"/"+d.Direction] = d
		assert.Empty(t, d.Error)
		for _, e := range d.Entries {
			assert.Equal(t, report.BatchID, e.BatchID)
		}
	}
	assert.Len(t, byKey["user_sync/global_to_tenant"].Entries, 1)
	assert.Len(t, byKey["user_sync/tenant_to_global"].Entries, 1)
	assert.Len(t, byKey["course_sync/global_to_tenant"].Entries, 1)
	assert.True(t, byKey["course_sync/tenant_to_global"].Skipped)
	assert.True(t, byKey["enrollment_sync/global_to_tenant"].Skipped)
	assert.True(t, byKey["analytics_sync/global_to_tenant"].Skipped)
	assert.Len(t, byKey["analytics_sync/tenant_to_global"].Entries, 1)

	// 锁已释放
	ok, err := f.locker.Acquire(ctx, repository.TenantLockKey(tenant.Id), "probe", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPerformBidirectionalSync_RejectsTypes(t *testing.T) {
	f := newFixture(t)
	tenant := f.addTenant(t, "acme")

	_, err := f.sync.PerformBidirectionalSync(ctx, tenant.Id, []model.SyncType{model.SyncTypeConflictResolution}, SyncOptions{})
	assert.ErrorIs(t, err, v1.ErrUnsupportedSyncType)
	_, err = f.sync.PerformBidirectionalSync(ctx, tenant.Id, []model.SyncType{"grade_sync"}, SyncOptions{})
	assert.ErrorIs(t, err, v1.ErrUnsupportedSyncType)
	_, err = f.sync.PerformBidirectionalSync(ctx, 404, nil, SyncOptions{})
	assert.ErrorIs(t, err, v1.ErrTenantNotFound)
}

func TestPerformBidirectionalSync_LockHeld(t *testing.T) {
	f := newFixture(t)
	tenant := f.addTenant(t, "acme")
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	locker := mocks.NewMockTenantLocker(ctrl)
	locker.EXPECT().
		Acquire(gomock.Any(), repository.TenantLockKey(tenant.Id), gomock.Any(), f.cfg.LockTTL).
		Return(false, nil)

	_, err := f.newSyncService(f.switcher, locker).PerformBidirectionalSync(ctx, tenant.Id, nil, SyncOptions{})
	assert.ErrorIs(t, err, v1.ErrSyncInProgress)

	var n int64
	require.NoError(t, f.db.Model(&model.SyncLog{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestPerformBidirectionalSync_ReleasesLockOnFailure(t *testing.T) {
	f := newFixture(t)
	// 未建表的租户：每个方向都会失败
	tenant := &model.Tenant{Name: "acme", SchemaName: "acme", Status: model.TenantStatusActive}
	require.NoError(t, f.tenants.Create(ctx, tenant))
	f.addUser(t, "ada@example.com", tenant.Id)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	key := repository.TenantLockKey(tenant.Id)
	var token string
	locker := mocks.NewMockTenantLocker(ctrl)
	locker.EXPECT().Acquire(gomock.Any(), key, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, tok string, _ time.Duration) (bool, error) {
			token = tok
			return true, nil
		})
	locker.EXPECT().Release(gomock.Any(), key, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, tok string) error {
			assert.Equal(t, token, tok)
			return nil
		}).Times(1)

	report, err := f.newSyncService(f.switcher, locker).PerformBidirectionalSync(ctx, tenant.Id,
		[]model.SyncType{model.SyncTypeUser}, SyncOptions{})
	require.NoError(t, err)
	require.Len(t, report.Directions, 2)
	for _, d := range report.Directions {
		require.Len(t, d.Entries, 1)
		assert.Equal(t, string(model.SyncStatusFailed), d.Entries[0].Status)
	}
	assert.NotEmpty(t, report.Directions[1].Error)
}

func TestPerformBidirectionalSync_InterleavedCalls(t *testing.T) {
	f := newFixture(t)
	tenant := f.addTenant(t, "acme")
	locker := &interleavingLocker{TenantLocker: f.locker}
	svc := f.newSyncService(f.switcher, locker)

	var secondErr error
	locker.onAcquired = func() {
		_, secondErr = svc.PerformBidirectionalSync(ctx, tenant.Id, nil, SyncOptions{})
	}
	report, err := svc.PerformBidirectionalSync(ctx, tenant.Id, nil, SyncOptions{})
	require.NoError(t, err)
	assert.NotNil(t, report)
	assert.ErrorIs(t, secondErr, v1.ErrSyncInProgress)

	// 第一次调用结束后锁可再次获取
	_, err = svc.PerformBidirectionalSync(ctx, tenant.Id, nil, SyncOptions{})
	assert.NoError(t, err)
}

func TestRetrySync_ReusesEntry(t *testing.T) {
	f := newFixture(t)
	tenant := &model.Tenant{Name: "acme", SchemaName: "acme", Status: model.TenantStatusActive}
	require.NoError(t, f.tenants.Create(ctx, tenant))
	user := f.addUser(t, "ada@example.com", tenant.Id)

	batch, err := f.sync.SyncGlobalUserToTenants(ctx, user.Id, nil, SyncOptions{})
	require.NoError(t, err)
	entry := batch.Results[0].Entry
	require.Equal(t, model.SyncStatusFailed, entry.Status)

	// 分区仍不可用：失败信息带重试前缀
	result, err := f.sync.RetrySync(ctx, entry)
	require.NoError(t, err)
	assert.Error(t, result.Err)
	stored := f.reload(t, entry.Id)
	assert.Equal(t, 1, stored.RetryCount)
	assert.True(t, strings.HasPrefix(stored.ErrorMessage, "Retry failed: "))

	require.NoError(t, f.switcher.Migrate(ctx, tenant.Id))
	result, err = f.sync.RetrySync(ctx, stored)
	require.NoError(t, err)
	require.NoError(t, result.Err)
	assert.Same(t, stored, result.Entry)

	stored = f.reload(t, entry.Id)
	assert.Equal(t, model.SyncStatusCompleted, stored.Status)
	assert.Equal(t, 2, stored.RetryCount)
	assert.Equal(t, int64(1), f.countRows(t, tenant.Id, "users"))

	var n int64
	require.NoError(t, f.db.Model(&model.SyncLog{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestRetrySync_Exhausted(t *testing.T) {
	f := newFixture(t)
	tenant := &model.Tenant{Name: "acme", SchemaName: "acme", Status: model.TenantStatusActive}
	require.NoError(t, f.tenants.Create(ctx, tenant))
	user := f.addUser(t, "ada@example.com", tenant.Id)

	batch, err := f.sync.SyncGlobalUserToTenants(ctx, user.Id, nil, SyncOptions{})
	require.NoError(t, err)
	entry := batch.Results[0].Entry
	for i := 0; i < f.cfg.MaxRetryAttempts; i++ {
		_, err := f.sync.RetrySync(ctx, entry)
		require.NoError(t, err)
	}
	assert.False(t, entry.CanRetry())
	_, err = f.sync.RetrySync(ctx, entry)
	assert.ErrorIs(t, err, v1.ErrRetryExhausted)
}

func TestRetrySync_ConflictResolution(t *testing.T) {
	f := newFixture(t)
	tenant := f.addTenant(t, "acme")
	entry, err := f.ledger.CreateSync(ctx, model.SyncTypeConflictResolution, model.SyncOperationReconcile,
		"global_users", "users", tenant.Id, SyncOptions{Direction: model.SyncDirectionBidirectional})
	require.NoError(t, err)
	require.NoError(t, f.ledger.Start(ctx, entry))
	require.NoError(t, f.ledger.Fail(ctx, entry, "boom", nil))

	_, err = f.sync.RetrySync(ctx, entry)
	assert.ErrorIs(t, err, v1.ErrRetryNotSupported)
	assert.Equal(t, 0, f.reload(t, entry.Id).RetryCount)

	f.sync.RegisterRetryHandler(model.SyncTypeConflictResolution, func(ctx context.Context, entry *model.SyncLog) (model.SyncStats, error) {
		return model.SyncStats{model.StatRecordsProcessed: 1}, nil
	})
	result, err := f.sync.RetrySync(ctx, entry)
	require.NoError(t, err)
	require.NoError(t, result.Err)
	assert.Equal(t, model.SyncStatusCompleted, f.reload(t, entry.Id).Status)
}

func TestRetrySync_StaleCopiesRunOnce(t *testing.T) {
	f := newFixture(t)
	tenant := f.addTenant(t, "acme")
	entry, err := f.ledger.CreateSync(ctx, model.SyncTypeConflictResolution, model.SyncOperationReconcile,
		"global_users", "users", tenant.Id, SyncOptions{Direction: model.SyncDirectionBidirectional})
	require.NoError(t, err)
	require.NoError(t, f.ledger.Start(ctx, entry))
	require.NoError(t, f.ledger.Fail(ctx, entry, "boom", nil))

	runs := 0
	f.sync.RegisterRetryHandler(model.SyncTypeConflictResolution, func(ctx context.Context, entry *model.SyncLog) (model.SyncStats, error) {
		runs++
		return model.SyncStats{model.StatRecordsProcessed: 1}, nil
	})

	// 两个重试者读到同一条 failed 记录
	a := f.reload(t, entry.Id)
	b := f.reload(t, entry.Id)

	result, err := f.sync.RetrySync(ctx, a)
	require.NoError(t, err)
	require.NoError(t, result.Err)

	_, err = f.sync.RetrySync(ctx, b)
	assert.ErrorIs(t, err, v1.ErrInvalidState)

	assert.Equal(t, 1, runs)
	stored := f.reload(t, entry.Id)
	assert.Equal(t, model.SyncStatusCompleted, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
}

func TestRetrySync_KeepsRecordFilter(t *testing.T) {
	f := newFixture(t)
	tenant := f.addTenant(t, "acme")
	ada := f.addUser(t, "ada@example.com", tenant.Id)
	grace := f.addUser(t, "grace@example.com", tenant.Id)
	for _, u := range []*model.GlobalUser{ada, grace} {
		_, err := f.sync.SyncGlobalUserToTenants(ctx, u.Id, nil, SyncOptions{})
		require.NoError(t, err)
	}

	loginAt := f.clock.Add(-time.Hour)
	var adaRow model.TenantUser
	f.inTenant(t, tenant.Id, func(p *repository.Partition) error {
		if err := p.Table("users").Where("1 = 1").Update("last_login_at", loginAt).Error; err != nil {
			return err
		}
		return p.Table("users").Where("global_user_id = ?", ada.Id).First(&adaRow).Error
	})

	entry, err := f.ledger.CreateSync(ctx, model.SyncTypeUser, model.SyncOperationUpdate, "users", "global_users", tenant.Id,
		SyncOptions{
			Direction: model.SyncDirectionTenantToGlobal,
			Metadata:  map[string]interface{}{"record_ids": []int64{adaRow.Id}},
		})
	require.NoError(t, err)
	require.NoError(t, f.ledger.Start(ctx, entry))
	require.NoError(t, f.ledger.Fail(ctx, entry, "tenant unreachable", nil))

	result, err := f.sync.RetrySync(ctx, f.reload(t, entry.Id))
	require.NoError(t, err)
	require.NoError(t, result.Err)
	assert.Equal(t, int64(1), f.reload(t, entry.Id).SyncStats()[model.StatRecordsProcessed])

	got, err := f.users.GetByID(ctx, ada.Id)
	require.NoError(t, err)
	require.NotNil(t, got.LastActivityAt)
	assert.True(t, loginAt.Equal(*got.LastActivityAt))

	got, err = f.users.GetByID(ctx, grace.Id)
	require.NoError(t, err)
	assert.Nil(t, got.LastActivityAt)
}
