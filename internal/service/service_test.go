package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"tenantsync/internal/model"
	"tenantsync/internal/repository"
	"tenantsync/pkg/log"
	"tenantsync/pkg/sid"

	"github.com/glebarez/sqlite"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ctx = context.Background()

// fixture 全链路测试环境：内存 sqlite + prefix 分区 + 进程内锁与缓存
type fixture struct {
	clock time.Time

	db        *gorm.DB
	base      *Service
	cfg       *SyncConfig
	tenants   repository.TenantRepository
	users     repository.GlobalUserRepository
	courses   repository.GlobalCourseRepository
	analytics repository.AnalyticsRepository
	syncLogs  repository.SyncLogRepository
	records   repository.RecordRepository
	switcher  repository.TenantSwitcher
	locker    repository.TenantLocker
	cache     repository.SyncCache

	ledger    SyncLogService
	sync      SyncService
	conflict  ConflictService
	integrity IntegrityService
	monitor   MonitorService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&model.Tenant{},
		&model.TenantUserMembership{},
		&model.GlobalUser{},
		&model.GlobalCourse{},
		&model.TenantCourseOffering{},
		&model.SuperAdminAnalytics{},
		&model.SyncLog{},
	))

	f := &fixture{clock: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), db: db}
	conf := viper.New()
	conf.Set("sync.schema.strategy", string(repository.SchemaStrategyPrefix))

	repo := repository.NewRepository(log.NewNop(), db)
	f.base = NewService(repository.NewTransaction(repo), log.NewNop(), sid.NewSid())
	f.base.now = func() time.Time { return f.clock }
	batches := 0
	f.base.newBatchID = func() string {
		batches++
		return fmt.Sprintf("batch-%d", batches)
	}
	f.cfg = NewSyncConfig(conf)

	f.tenants = repository.NewTenantRepository(repo)
	f.users = repository.NewGlobalUserRepository(repo)
	f.courses = repository.NewGlobalCourseRepository(repo)
	f.analytics = repository.NewAnalyticsRepository(repo)
	f.syncLogs = repository.NewSyncLogRepository(repo)
	f.records = repository.NewRecordRepository(repo)
	f.switcher = repository.NewTenantSwitcher(repo, f.tenants, conf)
	f.locker = repository.NewMemoryLocker(func() time.Time { return f.clock })
	f.cache = repository.NewMemoryCache(func() time.Time { return f.clock })

	f.ledger = NewSyncLogService(f.base, f.cfg, f.syncLogs)
	f.sync = f.newSyncService(f.switcher, f.locker)
	f.conflict = NewConflictService(f.base, f.ledger, f.tenants, f.records, f.switcher)
	f.integrity = NewIntegrityService(f.base, f.tenants, f.users, f.courses, f.switcher)
	f.monitor = NewMonitorService(f.base, f.cfg, f.syncLogs, f.sync, f.cache)
	return f
}

func (f *fixture) newSyncService(switcher repository.TenantSwitcher, locker repository.TenantLocker) SyncService {
	return NewSyncService(f.base, f.cfg, f.ledger, f.tenants, f.users, f.courses, f.analytics, switcher, locker, f.cache)
}

// addTenant 创建租户并建好投影表
func (f *fixture) addTenant(t *testing.T, schema string) *model.Tenant {
	t.Helper()
	tenant := &model.Tenant{Name: schema, SchemaName: schema, Status: model.TenantStatusActive}
	require.NoError(t, f.tenants.Create(ctx, tenant))
	require.NoError(t, f.switcher.Migrate(ctx, tenant.Id))
	return tenant
}

func (f *fixture) addUser(t *testing.T, email string, tenantIDs ...int64) *model.GlobalUser {
	t.Helper()
	user := &model.GlobalUser{Email: email, Name: email, FirstName: "Ada", LastName: "Lovelace", Status: "active"}
	require.NoError(t, f.users.Create(ctx, user))
	for _, id := range tenantIDs {
		require.NoError(t, f.tenants.CreateMembership(ctx, &model.TenantUserMembership{
			GlobalUserID: user.Id, TenantID: id, Role: "member", Status: model.MembershipStatusActive,
		}))
	}
	return user
}

func (f *fixture) addCourse(t *testing.T, code string) *model.GlobalCourse {
	t.Helper()
	course := &model.GlobalCourse{Code: code, Title: "Course " + code, Credits: 3, Status: "active"}
	require.NoError(t, f.courses.Create(ctx, course))
	return course
}

func (f *fixture) addOffering(t *testing.T, course *model.GlobalCourse, tenantID int64, customTitle string) {
	t.Helper()
	require.NoError(t, f.courses.CreateOffering(ctx, &model.TenantCourseOffering{
		GlobalCourseID: course.Id, TenantID: tenantID, CustomTitle: customTitle,
		Price: 99, Currency: "USD", Capacity: 30, Status: "active",
	}))
}

// inTenant 在租户分区里执行测试读写
func (f *fixture) inTenant(t *testing.T, tenantID int64, fn func(p *repository.Partition) error) {
	t.Helper()
	require.NoError(t, f.switcher.WithTenant(ctx, tenantID, func(_ context.Context, p *repository.Partition) error {
		return fn(p)
	}))
}

func (f *fixture) countRows(t *testing.T, tenantID int64, table string) int64 {
	t.Helper()
	var n int64
	f.inTenant(t, tenantID, func(p *repository.Partition) error {
		return p.Table(table).Count(&n).Error
	})
	return n
}

func (f *fixture) reload(t *testing.T, id int64) *model.SyncLog {
	t.Helper()
	entry, err := f.syncLogs.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, entry)
	return entry
}
