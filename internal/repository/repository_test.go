package repository_test

import (
	"context"
	"testing"
	"time"

	"tenantsync/internal/model"
	"tenantsync/internal/repository"
	"tenantsync/pkg/log"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ctx   = context.Background()
	epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newSqliteRepository(t *testing.T) *repository.Repository {
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
	return repository.NewRepository(log.NewNop(), db)
}

func newMockRepository(t *testing.T) (*repository.Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return repository.NewRepository(log.NewNop(), db), mock
}

func newPrefixSwitcher(t *testing.T, r *repository.Repository) (repository.TenantSwitcher, repository.TenantRepository) {
	t.Helper()
	conf := viper.New()
	conf.Set("sync.schema.strategy", string(repository.SchemaStrategyPrefix))
	tenants := repository.NewTenantRepository(r)
	return repository.NewTenantSwitcher(r, tenants, conf), tenants
}

func newEntry(tenantID int64, status model.SyncStatus) *model.SyncLog {
	return &model.SyncLog{
		SyncType:      model.SyncTypeUser,
		Operation:     model.SyncOperationUpdate,
		SourceTable:   "global_users",
		TargetTable:   "users",
		TenantID:      tenantID,
		SyncDirection: model.SyncDirectionGlobalToTenant,
		Priority:      model.DefaultSyncPriority,
		Status:        status,
		MaxRetries:    model.DefaultMaxRetryAttempts,
		Stats:         datatypesStats(nil),
	}
}
