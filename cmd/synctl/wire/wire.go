//go:build wireinject
// +build wireinject

package wire

import (
	"tenantsync/internal/repository"
	"tenantsync/internal/service"
	"tenantsync/pkg/log"
	"tenantsync/pkg/sid"

	"github.com/google/wire"
	"github.com/spf13/viper"
)

var repositorySet = wire.NewSet(
	repository.NewDB,
	repository.NewRedis,
	repository.NewRepository,
	repository.NewTransaction,
	repository.NewTenantRepository,
	repository.NewGlobalUserRepository,
	repository.NewGlobalCourseRepository,
	repository.NewAnalyticsRepository,
	repository.NewSyncLogRepository,
	repository.NewRecordRepository,
	repository.NewTenantSwitcher,
	repository.NewTenantLocker,
	repository.NewSyncCache,
)

var serviceSet = wire.NewSet(
	service.NewService,
	service.NewSyncConfig,
	service.NewSyncLogService,
	service.NewSyncService,
	service.NewConflictService,
	service.NewIntegrityService,
	service.NewMonitorService,
)

func NewWire(*viper.Viper, *log.Logger) (*Services, func(), error) {
	panic(wire.Build(
		repositorySet,
		serviceSet,
		sid.NewSid,
		wire.Struct(new(Services), "*"),
	))
}
