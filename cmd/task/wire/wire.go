//go:build wireinject
// +build wireinject

package wire

import (
	"tenantsync/internal/job"
	"tenantsync/internal/repository"
	"tenantsync/internal/server"
	"tenantsync/internal/service"
	"tenantsync/pkg/app"
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
	repository.NewTenantSwitcher,
	repository.NewTenantLocker,
	repository.NewSyncCache,
)

var serviceSet = wire.NewSet(
	service.NewService,
	service.NewSyncConfig,
	service.NewSyncLogService,
	service.NewSyncService,
	service.NewMonitorService,
)

var jobSet = wire.NewSet(
	job.NewJob,
	job.NewSyncJob,
)
var serverSet = wire.NewSet(
	server.NewJobServer,
)

// build App
func newApp(
	jobServer *server.JobServer,
) *app.App {
	return app.NewApp(
		app.WithServer(jobServer),
		app.WithName("tenantsync-task"),
	)
}

func NewWire(*viper.Viper, *log.Logger) (*app.App, func(), error) {
	panic(wire.Build(
		repositorySet,
		serviceSet,
		jobSet,
		serverSet,
		sid.NewSid,
		newApp,
	))
}
