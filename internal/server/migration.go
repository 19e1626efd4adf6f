package server

import (
	"context"
	"os"

	"tenantsync/internal/model"
	"tenantsync/internal/repository"
	"tenantsync/pkg/log"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateServer struct {
	db         *gorm.DB
	log        *log.Logger
	conf       *viper.Viper
	tenantRepo repository.TenantRepository
	switcher   repository.TenantSwitcher
}

func NewMigrateServer(
	db *gorm.DB,
	log *log.Logger,
	conf *viper.Viper,
	tenantRepo repository.TenantRepository,
	switcher repository.TenantSwitcher,
) *MigrateServer {
	return &MigrateServer{
		db:         db,
		log:        log,
		conf:       conf,
		tenantRepo: tenantRepo,
		switcher:   switcher,
	}
}

func (m *MigrateServer) Start(ctx context.Context) error {
	if err := m.Migrate(ctx); err != nil {
		return err
	}
	os.Exit(0)
	return nil
}

// Migrate 迁移全局表与同步台账；migration.provision_tenants 为 true 时同时为每个租户建投影表
func (m *MigrateServer) Migrate(ctx context.Context) error {
	if err := m.db.AutoMigrate(
		&model.Tenant{},
		&model.TenantUserMembership{},
		&model.GlobalUser{},
		&model.GlobalCourse{},
		&model.TenantCourseOffering{},
		&model.SuperAdminAnalytics{},
		// 同步台账
		&model.SyncLog{},
	); err != nil {
		m.log.Error("migrate error", zap.Error(err))
		return err
	}
	m.log.Info("AutoMigrate success")

	if !m.conf.GetBool("migration.provision_tenants") {
		return nil
	}
	if err := m.provisionTenants(ctx); err != nil {
		m.log.Error("provision tenants error", zap.Error(err))
		return err
	}
	return nil
}

func (m *MigrateServer) provisionTenants(ctx context.Context) error {
	tenants, err := m.tenantRepo.List(ctx)
	if err != nil {
		return err
	}
	for _, tenant := range tenants {
		if err := m.switcher.Migrate(ctx, tenant.Id); err != nil {
			return err
		}
		m.log.Info("tenant provisioned",
			zap.Int64("tenant_id", tenant.Id),
			zap.String("schema", tenant.SchemaName),
			zap.String("strategy", string(m.switcher.Strategy())))
	}
	return nil
}

func (m *MigrateServer) Stop(ctx context.Context) error {
	m.log.Info("AutoMigrate stop")
	return nil
}
