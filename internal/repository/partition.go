package repository

import (
	"context"
	"fmt"
	"regexp"

	v1 "tenantsync/api/v1"
	"tenantsync/internal/model"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SchemaStrategy 租户分区的寻址方式
type SchemaStrategy string

const (
	// SchemaStrategySearchPath postgres：固定连接上 SET search_path，退出时恢复默认 schema
	SchemaStrategySearchPath SchemaStrategy = "search_path"
	// SchemaStrategyQualified 表名前加 schema：schema.table
	SchemaStrategyQualified SchemaStrategy = "qualified"
	// SchemaStrategyPrefix 单库内以 schema_table 命名
	SchemaStrategyPrefix SchemaStrategy = "prefix"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidIdentifier schema 名与表名只允许字母、数字、下划线
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// Partition 一次租户上下文内的分区句柄，只在 WithTenant 回调内有效
type Partition struct {
	Tenant   *model.Tenant
	db       *gorm.DB
	strategy SchemaStrategy
}

// TableName 返回表在当前租户分区中的实际名称
func (p *Partition) TableName(name string) string {
	switch p.strategy {
	case SchemaStrategyQualified:
		return p.Tenant.SchemaName + "." + name
	case SchemaStrategyPrefix:
		return p.Tenant.SchemaName + "_" + name
	default:
		return name
	}
}

func (p *Partition) Table(name string) *gorm.DB {
	return p.db.Table(p.TableName(name))
}

// TenantSwitcher 租户上下文切换器
type TenantSwitcher interface {
	// WithTenant 解析租户 schema，在租户分区的事务内执行 fn；任何退出路径都恢复默认上下文
	WithTenant(ctx context.Context, tenantID int64, fn func(ctx context.Context, p *Partition) error) error
	// Migrate 在租户分区内创建同步引擎读写的投影表
	Migrate(ctx context.Context, tenantID int64) error
	Strategy() SchemaStrategy
}

func NewTenantSwitcher(r *Repository, tenants TenantRepository, conf *viper.Viper) TenantSwitcher {
	strategy := SchemaStrategy(conf.GetString("sync.schema.strategy"))
	if strategy == "" {
		switch r.Dialect() {
		case "postgres":
			strategy = SchemaStrategySearchPath
		case "mysql":
			strategy = SchemaStrategyQualified
		default:
			strategy = SchemaStrategyPrefix
		}
	}
	defaultSchema := conf.GetString("sync.schema.default")
	if defaultSchema == "" {
		defaultSchema = "public"
	}
	if !ValidIdentifier(defaultSchema) {
		panic(fmt.Sprintf("invalid sync.schema.default %q", defaultSchema))
	}
	return &tenantSwitcher{
		Repository:    r,
		tenants:       tenants,
		strategy:      strategy,
		defaultSchema: defaultSchema,
	}
}

type tenantSwitcher struct {
	*Repository
	tenants       TenantRepository
	strategy      SchemaStrategy
	defaultSchema string
}

func (s *tenantSwitcher) Strategy() SchemaStrategy {
	return s.strategy
}

func (s *tenantSwitcher) WithTenant(ctx context.Context, tenantID int64, fn func(ctx context.Context, p *Partition) error) error {
	tenant, err := s.resolve(ctx, tenantID)
	if err != nil {
		return err
	}

	switch s.strategy {
	case SchemaStrategySearchPath:
		return s.db.WithContext(ctx).Connection(func(conn *gorm.DB) (err error) {
			if err := conn.Exec(fmt.Sprintf(`SET search_path TO "%s"`, tenant.SchemaName)).Error; err != nil {
				return fmt.Errorf("switch to schema %s: %w", tenant.SchemaName, err)
			}
			defer func() {
				if rerr := conn.Exec(fmt.Sprintf(`SET search_path TO "%s"`, s.defaultSchema)).Error; rerr != nil {
					s.logger.WithContext(ctx).Error("restore search_path failed",
						zap.Int64("tenant_id", tenantID), zap.String("schema", s.defaultSchema), zap.Error(rerr))
					if err == nil {
						err = fmt.Errorf("restore schema %s: %w", s.defaultSchema, rerr)
					}
				}
			}()
			return conn.Transaction(func(tx *gorm.DB) error {
				return fn(ctx, &Partition{Tenant: tenant, db: tx, strategy: s.strategy})
			})
		})
	case SchemaStrategyQualified, SchemaStrategyPrefix:
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(ctx, &Partition{Tenant: tenant, db: tx, strategy: s.strategy})
		})
	default:
		return fmt.Errorf("unknown schema strategy %q", s.strategy)
	}
}

func (s *tenantSwitcher) Migrate(ctx context.Context, tenantID int64) error {
	tenant, err := s.resolve(ctx, tenantID)
	if err != nil {
		return err
	}
	if s.strategy != SchemaStrategyPrefix {
		if err := s.createSchema(ctx, tenant.SchemaName); err != nil {
			return err
		}
	}
	return s.WithTenant(ctx, tenantID, func(ctx context.Context, p *Partition) error {
		for _, m := range model.TenantTables() {
			name := m.(interface{ TableName() string }).TableName()
			if err := p.Table(name).AutoMigrate(m); err != nil {
				return fmt.Errorf("migrate %s: %w", p.TableName(name), err)
			}
		}
		return nil
	})
}

func (s *tenantSwitcher) createSchema(ctx context.Context, schemaName string) error {
	var stmt string
	switch s.Dialect() {
	case "postgres":
		stmt = fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, schemaName)
	case "mysql":
		stmt = fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", schemaName)
	default:
		return nil
	}
	return s.db.WithContext(ctx).Exec(stmt).Error
}

func (s *tenantSwitcher) resolve(ctx context.Context, tenantID int64) (*model.Tenant, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("find tenant %d: %w", tenantID, err)
	}
	if tenant == nil {
		return nil, fmt.Errorf("%w: %d", v1.ErrTenantNotFound, tenantID)
	}
	if !ValidIdentifier(tenant.SchemaName) {
		return nil, fmt.Errorf("%w: schema %q of tenant %d", v1.ErrInvalidIdentifier, tenant.SchemaName, tenantID)
	}
	return tenant, nil
}
