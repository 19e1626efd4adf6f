package repository

import (
	"context"
	"errors"

	"tenantsync/internal/model"

	"gorm.io/gorm"
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *model.Tenant) error
	GetByID(ctx context.Context, id int64) (*model.Tenant, error)
	GetBySchema(ctx context.Context, schemaName string) (*model.Tenant, error)
	List(ctx context.Context) ([]*model.Tenant, error)
	ListActive(ctx context.Context) ([]*model.Tenant, error)
	CreateMembership(ctx context.Context, membership *model.TenantUserMembership) error
	// ListTenantIDsByUser 用户所属（active 成员关系）的租户
	ListTenantIDsByUser(ctx context.Context, globalUserID int64) ([]int64, error)
	ListMemberships(ctx context.Context, tenantID int64) ([]*model.TenantUserMembership, error)
}

func NewTenantRepository(r *Repository) TenantRepository {
	return &tenantRepository{Repository: r}
}

type tenantRepository struct {
	*Repository
}

func (r *tenantRepository) Create(ctx context.Context, tenant *model.Tenant) error {
	return r.DB(ctx).Create(tenant).Error
}

func (r *tenantRepository) GetByID(ctx context.Context, id int64) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := r.DB(ctx).Where("id = ?", id).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) GetBySchema(ctx context.Context, schemaName string) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := r.DB(ctx).Where("schema_name = ?", schemaName).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) List(ctx context.Context) ([]*model.Tenant, error) {
	var tenants []*model.Tenant
	if err := r.DB(ctx).Order("id ASC").Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

func (r *tenantRepository) ListActive(ctx context.Context) ([]*model.Tenant, error) {
	var tenants []*model.Tenant
	if err := r.DB(ctx).Where("status = ?", model.TenantStatusActive).Order("id ASC").Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

func (r *tenantRepository) CreateMembership(ctx context.Context, membership *model.TenantUserMembership) error {
	return r.DB(ctx).Create(membership).Error
}

func (r *tenantRepository) ListTenantIDsByUser(ctx context.Context, globalUserID int64) ([]int64, error) {
	var ids []int64
	err := r.DB(ctx).Model(&model.TenantUserMembership{}).
		Where("global_user_id = ? AND status = ?", globalUserID, model.MembershipStatusActive).
		Order("tenant_id ASC").
		Pluck("tenant_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *tenantRepository) ListMemberships(ctx context.Context, tenantID int64) ([]*model.TenantUserMembership, error) {
	var memberships []*model.TenantUserMembership
	err := r.DB(ctx).Where("tenant_id = ?", tenantID).Order("global_user_id ASC").Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}
