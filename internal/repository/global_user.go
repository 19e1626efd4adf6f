package repository

import (
	"context"
	"errors"
	"time"

	"tenantsync/internal/model"

	"gorm.io/gorm"
)

type GlobalUserRepository interface {
	Create(ctx context.Context, user *model.GlobalUser) error
	Update(ctx context.Context, user *model.GlobalUser) error
	GetByID(ctx context.Context, id int64) (*model.GlobalUser, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.GlobalUser, error) // 批量查询，返回 map[id]*user
	// ListByTenant 通过 active 成员关系列出租户下的全局用户
	ListByTenant(ctx context.Context, tenantID int64) ([]*model.GlobalUser, error)
	// TouchActivity 仅当 at 晚于当前值时更新 last_activity_at，返回是否更新
	TouchActivity(ctx context.Context, id int64, at time.Time) (bool, error)
}

func NewGlobalUserRepository(r *Repository) GlobalUserRepository {
	return &globalUserRepository{Repository: r}
}

type globalUserRepository struct {
	*Repository
}

func (r *globalUserRepository) Create(ctx context.Context, user *model.GlobalUser) error {
	return r.DB(ctx).Create(user).Error
}

func (r *globalUserRepository) Update(ctx context.Context, user *model.GlobalUser) error {
	return r.DB(ctx).Save(user).Error
}

func (r *globalUserRepository) GetByID(ctx context.Context, id int64) (*model.GlobalUser, error) {
	var user model.GlobalUser
	if err := r.DB(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *globalUserRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.GlobalUser, error) {
	if len(ids) == 0 {
		return make(map[int64]*model.GlobalUser), nil
	}
	var users []*model.GlobalUser
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	result := make(map[int64]*model.GlobalUser, len(users))
	for _, user := range users {
		result[user.Id] = user
	}
	return result, nil
}

func (r *globalUserRepository) ListByTenant(ctx context.Context, tenantID int64) ([]*model.GlobalUser, error) {
	var users []*model.GlobalUser
	err := r.DB(ctx).
		Joins("JOIN tenant_user_memberships m ON m.global_user_id = global_users.id").
		Where("m.tenant_id = ? AND m.status = ?", tenantID, model.MembershipStatusActive).
		Order("global_users.id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *globalUserRepository) TouchActivity(ctx context.Context, id int64, at time.Time) (bool, error) {
	result := r.DB(ctx).Model(&model.GlobalUser{}).
		Where("id = ?", id).
		Where("last_activity_at IS NULL OR last_activity_at < ?", at).
		Updates(map[string]interface{}{
			"last_activity_at": at,
			"updated_at":       at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
