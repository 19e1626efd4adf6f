package repository

import (
	"context"
	"errors"

	"tenantsync/internal/model"

	"gorm.io/gorm"
)

type GlobalCourseRepository interface {
	Create(ctx context.Context, course *model.GlobalCourse) error
	Update(ctx context.Context, course *model.GlobalCourse) error
	GetByID(ctx context.Context, id int64) (*model.GlobalCourse, error)
	// ListByTenant 有 offering 的全局课程
	ListByTenant(ctx context.Context, tenantID int64) ([]*model.GlobalCourse, error)

	CreateOffering(ctx context.Context, offering *model.TenantCourseOffering) error
	GetOffering(ctx context.Context, courseID, tenantID int64) (*model.TenantCourseOffering, error)
	ListOfferingsByTenant(ctx context.Context, tenantID int64) ([]*model.TenantCourseOffering, error)
	ListOfferingTenantIDs(ctx context.Context, courseID int64) ([]int64, error)
}

func NewGlobalCourseRepository(r *Repository) GlobalCourseRepository {
	return &globalCourseRepository{Repository: r}
}

type globalCourseRepository struct {
	*Repository
}

func (r *globalCourseRepository) Create(ctx context.Context, course *model.GlobalCourse) error {
	return r.DB(ctx).Create(course).Error
}

func (r *globalCourseRepository) Update(ctx context.Context, course *model.GlobalCourse) error {
	return r.DB(ctx).Save(course).Error
}

func (r *globalCourseRepository) GetByID(ctx context.Context, id int64) (*model.GlobalCourse, error) {
	var course model.GlobalCourse
	if err := r.DB(ctx).Where("id = ?", id).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &course, nil
}

func (r *globalCourseRepository) ListByTenant(ctx context.Context, tenantID int64) ([]*model.GlobalCourse, error) {
	var courses []*model.GlobalCourse
	err := r.DB(ctx).
		Joins("JOIN tenant_course_offerings o ON o.global_course_id = global_courses.id").
		Where("o.tenant_id = ?", tenantID).
		Order("global_courses.id ASC").
		Find(&courses).Error
	if err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *globalCourseRepository) CreateOffering(ctx context.Context, offering *model.TenantCourseOffering) error {
	return r.DB(ctx).Create(offering).Error
}

func (r *globalCourseRepository) GetOffering(ctx context.Context, courseID, tenantID int64) (*model.TenantCourseOffering, error) {
	var offering model.TenantCourseOffering
	err := r.DB(ctx).Where("global_course_id = ? AND tenant_id = ?", courseID, tenantID).First(&offering).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &offering, nil
}

func (r *globalCourseRepository) ListOfferingsByTenant(ctx context.Context, tenantID int64) ([]*model.TenantCourseOffering, error) {
	var offerings []*model.TenantCourseOffering
	if err := r.DB(ctx).Where("tenant_id = ?", tenantID).Order("global_course_id ASC").Find(&offerings).Error; err != nil {
		return nil, err
	}
	return offerings, nil
}

func (r *globalCourseRepository) ListOfferingTenantIDs(ctx context.Context, courseID int64) ([]int64, error) {
	var ids []int64
	err := r.DB(ctx).Model(&model.TenantCourseOffering{}).
		Where("global_course_id = ?", courseID).
		Order("tenant_id ASC").
		Pluck("tenant_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
