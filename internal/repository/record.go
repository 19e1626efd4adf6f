package repository

import (
	"context"
	"errors"
	"fmt"

	v1 "tenantsync/api/v1"

	"gorm.io/gorm"
)

// RecordRepository 按表名访问全局分区中的任意记录，供冲突处理使用
type RecordRepository interface {
	Get(ctx context.Context, table string, id int64) (map[string]interface{}, error)
	Update(ctx context.Context, table string, id int64, values map[string]interface{}) error
}

func NewRecordRepository(r *Repository) RecordRepository {
	return &recordRepository{Repository: r}
}

type recordRepository struct {
	*Repository
}

func (r *recordRepository) Get(ctx context.Context, table string, id int64) (map[string]interface{}, error) {
	if !ValidIdentifier(table) {
		return nil, fmt.Errorf("%w: table %q", v1.ErrInvalidIdentifier, table)
	}
	record := map[string]interface{}{}
	if err := r.DB(ctx).Table(table).Where("id = ?", id).Take(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func (r *recordRepository) Update(ctx context.Context, table string, id int64, values map[string]interface{}) error {
	if !ValidIdentifier(table) {
		return fmt.Errorf("%w: table %q", v1.ErrInvalidIdentifier, table)
	}
	if len(values) == 0 {
		return nil
	}
	return r.DB(ctx).Table(table).Where("id = ?", id).Updates(values).Error
}
