package model

import "time"

// Tenant 租户：一个逻辑数据分区及其 schema 标识
type Tenant struct {
	Id         int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Name       string    `json:"name" gorm:"column:name;size:200;not null"`
	SchemaName string    `json:"schema_name" gorm:"column:schema_name;size:63;not null;uniqueIndex"`
	Status     string    `json:"status" gorm:"column:status;size:20;not null;default:'active';index"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}

const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
)

// TenantUserMembership 全局用户与租户的归属关系
type TenantUserMembership struct {
	Id           int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	GlobalUserID int64     `json:"global_user_id" gorm:"column:global_user_id;not null;index"`
	TenantID     int64     `json:"tenant_id" gorm:"column:tenant_id;not null;index"`
	Role         string    `json:"role" gorm:"column:role;size:50;not null;default:'member'"`
	Status       string    `json:"status" gorm:"column:status;size:20;not null;default:'active'"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (TenantUserMembership) TableName() string {
	return "tenant_user_memberships"
}

const (
	MembershipStatusActive   = "active"
	MembershipStatusInactive = "inactive"
)
