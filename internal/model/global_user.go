package model

import "time"

// GlobalUser 全局用户（与租户无关的权威数据）
type GlobalUser struct {
	Id             int64      `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Email          string     `json:"email" gorm:"column:email;size:255;not null;uniqueIndex"`
	Name           string     `json:"name" gorm:"column:name;size:200"`
	FirstName      string     `json:"first_name" gorm:"column:first_name;size:100"`
	LastName       string     `json:"last_name" gorm:"column:last_name;size:100"`
	Phone          string     `json:"phone" gorm:"column:phone;size:50"`
	AvatarUrl      string     `json:"avatar_url" gorm:"column:avatar_url;size:500"`
	Bio            string     `json:"bio" gorm:"column:bio;type:text"`
	Status         string     `json:"status" gorm:"column:status;size:20;not null;default:'active'"`
	LastActivityAt *time.Time `json:"last_activity_at" gorm:"column:last_activity_at"`
	CreatedAt      time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (GlobalUser) TableName() string {
	return "global_users"
}

// UserProfile 全局用户投影到租户时携带的字段
type UserProfile struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	AvatarUrl string `json:"avatar_url"`
	Bio       string `json:"bio"`
	Status    string `json:"status"`
}

func (u *GlobalUser) Profile() UserProfile {
	return UserProfile{
		Email:     u.Email,
		Name:      u.Name,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		AvatarUrl: u.AvatarUrl,
		Bio:       u.Bio,
		Status:    u.Status,
	}
}

// ProjectTo 把全局字段写入租户侧用户
func (u *GlobalUser) ProjectTo(t *TenantUser) {
	id := u.Id
	t.GlobalUserID = &id
	t.Email = u.Email
	t.Name = u.Name
	t.FirstName = u.FirstName
	t.LastName = u.LastName
	t.Phone = u.Phone
	t.AvatarUrl = u.AvatarUrl
	t.Bio = u.Bio
	t.Status = u.Status
}
