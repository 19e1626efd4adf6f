package model

import "time"

// 以下为租户 schema 内的投影表，表结构归属宿主应用，同步引擎只读写。
// global_user_id / global_course_id 只用于关联，不做跨分区外键。

// TenantUser 租户内用户
type TenantUser struct {
	Id           int64      `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	GlobalUserID *int64     `json:"global_user_id" gorm:"column:global_user_id"`
	Email        string     `json:"email" gorm:"column:email;size:255"`
	Name         string     `json:"name" gorm:"column:name;size:200"`
	FirstName    string     `json:"first_name" gorm:"column:first_name;size:100"`
	LastName     string     `json:"last_name" gorm:"column:last_name;size:100"`
	Phone        string     `json:"phone" gorm:"column:phone;size:50"`
	AvatarUrl    string     `json:"avatar_url" gorm:"column:avatar_url;size:500"`
	Bio          string     `json:"bio" gorm:"column:bio;type:text"`
	Role         string     `json:"role" gorm:"column:role;size:50"`
	Status       string     `json:"status" gorm:"column:status;size:20"`
	LastLoginAt  *time.Time `json:"last_login_at" gorm:"column:last_login_at"`
	CreatedAt    time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (TenantUser) TableName() string {
	return "users"
}

func (t *TenantUser) Profile() UserProfile {
	return UserProfile{
		Email:     t.Email,
		Name:      t.Name,
		FirstName: t.FirstName,
		LastName:  t.LastName,
		Phone:     t.Phone,
		AvatarUrl: t.AvatarUrl,
		Bio:       t.Bio,
		Status:    t.Status,
	}
}

// TenantCourse 租户内课程
type TenantCourse struct {
	Id             int64      `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	GlobalCourseID *int64     `json:"global_course_id" gorm:"column:global_course_id"`
	Code           string     `json:"code" gorm:"column:code;size:50"`
	Title          string     `json:"title" gorm:"column:title;size:255"`
	Description    string     `json:"description" gorm:"column:description;type:text"`
	Credits        int        `json:"credits" gorm:"column:credits"`
	Price          float64    `json:"price" gorm:"column:price"`
	Currency       string     `json:"currency" gorm:"column:currency;size:3"`
	Capacity       int        `json:"capacity" gorm:"column:capacity"`
	StartDate      *time.Time `json:"start_date" gorm:"column:start_date"`
	EndDate        *time.Time `json:"end_date" gorm:"column:end_date"`
	Status         string     `json:"status" gorm:"column:status;size:20"`
	CreatedAt      time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (TenantCourse) TableName() string {
	return "courses"
}

func (t *TenantCourse) Profile() CourseProfile {
	return CourseProfile{
		Code:        t.Code,
		Title:       t.Title,
		Description: t.Description,
		Credits:     t.Credits,
		Price:       t.Price,
		Currency:    t.Currency,
		Capacity:    t.Capacity,
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
		Status:      t.Status,
	}
}

// Apply 把投影字段写回租户课程
func (t *TenantCourse) Apply(globalCourseID int64, p CourseProfile) {
	t.GlobalCourseID = &globalCourseID
	t.Code = p.Code
	t.Title = p.Title
	t.Description = p.Description
	t.Credits = p.Credits
	t.Price = p.Price
	t.Currency = p.Currency
	t.Capacity = p.Capacity
	t.StartDate = p.StartDate
	t.EndDate = p.EndDate
	t.Status = p.Status
}

// TenantEnrollment 租户内选课记录
type TenantEnrollment struct {
	Id          int64      `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	UserID      int64      `json:"user_id" gorm:"column:user_id;not null"`
	CourseID    int64      `json:"course_id" gorm:"column:course_id;not null"`
	Status      string     `json:"status" gorm:"column:status;size:20"`
	Progress    float64    `json:"progress" gorm:"column:progress"`
	EnrolledAt  time.Time  `json:"enrolled_at" gorm:"column:enrolled_at"`
	CompletedAt *time.Time `json:"completed_at" gorm:"column:completed_at"`
	CreatedAt   time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (TenantEnrollment) TableName() string {
	return "enrollments"
}

const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusCompleted = "completed"
	EnrollmentStatusDropped   = "dropped"
)

// TenantAnalyticsEvent 租户内行为事件
type TenantAnalyticsEvent struct {
	Id         int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	UserID     *int64    `json:"user_id" gorm:"column:user_id"`
	EventType  string    `json:"event_type" gorm:"column:event_type;size:100;not null"`
	OccurredAt time.Time `json:"occurred_at" gorm:"column:occurred_at;not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at"`
}

func (TenantAnalyticsEvent) TableName() string {
	return "analytics_events"
}

// TenantTables 租户分区内由同步引擎读写的表
func TenantTables() []interface{} {
	return []interface{}{&TenantUser{}, &TenantCourse{}, &TenantEnrollment{}, &TenantAnalyticsEvent{}}
}
