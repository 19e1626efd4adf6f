package model

import "time"

// GlobalCourse 全局课程
type GlobalCourse struct {
	Id          int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Code        string    `json:"code" gorm:"column:code;size:50;not null;uniqueIndex"`
	Title       string    `json:"title" gorm:"column:title;size:255;not null"`
	Description string    `json:"description" gorm:"column:description;type:text"`
	Credits     int       `json:"credits" gorm:"column:credits;not null;default:0"`
	Level       string    `json:"level" gorm:"column:level;size:50"`
	Status      string    `json:"status" gorm:"column:status;size:20;not null;default:'active'"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (GlobalCourse) TableName() string {
	return "global_courses"
}

// TenantCourseOffering 租户对全局课程的本地化配置
type TenantCourseOffering struct {
	Id                int64      `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	GlobalCourseID    int64      `json:"global_course_id" gorm:"column:global_course_id;not null;uniqueIndex:idx_offering_course_tenant"`
	TenantID          int64      `json:"tenant_id" gorm:"column:tenant_id;not null;uniqueIndex:idx_offering_course_tenant"`
	CustomTitle       string     `json:"custom_title" gorm:"column:custom_title;size:255"`
	CustomDescription string     `json:"custom_description" gorm:"column:custom_description;type:text"`
	CustomCode        string     `json:"custom_code" gorm:"column:custom_code;size:50"`
	CustomCredits     *int       `json:"custom_credits" gorm:"column:custom_credits"`
	Price             float64    `json:"price" gorm:"column:price;not null;default:0"`
	Currency          string     `json:"currency" gorm:"column:currency;size:3;default:'USD'"`
	Capacity          int        `json:"capacity" gorm:"column:capacity;not null;default:0"`
	StartDate         *time.Time `json:"start_date" gorm:"column:start_date"`
	EndDate           *time.Time `json:"end_date" gorm:"column:end_date"`
	Status            string     `json:"status" gorm:"column:status;size:20;not null;default:'active'"`
	CreatedAt         time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (TenantCourseOffering) TableName() string {
	return "tenant_course_offerings"
}

// CourseProfile 课程在租户侧的投影字段（offering 的自定义值优先）
type CourseProfile struct {
	Code        string     `json:"code"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Credits     int        `json:"credits"`
	Price       float64    `json:"price"`
	Currency    string     `json:"currency"`
	Capacity    int        `json:"capacity"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Status      string     `json:"status"`
}

func ProjectCourse(c *GlobalCourse, o *TenantCourseOffering) CourseProfile {
	p := CourseProfile{
		Code:        c.Code,
		Title:       c.Title,
		Description: c.Description,
		Credits:     c.Credits,
		Price:       o.Price,
		Currency:    o.Currency,
		Capacity:    o.Capacity,
		StartDate:   o.StartDate,
		EndDate:     o.EndDate,
		Status:      o.Status,
	}
	if o.CustomTitle != "" {
		p.Title = o.CustomTitle
	}
	if o.CustomDescription != "" {
		p.Description = o.CustomDescription
	}
	if o.CustomCode != "" {
		p.Code = o.CustomCode
	}
	if o.CustomCredits != nil {
		p.Credits = *o.CustomCredits
	}
	return p
}
