package service

import (
	"context"
	"fmt"

	v1 "tenantsync/api/v1"
	"tenantsync/internal/model"
	"tenantsync/internal/repository"
	"tenantsync/pkg/hash"

	set "github.com/duke-git/lancet/v2/datastructure/set"
	"go.uber.org/zap"
)

// 一致性检查类型
const (
	CheckUserConsistency       = "user_consistency"
	CheckCourseConsistency     = "course_consistency"
	CheckEnrollmentConsistency = "enrollment_consistency"
	CheckMembershipConsistency = "membership_consistency"
)

// AllChecks 默认执行的检查，按顺序
var AllChecks = []string{
	CheckUserConsistency,
	CheckCourseConsistency,
	CheckEnrollmentConsistency,
	CheckMembershipConsistency,
}

// 问题类型
const (
	IssueMissingProjection   = "missing_projection"
	IssueOrphanedProjection  = "orphaned_projection"
	IssueDuplicateProjection = "duplicate_projection"
	IssueDrift               = "drift"
	IssueDanglingEnrollment  = "dangling_enrollment"
	IssueInvalidStatus       = "invalid_status"
	IssueMissingCompletedAt  = "missing_completed_at"
	IssueMissingMembership   = "missing_membership"
	IssueMembershipNoUser    = "membership_without_user"
)

// IntegrityService 跨分区的只读一致性检查
type IntegrityService interface {
	// ValidateIntegrity tenantID 为空时检查全部租户；checks 为空时执行全部检查
	ValidateIntegrity(ctx context.Context, tenantID *int64, checks []string) (*v1.IntegrityReport, error)
}

func NewIntegrityService(
	service *Service,
	tenantRepo repository.TenantRepository,
	userRepo repository.GlobalUserRepository,
	courseRepo repository.GlobalCourseRepository,
	switcher repository.TenantSwitcher,
) IntegrityService {
	s := &integrityService{
		Service:    service,
		tenantRepo: tenantRepo,
		userRepo:   userRepo,
		courseRepo: courseRepo,
		switcher:   switcher,
	}
	s.checks = map[string]integrityCheck{
		CheckUserConsistency:       s.checkUsers,
		CheckCourseConsistency:     s.checkCourses,
		CheckEnrollmentConsistency: s.checkEnrollments,
		CheckMembershipConsistency: s.checkMemberships,
	}
	return s
}

type integrityCheck func(ctx context.Context, tenantID int64) ([]v1.IntegrityIssue, error)

type integrityService struct {
	*Service
	tenantRepo repository.TenantRepository
	userRepo   repository.GlobalUserRepository
	courseRepo repository.GlobalCourseRepository
	switcher   repository.TenantSwitcher
	checks     map[string]integrityCheck
}

func (s *integrityService) ValidateIntegrity(ctx context.Context, tenantID *int64, checks []string) (*v1.IntegrityReport, error) {
	if len(checks) == 0 {
		checks = AllChecks
	}
	for _, name := range checks {
		if _, ok := s.checks[name]; !ok {
			return nil, fmt.Errorf("%w: %q", v1.ErrUnknownCheck, name)
		}
	}

	var tenantIDs []int64
	if tenantID != nil {
		tenant, err := s.tenantRepo.GetByID(ctx, *tenantID)
		if err != nil {
			return nil, fmt.Errorf("get tenant %d: %w", *tenantID, err)
		}
		if tenant == nil {
			return nil, fmt.Errorf("%w: %d", v1.ErrTenantNotFound, *tenantID)
		}
		tenantIDs = []int64{tenant.Id}
	} else {
		tenants, err := s.tenantRepo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tenants: %w", err)
		}
		for _, t := range tenants {
			tenantIDs = append(tenantIDs, t.Id)
		}
	}

	report := &v1.IntegrityReport{CheckedAt: s.now(), Valid: true}
	for _, id := range tenantIDs {
		tenantReport := v1.TenantIntegrity{TenantID: id, Checks: make(map[string]v1.CheckResult, len(checks))}
		for _, name := range checks {
			result := s.runCheck(ctx, id, name)
			if result.Status != v1.CheckStatusValid {
				report.Valid = false
			}
			tenantReport.Checks[name] = result
		}
		report.Tenants = append(report.Tenants, tenantReport)
	}
	return report, nil
}

func (s *integrityService) runCheck(ctx context.Context, tenantID int64, name string) (result v1.CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			result = v1.CheckResult{Status: v1.CheckStatusError, Issues: []v1.IntegrityIssue{}, Message: fmt.Sprintf("panic: %v", r)}
		}
	}()
	issues, err := s.checks[name](ctx, tenantID)
	if err != nil {
		s.logger.WithContext(ctx).Error("integrity check failed",
			zap.Int64("tenant_id", tenantID), zap.String("check", name), zap.Error(err))
		return v1.CheckResult{Status: v1.CheckStatusError, Issues: []v1.IntegrityIssue{}, Message: err.Error()}
	}
	if len(issues) == 0 {
		return v1.CheckResult{Status: v1.CheckStatusValid, Issues: []v1.IntegrityIssue{}}
	}
	return v1.CheckResult{Status: v1.CheckStatusInvalid, Issues: issues}
}

// checkUsers 成员用户都有投影、投影指向存在的全局用户、业务字段无漂移
func (s *integrityService) checkUsers(ctx context.Context, tenantID int64) ([]v1.IntegrityIssue, error) {
	members, err := s.userRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var rows []model.TenantUser
	err = s.switcher.WithTenant(ctx, tenantID, func(ctx context.Context, p *repository.Partition) error {
		return p.Table(model.TenantUser{}.TableName()).Where("global_user_id IS NOT NULL").Order("id ASC").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	projections := make(map[int64]model.TenantUser, len(rows))
	var referenced []int64
	var issues []v1.IntegrityIssue
	for _, row := range rows {
		gid := *row.GlobalUserID
		if first, ok := projections[gid]; ok {
			issues = append(issues, v1.IntegrityIssue{
				Type: IssueDuplicateProjection, TenantRecordID: row.Id, GlobalRecordID: gid,
				Detail: fmt.Sprintf("global user also projected as tenant user %d", first.Id),
			})
			continue
		}
		projections[gid] = row
		referenced = append(referenced, gid)
	}

	globals, err := s.userRepo.GetByIDs(ctx, referenced)
	if err != nil {
		return nil, err
	}
	for _, gid := range referenced {
		row := projections[gid]
		user, ok := globals[gid]
		if !ok {
			issues = append(issues, v1.IntegrityIssue{
				Type: IssueOrphanedProjection, TenantRecordID: row.Id, GlobalRecordID: gid,
				Detail: "global user does not exist",
			})
			continue
		}
		drift, err := drifted(user.Profile(), row.Profile())
		if err != nil {
			return nil, err
		}
		if drift {
			issues = append(issues, v1.IntegrityIssue{
				Type: IssueDrift, TenantRecordID: row.Id, GlobalRecordID: gid,
				Detail: "tenant projection differs from global user",
			})
		}
	}
	for _, member := range members {
		if _, ok := projections[member.Id]; !ok {
			issues = append(issues, v1.IntegrityIssue{
				Type: IssueMissingProjection, GlobalRecordID: member.Id,
				Detail: "member has no tenant projection",
			})
		}
	}
	return issues, nil
}

// checkCourses offering 都有投影、投影都有 offering、投影与 offering 覆盖后的课程一致
func (s *integrityService) checkCourses(ctx context.Context, tenantID int64) ([]v1.IntegrityIssue, error) {
	offerings, err := s.courseRepo.ListOfferingsByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	courses, err := s.courseRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	courseByID := make(map[int64]*model.GlobalCourse, len(courses))
	for _, c := range courses {
		courseByID[c.Id] = c
	}

	var rows []model.TenantCourse
	err = s.switcher.WithTenant(ctx, tenantID, func(ctx context.Context, p *repository.Partition) error {
		return p.Table(model.TenantCourse{}.TableName()).Where("global_course_id IS NOT NULL").Order("id ASC").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	projections := make(map[int64]model.TenantCourse, len(rows))
	for _, row := range rows {
		projections[*row.GlobalCourseID] = row
	}

	var issues []v1.IntegrityIssue
	offered := make(map[int64]bool, len(offerings))
	for _, o := range offerings {
		offered[o.GlobalCourseID] = true
		row, ok := projections[o.GlobalCourseID]
		if !ok {
			issues = append(issues, v1.IntegrityIssue{
				Type: IssueMissingProjection, GlobalRecordID: o.GlobalCourseID,
				Detail: "offered course has no tenant projection",
			})
			continue
		}
		course, ok := courseByID[o.GlobalCourseID]
		if !ok {
			continue
		}
		drift, err := drifted(model.ProjectCourse(course, o), row.Profile())
		if err != nil {
			return nil, err
		}
		if drift {
			issues = append(issues, v1.IntegrityIssue{
				Type: IssueDrift, TenantRecordID: row.Id, GlobalRecordID: o.GlobalCourseID,
				Detail: "tenant projection differs from global course and offering",
			})
		}
	}
	for _, row := range rows {
		if !offered[*row.GlobalCourseID] {
			issues = append(issues, v1.IntegrityIssue{
				Type: IssueOrphanedProjection, TenantRecordID: row.Id, GlobalRecordID: *row.GlobalCourseID,
				Detail: "tenant course has no offering",
			})
		}
	}
	return issues, nil
}

// checkEnrollments 选课记录引用的用户与课程存在于租户内，状态合法
func (s *integrityService) checkEnrollments(ctx context.Context, tenantID int64) ([]v1.IntegrityIssue, error) {
	var (
		enrollments []model.TenantEnrollment
		userIDs     []int64
		courseIDs   []int64
	)
	err := s.switcher.WithTenant(ctx, tenantID, func(ctx context.Context, p *repository.Partition) error {
		if err := p.Table(model.TenantEnrollment{}.TableName()).Order("id ASC").Find(&enrollments).Error; err != nil {
			return err
		}
		if err := p.Table(model.TenantUser{}.TableName()).Pluck("id", &userIDs).Error; err != nil {
			return err
		}
		return p.Table(model.TenantCourse{}.TableName()).Pluck("id", &courseIDs).Error
	})
	if err != nil {
		return nil, err
	}
	users := set.FromSlice(userIDs)
	courses := set.FromSlice(courseIDs)

	var issues []v1.IntegrityIssue
	for _, e := range enrollments {
		if !users.Contain(e.UserID) {
			issues = append(issues, v1.IntegrityIssue{
				Type: IssueDanglingEnrollment, TenantRecordID: e.Id,
				Detail: fmt.Sprintf("user %d does not exist", e.UserID),
			})
		}
		if !courses.Contain(e.CourseID) {
			issues = append(issues, v1.IntegrityIssue{
				Type: IssueDanglingEnrollment, TenantRecordID: e.Id,
				Detail: fmt.Sprintf("course %d does not exist", e.CourseID),
			})
		}
		switch e.Status {
		case model.EnrollmentStatusActive, model.EnrollmentStatusDropped:
		case model.EnrollmentStatusCompleted:
			if e.CompletedAt == nil {
				issues = append(issues, v1.IntegrityIssue{
					Type: IssueMissingCompletedAt, TenantRecordID: e.Id,
					Detail: "completed enrollment without completed_at",
				})
			}
		default:
			issues = append(issues, v1.IntegrityIssue{
				Type: IssueInvalidStatus, TenantRecordID: e.Id,
				Detail: fmt.Sprintf("unknown status %q", e.Status),
			})
		}
	}
	return issues, nil
}

// checkMemberships 投影用户有 active 成员关系，成员关系指向存在的全局用户
func (s *integrityService) checkMemberships(ctx context.Context, tenantID int64) ([]v1.IntegrityIssue, error) {
	memberships, err := s.tenantRepo.ListMemberships(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	active := make(map[int64]bool, len(memberships))
	memberIDs := make([]int64, 0, len(memberships))
	for _, m := range memberships {
		if m.Status == model.MembershipStatusActive {
			active[m.GlobalUserID] = true
			memberIDs = append(memberIDs, m.GlobalUserID)
		}
	}
	globals, err := s.userRepo.GetByIDs(ctx, memberIDs)
	if err != nil {
		return nil, err
	}

	var rows []model.TenantUser
	err = s.switcher.WithTenant(ctx, tenantID, func(ctx context.Context, p *repository.Partition) error {
		return p.Table(model.TenantUser{}.TableName()).Where("global_user_id IS NOT NULL").Order("id ASC").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	var issues []v1.IntegrityIssue
	for _, row := range rows {
		if !active[*row.GlobalUserID] {
			issues = append(issues, v1.IntegrityIssue{
				Type: IssueMissingMembership, TenantRecordID: row.Id, GlobalRecordID: *row.GlobalUserID,
				Detail: "projected user has no active membership",
			})
		}
	}
	for _, id := range memberIDs {
		if _, ok := globals[id]; !ok {
			issues = append(issues, v1.IntegrityIssue{
				Type: IssueMembershipNoUser, GlobalRecordID: id,
				Detail: "membership references a missing global user",
			})
		}
	}
	return issues, nil
}

func drifted(global, tenant interface{}) (bool, error) {
	g, err := hash.Fingerprint(global)
	if err != nil {
		return false, err
	}
	t, err := hash.Fingerprint(tenant)
	if err != nil {
		return false, err
	}
	return g != t, nil
}
