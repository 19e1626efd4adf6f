package service

import (
	"testing"

	v1 "tenantsync/api/v1"
	"tenantsync/internal/model"
	"tenantsync/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncedTenant 一个用户、一门课程均已投影的租户
func syncedTenant(t *testing.T, f *fixture, schema string) (*model.Tenant, *model.GlobalUser, *model.GlobalCourse) {
	t.Helper()
	tenant := f.addTenant(t, schema)
	user := f.addUser(t, schema+"@example.com", tenant.Id)
	course := f.addCourse(t, schema+"-101")
	f.addOffering(t, course, tenant.Id, "")
	_, err := f.sync.SyncGlobalUserToTenants(ctx, user.Id, nil, SyncOptions{})
	require.NoError(t, err)
	_, err = f.sync.SyncGlobalCourseToTenants(ctx, course.Id, nil, SyncOptions{})
	require.NoError(t, err)
	return tenant, user, course
}

func issueTypes(result v1.CheckResult) []string {
	types := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		types = append(types, issue.Type)
	}
	return types
}

func TestValidateIntegrity_Clean(t *testing.T) {
	f := newFixture(t)
	tenant, _, _ := syncedTenant(t, f, "acme")

	report, err := f.integrity.ValidateIntegrity(ctx, &tenant.Id, nil)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	require.Len(t, report.Tenants, 1)
	require.Len(t, report.Tenants[0].Checks, len(AllChecks))
	for name, check := range report.Tenants[0].Checks {
		assert.Equal(t, v1.CheckStatusValid, check.Status, name)
	}
}

func TestValidateIntegrity_Drift(t *testing.T) {
	f := newFixture(t)
	tenant, user, course := syncedTenant(t, f, "acme")
	f.inTenant(t, tenant.Id, func(p *repository.Partition) error {
		if err := p.Table("users").Where("global_user_id = ?", user.Id).Update("name", "Someone Else").Error; err != nil {
			return err
		}
		return p.Table("courses").Where("global_course_id = ?", course.Id).Update("credits", 9).Error
	})

	report, err := f.integrity.ValidateIntegrity(ctx, &tenant.Id, []string{CheckUserConsistency, CheckCourseConsistency})
	require.NoError(t, err)
	assert.False(t, report.Valid)
	checks := report.Tenants[0].Checks
	assert.Len(t, checks, 2)
	assert.Equal(t, v1.CheckStatusInvalid, checks[CheckUserConsistency].Status)
	assert.Equal(t, []string{IssueDrift}, issueTypes(checks[CheckUserConsistency]))
	assert.Equal(t, []string{IssueDrift}, issueTypes(checks[CheckCourseConsistency]))
}

func TestValidateIntegrity_MissingProjections(t *testing.T) {
	f := newFixture(t)
	tenant, _, _ := syncedTenant(t, f, "acme")
	newcomer := f.addUser(t, "newcomer@example.com", tenant.Id)
	course := f.addCourse(t, "CS202")
	f.addOffering(t, course, tenant.Id, "")

	report, err := f.integrity.ValidateIntegrity(ctx, &tenant.Id, []string{CheckUserConsistency, CheckCourseConsistency})
	require.NoError(t, err)
	users := report.Tenants[0].Checks[CheckUserConsistency]
	require.Len(t, users.Issues, 1)
	assert.Equal(t, IssueMissingProjection, users.Issues[0].Type)
	assert.Equal(t, newcomer.Id, users.Issues[0].GlobalRecordID)

	courses := report.Tenants[0].Checks[CheckCourseConsistency]
	require.Len(t, courses.Issues, 1)
	assert.Equal(t, IssueMissingProjection, courses.Issues[0].Type)
	assert.Equal(t, course.Id, courses.Issues[0].GlobalRecordID)
}

func TestValidateIntegrity_Enrollments(t *testing.T) {
	f := newFixture(t)
	tenant := f.addTenant(t, "acme")
	f.inTenant(t, tenant.Id, func(p *repository.Partition) error {
		if err := p.Table("users").Create(&model.TenantUser{Email: "local@example.com", Status: "active"}).Error; err != nil {
			return err
		}
		if err := p.Table("courses").Create(&model.TenantCourse{Code: "LOCAL", Title: "Local"}).Error; err != nil {
			return err
		}
		return p.Table("enrollments").Create([]*model.TenantEnrollment{
			{UserID: 1, CourseID: 1, Status: model.EnrollmentStatusActive, EnrolledAt: f.clock},
			{UserID: 99, CourseID: 98, Status: model.EnrollmentStatusActive, EnrolledAt: f.clock},
			{UserID: 1, CourseID: 1, Status: model.EnrollmentStatusCompleted, EnrolledAt: f.clock},
			{UserID: 1, CourseID: 1, Status: "paused", EnrolledAt: f.clock},
		}).Error
	})

	report, err := f.integrity.ValidateIntegrity(ctx, &tenant.Id, []string{CheckEnrollmentConsistency})
	require.NoError(t, err)
	check := report.Tenants[0].Checks[CheckEnrollmentConsistency]
	assert.Equal(t, v1.CheckStatusInvalid, check.Status)
	assert.Equal(t, []string{
		IssueDanglingEnrollment,
		IssueDanglingEnrollment,
		IssueMissingCompletedAt,
		IssueInvalidStatus,
	}, issueTypes(check))
}

func TestValidateIntegrity_Memberships(t *testing.T) {
	f := newFixture(t)
	tenant, user, _ := syncedTenant(t, f, "acme")
	require.NoError(t, f.db.Model(&model.TenantUserMembership{}).
		Where("global_user_id = ?", user.Id).Update("status", model.MembershipStatusInactive).Error)
	require.NoError(t, f.tenants.CreateMembership(ctx, &model.TenantUserMembership{
		GlobalUserID: 404, TenantID: tenant.Id, Role: "member", Status: model.MembershipStatusActive,
	}))

	report, err := f.integrity.ValidateIntegrity(ctx, &tenant.Id, []string{CheckMembershipConsistency})
	require.NoError(t, err)
	check := report.Tenants[0].Checks[CheckMembershipConsistency]
	assert.Equal(t, []string{IssueMissingMembership, IssueMembershipNoUser}, issueTypes(check))
}

func TestValidateIntegrity_CheckErrorIsContained(t *testing.T) {
	f := newFixture(t)
	broken := &model.Tenant{Name: "broken", SchemaName: "broken", Status: model.TenantStatusActive}
	require.NoError(t, f.tenants.Create(ctx, broken))
	healthy, _, _ := syncedTenant(t, f, "acme")

	report, err := f.integrity.ValidateIntegrity(ctx, nil, nil)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.Len(t, report.Tenants, 2)

	for _, tr := range report.Tenants {
		for name, check := range tr.Checks {
			if tr.TenantID == healthy.Id {
				assert.Equal(t, v1.CheckStatusValid, check.Status, name)
				continue
			}
			assert.Equal(t, v1.CheckStatusError, check.Status, name)
			assert.NotEmpty(t, check.Message, name)
		}
	}
}

func TestValidateIntegrity_InvalidRequests(t *testing.T) {
	f := newFixture(t)
	tenant := f.addTenant(t, "acme")

	_, err := f.integrity.ValidateIntegrity(ctx, &tenant.Id, []string{"grade_consistency"})
	assert.ErrorIs(t, err, v1.ErrUnknownCheck)

	missing := int64(404)
	_, err = f.integrity.ValidateIntegrity(ctx, &missing, nil)
	assert.ErrorIs(t, err, v1.ErrTenantNotFound)
}
