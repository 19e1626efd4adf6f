package job

import (
	"context"
	"errors"
	"testing"

	v1 "tenantsync/api/v1"
	"tenantsync/internal/model"
	"tenantsync/internal/repository"
	"tenantsync/internal/service"
	"tenantsync/pkg/log"
	"tenantsync/pkg/sid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTenants struct {
	repository.TenantRepository
	active []*model.Tenant
}

func (f *fakeTenants) ListActive(context.Context) ([]*model.Tenant, error) {
	return f.active, nil
}

type fakeSync struct {
	service.SyncService
	errs  map[int64]error
	calls []int64
}

func (f *fakeSync) PerformBidirectionalSync(_ context.Context, tenantID int64, _ []model.SyncType, _ service.SyncOptions) (*v1.BidirectionalReport, error) {
	f.calls = append(f.calls, tenantID)
	if err := f.errs[tenantID]; err != nil {
		return nil, err
	}
	return &v1.BidirectionalReport{TenantID: tenantID, Directions: []v1.DirectionReport{{
		SyncType:  string(model.SyncTypeUser),
		Direction: string(model.SyncDirectionGlobalToTenant),
		Entries:   []v1.SyncEntry{{TenantID: tenantID, Status: string(model.SyncStatusCompleted)}},
	}}}, nil
}

type fakeMonitor struct {
	service.MonitorService
	retryLimit int
	cleanup    []bool
}

func (f *fakeMonitor) RetryFailedSyncs(_ context.Context, _ *int64, _ []model.SyncType, limit int) (*v1.RetryResult, error) {
	f.retryLimit = limit
	return &v1.RetryResult{Attempted: 2, Succeeded: 1, Failed: 1}, nil
}

func (f *fakeMonitor) CleanupSyncData(_ context.Context, _ int, dryRun bool) (*v1.CleanupResult, error) {
	f.cleanup = append(f.cleanup, dryRun)
	deleted := int64(3)
	return &v1.CleanupResult{DaysToKeep: 90, RecordsDeleted: &deleted}, nil
}

func newSyncJob(tenants []*model.Tenant, sync *fakeSync, monitor *fakeMonitor) SyncJob {
	return NewSyncJob(NewJob(log.NewNop(), sid.NewSid()), &fakeTenants{active: tenants}, sync, monitor)
}

func TestSyncActiveTenants_SkipsLockedTenant(t *testing.T) {
	sync := &fakeSync{errs: map[int64]error{
		2: v1.ErrSyncInProgress,
	}}
	j := newSyncJob([]*model.Tenant{{Id: 1}, {Id: 2}, {Id: 3}}, sync, &fakeMonitor{})

	require.NoError(t, j.SyncActiveTenants(context.Background()))
	assert.Equal(t, []int64{1, 2, 3}, sync.calls)
}

func TestSyncActiveTenants_CollectsErrors(t *testing.T) {
	boom := errors.New("db down")
	sync := &fakeSync{errs: map[int64]error{1: boom}}
	j := newSyncJob([]*model.Tenant{{Id: 1}, {Id: 2}}, sync, &fakeMonitor{})

	err := j.SyncActiveTenants(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int64{1, 2}, sync.calls)
}

func TestRetryAndCleanup(t *testing.T) {
	monitor := &fakeMonitor{retryLimit: -1}
	j := newSyncJob(nil, &fakeSync{}, monitor)

	require.NoError(t, j.RetryFailed(context.Background()))
	assert.Zero(t, monitor.retryLimit)
	require.NoError(t, j.Cleanup(context.Background()))
	assert.Equal(t, []bool{false}, monitor.cleanup)
}
