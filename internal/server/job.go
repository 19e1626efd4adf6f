package server

import (
	"context"
	"fmt"
	"time"

	"tenantsync/internal/job"
	"tenantsync/pkg/log"

	"github.com/go-co-op/gocron"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type JobServer struct {
	log       *log.Logger
	conf      *viper.Viper
	syncJob   job.SyncJob
	scheduler *gocron.Scheduler
}

func NewJobServer(
	log *log.Logger,
	conf *viper.Viper,
	syncJob job.SyncJob,
) *JobServer {
	return &JobServer{
		log:       log,
		conf:      conf,
		syncJob:   syncJob,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

type cronEntry struct {
	name string
	key  string
	run  func(ctx context.Context) error
}

func (j *JobServer) entries() []cronEntry {
	return []cronEntry{
		{name: job.JobBidirectional, key: "job.bidirectional_cron", run: j.syncJob.SyncActiveTenants},
		{name: job.JobRetry, key: "job.retry_cron", run: j.syncJob.RetryFailed},
		{name: job.JobCleanup, key: "job.cleanup_cron", run: j.syncJob.Cleanup},
	}
}

func (j *JobServer) Start(ctx context.Context) error {
	// 上一次未结束时不再叠加执行
	j.scheduler.SingletonModeAll()
	for _, e := range j.entries() {
		spec := j.conf.GetString(e.key)
		if spec == "" {
			j.log.Info("job disabled", zap.String("job", e.name))
			continue
		}
		e := e
		_, err := j.scheduler.Cron(spec).Tag(e.name).Do(func() {
			if err := e.run(ctx); err != nil {
				j.log.Error("job failed", zap.String("job", e.name), zap.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("schedule job %s (%q): %w", e.name, spec, err)
		}
		j.log.Info("job scheduled", zap.String("job", e.name), zap.String("cron", spec))
	}
	j.scheduler.StartAsync()
	return nil
}

func (j *JobServer) Stop(ctx context.Context) error {
	j.scheduler.Stop()
	j.log.Info("JobServer stop...")
	return nil
}
