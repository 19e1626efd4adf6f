package service

import (
	"context"
	"time"

	"tenantsync/internal/model"
	"tenantsync/internal/repository"
	"tenantsync/pkg/log"
	"tenantsync/pkg/sid"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Service struct {
	logger *log.Logger
	sid    *sid.Sid
	tm     repository.Transaction
	// now / newBatchID 可在测试中替换
	now        func() time.Time
	newBatchID func() string
}

func NewService(
	tm repository.Transaction,
	logger *log.Logger,
	sid *sid.Sid,
) *Service {
	return &Service{
		logger:     logger,
		sid:        sid,
		tm:         tm,
		now:        func() time.Time { return time.Now().UTC() },
		newBatchID: uuid.NewString,
	}
}

// invalidateStatus 清空 sync: 前缀下的状态缓存，失败只记日志
func (s *Service) invalidateStatus(ctx context.Context, cache repository.SyncCache) int64 {
	n, err := cache.DeletePrefix(ctx, repository.SyncCachePrefix)
	if err != nil {
		s.logger.WithContext(ctx).Warn("invalidate sync cache failed", zap.Error(err))
	}
	return n
}

// SyncConfig sync.* 配置项
type SyncConfig struct {
	MaxRetryAttempts int
	LockTTL          time.Duration
	DefaultPriority  int
	Parallelism      int
	StatusCacheTTL   time.Duration
	RetentionDays    int
	RetryBatchLimit  int
}

func NewSyncConfig(conf *viper.Viper) *SyncConfig {
	cfg := &SyncConfig{
		MaxRetryAttempts: conf.GetInt("sync.max_retry_attempts"),
		LockTTL:          conf.GetDuration("sync.lock_ttl"),
		DefaultPriority:  conf.GetInt("sync.default_priority"),
		Parallelism:      conf.GetInt("sync.parallelism"),
		StatusCacheTTL:   conf.GetDuration("sync.status_cache_ttl"),
		RetentionDays:    conf.GetInt("sync.retention_days"),
		RetryBatchLimit:  conf.GetInt("sync.retry_batch_limit"),
	}
	if cfg.MaxRetryAttempts <= 0 {
		cfg.MaxRetryAttempts = model.DefaultMaxRetryAttempts
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Hour
	}
	if cfg.DefaultPriority <= 0 {
		cfg.DefaultPriority = model.DefaultSyncPriority
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	if cfg.StatusCacheTTL <= 0 {
		cfg.StatusCacheTTL = time.Minute
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 90
	}
	if cfg.RetryBatchLimit <= 0 {
		cfg.RetryBatchLimit = 50
	}
	return cfg
}
