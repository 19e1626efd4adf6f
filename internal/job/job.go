package job

import (
	"context"

	"tenantsync/pkg/log"
	"tenantsync/pkg/sid"

	"github.com/duke-git/lancet/v2/cryptor"
	"github.com/duke-git/lancet/v2/random"
	"go.uber.org/zap"
)

type Job struct {
	logger *log.Logger
	sid    *sid.Sid
}

func NewJob(
	logger *log.Logger,
	sid *sid.Sid,
) *Job {
	return &Job{
		logger: logger,
		sid:    sid,
	}
}

// withTrace 每次运行带上独立的 trace，日志按 trace 串联
func (j *Job) withTrace(ctx context.Context, name string) context.Context {
	seed, err := random.UUIdV4()
	if err != nil {
		seed, _ = j.sid.GenString()
	}
	return j.logger.WithValue(ctx, zap.String("trace", cryptor.Md5String(seed)), zap.String("job", name))
}
