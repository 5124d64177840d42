package schedule

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type CronScheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &CronScheduler{cron: cron.New(cron.WithParser(parser))}
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	logger := logutil.GetLogger(context.Background()).With(zap.String("job", job.Name()), zap.String("spec", spec))
	if _, err := c.cron.AddFunc(spec, c.wrap(job)); err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	logger.Info("job scheduled")
	return nil
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx = ctx
	c.cron.Start()
}

func (c *CronScheduler) Stop() {
	done := c.cron.Stop()
	<-done.Done()
}

// wrap guards each job against overlapping runs and logs its outcome.
func (c *CronScheduler) wrap(job Job) func() {
	var running atomic.Bool
	return func() {
		if !running.CompareAndSwap(false, true) {
			logutil.GetLogger(c.ctx).Info("job skipped: still running", zap.String("job", job.Name()))
			return
		}
		defer running.Store(false)

		logger := logutil.GetLogger(c.ctx).With(zap.String("job", job.Name()))
		start := time.Now()
		logger.Info("job started")
		err := job.Run(c.ctx)
		if err != nil {
			logger.Error("job finished", zap.Error(err), zap.Duration("duration", time.Since(start)))
			return
		}
		logger.Info("job finished", zap.Duration("duration", time.Since(start)))
	}
}
