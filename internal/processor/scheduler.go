package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/healthythako/booking-service/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Job is a periodic maintenance task. Spec uses cron syntax or descriptors
// such as "@every 30s".
type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(jobs ...Job) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, job := range jobs {
		if job.Spec == "" || job.Run == nil {
			continue
		}
		if _, err := s.cron.AddFunc(job.Spec, s.wrap(job)); err != nil {
			cancel()
			return nil, fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
		}
		logger.Info("scheduled job", "job", job.Name, "spec", job.Spec)
	}
	return s, nil
}

func (s *Scheduler) wrap(job Job) func() {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return func() {
		ctx, cancel := context.WithTimeout(s.ctx, timeout)
		defer cancel()
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			logger.Error("scheduled job failed", "job", job.Name, "error", err, "took", time.Since(start).String())
			return
		}
		logger.Debug("scheduled job finished", "job", job.Name, "took", time.Since(start).String())
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
