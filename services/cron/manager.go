package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobExpireSubscriptions is the name of the subscription expiry job
const JobExpireSubscriptions = "expire_subscriptions"

// ExpireFunc expires overdue subscriptions and reports how many changed
type ExpireFunc func(ctx context.Context) (int, error)

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron    *cron.Cron
	log     *zap.Logger
	expire  ExpireFunc
	timeout time.Duration
}

// NewCronManager creates a new cron manager
func NewCronManager(expire ExpireFunc, log *zap.Logger) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:    c,
		log:     log.Named("cron"),
		expire:  expire,
		timeout: 5 * time.Minute,
	}
}

// Start registers the jobs and starts the scheduler
func (m *CronManager) Start(expireSchedule string) error {
	m.log.Info("starting cron jobs")

	if err := m.registerJobs(expireSchedule); err != nil {
		return err
	}

	m.cron.Start()

	m.log.Info("cron jobs started", zap.Int("jobs", len(m.cron.Entries())))
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (m *CronManager) Stop() {
	m.log.Info("stopping cron jobs")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs(expireSchedule string) error {
	_, err := m.cron.AddFunc(expireSchedule, func() {
		m.logJobStart(JobExpireSubscriptions)
		m.ExpireSubscriptions()
	})
	return err
}

// ExpireSubscriptions marks every overdue active subscription expired
func (m *CronManager) ExpireSubscriptions() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	started := time.Now()
	count, err := m.expire(ctx)
	if err != nil {
		m.logJobError(JobExpireSubscriptions, err)
		return
	}
	m.logJobComplete(JobExpireSubscriptions, count, time.Since(started))
}

func (m *CronManager) logJobStart(jobName string) {
	m.log.Info("job started", zap.String("job", jobName))
}

func (m *CronManager) logJobComplete(jobName string, affected int, took time.Duration) {
	m.log.Info("job completed",
		zap.String("job", jobName),
		zap.Int("affected", affected),
		zap.Duration("duration", took),
	)
}

func (m *CronManager) logJobError(jobName string, err error) {
	m.log.Error("job failed", zap.String("job", jobName), zap.Error(err))
}
