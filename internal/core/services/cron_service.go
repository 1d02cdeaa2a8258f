package services

import (
	"context"
	"time"

	"sacco-backend/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CronService runs periodic housekeeping jobs
type CronService struct {
	cron     *cron.Cron
	store    repositories.Store
	resets   *PasswordResetService
	schedule string
	log      *zap.Logger
}

// zapCronLogger adapts zap to cron.Logger
type zapCronLogger struct {
	log *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

// NewCronService creates the scheduler. schedule accepts cron specs and
// descriptors such as "@every 5m".
func NewCronService(store repositories.Store, resets *PasswordResetService, schedule string, log *zap.Logger) *CronService {
	cl := zapCronLogger{log: log.Sugar()}
	return &CronService{
		cron:     cron.New(cron.WithChain(cron.Recover(cl)), cron.WithLogger(cl)),
		store:    store,
		resets:   resets,
		schedule: schedule,
		log:      log,
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.Cleanup); err != nil {
		s.log.Error("failed to schedule cleanup job", zap.String("schedule", s.schedule), zap.Error(err))
		return err
	}
	s.log.Info("scheduled cleanup job", zap.String("schedule", s.schedule))

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
}

// Cleanup deletes expired password reset codes and refresh tokens
func (s *CronService) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if s.resets != nil {
		n, err := s.resets.PurgeExpired(ctx)
		if err != nil {
			s.log.Error("failed to purge reset codes", zap.Error(err))
		} else if n > 0 {
			s.log.Info("purged expired reset codes", zap.Int64("count", n))
		}
	}

	n, err := s.store.RefreshTokens().DeleteExpired(ctx)
	if err != nil {
		s.log.Error("failed to purge refresh tokens", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("purged expired refresh tokens", zap.Int64("count", n))
	}
}
