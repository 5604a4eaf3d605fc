// Package jobs runs the dev backend's scheduled background work.
package jobs

import (
	"context"
	"fmt"
	"time"

	"guestreport_client/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gopkg.in/square/go-jose.v2"
)

const keyRefreshTimeout = 30 * time.Second

// KeyFetcher is the part of auth.JWKSCache the job drives.
type KeyFetcher interface {
	Get(ctx context.Context, url string, refresh bool) (*jose.JSONWebKeySet, error)
}

// KeyRefreshJob refetches Google's signing keys on a schedule so a Google
// sign-in never waits on the key download.
type KeyRefreshJob struct {
	keys     KeyFetcher
	url      string
	schedule string
	logger   *zap.Logger
	cron     *cron.Cron
}

// NewKeyRefreshJob creates the job. GOOGLE_JWKS_REFRESH_SCHEDULE takes any
// robfig/cron spec; an empty schedule disables it.
func NewKeyRefreshJob(keys KeyFetcher, cfg *config.Config, logger *zap.Logger) *KeyRefreshJob {
	scheduler := cron.New(
		cron.WithLogger(NewCronLogger(logger.Named("cron"))),
		cron.WithChain(cron.SkipIfStillRunning(NewCronLogger(logger.Named("cron")))),
	)
	return &KeyRefreshJob{
		keys:     keys,
		url:      cfg.GoogleJWKSURL,
		schedule: cfg.GoogleJWKSRefreshSchedule,
		logger:   logger.Named("KeyRefreshJob"),
		cron:     scheduler,
	}
}

// SetupAndStart warms the cache once, then schedules the refresh.
func (j *KeyRefreshJob) SetupAndStart() error {
	if j.schedule == "" || j.url == "" {
		j.logger.Info("Google key refresh is not scheduled")
		return nil
	}
	jobID, err := j.cron.AddFunc(j.schedule, j.run)
	if err != nil {
		return fmt.Errorf("schedule google key refresh %q: %w", j.schedule, err)
	}
	j.logger.Info("Google key refresh scheduled", zap.String("spec", j.schedule), zap.Int("jobID", int(jobID)))

	go j.run()
	j.cron.Start()
	return nil
}

func (j *KeyRefreshJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), keyRefreshTimeout)
	defer cancel()

	set, err := j.keys.Get(ctx, j.url, true)
	if err != nil {
		j.logger.Warn("Google key refresh failed, keeping cached keys", zap.Error(err))
		return
	}
	j.logger.Debug("Google keys refreshed", zap.Int("keys", len(set.Keys)))
}

// Stop waits up to ten seconds for a running refresh to finish.
func (j *KeyRefreshJob) Stop() {
	stopped := j.cron.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(10 * time.Second):
		j.logger.Warn("Google key refresh did not stop in time")
	}
}

// cronLogger sends robfig/cron's log lines to zap.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger adapts zl to cron.Logger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info is routine scheduler chatter, so it goes to debug.
func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.zl.Debug(msg, toFields(keysAndValues)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.zl.Error(msg, append(toFields(keysAndValues), zap.Error(err))...)
}

func toFields(kv []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		var v interface{}
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		fields = append(fields, zap.Any(fmt.Sprint(kv[i]), v))
	}
	return fields
}
