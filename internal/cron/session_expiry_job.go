package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
)

type sessionSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// NewSessionExpiryJob evicts conversation sessions that have been idle longer
// than the store's TTL.
func NewSessionExpiryJob(store sessionSweeper, logg *logger.Logger) (Job, error) {
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &sessionExpiryJob{store: store, logg: logg}, nil
}

type sessionExpiryJob struct {
	store sessionSweeper
	logg  *logger.Logger
}

func (j *sessionExpiryJob) Name() string { return "session-expiry" }

func (j *sessionExpiryJob) Run(ctx context.Context) error {
	evicted, err := j.store.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep sessions: %w", err)
	}
	if evicted > 0 {
		j.logg.Info(j.logg.WithField(ctx, "sessions_evicted", evicted), "idle sessions expired")
	}
	return nil
}
