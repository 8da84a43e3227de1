package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
)

const defaultMessageRetention = 90 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type MessageRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository messageCleanupRepo
	Retention  time.Duration
}

type messageCleanupRepo interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewMessageRetentionJob prunes the WhatsApp message log.
func NewMessageRetentionJob(params MessageRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("message repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultMessageRetention
	}
	return &messageRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type messageRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      messageCleanupRepo
	retention time.Duration
	now       func() time.Time
}

func (j *messageRetentionJob) Name() string { return "message-retention" }

func (j *messageRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeleteOlderThan(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("message retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "message log pruned")
	return nil
}
