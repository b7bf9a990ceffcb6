package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const cleanupIntervalHours = 24

// RetentionStore is the cleanup surface of the persistence layer.
type RetentionStore interface {
	CleanupOldMessages(retentionDays int) error
}

// RetentionCleaner periodically deletes messages past the retention window.
type RetentionCleaner struct {
	store         RetentionStore
	retentionDays int
	logger        *logrus.Logger
	stopCh        chan struct{}
}

func NewRetentionCleaner(store RetentionStore, retentionDays int, logger *logrus.Logger) *RetentionCleaner {
	return &RetentionCleaner{
		store:         store,
		retentionDays: retentionDays,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
}

func (c *RetentionCleaner) Start(ctx context.Context) {
	ticker := time.NewTicker(cleanupIntervalHours * time.Hour)
	defer ticker.Stop()

	c.logger.Info("Starting retention cleaner")

	c.runCleanup()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Retention cleaner context cancelled, stopping")
			return
		case <-c.stopCh:
			c.logger.Info("Retention cleaner stop signal received, stopping")
			return
		case <-ticker.C:
			c.runCleanup()
		}
	}
}

func (c *RetentionCleaner) Stop() {
	close(c.stopCh)
}

func (c *RetentionCleaner) runCleanup() {
	c.logger.WithField("retentionDays", c.retentionDays).Info("Running scheduled cleanup")

	if err := c.store.CleanupOldMessages(c.retentionDays); err != nil {
		c.logger.WithError(err).Error("Failed to cleanup old messages")
	} else {
		c.logger.Info("Successfully completed cleanup")
	}
}
