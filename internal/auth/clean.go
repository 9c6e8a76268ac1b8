package auth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const DefaultTokenCleanupInterval = time.Hour

// StartTokenCleaner purges expired tokens every interval until ctx is done.
// The returned channel is closed once the loop has exited.
func (s *Service) StartTokenCleaner(ctx context.Context, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	if interval <= 0 {
		interval = DefaultTokenCleanupInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	done := make(chan struct{})
	go s.cleanupLoop(ctx, interval, logger, done)
	return done
}

func (s *Service) cleanupLoop(ctx context.Context, interval time.Duration, logger *zap.Logger, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpiredTokens(ctx)
			if err != nil {
				logger.Warn("purge expired tokens failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("purged expired tokens", zap.Int64("count", n))
			}
		}
	}
}

// PurgeExpiredTokens deletes every token past its expiry and returns how many were removed.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge tokens: %w", err)
	}
	return res.RowsAffected()
}
