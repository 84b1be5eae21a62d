package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessedLedger tracks which users a given job key has already covered.
// The orchestrator passes an explicit job key (the calendar date of the run)
// into every call, so the ledger itself holds no notion of "today".
type ProcessedLedger interface {
	// GetProcessed returns the set of user IDs recorded under the job key.
	// A key that has never been written yields an empty set, not an error.
	GetProcessed(ctx context.Context, jobKey string) (map[uint]struct{}, error)

	// MarkProcessed appends user IDs to the job key's set. The set only ever
	// grows; overlapping invocations may append the same ID twice, which is
	// harmless.
	MarkProcessed(ctx context.Context, jobKey string, userIDs []uint) error
}

// keyTTL keeps stale day-keys from accumulating. Two days covers any run that
// straddles midnight plus a full day of same-key reads.
const keyTTL = 48 * time.Hour

type redisLedger struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisLedger(client *redis.Client, logger *slog.Logger) ProcessedLedger {
	return &redisLedger{
		client: client,
		logger: logger,
	}
}

func ledgerKey(jobKey string) string {
	return "analysis:processed:" + jobKey
}

func (l *redisLedger) GetProcessed(ctx context.Context, jobKey string) (map[uint]struct{}, error) {
	members, err := l.client.SMembers(ctx, ledgerKey(jobKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("ledger read for job %s: %w", jobKey, err)
	}

	processed := make(map[uint]struct{}, len(members))
	for _, m := range members {
		var id uint
		if _, err := fmt.Sscanf(m, "%d", &id); err != nil {
			l.logger.Warn("Skipping malformed ledger member", "job_key", jobKey, "member", m)
			continue
		}
		processed[id] = struct{}{}
	}
	return processed, nil
}

func (l *redisLedger) MarkProcessed(ctx context.Context, jobKey string, userIDs []uint) error {
	if len(userIDs) == 0 {
		return nil
	}

	members := make([]any, 0, len(userIDs))
	for _, id := range userIDs {
		members = append(members, fmt.Sprintf("%d", id))
	}

	key := ledgerKey(jobKey)
	pipe := l.client.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ledger append for job %s: %w", jobKey, err)
	}

	l.logger.Debug("Recorded processed users", "job_key", jobKey, "count", len(userIDs))
	return nil
}
