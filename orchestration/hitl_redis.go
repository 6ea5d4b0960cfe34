package orchestration

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gomind-ai/orchestrator-core/resilience"
)

// RedisCheckpointStore persists OrchestrationState under
// "orchestrator:checkpoint:{runID}", with a TTL so an abandoned
// pause-for-approval eventually expires instead of leaking keys forever.
// Uses a Watch/TxPipelined read-modify-write shape with an explicit TTL
// per checkpoint.
type RedisCheckpointStore struct {
	client      *redis.Client
	ttl         time.Duration
	retryConfig *resilience.RetryConfig
}

// NewRedisCheckpointStore wraps client with the given checkpoint TTL. Reads
// and writes are retried with exponential backoff (§4.3.5's Redis
// connection blips should not fail a pause/resume outright).
func NewRedisCheckpointStore(client *redis.Client, ttl time.Duration) *RedisCheckpointStore {
	return &RedisCheckpointStore{client: client, ttl: ttl, retryConfig: resilience.DefaultRetryConfig()}
}

func checkpointKey(runID string) string {
	return fmt.Sprintf("orchestrator:checkpoint:%s", runID)
}

func (s *RedisCheckpointStore) Save(ctx context.Context, runID string, state OrchestrationState) error {
	raw, err := state.Encode()
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	key := checkpointKey(runID)
	err = resilience.Retry(ctx, s.retryConfig, func() error {
		return s.client.Watch(ctx, func(tx *redis.Tx) error {
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, raw, s.ttl)
				return nil
			})
			return err
		}, key)
	})
	if err != nil {
		return fmt.Errorf("save checkpoint %q: %w", runID, err)
	}
	return nil
}

func (s *RedisCheckpointStore) Load(ctx context.Context, runID string) (OrchestrationState, bool, error) {
	var raw []byte
	err := resilience.Retry(ctx, s.retryConfig, func() error {
		var getErr error
		raw, getErr = s.client.Get(ctx, checkpointKey(runID)).Bytes()
		if getErr == redis.Nil {
			return nil
		}
		return getErr
	})
	if err != nil {
		return OrchestrationState{}, false, fmt.Errorf("load checkpoint %q: %w", runID, err)
	}
	if len(raw) == 0 {
		return OrchestrationState{}, false, nil
	}
	state, err := DecodeOrchestrationState(raw)
	if err != nil {
		return OrchestrationState{}, false, err
	}
	return state, true, nil
}

func (s *RedisCheckpointStore) Delete(ctx context.Context, runID string) error {
	err := resilience.Retry(ctx, s.retryConfig, func() error {
		return s.client.Del(ctx, checkpointKey(runID)).Err()
	})
	if err != nil {
		return fmt.Errorf("delete checkpoint %q: %w", runID, err)
	}
	return nil
}
