// Package store persists fitted performance models in Redis so the model
// cache can rehydrate after a restart without re-reading raw score history.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/league-sim/internal/model"
	"github.com/stitts-dev/league-sim/internal/modelcache"
)

// modelRecord is the persisted cache record: fit timestamp plus the state
// parameters sufficient to reconstruct the model.
type modelRecord struct {
	PlayerID   string    `json:"player_id"`
	FitTime    time.Time `json:"fit_time"`
	Means      []float64 `json:"means"`
	Variances  []float64 `json:"variances"`
	Weights    []float64 `json:"weights"`
	Active     int       `json:"active"`
	SeasonAvg  float64   `json:"season_avg"`
	SeasonStd  float64   `json:"season_std"`
	ActiveBias float64   `json:"active_bias"`
	Degenerate bool      `json:"degenerate"`
}

// RedisStore implements modelcache.Store on top of Redis. Records carry the
// cache validity window as their Redis TTL, so an expired record is a miss
// without any explicit sweep.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	log       *logrus.Entry
}

// NewRedisStore creates a store writing under keyPrefix with the given TTL.
func NewRedisStore(client *redis.Client, keyPrefix string, ttl time.Duration, log *logrus.Logger) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		log:       log.WithField("component", "model_store"),
	}
}

func (s *RedisStore) key(playerID string) string {
	return fmt.Sprintf("%s:model:%s", s.keyPrefix, playerID)
}

// Load returns the stored entry for a player, or nil when absent or expired.
func (s *RedisStore) Load(ctx context.Context, playerID string) (*modelcache.Entry, error) {
	data, err := s.client.Get(ctx, s.key(playerID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load model record: %w", err)
	}

	var rec modelRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode model record: %w", err)
	}
	if len(rec.Means) == 0 || len(rec.Means) != len(rec.Variances) || len(rec.Means) != len(rec.Weights) {
		return nil, fmt.Errorf("malformed model record for player %s", playerID)
	}

	states := make([]model.State, len(rec.Means))
	for i := range rec.Means {
		states[i] = model.State{Mean: rec.Means[i], Variance: rec.Variances[i], Weight: rec.Weights[i]}
	}
	return &modelcache.Entry{
		PlayerID: rec.PlayerID,
		FitTime:  rec.FitTime,
		Model: &model.PerformanceModel{
			States:     states,
			Active:     rec.Active,
			SeasonAvg:  rec.SeasonAvg,
			SeasonStd:  rec.SeasonStd,
			ActiveBias: rec.ActiveBias,
			Degenerate: rec.Degenerate,
		},
	}, nil
}

// Save writes an entry with the store's TTL.
func (s *RedisStore) Save(ctx context.Context, entry *modelcache.Entry) error {
	m := entry.Model
	rec := modelRecord{
		PlayerID:   entry.PlayerID,
		FitTime:    entry.FitTime,
		Means:      make([]float64, len(m.States)),
		Variances:  make([]float64, len(m.States)),
		Weights:    make([]float64, len(m.States)),
		Active:     m.Active,
		SeasonAvg:  m.SeasonAvg,
		SeasonStd:  m.SeasonStd,
		ActiveBias: m.ActiveBias,
		Degenerate: m.Degenerate,
	}
	for i, st := range m.States {
		rec.Means[i] = st.Mean
		rec.Variances[i] = st.Variance
		rec.Weights[i] = st.Weight
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode model record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(entry.PlayerID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save model record: %w", err)
	}
	return nil
}

// Purge deletes every record under the store's prefix.
func (s *RedisStore) Purge(ctx context.Context) error {
	pattern := fmt.Sprintf("%s:model:*", s.keyPrefix)
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()

	deleted := 0
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete model record %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan model records: %w", err)
	}

	s.log.WithField("deleted", deleted).Info("Purged persisted model records")
	return nil
}
