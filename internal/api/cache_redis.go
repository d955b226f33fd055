package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"avn-launcher/internal/models"
)

// CachedSource keeps full game records in Redis so repeated bulk updates do
// not refetch every thread. Version lookups always go to the wrapped source,
// since they are what detects a change.
type CachedSource struct {
	next   Source
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisClient(redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func NewCachedSource(next Source, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func (s *CachedSource) keyGame(threadID int) string { return "avn:game:" + strconv.Itoa(threadID) }

func (s *CachedSource) GetGame(ctx context.Context, threadID int) models.Result[models.RemoteGame] {
	raw, err := s.rdb.Get(ctx, s.keyGame(threadID)).Bytes()
	switch {
	case err == nil:
		var g models.RemoteGame
		if err := json.Unmarshal(raw, &g); err == nil {
			return models.Ok(g)
		}
		s.logger.Warn("discarding undecodable cached game", zap.Int("thread_id", threadID))
	case errors.Is(err, redis.Nil):
	default:
		s.logger.Warn("game cache read failed", zap.Int("thread_id", threadID), zap.Error(err))
	}

	res := s.next.GetGame(ctx, threadID)
	if !res.IsOk() {
		return res
	}
	if payload, err := json.Marshal(res.Value); err == nil {
		if err := s.rdb.Set(ctx, s.keyGame(threadID), payload, s.ttl).Err(); err != nil {
			s.logger.Warn("game cache write failed", zap.Int("thread_id", threadID), zap.Error(err))
		}
	}
	return res
}

// GetVersions passes through and evicts cached records whose version no longer matches.
func (s *CachedSource) GetVersions(ctx context.Context, threadIDs []int) models.Result[map[int]string] {
	res := s.next.GetVersions(ctx, threadIDs)
	if res.IsOk() && len(threadIDs) > 0 {
		if err := s.evictStale(ctx, threadIDs, res.Value); err != nil {
			s.logger.Warn("game cache eviction failed", zap.Error(err))
		}
	}
	return res
}

func (s *CachedSource) evictStale(ctx context.Context, threadIDs []int, versions map[int]string) error {
	keys := make([]string, len(threadIDs))
	for i, id := range threadIDs {
		keys[i] = s.keyGame(id)
	}
	cached, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return err
	}

	var stale []int
	for i, v := range cached {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var g models.RemoteGame
		if err := json.Unmarshal([]byte(raw), &g); err != nil || g.Version != versions[threadIDs[i]] {
			stale = append(stale, threadIDs[i])
		}
	}
	return s.Invalidate(ctx, stale...)
}

// Invalidate drops cached records.
func (s *CachedSource) Invalidate(ctx context.Context, threadIDs ...int) error {
	if len(threadIDs) == 0 {
		return nil
	}
	keys := make([]string, len(threadIDs))
	for i, id := range threadIDs {
		keys[i] = s.keyGame(id)
	}
	return s.rdb.Del(ctx, keys...).Err()
}
