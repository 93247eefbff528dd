package mirror

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sankofa-trivia/backend/internal/models"
)

const (
	keyPrefix      = "trivia:progress:"
	LeaderboardKey = "trivia:leaderboard"
)

// RedisSink keeps a hash per identity and a sorted set of total XP for the
// leaderboard.
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client}
}

func makeKey(identity string) string {
	return keyPrefix + identity
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Write(ctx context.Context, identity, field string, value json.RawMessage) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, makeKey(identity), field, string(value))
	if field == "total_xp" {
		var xp float64
		if err := json.Unmarshal(value, &xp); err != nil {
			return fmt.Errorf("decode total_xp: %w", err)
		}
		pipe.ZAdd(ctx, LeaderboardKey, &redis.Z{Score: xp, Member: identity})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis mirror write: %w", err)
	}
	return nil
}

// Top returns the n highest totals, best first.
func (s *RedisSink) Top(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	entries := []models.LeaderboardEntry{}
	if n <= 0 {
		return entries, nil
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, LeaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	for i, z := range zs {
		identity, _ := z.Member.(string)
		entries = append(entries, models.LeaderboardEntry{
			Rank:     i + 1,
			Identity: identity,
			TotalXP:  int64(z.Score),
		})
	}
	return entries, nil
}

// Fields reads back the mirrored document for one identity.
func (s *RedisSink) Fields(ctx context.Context, identity string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, makeKey(identity)).Result()
	if err != nil {
		return nil, fmt.Errorf("read mirrored fields: %w", err)
	}
	return fields, nil
}
