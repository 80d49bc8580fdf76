package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/eleven-am/smart-selfie/internal/camera"
	"github.com/redis/go-redis/v9"
)

// Store keeps recent annotated frames and the latest detection result per
// camera session in redis.
type Store struct {
	redis    *redis.Client
	frameTTL time.Duration
}

func NewStore(redisClient *redis.Client, frameTTL time.Duration) *Store {
	if frameTTL == 0 {
		frameTTL = 60 * time.Second
	}
	return &Store{
		redis:    redisClient,
		frameTTL: frameTTL,
	}
}

func framesKey(sessionID string) string {
	return fmt.Sprintf("camera:%s:frames", sessionID)
}

func resultKey(sessionID string) string {
	return fmt.Sprintf("camera:%s:result", sessionID)
}

func (s *Store) StoreFrame(ctx context.Context, sessionID string, frame *camera.Frame) error {
	key := framesKey(sessionID)
	member := redis.Z{
		Score:  float64(frame.Timestamp),
		Member: frame.Data,
	}

	pipe := s.redis.Pipeline()
	pipe.ZAdd(ctx, key, member)
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(frame.Timestamp-s.frameTTL.Milliseconds(), 10))
	pipe.Expire(ctx, key, s.frameTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) GetLatestFrame(ctx context.Context, sessionID string) (*camera.Frame, error) {
	results, err := s.redis.ZRevRangeWithScores(ctx, framesKey(sessionID), 0, 0).Result()
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	data, ok := results[0].Member.(string)
	if !ok {
		return nil, fmt.Errorf("invalid frame data type")
	}

	return &camera.Frame{
		Timestamp: int64(results[0].Score),
		Data:      []byte(data),
	}, nil
}

func (s *Store) SaveResult(ctx context.Context, sessionID string, result DetectionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return s.redis.Set(ctx, resultKey(sessionID), data, s.frameTTL).Err()
}

func (s *Store) LatestResult(ctx context.Context, sessionID string) (*DetectionResult, error) {
	data, err := s.redis.Get(ctx, resultKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result DetectionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

func (s *Store) DeleteFrames(ctx context.Context, sessionID string) error {
	return s.redis.Del(ctx, framesKey(sessionID), resultKey(sessionID)).Err()
}
