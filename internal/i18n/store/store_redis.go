package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	id "bharatkyc/pkg/domain"
	"bharatkyc/pkg/platform/sentinel"
)

// Key layout mirrors the browser storage key the preference replaces.
const preferenceKeyPrefix = "i18nextLng:"

// Redis shares preferences across instances.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Get(ctx context.Context, deviceID id.DeviceID) (string, error) {
	v, err := s.client.Get(ctx, preferenceKeyPrefix+deviceID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get locale preference: %w: %w", sentinel.ErrUnavailable, err)
	}
	return v, nil
}

func (s *Redis) Set(ctx context.Context, deviceID id.DeviceID, locale string) error {
	if err := s.client.Set(ctx, preferenceKeyPrefix+deviceID.String(), locale, PreferenceTTL).Err(); err != nil {
		return fmt.Errorf("set locale preference: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
