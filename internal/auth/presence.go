package auth

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const onlineKeyPrefix = "online:"

// MarkOnline records that userId made an authenticated request. The key
// expires after window, so the set of live keys is the set of users seen
// within the window. It does not affect token validity.
func MarkOnline(ctx context.Context, rdb *redis.Client, userId string, window time.Duration) error {
	return rdb.Set(ctx, onlineKeyPrefix+userId, time.Now().UTC().Unix(), window).Err()
}

func MarkOffline(ctx context.Context, rdb *redis.Client, userId string) error {
	return rdb.Del(ctx, onlineKeyPrefix+userId).Err()
}

// OnlineUserCount returns the number of unique users seen within the window.
func OnlineUserCount(ctx context.Context, rdb *redis.Client) (int, error) {
	var cursor uint64
	userIds := make(map[string]struct{})
	for {
		keys, newCursor, err := rdb.Scan(ctx, cursor, onlineKeyPrefix+"*", 100).Result()
		if err != nil {
			return 0, err
		}
		for _, key := range keys {
			if id := strings.TrimPrefix(key, onlineKeyPrefix); id != "" && id != key {
				userIds[id] = struct{}{}
			}
		}
		if newCursor == 0 {
			break
		}
		cursor = newCursor
	}
	return len(userIds), nil
}
