package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/wwoosshh/clearly-web-sub000/internal/entity"
)

const (
	cacheTTL = 24 * time.Hour
	opWait   = 2 * time.Second
)

// RedisCache keeps the first-paint mirror in Redis so a restarted client
// paints instantly within the same session. Keys are scoped per user so two
// sessions on one instance never read each other's rooms.
type RedisCache struct {
	Redis  *redis.Client
	UserID string
}

func NewRedisCache(rdb *redis.Client, userID string) CacheContract {
	return &RedisCache{Redis: rdb, UserID: userID}
}

func (c *RedisCache) roomsKey() string {
	return fmt.Sprintf("chatsync:%s:rooms", c.UserID)
}

func (c *RedisCache) messagesKey(roomID string) string {
	return fmt.Sprintf("chatsync:%s:messages:%s", c.UserID, roomID)
}

func (c *RedisCache) GetRooms() ([]entity.Room, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opWait)
	defer cancel()

	raw, err := c.Redis.Get(ctx, c.roomsKey()).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Msg("cache: failed to read rooms")
		}
		return nil, false
	}

	var rooms []entity.Room
	if err := json.Unmarshal(raw, &rooms); err != nil {
		log.Warn().Err(err).Msg("cache: corrupt rooms entry, dropping")
		c.Redis.Del(context.Background(), c.roomsKey())
		return nil, false
	}
	return rooms, true
}

func (c *RedisCache) PutRooms(rooms []entity.Room) {
	raw, err := json.Marshal(rooms)
	if err != nil {
		log.Error().Err(err).Msg("cache: failed to marshal rooms")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opWait)
	defer cancel()

	if err := c.Redis.Set(ctx, c.roomsKey(), raw, cacheTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("cache: failed to write rooms")
	}
}

func (c *RedisCache) GetMessages(roomID string) ([]entity.Message, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opWait)
	defer cancel()

	raw, err := c.Redis.Get(ctx, c.messagesKey(roomID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("roomID", roomID).Msg("cache: failed to read messages")
		}
		return nil, false
	}

	var messages []entity.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		log.Warn().Err(err).Str("roomID", roomID).Msg("cache: corrupt messages entry, dropping")
		c.Redis.Del(context.Background(), c.messagesKey(roomID))
		return nil, false
	}
	return messages, true
}

func (c *RedisCache) PutMessages(roomID string, messages []entity.Message) {
	raw, err := json.Marshal(messages)
	if err != nil {
		log.Error().Err(err).Str("roomID", roomID).Msg("cache: failed to marshal messages")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opWait)
	defer cancel()

	if err := c.Redis.Set(ctx, c.messagesKey(roomID), raw, cacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("roomID", roomID).Msg("cache: failed to write messages")
	}
}

func (c *RedisCache) ApplyMessages(roomID string, fn func([]entity.Message) []entity.Message) {
	list, ok := c.GetMessages(roomID)
	if !ok {
		return
	}
	c.PutMessages(roomID, fn(list))
}
