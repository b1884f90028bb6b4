package state

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/wwoosshh/clearly-web-sub000/config"
)

type AppState struct {
	Ctx     context.Context
	Cancel  context.CancelFunc
	Redis   *redis.Client
	Session *Session
}

func InitAppState(ctx context.Context, cancel context.CancelFunc) (*AppState, error) {
	session, err := InitSession(config.Conf.AUTH.AccessToken, config.Conf.AUTH.PublicKeyPath)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if config.Conf.CACHE.Redis.Enabled {
		rdb, err = InitRedis(config.Conf.CACHE.Redis.Addr, config.Conf.CACHE.Redis.Password, 0)
		if err != nil {
			return nil, err
		}
	}

	return &AppState{
		Ctx:     ctx,
		Cancel:  cancel,
		Redis:   rdb,
		Session: session,
	}, nil
}

func (a *AppState) Close() {
	if a.Redis != nil {
		log.Info().Msg("Closing Redis client...")
		if err := a.Redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Redis client")
		}
	}
}
