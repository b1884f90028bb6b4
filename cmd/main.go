package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wwoosshh/clearly-web-sub000/config"
	"github.com/wwoosshh/clearly-web-sub000/internal/cache"
	"github.com/wwoosshh/clearly-web-sub000/internal/engine"
	"github.com/wwoosshh/clearly-web-sub000/internal/entity"
	"github.com/wwoosshh/clearly-web-sub000/internal/rest"
	"github.com/wwoosshh/clearly-web-sub000/internal/socket"
	"github.com/wwoosshh/clearly-web-sub000/state"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// initialize the application
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appState, err := state.InitAppState(ctx, stop)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application state")
	}
	defer appState.Close()

	user := entity.User{
		ID:   appState.Session.UserID,
		Name: appState.Session.Name,
		Role: appState.Session.Role,
	}

	pull := rest.NewClient(config.Conf.SERVER.BaseURL, config.Conf.AUTH.AccessToken)
	push := socket.NewSocket(config.Conf.SERVER.WsURL, config.Conf.AUTH.AccessToken)

	var store cache.CacheContract
	if appState.Redis != nil {
		store = cache.NewRedisCache(appState.Redis, user.ID)
	} else {
		store = cache.NewMemoryCache()
	}

	eng := engine.NewEngine(user, pull, push, store)
	eng.Start(ctx)
	log.Info().Str("userID", user.ID).Msg("chat engine started")

	// one push connection per authenticated session
	push.Start(ctx)

	<-ctx.Done()
	log.Info().Msg("Shutdown initiated...")

	// teardown closes the push connection, which is logout semantics for the
	// session's room memberships
	eng.LeaveActiveRoom()
	eng.Sync()
	push.Close()
	log.Info().Msg("chat engine exited gracefully")
}
