package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Collab/internal/adapters/http"
	"github.com/dkeye/Collab/internal/adapters/identity"
	"github.com/dkeye/Collab/internal/adapters/stream"
	"github.com/dkeye/Collab/internal/app/events"
	"github.com/dkeye/Collab/internal/app/sessions"
	"github.com/dkeye/Collab/internal/app/users"
	"github.com/dkeye/Collab/internal/config"
	"github.com/dkeye/Collab/internal/storage/sqlite"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to open database")
	}
	defer store.Close()

	idp := identity.NewClient(cfg.Identity.APIURL, cfg.Identity.SecretKey, cfg.Identity.Timeout)
	provisioner := users.NewProvisioner(store, idp)

	dispatcher := events.NewDispatcher(cfg.Events.QueueSize)
	events.RegisterUserSync(dispatcher, provisioner)

	h := &router.Handlers{
		Verifier: identity.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Users:    provisioner,
		Sessions: sessions.NewService(store, cfg.Sessions.MaxParticipants, cfg.Sessions.RecentLimit),
		Tokens:   stream.NewIssuer(cfg.Stream.APISecret, cfg.Stream.TokenTTL),
		Events:   dispatcher,
		Limiter:  router.NewRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Interval),
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.SetupRouter(cfg, h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Collab server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		return
	}
	log.Info().Msg("Server exited gracefully")
}
