// Command agent keeps one caller's realtime resources in step with a session:
// it polls the session API and drives the lifecycle controller.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/Collab/internal/adapters/platform"
	"github.com/dkeye/Collab/internal/app/lifecycle"
	"github.com/dkeye/Collab/internal/app/realtime"
	"github.com/dkeye/Collab/internal/app/watch"
	"github.com/dkeye/Collab/internal/client"
	"github.com/dkeye/Collab/internal/config"
	"github.com/dkeye/Collab/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	flags := pflag.NewFlagSet("agent", pflag.ExitOnError)
	flags.String("client.session_id", "", "session to follow")
	flags.Bool("client.join", false, "join the session as participant first")
	flags.String("client.api_url", "", "session API base url")
	flags.String("client.auth_token", "", "identity provider session token")
	flags.String("client.platform_url", "", "realtime platform websocket url")
	flags.String("client.report_mode", "", "acquisition failure reporting: log or notify")
	flags.Duration("client.poll_interval", 0, "session poll interval")
	flags.String("log_level", "", "log level")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())
	cc := cfg.Client
	if cc.SessionID == "" {
		log.Fatal().Msg("client.session_id is required")
	}
	sessionID := domain.SessionID(cc.SessionID)

	api := client.New(cc.APIURL, cc.AuthToken)
	me, err := api.Me(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve current user")
	}
	log.Info().Str("user", me.ExternalID).Str("name", me.Name).Msg("signed in")

	if cc.Join {
		if _, err := api.JoinSession(ctx, sessionID); err != nil {
			log.Fatal().Err(err).Str("session", cc.SessionID).Msg("failed to join session")
		}
	}

	reporter, err := lifecycle.NewReporter(cc.ReportMode)
	if err != nil {
		log.Fatal().Err(err).Msg("bad report mode")
	}

	ctl := lifecycle.New(ctx, lifecycle.Deps{
		Tokens:      api,
		Connections: realtime.NewConnectionManager(platform.New(cc.PlatformURL, cfg.Stream.APIKey)),
		Reporter:    reporter,
		CallType:    cc.CallType,
		ChannelKind: cc.ChannelKind,
	})

	poller := &watch.Poller{
		Sessions:  api,
		Target:    ctl,
		SessionID: sessionID,
		UserID:    me.ExternalID,
		Interval:  cc.PollInterval,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := poller.Run(gctx); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		for b := range ctl.Updates() {
			log.Info().
				Str("session", cc.SessionID).
				Str("state", ctl.State().String()).
				Bool("ready", b.Ready()).
				Bool("initializing", b.Initializing).
				Msg("bundle update")
		}
		return nil
	})
	if n, ok := reporter.(*lifecycle.NotifyReporter); ok {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case note := <-n.Notifications():
					log.Warn().
						Str("session", string(note.SessionID)).
						Str("stage", string(note.Stage)).
						Msg(note.Message)
				}
			}
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		return ctl.Close(closeCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("agent stopped with error")
		return
	}
	log.Info().Msg("Agent exited gracefully")
}
