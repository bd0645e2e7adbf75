// @title        Patrick Travel Portal API
// @version      1.0
// @description  Accounts, sessions and visa applications for the Patrick Travel portal.
// @BasePath     /
//
// @securityDefinitions.apikey  CookieAuth
// @in                          cookie
// @name                        token
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/patricktravel/portal/internal/api"
	"github.com/patricktravel/portal/internal/api/middleware"
	"github.com/patricktravel/portal/internal/core/ports"
	"github.com/patricktravel/portal/internal/core/service"
	"github.com/patricktravel/portal/internal/core/token"
	"github.com/patricktravel/portal/internal/infrastructure/config"
	"github.com/patricktravel/portal/internal/infrastructure/db/memory"
	mongostore "github.com/patricktravel/portal/internal/infrastructure/db/mongo"
	redisstore "github.com/patricktravel/portal/internal/infrastructure/db/redis"
	"github.com/patricktravel/portal/internal/infrastructure/http/handlers"
	"github.com/patricktravel/portal/internal/infrastructure/identity"
	"github.com/patricktravel/portal/internal/infrastructure/mail"
	"github.com/patricktravel/portal/internal/infrastructure/queue"
	"github.com/patricktravel/portal/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// backends is what the selected credential store brings along.
type backends struct {
	users     ports.CredentialStore
	apps      ports.ApplicationRepository
	dedup     service.SubmissionDedup
	resets    ports.ResetTokenStore
	readiness []handlers.Dependency
	close     func(context.Context)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad(ctx)
	log := logger.Init(logger.FromEnv(cfg.Env, cfg.LogLevel))

	if cfg.CookieMaxAge > cfg.TokenTTL {
		log.Warn().
			Dur("cookie_max_age", cfg.CookieMaxAge).
			Dur("token_ttl", cfg.TokenTTL).
			Msg("session cookie outlives the token it carries")
	}

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.CredentialStore).Msg("failed to open credential store")
	}

	mailer, err := mail.New(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid SMTP configuration")
	}
	dispatcher := queue.NewDispatcher(cfg.SMTP.Workers, mailer, logger.Component("mail"))
	dispatcher.Start(ctx)

	issuer := token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	authService := service.NewAuthService(b.users, issuer, dispatcher, b.resets, service.AuthOptions{
		RequireConfirmation: cfg.RequireEmailConfirmation,
		PublicBaseURL:       cfg.PublicBaseURL,
	}, logger.Component("auth"))
	appService := service.NewApplicationService(b.apps, b.dedup, dispatcher, logger.Component("applications"))

	guard := middleware.DefaultGuardConfig()
	guard.Protected = cfg.Guard.Protected
	guard.Public = cfg.Guard.Public

	e := api.NewRouter(api.Dependencies{
		Auth:         authService,
		Applications: appService,
		Tokens:       issuer,
		Guard:        guard,
		Readiness:    b.readiness,
		Logger:       log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.CredentialStore).Msg("portal listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	dispatcher.Wait()
	b.close(shutdownCtx)
}

func openBackends(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backends, error) {
	switch cfg.CredentialStore {
	case config.StoreMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  "patrick-travel-portal",
		})
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &backends{
			users:  mongostore.NewUserStore(db),
			apps:   mongostore.NewApplicationRepository(db),
			dedup:  redisstore.NewSubmissionDedup(rdb),
			resets: redisstore.NewResetTokenStore(rdb),
			readiness: []handlers.Dependency{
				handlers.MongoDependency(db),
				handlers.RedisDependency(rdb),
			},
			close: func(ctx context.Context) {
				if err := rdb.Close(); err != nil {
					log.Error().Err(err).Msg("redis close")
				}
				if err := client.Disconnect(ctx); err != nil {
					log.Error().Err(err).Msg("mongo disconnect")
				}
			},
		}, nil

	case config.StoreHosted:
		keys := memory.NewKeyStore(24 * time.Hour)
		return &backends{
			users: identity.NewHostedStore(identity.Config{
				URL:        cfg.Hosted.URL,
				AnonKey:    cfg.Hosted.AnonKey,
				ServiceKey: cfg.Hosted.ServiceKey,
			}, nil),
			apps:  memory.NewApplicationRepository(),
			dedup: keys,
			close: func(context.Context) {},
		}, nil

	default:
		log.Warn().Msg("in-memory credential store: accounts are lost on restart")
		keys := memory.NewKeyStore(24 * time.Hour)
		return &backends{
			users:  memory.NewUserStore(),
			apps:   memory.NewApplicationRepository(),
			dedup:  keys,
			resets: keys,
			close:  func(context.Context) {},
		}, nil
	}
}
