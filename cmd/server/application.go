package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/configs"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/chat"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/command"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/identity"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/session"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/settings"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/completion"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/database"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/database/repository/configrepo"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/database/repository/identityrepo"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/database/repository/sessionrepo"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/database/transaction"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/interfaces/httpserver/handlers"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/interfaces/httpserver/middleware"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/metrics"
)

type Application struct {
	server *http.Server
	sqlDB  *sql.DB
}

func newApplication(cfg *configs.Config) (*Application, error) {
	ctx := context.Background()

	db, err := database.NewDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}

	if err := db.WithContext(ctx).Raw("SELECT 1").Error; err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info().Msg("Database connection established")

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	txDB := transaction.NewDatabase(db)
	sessions := sessionrepo.NewSessionRepository(txDB)
	turns := sessionrepo.NewTurnRepository(txDB)
	identities := identityrepo.NewRepository(txDB)
	store := configrepo.NewRepository(txDB)

	if err := seedDefaults(ctx, store, cfg); err != nil {
		return nil, fmt.Errorf("seed defaults: %w", err)
	}

	completionClient := completion.NewClient(completion.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		Model:               cfg.OpenAIModel,
		MaxResponseTokens:   cfg.MaxResponseTokens,
		SummaryTargetTokens: cfg.SummaryTargetTokens,
	})

	owners := make([]string, 0, len(cfg.OwnerIDs))
	for _, id := range cfg.OwnerIDs {
		owners = append(owners, identity.ToJID(id))
	}

	lifecycle := session.NewLifecycleService(sessions, cfg.SessionInactivity)
	window := session.NewWindowManager(sessions, turns, completionClient, txDB, session.WindowConfig{
		MaxTurns:        cfg.MaxTurns,
		KeepRecentTurns: cfg.KeepRecentTurns,
	})
	resolver := identity.NewResolver(owners, identities, identities)
	registry := command.NewRegistry(store, identities, identities, identities, lifecycle, cfg.DefaultTemperature)

	engine := chat.NewEngine(lifecycle, window, resolver, identities, store, completionClient, registry, chat.Defaults{
		Persona:     cfg.DefaultPersona,
		Temperature: cfg.DefaultTemperature,
	})

	messageHandler := handlers.NewMessageHandler(engine, chat.NewSequencer())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", messageHandler.HandleHealth)
	mux.HandleFunc("/v1/messages", messageHandler.HandleMessage)
	mux.Handle("/metrics", metrics.Handler())

	handler := middleware.Timeout(cfg.RequestTimeout)(mux)
	handler = middleware.Auth(cfg.APIKey)(handler)
	handler = middleware.Metrics()(handler)
	handler = middleware.RequestID()(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      handler,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Application{
		server: server,
		sqlDB:  sqlDB,
	}, nil
}

func (a *Application) Start(ctx context.Context) error {
	log.Info().Msg("Starting Doctor Scum Session Engine")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", a.server.Addr).Msg("Session engine listening")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		if a.sqlDB != nil {
			_ = a.sqlDB.Close()
		}
		log.Info().Msg("Server exited")
		return ctx.Err()
	})

	return g.Wait()
}

// seedDefaults writes the configured persona and temperature into the store
// once, so ds.estado shows real values before any owner sets them.
func seedDefaults(ctx context.Context, store settings.Store, cfg *configs.Config) error {
	persona, err := store.Get(ctx, settings.KeyPersona)
	if err != nil {
		return err
	}
	if persona == "" {
		if err := store.Set(ctx, settings.KeyPersona, cfg.DefaultPersona); err != nil {
			return err
		}
	}

	temperature, err := store.Get(ctx, settings.KeyTemperature)
	if err != nil {
		return err
	}
	if temperature == "" {
		if err := store.Set(ctx, settings.KeyTemperature, fmt.Sprintf("%g", cfg.DefaultTemperature)); err != nil {
			return err
		}
	}
	return nil
}
