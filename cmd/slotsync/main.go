package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/example/slotsync/internal/application"
	"github.com/example/slotsync/internal/chat"
	"github.com/example/slotsync/internal/config"
	"github.com/example/slotsync/internal/extraction"
	httptransport "github.com/example/slotsync/internal/http"
	"github.com/example/slotsync/internal/notify"
	"github.com/example/slotsync/internal/persistence"
	"github.com/example/slotsync/internal/persistence/memory"
	"github.com/example/slotsync/internal/persistence/sqlite"
	"github.com/example/slotsync/internal/session"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	repos, closeStorage, err := openStorage(cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := closeStorage(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	idGenerator := uuid.NewString
	now := time.Now

	hub := notify.NewHub(logger)
	defer hub.Close()

	directoryService := application.NewDirectoryServiceWithLogger(
		newUserDirectoryAdapter(repos.users),
		newProjectDirectoryAdapter(repos.projects),
		idGenerator,
		now,
		logger,
	)
	timeslotService := application.NewTimeslotServiceWithLogger(
		newTimeslotRepositoryAdapter(repos.timeslots),
		newDirectoryLookupAdapter(repos.users, repos.projects),
		hub,
		idGenerator,
		now,
		logger,
	)

	sessions, err := openSessionStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := sessions.Close(); cerr != nil {
			logger.Error("failed to close session store", "error", cerr)
		}
	}()

	var chatHandler *httptransport.ChatHandler
	if cfg.ExtractorURL != "" {
		extractor, err := extraction.NewClient(extraction.ClientConfig{
			BaseURL: cfg.ExtractorURL,
			APIKey:  cfg.ExtractorAPIKey,
			Timeout: cfg.ExtractorTimeout,
			Logger:  logger,
		})
		if err != nil {
			logger.Error("failed to construct extraction client", "error", err)
			os.Exit(1)
		}
		conversation := chat.NewServiceWithLogger(directoryService, timeslotService, sessions, extractor, now, logger)
		chatHandler = httptransport.NewChatHandler(conversation, logger)
	} else {
		logger.Info("chat endpoint disabled: no extractor URL configured")
	}

	pruner := cron.New()
	if _, err := pruner.AddFunc(cfg.PruneSchedule, func() {
		pruned, perr := sessions.Prune(context.Background())
		if perr != nil {
			logger.Error("session prune failed", "error", perr)
			return
		}
		if pruned > 0 {
			logger.Info("pruned expired sessions", "count", pruned)
		}
	}); err != nil {
		logger.Error("invalid prune schedule", "schedule", cfg.PruneSchedule, "error", err)
		os.Exit(1)
	}
	pruner.Start()
	defer pruner.Stop()

	corsMiddleware := cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-Handle", "X-User-First-Name", "X-User-Last-Name", "X-User-Language"},
		MaxAge:         300,
	})

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Projects:  httptransport.NewProjectHandler(directoryService, logger),
		Timeslots: httptransport.NewTimeslotHandler(timeslotService, logger),
		Events:    httptransport.NewEventsHandler(hub, logger),
		Chat:      chatHandler,
		Identity:  httptransport.RequireIdentity(directoryService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			corsMiddleware,
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("slotsync API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// repositories groups the persistence interfaces the services consume so the
// SQLite and in-memory backends stay interchangeable.
type repositories struct {
	users     persistence.UserRepository
	projects  persistence.ProjectRepository
	timeslots persistence.TimeslotRepository
}

func openStorage(cfg config.Config, logger *slog.Logger) (repositories, func() error, error) {
	if cfg.SQLiteDSN == "" {
		logger.Warn("no SQLite DSN configured, falling back to in-memory storage")
		store := memory.Open()
		return repositories{users: store, projects: store, timeslots: store}, store.Close, nil
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		return repositories{}, nil, err
	}
	return repositories{
		users:     sqlite.NewUserRepository(pool),
		projects:  sqlite.NewProjectRepository(pool),
		timeslots: sqlite.NewTimeslotRepository(pool),
	}, pool.Close, nil
}

func openSessionStore(cfg config.Config, logger *slog.Logger) (session.Store, error) {
	if cfg.SessionDir == "" {
		logger.Warn("no session directory configured, conversation state will not survive restarts")
		return session.NewMemoryStore(cfg.SessionTTL), nil
	}
	return session.OpenBadger(cfg.SessionDir, cfg.SessionTTL)
}
