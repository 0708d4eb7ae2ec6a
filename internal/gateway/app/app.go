package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"tutorui/internal/gateway/config"
	"tutorui/internal/gateway/handler"
	"tutorui/internal/gateway/server"
	"tutorui/internal/gateway/service/tutor"
	"tutorui/internal/genui"
	"tutorui/internal/llm"
	"tutorui/internal/logging"
)

type App struct {
	cfg     *config.Config
	log     *zap.Logger
	server  *server.Server
	handler http.Handler
	model   llm.Client
	stores  *gatewayStores
}

func New(ctx context.Context, args []string) (*App, error) {
	cfg, err := config.Load(args)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg, logger)
}

// NewWithConfig wires the gateway from an already loaded config.
func NewWithConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog := genui.DefaultCatalog()
	if cfg.CatalogPath != "" {
		c, err := genui.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		catalog = c
	}

	model, err := llm.New(ctx, cfg.LLM, logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model client: %w", err)
	}
	if cfg.FakeModelDefaulted {
		logger.Warn("LLM_PROVIDER is not set and no GEMINI_API_KEY was found; serving pages from the fake model",
			zap.String("env", cfg.Env),
		)
	}
	logger.Info("model client ready", zap.String("provider", model.Name()), zap.String("model", cfg.LLM.Model))

	orch, err := genui.New(model, genui.WithCatalog(catalog), genui.WithLogger(logger.Named("genui")))
	if err != nil {
		_ = model.Close()
		return nil, fmt.Errorf("failed to initialize orchestrator: %w", err)
	}

	stores, err := initStores(ctx, cfg, logger)
	if err != nil {
		_ = model.Close()
		return nil, err
	}

	svc := tutor.New(orch,
		tutor.WithEventLog(stores.events),
		tutor.WithArchive(stores.archive),
		tutor.WithRecentLimit(cfg.Activity.RecentLimit),
		tutor.WithPromptHook(llm.NewLogHook(logger.Named("llm.prompt"))),
		tutor.WithLogger(logger.Named("tutor")),
	)
	router := server.NewRouter(handler.New(svc, logger.Named("handler")), logger.Named("http"))

	return &App{
		cfg:     cfg,
		log:     logger,
		server:  server.New(cfg.Port, router, logger),
		handler: router,
		model:   model,
		stores:  stores,
	}, nil
}

func (a *App) Logger() *zap.Logger { return a.log }

func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Start() error {
	return a.server.Start()
}

// Shutdown stops the server and releases the model client and database.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	return errors.Join(err, a.model.Close(), a.stores.Close())
}
