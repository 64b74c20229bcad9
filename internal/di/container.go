package di

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"browser-replay/internal/application/port/input"
	"browser-replay/internal/application/port/output"
	"browser-replay/internal/application/usecase"
	"browser-replay/internal/infrastructure/browser/rod"
	"browser-replay/internal/infrastructure/browser/semantic"
	"browser-replay/internal/infrastructure/config"
	"browser-replay/internal/infrastructure/llm/openrouter"
	"browser-replay/internal/infrastructure/logger"
	"browser-replay/internal/infrastructure/storage/jsonfile"
	"browser-replay/internal/infrastructure/storage/sqlite"
	"browser-replay/internal/infrastructure/userinteraction"
	"browser-replay/internal/usecase/executor"
	"browser-replay/internal/usecase/planner"
	"browser-replay/internal/usecase/session"
)

type Container struct {
	Config   *config.Config
	Logger   output.LoggerPort
	Pages    output.PageFactory
	LLM      output.LLMPort
	Plans    output.PlanStore
	Results  output.ResultStore
	Compiler input.PlanCompiler
	Executor input.PlanExecutor
	Sessions *session.Registry
	Console  output.UserInteractionPort
	Replay   *usecase.ReplayUseCase

	closers []io.Closer
}

// planResultStore is the persistence surface both backends provide.
type planResultStore interface {
	output.PlanStore
	output.ResultStore
}

type Option func(*options)

type options struct {
	logger  output.LoggerPort
	pages   output.PageFactory
	console output.UserInteractionPort
}

// WithLogger replaces the logger built from configuration.
func WithLogger(l output.LoggerPort) Option {
	return func(o *options) { o.logger = l }
}

// WithPageFactory replaces the rod launcher.
func WithPageFactory(f output.PageFactory) Option {
	return func(o *options) { o.pages = f }
}

func WithConsole(c output.UserInteractionPort) Option {
	return func(o *options) { o.console = c }
}

func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := o.logger
	if log == nil {
		adapter, err := logger.NewLoggerAdapter(cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		log = adapter
	}

	store, closer, err := openStore(cfg.Storage, log)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	var closers []io.Closer
	if closer != nil {
		closers = append(closers, closer)
	}

	pages := o.pages
	if pages == nil {
		pages = rod.NewLauncher(cfg.Browser, log)
	}

	var llm output.LLMPort
	if cfg.LLM.Enabled() {
		llmCfg := openrouter.DefaultConfig(cfg.LLM.APIKey, cfg.LLM.Model)
		if cfg.LLM.BaseURL != "" {
			llmCfg.BaseURL = cfg.LLM.BaseURL
		}
		llmCfg.Logger = log
		llm = openrouter.NewOpenRouterAdapter(llmCfg)
		pages = semantic.NewFactory(pages, llm, cfg.LLM.Semantic, log)
		log.Info("Semantic extraction enabled", "model", cfg.LLM.Model)
	}

	console := o.console
	if console == nil {
		console = userinteraction.NewConsoleUserInteraction()
	}

	compiler := planner.New(log)
	exec := executor.New(pages, cfg.Executor, log)

	return &Container{
		Config:   cfg,
		Logger:   log,
		Pages:    pages,
		LLM:      llm,
		Plans:    store,
		Results:  store,
		Compiler: compiler,
		Executor: exec,
		Sessions: session.NewRegistry(cfg.Session, log),
		Console:  console,
		Replay:   usecase.NewReplayUseCase(compiler, exec, store, store, console, log),
		closers:  closers,
	}, nil
}

func openStore(cfg config.StorageConfig, log output.LoggerPort) (planResultStore, io.Closer, error) {
	switch cfg.Driver {
	case config.StorageSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
				return nil, nil, err
			}
			dsn = filepath.Join(cfg.Dir, "replay.db")
		}
		s, err := sqlite.New(dsn, log)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		s, err := jsonfile.New(cfg.Dir, log)
		return s, nil, err
	}
}

func (c *Container) Close() {
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil && c.Logger != nil {
			c.Logger.Warn("Failed to close resource", "error", err)
		}
	}
	c.closers = nil
	if c.Logger != nil {
		c.Logger.Close()
	}
}
