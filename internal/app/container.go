// Package app provides the dependency injection container for the application.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"

	"github.com/runoshun/tokenscope/internal/domain"
	"github.com/runoshun/tokenscope/internal/infra/config"
	"github.com/runoshun/tokenscope/internal/infra/gitstore"
	"github.com/runoshun/tokenscope/internal/infra/inference"
	"github.com/runoshun/tokenscope/internal/infra/jsonstore"
	"github.com/runoshun/tokenscope/internal/infra/logging"
	"github.com/runoshun/tokenscope/internal/usecase"
)

// Config holds the application paths.
type Config struct {
	ProjectRoot string // Directory holding .tokenscope
	StateDir    string // Path to <project>/.tokenscope
	RepoRoot    string // Enclosing git worktree, empty outside a repository
}

// newConfig resolves the project root from dir. The nearest ancestor with a
// .tokenscope directory wins; otherwise the enclosing git worktree; otherwise
// dir itself.
func newConfig(dir string) (Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve %s: %w", dir, err)
	}

	repoRoot := ""
	if repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true}); err == nil {
		if wt, err := repo.Worktree(); err == nil {
			repoRoot = wt.Filesystem.Root()
		}
	}

	root := abs
	for d := abs; ; d = filepath.Dir(d) {
		if info, err := os.Stat(domain.ProjectDir(d)); err == nil && info.IsDir() {
			root = d
			break
		}
		if d == repoRoot || d == filepath.Dir(d) {
			if repoRoot != "" {
				root = repoRoot
			}
			break
		}
	}

	return Config{
		ProjectRoot: root,
		StateDir:    domain.ProjectDir(root),
		RepoRoot:    repoRoot,
	}, nil
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	// Ports (interfaces bound to implementations)
	Scripts       domain.ScriptRepository
	State         domain.StateStore
	Tokenizer     domain.Tokenizer
	Completer     domain.Completer
	Streamer      domain.Streamer
	Clock         domain.Clock
	Sleeper       domain.Sleeper
	ConfigLoader  domain.ConfigLoader
	ConfigManager domain.ConfigManager
	Logger        domain.Logger

	// Pointer fields
	AppConfig *domain.Config
	Slog      *slog.Logger
	closer    func() error

	// Configuration
	Config Config
}

// New creates a new Container for the project enclosing dir.
func New(dir string) (*Container, error) {
	cfg, err := newConfig(dir)
	if err != nil {
		return nil, err
	}

	configLoader := config.NewLoader(cfg.StateDir)
	appConfig, err := configLoader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	clock := domain.RealClock{}
	var scripts domain.ScriptRepository
	switch appConfig.Store.Backend {
	case domain.StoreBackendGit:
		if cfg.RepoRoot == "" {
			return nil, errors.New(`store backend "git" requires a git repository`)
		}
		namespace := appConfig.Store.Namespace
		if namespace == "" {
			namespace = domain.DefaultNamespace
		}
		store, err := gitstore.New(cfg.RepoRoot, namespace, clock)
		if err != nil {
			return nil, err
		}
		scripts = store
	case domain.StoreBackendJSON, "":
		scripts = jsonstore.NewScriptStore(cfg.StateDir, clock)
	default:
		return nil, fmt.Errorf("unknown store backend %q", appConfig.Store.Backend)
	}

	level := logging.ParseLevel(appConfig.Log.Level)
	logger := logging.New(cfg.StateDir, level)
	client := inference.New(appConfig.Server)

	return &Container{
		Scripts:       scripts,
		State:         jsonstore.NewStateStore(cfg.StateDir, clock),
		Tokenizer:     client,
		Completer:     client,
		Streamer:      client,
		Clock:         clock,
		Sleeper:       domain.RealSleeper{},
		ConfigLoader:  configLoader,
		ConfigManager: config.NewManager(cfg.StateDir),
		Logger:        logger,
		AppConfig:     appConfig,
		Slog: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})),
		closer: logger.Close,
		Config: cfg,
	}, nil
}

// NewWithDeps creates a new Container with custom dependencies for testing.
func NewWithDeps(cfg Config, appConfig *domain.Config, scripts domain.ScriptRepository, state domain.StateStore, logger domain.Logger) *Container {
	return &Container{
		Scripts:   scripts,
		State:     state,
		Clock:     domain.RealClock{},
		Sleeper:   domain.RealSleeper{},
		Logger:    logger,
		AppConfig: appConfig,
		Slog:      slog.Default(),
		Config:    cfg,
	}
}

// Close releases open log files.
func (c *Container) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// UseCase factory methods

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ConfigManager, c.ConfigLoader)
}

// ShowConfigTemplateUseCase returns a new ShowConfigTemplate use case.
func (c *Container) ShowConfigTemplateUseCase() *usecase.ShowConfigTemplate {
	return usecase.NewShowConfigTemplate()
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig(c.ConfigManager)
}

// LoadStateUseCase returns a new LoadState use case.
func (c *Container) LoadStateUseCase() *usecase.LoadState {
	return usecase.NewLoadState(c.State, c.Logger)
}

// SaveStateUseCase returns a new SaveState use case.
func (c *Container) SaveStateUseCase() *usecase.SaveState {
	return usecase.NewSaveState(c.State)
}

// TokenizeTextUseCase returns a new TokenizeText use case.
func (c *Container) TokenizeTextUseCase() *usecase.TokenizeText {
	return usecase.NewTokenizeText(c.Tokenizer, c.Sleeper, c.Logger, c.AppConfig.Tokenize)
}

// TokenizeScriptUseCase returns a new TokenizeScript use case.
func (c *Container) TokenizeScriptUseCase() *usecase.TokenizeScript {
	return usecase.NewTokenizeScript(c.TokenizeTextUseCase())
}

// SubmitScriptUseCase returns a new SubmitScript use case.
func (c *Container) SubmitScriptUseCase() *usecase.SubmitScript {
	return usecase.NewSubmitScript(c.Completer, c.Logger, c.AppConfig.Editor)
}

// StreamScriptUseCase returns a new StreamScript use case.
func (c *Container) StreamScriptUseCase() *usecase.StreamScript {
	return usecase.NewStreamScript(c.Streamer, c.Logger)
}

// ApplyEditUseCase returns a new ApplyEdit use case.
func (c *Container) ApplyEditUseCase() *usecase.ApplyEdit {
	return usecase.NewApplyEdit(c.TokenizeTextUseCase(), c.Logger)
}

// SaveScriptUseCase returns a new SaveScript use case.
func (c *Container) SaveScriptUseCase() *usecase.SaveScript {
	return usecase.NewSaveScript(c.Scripts, c.Logger)
}

// LoadScriptUseCase returns a new LoadScript use case.
func (c *Container) LoadScriptUseCase() *usecase.LoadScript {
	return usecase.NewLoadScript(c.Scripts, c.State, c.Logger)
}

// ListScriptsUseCase returns a new ListScripts use case.
func (c *Container) ListScriptsUseCase() *usecase.ListScripts {
	return usecase.NewListScripts(c.Scripts)
}

// DeleteScriptUseCase returns a new DeleteScript use case.
func (c *Container) DeleteScriptUseCase() *usecase.DeleteScript {
	return usecase.NewDeleteScript(c.Scripts, c.Logger)
}

// ImportScriptUseCase returns a new ImportScript use case.
func (c *Container) ImportScriptUseCase() *usecase.ImportScript {
	return usecase.NewImportScript(c.TokenizeScriptUseCase(), c.Scripts, c.State, c.Logger)
}
