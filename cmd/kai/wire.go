package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/ShayCichocki/kai/internal/agent"
	"github.com/ShayCichocki/kai/internal/config"
	"github.com/ShayCichocki/kai/internal/controller"
	"github.com/ShayCichocki/kai/internal/events"
	kexec "github.com/ShayCichocki/kai/internal/exec"
	"github.com/ShayCichocki/kai/internal/llm"
	"github.com/ShayCichocki/kai/internal/logging"
	"github.com/ShayCichocki/kai/internal/memory"
	"github.com/ShayCichocki/kai/internal/notify"
	"github.com/ShayCichocki/kai/internal/pipeline"
	"github.com/ShayCichocki/kai/internal/scm"
	"github.com/ShayCichocki/kai/internal/state"
	"github.com/ShayCichocki/kai/internal/tools"
	"github.com/ShayCichocki/kai/internal/verify"
	"github.com/ShayCichocki/kai/internal/version"
)

// app holds everything a command may need. Agents and the reasoner are
// only built for commands that call a model.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     state.Store
	workspace *notify.Workspace
	scm       *scm.Client

	reasoner   llm.Reasoner
	controller *controller.Controller
	pipeline   *pipeline.Orchestrator
	sinks      events.Multi

	closers []func() error
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

// newApp wires the stores and, when withAgents is set, the model-backed
// components.
func newApp(ctx context.Context, withAgents bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("version", version.Get()))

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, closeLog)

	a.store = state.OpenStore(cfg.Storage.Path, cfg.Storage.InMemory, logger)
	a.closers = append(a.closers, a.store.Close)

	if ws, err := notify.Open(cfg.SCM.RepoPath, logger); err != nil {
		logger.Warn("workspace unavailable", zap.Error(err))
	} else {
		a.workspace = ws
		a.closers = append(a.closers, ws.Close)
	}

	a.scm = buildSCM(ctx, cfg.SCM, logger)
	a.sinks = events.Multi{events.NewLog(logger)}
	if cfg.Events.NATSURL != "" {
		nc, err := nats.Connect(cfg.Events.NATSURL, nats.Name("kai"))
		if err != nil {
			logger.Warn("nats unavailable, events stay local", zap.String("url", cfg.Events.NATSURL), zap.Error(err))
		} else {
			a.sinks = append(a.sinks, events.NewNATS(nc, cfg.Events.SubjectPrefix, logger))
			a.closers = append(a.closers, nc.Drain)
		}
	}

	if withAgents {
		if err := a.wireAgents(ctx); err != nil {
			a.Close()
			return nil, err
		}
	} else {
		a.pipeline = pipeline.New(pipeline.Options{
			Store:      a.store,
			SCM:        a.scm,
			Stop:       a.stopSignal(),
			Graph:      memory.NewDual(nil, a.store, logger),
			BaseBranch: cfg.Pipeline.BaseBranch,
			Logger:     logger,
		})
	}
	return a, nil
}

func (a *app) wireAgents(ctx context.Context) error {
	cfg := a.cfg
	reasoner, err := buildReasoner(cfg)
	if err != nil {
		return err
	}
	if cfg.LLM.RequestsPerMinute > 0 {
		reasoner = llm.NewRateLimited(reasoner, cfg.LLM.RequestsPerMinute, cfg.LLM.Burst)
	}
	a.reasoner = reasoner

	mem, closeMem, err := buildMemory(ctx, cfg.Memory, a.store, a.logger)
	if err != nil {
		return err
	}
	if closeMem != nil {
		a.closers = append(a.closers, closeMem)
	}

	runner := kexec.NewRunner()
	registry := tools.NewRegistry(
		tools.NewFileSystem(cfg.Agents.Workdir),
		tools.NewGoCompile(runner),
		tools.NewRunTests(runner),
		tools.NewGitHub(a.scm),
	)

	overrides, err := config.LoadRoleProfiles(cfg.Agents.RolesFile)
	if err != nil {
		return err
	}
	factory := &agent.Factory{
		Reasoner:  reasoner,
		Memory:    mem,
		Tools:     registry,
		Defaults:  agent.ConfigFromSettings(cfg.Agents),
		Overrides: overrides,
		Prompts:   agent.DefaultPromptBuilder{},
		Logger:    a.logger,
	}
	if a.workspace != nil {
		factory.Decisions = a.workspace
	}
	agents, err := factory.BuildAll()
	if err != nil {
		return err
	}

	gate := verify.NewGate(verify.Options{
		Judge:   reasoner,
		Tools:   registry,
		Secrets: verify.GitleaksScanner{},
		Logger:  a.logger,
	})
	a.controller = controller.New(controller.Options{
		Planner:  reasoner,
		Agents:   controller.FromAgents(agents),
		Verifier: gate,
		Memory:   mem,
		Logger:   a.logger,
	})
	a.pipeline = pipeline.New(pipeline.Options{
		Store:      a.store,
		Analyzer:   reasoner,
		Processor:  a.controller,
		SCM:        a.scm,
		Stop:       a.stopSignal(),
		Graph:      mem,
		BaseBranch: cfg.Pipeline.BaseBranch,
		Logger:     a.logger,
	})
	return nil
}

func (a *app) stopSignal() pipeline.StopSignal {
	if a.workspace == nil {
		return nil
	}
	return a.workspace
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildReasoner(cfg *config.Config) (llm.Reasoner, error) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "ollama":
		return llm.NewOllama(cfg.LLM.Model, cfg.LLM.OllamaURL)
	case "anthropic", "":
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return nil, err
		}
		return llm.NewAnthropic(llm.ClientConfig{
			Model:         cfg.LLM.Model,
			APIKey:        key,
			MaxTokens:     cfg.LLM.MaxTokens,
			BaseURL:       cfg.LLM.BaseURL,
			UseAWSBedrock: cfg.LLM.UseBedrock,
			AWSRegion:     cfg.LLM.AWSRegion,
			AWSProfile:    cfg.LLM.AWSProfile,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// buildMemory layers the configured episode store over the state store's
// fact graph.
func buildMemory(ctx context.Context, cfg config.MemoryConfig, facts memory.FactStore, logger *zap.Logger) (memory.Layer, func() error, error) {
	var embedder memory.Embedder
	switch strings.ToLower(cfg.Embedder.Provider) {
	case "openai":
		e, err := memory.NewLangChainEmbedder(cfg.Embedder.BaseURL, cfg.Embedder.Model, cfg.Embedder.Token, cfg.Embedder.Dimensions)
		if err != nil {
			return nil, nil, err
		}
		embedder = e
	default:
		embedder = memory.NewHashEmbedder(cfg.Embedder.Dimensions)
	}

	var (
		episodes memory.EpisodeStore
		closer   func() error
	)
	switch strings.ToLower(cfg.Backend) {
	case "qdrant":
		q, err := memory.NewQdrantEpisodes(ctx, memory.QdrantConfig{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			UseTLS:     cfg.Qdrant.UseTLS,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
		}, embedder)
		if err != nil {
			logger.Warn("qdrant unavailable, episodes disabled", zap.Error(err))
			break
		}
		episodes, closer = q, q.Close
	case "none":
	default:
		c, err := memory.NewChromemEpisodes(cfg.Path, embedder)
		if err != nil {
			logger.Warn("chromem unavailable, episodes disabled", zap.Error(err))
			break
		}
		episodes = c
	}
	return memory.NewDual(episodes, facts, logger), closer, nil
}

func buildSCM(ctx context.Context, cfg config.SCMConfig, logger *zap.Logger) *scm.Client {
	client := &scm.Client{}
	if cfg.RepoPath != "" {
		client.Branches = scm.NewGitRepo(cfg.RepoPath)
	}
	if cfg.GitHubToken != "" && cfg.GitHubRepo != "" {
		gh, err := scm.NewGitHub(ctx, cfg.GitHubToken, cfg.GitHubRepo)
		if err != nil {
			logger.Warn("github unavailable, pull requests disabled", zap.Error(err))
		} else {
			client.PRs = gh
		}
	}
	return client
}
