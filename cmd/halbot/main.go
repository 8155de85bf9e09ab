package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"halbot/internal/adapter/discord"
	"halbot/internal/adapter/llm"
	"halbot/internal/adapter/tool"
	"halbot/internal/domain"
	"halbot/internal/infra/config"
	"halbot/internal/infra/logger"
	"halbot/internal/infra/tracer"
	"halbot/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   = flag.String("config", "config.yaml", "path to config file")
		providerName = flag.String("provider", "", "override llm.default_provider")
		model        = flag.String("model", "", "override the provider's model")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closeLogger()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	if cfg.Discord.Token == "" {
		return fmt.Errorf("discord token not configured (set HALBOT_DISCORD_TOKEN)")
	}

	provider, err := buildProvider(cfg, *providerName, *model, log)
	if err != nil {
		return err
	}

	registry, err := buildTools(cfg, log)
	if err != nil {
		return err
	}

	bot := discord.New(cfg.Discord.Token, log,
		discord.WithMentionOnly(cfg.Discord.MentionOnly),
	)
	if err := bot.Start(ctx); err != nil {
		return fmt.Errorf("start discord: %w", err)
	}
	defer func() {
		if err := bot.Stop(context.Background()); err != nil {
			log.Warn("discord shutdown failed", "error", err)
		}
	}()

	dispatcher := usecase.NewDispatcher(bot, cfg.Discord.MaxMessageLength, log)
	orch := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Provider:             provider,
		Tools:                registry,
		Messenger:            bot,
		Logger:               log,
		SystemPrompt:         cfg.Agent.SystemPrompt,
		MaxToolRounds:        cfg.Agent.MaxToolRounds,
		MaxConversationDepth: cfg.Agent.MaxConversationDepth,
		BotUserID:            bot.BotUserID(),
		Dispatcher:           dispatcher,
	})
	bot.SetHandler(orch.HandleMessage)

	log.Info("halbot running",
		"provider", provider.Name(),
		"mention_only", cfg.Discord.MentionOnly,
	)

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

// buildProvider resolves the active provider config and wraps it with the
// circuit breaker when enabled.
func buildProvider(cfg *config.Config, nameOverride, modelOverride string, log *slog.Logger) (domain.Provider, error) {
	name := cfg.LLM.DefaultProvider
	if nameOverride != "" {
		name = nameOverride
	}

	pc, ok := cfg.Provider(name)
	if !ok {
		return nil, fmt.Errorf("llm provider %q not configured", name)
	}
	if modelOverride != "" {
		pc.Model = modelOverride
	}
	if pc.APIKey == "" {
		return nil, fmt.Errorf("llm provider %q: api key not configured", name)
	}

	var provider domain.Provider
	switch pc.Type {
	case "anthropic":
		provider = llm.NewAnthropicProvider(pc, log)
	case "openai":
		provider = llm.NewOpenAIProvider(pc, log)
	default:
		return nil, fmt.Errorf("llm provider %q: unsupported type %q", name, pc.Type)
	}

	if cfg.LLM.CircuitBreaker.Enabled {
		provider = llm.NewCircuitBreakerProvider(provider, cfg.LLM.CircuitBreaker, log)
	}
	return provider, nil
}

// buildTools registers the tool set. Tools listed in tools.privileged are
// restricted to the admin user.
func buildTools(cfg *config.Config, log *slog.Logger) (*tool.Registry, error) {
	registry := tool.NewRegistry(cfg.Discord.AdminUserID, log)

	register := func(t domain.Tool) error {
		if slices.Contains(cfg.Tools.Privileged, t.Name()) {
			return registry.RegisterPrivileged(t)
		}
		return registry.Register(t)
	}

	if err := register(tool.NewRNGTool(log)); err != nil {
		return nil, err
	}

	// Image generation rides on an openai-type provider's credentials.
	if pc, ok := imageProvider(cfg); ok {
		images := llm.NewImageClient(pc, cfg.Tools.Image, log)
		if err := register(tool.NewImageTool(images, cfg.Tools.Image.MaxImages, log)); err != nil {
			return nil, err
		}
	} else {
		log.Warn("no openai provider configured, image generation disabled")
	}

	if cfg.Tools.NasaAPIKey != "" {
		if err := register(tool.NewAPODTool(cfg.Tools.NasaAPIKey, log)); err != nil {
			return nil, err
		}
	} else {
		log.Warn("nasa api key not configured, apod tool disabled")
	}

	return registry, nil
}

// imageProvider finds credentials for the image endpoint: the default
// provider if it is openai-typed, else the first openai provider.
func imageProvider(cfg *config.Config) (config.ProviderConfig, bool) {
	if pc, ok := cfg.Provider(cfg.LLM.DefaultProvider); ok && pc.Type == "openai" && pc.APIKey != "" {
		return pc, true
	}
	for _, pc := range cfg.LLM.Providers {
		if pc.Type == "openai" && pc.APIKey != "" {
			return pc, true
		}
	}
	return config.ProviderConfig{}, false
}
