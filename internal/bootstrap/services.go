package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/openlearn/adaptive-api/config"
	"github.com/openlearn/adaptive-api/internal/adapters/anthropic"
	"github.com/openlearn/adaptive-api/internal/adapters/identity"
	"github.com/openlearn/adaptive-api/internal/adapters/oneroster"
	"github.com/openlearn/adaptive-api/internal/adapters/powerpath"
	"github.com/openlearn/adaptive-api/internal/adapters/qti"
	"github.com/openlearn/adaptive-api/internal/adapters/upstream"
	"github.com/openlearn/adaptive-api/internal/adapters/worker"
	"github.com/openlearn/adaptive-api/internal/core"
	"github.com/openlearn/adaptive-api/internal/data"
	"github.com/openlearn/adaptive-api/internal/observability/statsd"
	"github.com/openlearn/adaptive-api/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	SkillTrees   *service.SkillTreeService
	LessonSkills *service.LessonSkillsService
	Diagnostics  *service.DiagnosticService
	Analysis     *service.QuestionAnalysisService
	Relevance    *service.RelevanceService
	Explanations *service.ExplanationsService
	Gradebook    *service.GradebookService

	KV            core.KVStore
	Worker        *worker.Runner
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires adapters and services from configuration. The context
// is used only for startup work such as OIDC discovery.
func NewServices(ctx context.Context, deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service deps with config are required")
	}
	if deps.RedisClient == nil {
		return nil, errors.New("redis client is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	kv := data.NewRedisKVRepo(deps.RedisClient)
	obs := buildObservability(logger, cfg.Observability)

	platform, err := buildPlatformClients(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	inference, err := anthropic.NewClient(anthropic.Config{
		APIKey:  cfg.Anthropic.APIKey,
		BaseURL: cfg.Anthropic.BaseURL,
		Timeout: cfg.Anthropic.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create inference client: %w", err)
	}

	runner, err := worker.New(worker.Options{
		KV:      kv,
		Logger:  logger,
		Metrics: obs.MetricsSink,
		Limit:   cfg.Worker.Limit,
		Timeout: cfg.Worker.TaskTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create worker runner: %w", err)
	}

	gen := service.Generation{
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
	}

	gradebook, err := service.NewGradebookService(service.GradebookServiceOptions{
		KV:     kv,
		Roster: platform.roster,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create gradebook service: %w", err)
	}

	skillTrees, err := service.NewSkillTreeService(service.SkillTreeServiceOptions{
		KV:         kv,
		Batch:      inference,
		Catalog:    platform.roster,
		Generation: gen,
		Logger:     logger,
		Metrics:    obs.MetricsSink,
	})
	if err != nil {
		return nil, fmt.Errorf("create skill tree service: %w", err)
	}

	lessonSkills, err := service.NewLessonSkillsService(service.LessonSkillsServiceOptions{
		KV:         kv,
		Batch:      inference,
		Catalog:    platform.roster,
		Generation: gen,
		Logger:     logger,
		Metrics:    obs.MetricsSink,
	})
	if err != nil {
		return nil, fmt.Errorf("create lesson skills service: %w", err)
	}

	diagnostics, err := service.NewDiagnosticService(service.DiagnosticServiceOptions{
		KV:         kv,
		Batch:      inference,
		Ledger:     gradebook,
		Results:    platform.roster,
		Responses:  platform.powerpath,
		Generation: gen,
		Logger:     logger,
		Metrics:    obs.MetricsSink,
	})
	if err != nil {
		return nil, fmt.Errorf("create diagnostic service: %w", err)
	}

	analysis, err := service.NewQuestionAnalysisService(service.QuestionAnalysisServiceOptions{
		KV:         kv,
		Batch:      inference,
		Bank:       platform.qti,
		Generation: gen,
		Logger:     logger,
		Metrics:    obs.MetricsSink,
	})
	if err != nil {
		return nil, fmt.Errorf("create question analysis service: %w", err)
	}

	relevance, err := service.NewRelevanceService(service.RelevanceServiceOptions{
		KV:         kv,
		Batch:      inference,
		Bank:       platform.qti,
		Generation: gen,
		Logger:     logger,
		Metrics:    obs.MetricsSink,
	})
	if err != nil {
		return nil, fmt.Errorf("create relevance service: %w", err)
	}

	explanations, err := service.NewExplanationsService(service.ExplanationsServiceOptions{
		KV:         kv,
		Messages:   inference,
		Bank:       platform.qti,
		Runner:     runner,
		Generation: gen,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create explanations service: %w", err)
	}

	return &ServiceContainer{
		SkillTrees:    skillTrees,
		LessonSkills:  lessonSkills,
		Diagnostics:   diagnostics,
		Analysis:      analysis,
		Relevance:     relevance,
		Explanations:  explanations,
		Gradebook:     gradebook,
		KV:            kv,
		Worker:        runner,
		Observability: obs,
	}, nil
}

// platformClients groups the typed clients for the learning-platform APIs.
type platformClients struct {
	roster    *oneroster.Client
	powerpath *powerpath.Client
	qti       *qti.Client
}

func buildPlatformClients(
	ctx context.Context,
	cfg *config.AppConfig,
	logger *slog.Logger,
) (*platformClients, error) {
	var tokens core.TokenSource
	if cfg.Auth.Enabled && cfg.Auth.ClientID != "" {
		source, err := identity.NewTokenSource(ctx, identity.Config{
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			TokenURL:     cfg.Auth.TokenURL,
			IssuerURL:    cfg.Auth.IssuerURL,
			Scopes:       cfg.Auth.Scopes(),
		})
		if err != nil {
			return nil, fmt.Errorf("create token source: %w", err)
		}
		tokens = source
	} else {
		logger.Warn("platform auth disabled, requests are sent without bearer tokens")
	}

	httpClient := &http.Client{Timeout: cfg.Platform.Timeout}

	rosterHTTP, err := upstream.New(upstream.Options{
		BaseURL:    cfg.Platform.OneRosterBaseURL,
		Tokens:     tokens,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create oneroster client: %w", err)
	}
	powerpathHTTP, err := upstream.New(upstream.Options{
		BaseURL:    cfg.Platform.PowerPathBaseURL,
		Tokens:     tokens,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create powerpath client: %w", err)
	}
	qtiHTTP, err := upstream.New(upstream.Options{
		BaseURL:    cfg.Platform.QTIBaseURL,
		Tokens:     tokens,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create qti client: %w", err)
	}

	return &platformClients{
		roster:    oneroster.NewClient(rosterHTTP),
		powerpath: powerpath.NewClient(powerpathHTTP),
		qti:       qti.NewClient(qtiHTTP),
	}, nil
}

// buildObservability configures the metrics sink.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	var sink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.StatsdPrefix,
			Logger:  logger,
		})
		if err != nil {
			logger.Error("failed to initialise statsd client", "error", err)
		} else {
			sink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:   sink,
		MetricsConfig: cfg.Metrics,
	}
}
