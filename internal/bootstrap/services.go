package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/stagehand-app/stagehand/config"
	"github.com/stagehand-app/stagehand/internal/adapters/completionworker"
	"github.com/stagehand-app/stagehand/internal/adapters/escalation"
	"github.com/stagehand-app/stagehand/internal/core"
	"github.com/stagehand-app/stagehand/internal/data/docrender"
	"github.com/stagehand-app/stagehand/internal/data/mailer"
	"github.com/stagehand-app/stagehand/internal/data/memcache"
	"github.com/stagehand-app/stagehand/internal/data/recordstore"
	"github.com/stagehand-app/stagehand/internal/data/rediscache"
	"github.com/stagehand-app/stagehand/internal/dispatch"
	"github.com/stagehand-app/stagehand/internal/domain/model"
	"github.com/stagehand-app/stagehand/internal/observability/statsd"
	"github.com/stagehand-app/stagehand/internal/retry"
	"github.com/stagehand-app/stagehand/internal/service"
)

// ServiceDeps holds the shared dependencies handed to NewServices.
type ServiceDeps struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient // nil when Redis is disabled
	Logger      *slog.Logger
}

// ServiceContainer holds the wired runtime. The completion service is
// exposed so an embedding API layer can drive Phase 1 directly.
type ServiceContainer struct {
	Store      core.RecordStore
	Cache      core.CacheRepository
	Completion *service.CompletionService
	Escalation *escalation.Runner
	Queue      *dispatch.Queue
	Worker     *completionworker.Worker
	Dispatch   http.Handler
	Metrics    statsd.Sink
}

// ConnectRedis builds the Redis client when enabled. Callers own Close.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func ConnectRedis(cfg config.RedisConfig) redis.UniversalClient {
	if !cfg.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewServices wires the full runtime from configuration.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metricsSink, err := buildMetrics(cfg.Observability.Metrics, logger)
	if err != nil {
		return nil, err
	}

	cache := buildCache(deps.RedisClient)

	store, err := recordstore.NewClient(recordstore.Options{
		Config: cfg.RecordStore,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("record store client: %w", err)
	}

	mail := mailer.NewClient(mailer.Options{
		Config: cfg.Mailer,
		Logger: logger,
	})

	exec := retry.NewExecutor(retry.Options{
		Config: retry.Config{
			MaxAttempts: cfg.RecordStore.MaxAttempts,
			BaseDelay:   cfg.RecordStore.BaseDelay,
		},
		Logger: logger,
	})

	queue := dispatch.NewQueue(cfg.Worker.QueueSize, logger)

	dispatcher, err := buildDispatcher(cfg.Dispatch, queue)
	if err != nil {
		return nil, err
	}

	completion, err := service.NewCompletionService(service.CompletionServiceOptions{
		Store:      store,
		Dispatcher: dispatcher,
		Exec:       exec,
		Config:     cfg.Completion,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("completion service: %w", err)
	}

	escalationRunner, err := buildEscalation(cfg, store, mail, cache, exec, logger, metricsSink)
	if err != nil {
		return nil, err
	}

	worker, err := buildWorker(cfg, store, mail, queue, exec, logger, metricsSink)
	if err != nil {
		return nil, err
	}

	return &ServiceContainer{
		Store:      store,
		Cache:      cache,
		Completion: completion,
		Escalation: escalationRunner,
		Queue:      queue,
		Worker:     worker,
		Dispatch:   dispatch.Handler(cfg.Dispatch.SharedSecret, queue, logger),
		Metrics:    metricsSink,
	}, nil
}

func buildMetrics(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (statsd.Sink, error) {
	if !cfg.IsEnabled() {
		return nil, nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("statsd client: %w", err)
	}
	return client, nil
}

// buildCache selects the claim and counter store: Redis when configured,
// otherwise the in-process TTL cache. The in-process cache only serialises
// runs within one process, which is the common single-instance deployment.
//
//nolint:ireturn // cache backend is chosen at runtime.
func buildCache(client redis.UniversalClient) core.CacheRepository {
	if client != nil {
		return rediscache.New(client)
	}
	return memcache.New()
}

// buildDispatcher picks in-process or remote dispatch. An endpoint in the
// config means Phase 2 runs in another process.
//
//nolint:ireturn // dispatcher backend is chosen at runtime.
func buildDispatcher(cfg config.DispatchConfig, queue *dispatch.Queue) (core.Dispatcher, error) {
	if cfg.Endpoint == "" {
		return queue, nil
	}
	client, err := dispatch.NewHTTPClient(dispatch.HTTPClientOptions{
		Endpoint: cfg.Endpoint,
		Secret:   cfg.SharedSecret,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch client: %w", err)
	}
	return client, nil
}

func buildEscalation(
	cfg *config.AppConfig,
	store core.RecordStore,
	mail core.Mailer,
	cache core.CacheRepository,
	exec *retry.Executor,
	logger *slog.Logger,
	metricsSink statsd.Sink,
) (*escalation.Runner, error) {
	policy, err := model.NewEscalationPolicy(cfg.Escalation.LevelThresholds)
	if err != nil {
		return nil, fmt.Errorf("escalation policy: %w", err)
	}

	gate, err := service.NewMuteGate(service.MuteGateOptions{
		Store:  store,
		Exec:   exec,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("mute gate: %w", err)
	}

	limiter, err := service.NewReminderRateLimiter(service.ReminderRateLimiterOptions{
		Cache:  cache,
		Limit:  cfg.Escalation.RecipientReminderLimit,
		Window: cfg.Escalation.RecipientReminderWindow,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("reminder rate limiter: %w", err)
	}

	svc, err := service.NewEscalationService(service.EscalationServiceOptions{
		Store:   store,
		Mailer:  mail,
		Cache:   cache,
		Gate:    gate,
		Limiter: limiter,
		Exec:    exec,
		Policy:  policy,
		Config:  cfg.Escalation,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("escalation service: %w", err)
	}

	return escalation.NewRunner(escalation.RunnerOptions{
		Service:  svc,
		Interval: cfg.Escalation.Interval,
		Logger:   logger,
		Metrics:  metricsSink,
	})
}

func buildWorker(
	cfg *config.AppConfig,
	store core.RecordStore,
	mail core.Mailer,
	queue *dispatch.Queue,
	exec *retry.Executor,
	logger *slog.Logger,
	metricsSink statsd.Sink,
) (*completionworker.Worker, error) {
	renderer, err := docrender.NewHTMLRenderer()
	if err != nil {
		return nil, fmt.Errorf("document renderer: %w", err)
	}

	docs, err := service.NewDocumentService(service.DocumentServiceOptions{
		Store:    store,
		Renderer: renderer,
		Exec:     exec,
		LogoURL:  cfg.Completion.ReportLogoURL,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("document service: %w", err)
	}

	return completionworker.NewWorker(completionworker.Options{
		Queue:       queue,
		Store:       store,
		Mailer:      mail,
		Documents:   docs,
		Exec:        exec,
		Concurrency: cfg.Worker.Concurrency,
		Logger:      logger,
		Metrics:     metricsSink,
	})
}
