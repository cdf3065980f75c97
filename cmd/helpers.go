package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/karacho11/first-chatbot-back/chatengine/application"
	"github.com/karacho11/first-chatbot-back/chatengine/cache"
	"github.com/karacho11/first-chatbot-back/chatengine/domain"
	"github.com/karacho11/first-chatbot-back/chatengine/history"
	"github.com/karacho11/first-chatbot-back/chatengine/profile"
	"github.com/karacho11/first-chatbot-back/chatengine/providers"
	"github.com/karacho11/first-chatbot-back/chatengine/repository"
	"github.com/karacho11/first-chatbot-back/chatengine/retrieval"
	"github.com/karacho11/first-chatbot-back/chatengine/snapshot"
	coreconfig "github.com/karacho11/first-chatbot-back/core/config"
	domainChat "github.com/karacho11/first-chatbot-back/domains/chat"
	"github.com/karacho11/first-chatbot-back/infrastructure/valkey"
	"github.com/karacho11/first-chatbot-back/pkg/metrics"
	"github.com/karacho11/first-chatbot-back/pkg/userqueue"
)

const memoryCleanupInterval = time.Minute

// engine holds everything the commands build from the configuration.
type engine struct {
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	cache     *cache.Cache
	history   *history.Store
	snapshots *snapshot.Store
	queue     *userqueue.Pool
	chat      domainChat.IChatUsecase

	closers []func()
}

// Close releases the engine resources in reverse order of creation.
func (e *engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func newBackend(cfg *coreconfig.Config) (domain.Backend, func(), error) {
	if !cfg.Valkey.Enabled {
		logrus.Warn("[CACHE] Valkey disabled, using in-process cache; data is lost on restart")
		backend := repository.NewMemoryBackend(memoryCleanupInterval)
		return backend, backend.Close, nil
	}

	client, err := valkey.NewClient(valkey.Config{
		Address:   cfg.Valkey.Address,
		Password:  cfg.Valkey.Password,
		DB:        cfg.Valkey.DB,
		KeyPrefix: cfg.Valkey.KeyPrefix,
	})
	if err != nil {
		return nil, nil, err
	}
	logrus.WithField("address", cfg.Valkey.Address).Info("[CACHE] Connected to Valkey")
	return repository.NewValkeyBackend(client), client.Close, nil
}

// newProviders returns the completion provider and the embedding provider for cfg.
func newProviders(ctx context.Context, cfg *coreconfig.Config) (domain.CompletionProvider, domain.EmbeddingProvider, error) {
	switch cfg.AI.Provider {
	case coreconfig.ProviderGemini:
		if cfg.APIKeys.Gemini == "" {
			return nil, nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
		p, err := providers.NewGeminiProvider(ctx, cfg.APIKeys.Gemini)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	default:
		if cfg.APIKeys.OpenAI == "" {
			return nil, nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		p := providers.NewOpenAIProvider(cfg.APIKeys.OpenAI, cfg.AI.BaseURL)
		return p, p, nil
	}
}

// buildStores wires the cache and the stores on top of it. Commands that
// never call a model use it directly.
func buildStores(ctx context.Context, cfg *coreconfig.Config) (*engine, error) {
	e := &engine{registry: prometheus.NewRegistry()}
	e.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	e.metrics = metrics.NewMetrics(e.registry)

	backend, closeBackend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, closeBackend)
	e.cache = cache.New(backend, e.metrics)

	e.queue = userqueue.NewPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize)
	queueCtx, cancelQueue := context.WithCancel(ctx)
	e.queue.Start(queueCtx)
	e.closers = append(e.closers, func() {
		e.queue.Stop()
		cancelQueue()
	})

	e.history = history.NewStore(e.cache,
		history.WithMaxTurns(cfg.History.MaxTurns),
		history.WithTTL(cfg.History.TTL),
		history.WithWriteQueue(e.queue),
		history.WithMetrics(e.metrics),
	)
	e.snapshots = snapshot.NewStore(e.cache, cfg.Snapshot.TTL)
	return e, nil
}

// buildEngine wires the full chat path.
func buildEngine(ctx context.Context, cfg *coreconfig.Config) (*engine, error) {
	e, err := buildStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	completion, embedder, err := newProviders(ctx, cfg)
	if err != nil {
		e.Close()
		return nil, err
	}

	e.chat = application.NewChatService(application.Deps{
		Completion: completion,
		Ranker:     retrieval.NewRanker(embedder, e.metrics),
		History:    e.history,
		Profiles:   profile.NewCache(e.cache, cfg.Profile.TTL),
		Snapshots:  e.snapshots,
		Metrics:    e.metrics,
	}, application.DefaultsFromConfig(cfg.AI))

	logrus.WithFields(logrus.Fields{
		"provider": cfg.AI.Provider,
		"model":    cfg.AI.DefaultModel,
		"policy":   cfg.AI.ContextPolicy,
	}).Info("[ENGINE] Chat engine ready")
	return e, nil
}
