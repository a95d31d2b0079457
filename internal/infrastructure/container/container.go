// Package container provides dependency injection using Uber FX
package container

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/platewise/v1/internal/application/planner"
	"github.com/platewise/v1/internal/domain/plan"
	"github.com/platewise/v1/internal/infrastructure/ai"
	"github.com/platewise/v1/internal/infrastructure/config"
	"github.com/platewise/v1/internal/infrastructure/http/server"
	"github.com/platewise/v1/internal/infrastructure/monitoring"
	"github.com/platewise/v1/internal/infrastructure/persistence/memory"
	"github.com/platewise/v1/internal/infrastructure/persistence/postgres"
	redisrepo "github.com/platewise/v1/internal/infrastructure/persistence/redis"
	"github.com/platewise/v1/internal/ports/inbound"
	"github.com/platewise/v1/internal/ports/outbound"
	"github.com/platewise/v1/pkg/logger"
)

// Module provides all dependency injection modules
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	CorpusModule,
	CacheModule,
	AIModule,
	PlannerModule,
	HTTPModule,
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func() (*config.Config, error) {
		return config.Load("")
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
	},
)

// CorpusModule provides the recipe corpus. The pgvector corpus is primary;
// when the database is unreachable in development, an empty in-memory
// corpus stands in so the process still boots.
var CorpusModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) outbound.RecipeCorpus {
		db, err := postgres.Connect(postgres.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			Debug:    cfg.App.Debug,
		}, log)
		if err != nil {
			if cfg.IsProduction() {
				log.Fatal("database connection failed", zap.Error(err))
			}
			log.Warn("database unreachable, using empty in-memory corpus", zap.Error(err))
			return memory.NewRecipeCorpus()
		}
		return postgres.NewRecipeCorpus(db, log)
	},
)

// CacheModule provides the cache repository: Redis when enabled, in-memory
// otherwise.
var CacheModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) outbound.CacheRepository {
		if cfg.Redis.Enabled {
			client, err := redisrepo.NewClient(context.Background(), redisrepo.Config{
				Host:     cfg.Redis.Host,
				Port:     cfg.Redis.Port,
				Password: cfg.Redis.Password,
				Database: cfg.Redis.Database,
			}, log)
			if err == nil {
				return redisrepo.NewCacheRepository(client, log)
			}
			log.Warn("redis unreachable, using in-memory cache", zap.Error(err))
		}
		return memory.NewCacheRepository()
	},
)

// AIModule provides the generative provider serving both the embedding and
// generation ports.
var AIModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) *ai.Provider {
		return ai.NewProvider(ai.Config{
			Provider:       cfg.AI.Provider,
			OpenAIKey:      cfg.AI.OpenAIKey,
			OpenAIBaseURL:  cfg.AI.OpenAIBaseURL,
			OpenAIModel:    cfg.AI.OpenAIModel,
			OllamaBaseURL:  cfg.AI.OllamaHost,
			OllamaModel:    cfg.AI.OllamaModel,
			EmbeddingModel: cfg.AI.EmbeddingModel,
			Timeout:        cfg.AI.Timeout,
			Temperature:    cfg.AI.Temperature,
			MaxTokens:      cfg.AI.MaxTokens,
		}, log)
	},
	func(p *ai.Provider) outbound.EmbeddingService { return p },
	func(p *ai.Provider) outbound.TextGenerator { return p },
)

// PlannerModule provides the planning service and its metrics.
var PlannerModule = fx.Provide(
	monitoring.NewPlannerMetrics,
	func(
		cfg *config.Config,
		embedder outbound.EmbeddingService,
		corpus outbound.RecipeCorpus,
		generator outbound.TextGenerator,
		cache outbound.CacheRepository,
		metrics *monitoring.PlannerMetrics,
		log *zap.Logger,
	) inbound.PlanService {
		return planner.NewService(
			planner.Config{
				K: cfg.Planner.K,
				Weights: plan.ScoreWeights{
					Calories: cfg.Planner.WeightCalories,
					Protein:  cfg.Planner.WeightProtein,
					Carbs:    cfg.Planner.WeightCarbs,
					Fat:      cfg.Planner.WeightFat,
				},
				MaxRepairs:        cfg.Planner.MaxRepairs,
				RejectMultiplier:  cfg.Planner.RejectMultiplier,
				EmbedTimeout:      cfg.Planner.EmbedTimeout,
				SearchTimeout:     cfg.Planner.SearchTimeout,
				GenerateTimeout:   cfg.Planner.GenerateTimeout,
				DisableGeneration: cfg.Planner.DisableGeneration,
			},
			embedder, corpus, generator, cache, metrics, log,
		)
	},
)

// HTTPModule provides the HTTP server
var HTTPModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger, svc inbound.PlanService, corpus outbound.RecipeCorpus) *server.Server {
		return server.NewServer(cfg, log, svc, corpus)
	},
)

// LifecycleModule wires startup and shutdown
var LifecycleModule = fx.Invoke(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, srv *server.Server) {
		var stopTracing monitoring.ShutdownFunc

		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				shutdown, err := monitoring.InitTracing(ctx, monitoring.TracingConfig{
					Enabled:     cfg.Monitoring.TracingEnabled,
					Endpoint:    cfg.Monitoring.OTLPEndpoint,
					ServiceName: cfg.App.Name,
					Version:     cfg.App.Version,
				}, log)
				if err != nil {
					return err
				}
				stopTracing = shutdown

				go func() {
					if err := srv.Start(); err != nil {
						log.Error("HTTP server stopped unexpectedly", zap.Error(err))
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return err
				}
				if stopTracing != nil {
					return stopTracing(shutdownCtx)
				}
				return nil
			},
		})
	},
)
