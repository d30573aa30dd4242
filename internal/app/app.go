// Package app builds the ranking services from configuration. Both the
// worker manager and the operator CLI start from here.
package app

import (
	"context"
	"fmt"
	"time"

	"supplier-ranking/internal/common/config"
	"supplier-ranking/internal/common/database"
	"supplier-ranking/internal/common/logger"
	"supplier-ranking/internal/ranking/cache"
	"supplier-ranking/internal/ranking/publish"
	"supplier-ranking/internal/ranking/query"
	"supplier-ranking/internal/ranking/recompute"
	"supplier-ranking/internal/ranking/scoring"
	"supplier-ranking/internal/repository"
	"supplier-ranking/internal/repository/postgres"
)

// Backends are the adapters the services run on. Cache and Publisher are
// optional.
type Backends struct {
	Store     repository.Store
	Cache     *cache.RankingCache
	Publisher *publish.IndexPublisher
}

type Services struct {
	Store        repository.Store
	Orchestrator *recompute.Orchestrator
	Query        *query.Service
	Location     *time.Location

	postgres *database.PostgresClient
	redis    *database.RedisClient
	search   *database.ElasticsearchClient
}

// New wires the orchestrator and the query service over b.
func New(cfg *config.Config, b Backends, log logger.Logger, opts ...recompute.Option) (*Services, error) {
	if b.Store == nil {
		return nil, fmt.Errorf("no store configured")
	}
	r := cfg.Ranking
	loc, err := r.Location()
	if err != nil {
		return nil, fmt.Errorf("ranking timezone: %w", err)
	}

	var (
		recomputeOpts []recompute.Option
		queryOpts     []query.Option
	)
	if b.Cache != nil {
		recomputeOpts = append(recomputeOpts, recompute.WithCache(b.Cache))
		queryOpts = append(queryOpts, query.WithCache(b.Cache))
	}
	if b.Publisher != nil {
		recomputeOpts = append(recomputeOpts, recompute.WithPublisher(b.Publisher))
	}
	recomputeOpts = append(recomputeOpts, opts...)

	engine := scoring.NewEngine(r.PriceCutoffHour, loc, r.ReliabilityLookbackDays)
	orchestrator := recompute.New(recompute.SourcesFrom(b.Store), engine, recompute.Settings{
		Enabled:               r.Enabled,
		GuardWindow:           r.GuardWindow(),
		Parallelism:           r.Parallelism,
		DefaultWeights:        r.DefaultWeights,
		DefaultWindowDays:     r.DefaultWindowDays,
		DefaultMinSubmissions: r.DefaultMinSubmissions,
		Location:              loc,
	}, log, recomputeOpts...)

	return &Services{
		Store:        b.Store,
		Orchestrator: orchestrator,
		Query:        query.NewService(b.Store, loc, r.TrendWindowDays, log, queryOpts...),
		Location:     loc,
	}, nil
}

// Connect opens PostgreSQL, Redis and Elasticsearch with retries and wires
// the services on them. PostgreSQL is required. Without Redis the services
// run uncached, without Elasticsearch nothing is published.
func Connect(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...recompute.Option) (*Services, error) {
	var pg *database.PostgresClient
	err := RetryWithBackoff(ctx, func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			_ = pg.Close()
			return err
		}
		return nil
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		return nil, err
	}
	log.Info("PostgreSQL connected successfully", nil)

	b := Backends{Store: postgres.NewStore(pg.DB)}

	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err == nil {
		err = RetryWithBackoff(ctx, func() error { return rdb.Ping(ctx) }, 5, time.Second, log, "Redis connection")
	}
	if err != nil {
		log.Warn("ranking cache disabled", map[string]interface{}{"error": err.Error()})
		if rdb != nil {
			_ = rdb.Close()
			rdb = nil
		}
	} else {
		b.Cache = cache.New(rdb.Client, cfg.Ranking.CacheKeyPrefix, config.GetDuration(cfg.Ranking.CacheTTL))
	}

	var es *database.ElasticsearchClient
	if cfg.Ranking.PublishEnabled {
		es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err == nil {
			err = RetryWithBackoff(ctx, func() error { return es.Ping(ctx) }, 5, time.Second, log, "Elasticsearch connection")
		}
		if err != nil {
			log.Warn("ranking index publishing disabled", map[string]interface{}{"error": err.Error()})
			es = nil
		} else {
			b.Publisher = publish.NewIndexPublisher(es.Client, cfg.Ranking.SearchIndex)
		}
	}

	svc, err := New(cfg, b, log, opts...)
	if err != nil {
		_ = pg.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}
	svc.postgres, svc.redis, svc.search = pg, rdb, es
	return svc, nil
}

// Migrate applies the schema to the connected database.
func (s *Services) Migrate(ctx context.Context) error {
	if s.postgres == nil {
		return fmt.Errorf("migrate needs a PostgreSQL connection")
	}
	return postgres.Migrate(ctx, s.postgres.DB)
}

// Ping reports the health of every connected backend.
func (s *Services) Ping(ctx context.Context) map[string]error {
	status := map[string]error{}
	if s.postgres != nil {
		status["postgres"] = s.postgres.Ping(ctx)
	}
	if s.redis != nil {
		status["redis"] = s.redis.Ping(ctx)
	}
	if s.search != nil {
		status["elasticsearch"] = s.search.Ping(ctx)
	}
	return status
}

func (s *Services) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.postgres != nil {
		_ = s.postgres.Close()
	}
}

// RetryWithBackoff retries operation with doubling delays.
func RetryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if i == maxRetries-1 {
			break
		}

		log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
			"error":       err.Error(),
			"attempt":     i + 1,
			"maxRetries":  maxRetries,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled: %w", operationName, ctx.Err())
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
