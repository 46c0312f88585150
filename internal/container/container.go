package container

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"rewe/crawler/internal/client"
	"rewe/crawler/internal/config"
	"rewe/crawler/internal/parser"
	"rewe/crawler/internal/proxy"
	"rewe/crawler/internal/queue"
	"rewe/crawler/internal/repository"
	"rewe/crawler/internal/service"
	"rewe/crawler/internal/session"
	"rewe/crawler/internal/state"
	"rewe/crawler/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config       *config.Config
	Session      *session.Manager
	Store        *store.Store
	Repository   repository.ProductRepository
	Queue        *queue.RedisQueue
	StateManager state.StateManager

	Service *service.Service

	db    *pgxpool.Pool
	redis *redis.Client
}

// New connects the shop session, Redis and Postgres. Whatever was opened
// before a failure is closed again.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}
	if err := c.init(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) init(ctx context.Context) error {
	var err error
	cfg := c.Config

	proxySupplier, err := proxy.NewProxySupplier(ctx, cfg.Rewe.Proxies, cfg.Rewe.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize proxy supplier: %w", err)
	}

	c.Session = session.NewManager(session.Options{
		StoreID:    cfg.Rewe.StoreID,
		ZipCode:    cfg.Rewe.ZipCode,
		CookieFile: cfg.Rewe.CookieFile,
		Timeout:    time.Duration(cfg.Rewe.Timeout) * time.Second,
		Proxy:      proxySupplier,
	})
	if _, err = c.Session.Ensure(ctx); err != nil {
		return fmt.Errorf("failed to open shop session: %w", err)
	}
	log.Info("✅ Shop session ready")

	pacer := client.NewFixedDelay(cfg.Rewe.SleepInterval())
	if cfg.Rewe.MaxRequestsPerSecond > 0 {
		pacer = client.WithRateLimit(pacer, cfg.Rewe.MaxRequestsPerSecond)
	}
	gateway := client.NewGateway(c.Session, pacer, cfg.Rewe.BaseURL).
		WithBreaker(client.NewBreaker(time.Duration(cfg.Rewe.QuotaCooldown) * time.Second))

	p := parser.NewParser()
	c.Store, err = store.New(gateway, p, store.Options{
		StoreID:        cfg.Rewe.StoreID,
		APIPrefix:      cfg.Rewe.APIPrefix,
		ObjectsPerPage: cfg.Crawler.ObjectsPerPage,
		CacheSize:      cfg.Rewe.CacheSize,
	})
	if err != nil {
		return err
	}

	c.db, err = pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	if err = repository.Migrate(ctx, c.db); err != nil {
		return err
	}
	c.Repository = repository.NewProductRepository(c.db)

	c.redis = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})
	if err = c.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("✅ Connected to Redis successfully")

	c.Queue, err = queue.NewRedisQueue(ctx, c.redis, cfg.Redis)
	if err != nil {
		return err
	}
	c.StateManager = state.NewRedisStateManager(c.redis)

	c.Service = service.NewService(c.Store, p, c.Repository, c.Queue, c.StateManager, service.Options{
		Attributes:   cfg.Crawler.Attributes,
		MaxPage:      cfg.Crawler.MaxPage,
		SaveInterval: cfg.Crawler.SaveInterval,
		Group:        cfg.Redis.ConsumerGroup,
		MinIdleTime:  time.Duration(cfg.Redis.MinIdleTime) * time.Second,
	})

	return nil
}

// Run crawls the configured queries while the workers store what arrives.
// Workers keep running after the crawl until ctx is cancelled.
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Service.Crawl(ctx)
	})

	g.Go(func() error {
		return c.Service.RunWorkers(ctx, c.Config.Crawler.MaxWorkers)
	})

	return g.Wait()
}

// Close releases the session and the connections. Safe to call twice.
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.Session != nil {
		if err := c.Session.Close(); err != nil {
			log.Warnf("⚠️ Failed to close session: %v", err)
		}
	}
	if c.db != nil {
		c.db.Close()
		c.db = nil
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Warnf("⚠️ Failed to close Redis: %v", err)
		}
		c.redis = nil
	}

	log.Info("Container shut down successfully")
	return nil
}
