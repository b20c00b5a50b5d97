package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/fsorch/internal/api/http"
	"github.com/GriffinCanCode/fsorch/internal/api/middleware"
	"github.com/GriffinCanCode/fsorch/internal/domain/batch"
	"github.com/GriffinCanCode/fsorch/internal/domain/cache"
	"github.com/GriffinCanCode/fsorch/internal/domain/mutation"
	"github.com/GriffinCanCode/fsorch/internal/domain/transaction"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/config"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/storage"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/fsorch/internal/providers/filesystem"
	"github.com/GriffinCanCode/fsorch/internal/providers/system"
	"github.com/GriffinCanCode/fsorch/internal/service"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router       *gin.Engine
	http         *http.Server
	registry     *service.Registry
	transactions *transaction.Engine
	batches      *batch.Engine
	cache        *cache.OperationCache
	tracer       *tracing.Tracer
	logger       *logging.Logger
	config       *config.Config
	metrics      *monitoring.Metrics

	stop      chan struct{}
	janitor   sync.WaitGroup
	closeOnce sync.Once
}

// Option customizes server construction.
type Option func(*options)

type options struct {
	registry *prometheus.Registry
}

// WithPrometheusRegistry registers collectors on reg instead of the
// default registry and serves /metrics from it.
func WithPrometheusRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// New creates a new server instance
func New(cfg *config.Config, logger *logging.Logger, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger.Info("Initializing fsorch",
		zap.String("port", cfg.Server.Port),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("storage_root", cfg.Storage.Root),
	)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if o.registry != nil {
		registerer, gatherer = o.registry, o.registry
	}
	metrics := monitoring.NewMetricsWith(registerer)

	fsys, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	opCache := cache.NewOperationCache(cache.Config{
		Capacity: cfg.Cache.Capacity,
		TTL:      cfg.Cache.TTL,
	})
	metrics.ObserveCache(func() monitoring.CacheStats {
		s := opCache.Stats()
		return monitoring.CacheStats{
			Hits:        s.Hits,
			Misses:      s.Misses,
			Evictions:   s.Evictions,
			Expirations: s.Expirations,
			Size:        s.Size,
			Capacity:    s.Capacity,
		}
	})

	exec := mutation.NewExecutor(fsys, opCache,
		mutation.WithLogger(logger),
		mutation.WithRecorder(metrics),
	)
	txs := transaction.NewEngine(exec,
		transaction.WithLogger(logger),
		transaction.WithRecorder(metrics),
	)
	batches := batch.NewEngine(exec,
		batch.WithLogger(logger),
		batch.WithRecorder(metrics),
		batch.WithMaxConcurrency(cfg.Batch.MaxConcurrency),
	)

	tracer := tracing.New("fsorch", logger)

	sys := system.NewProvider(system.Info{
		StorageBackend:     cfg.Storage.Backend,
		StorageRoot:        cfg.Storage.Root,
		CacheCapacity:      cfg.Cache.Capacity,
		DefaultConcurrency: cfg.Batch.DefaultConcurrency,
		MaxConcurrency:     cfg.Batch.MaxConcurrency,
	}, 500)

	registry := service.NewRegistry(
		service.WithLogger(logger),
		service.WithRecorder(metrics),
		service.WithRecorder(sys),
		service.WithTracer(tracer),
	)
	err = registry.Register(filesystem.NewProvider(filesystem.Config{
		Executor:           exec,
		Transactions:       txs,
		Batches:            batches,
		Cache:              opCache,
		Globber:            fsys,
		Logger:             logger,
		DefaultConcurrency: cfg.Batch.DefaultConcurrency,
	}))
	if err == nil {
		err = registry.Register(sys)
	}
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("register providers: %w", err)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(tracing.Middleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	apihttp.NewHandlers(registry, txs, batches, opCache, metrics, logger).Register(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	s := &Server{
		router:       router,
		registry:     registry,
		transactions: txs,
		batches:      batches,
		cache:        opCache,
		tracer:       tracer,
		logger:       logger,
		config:       cfg,
		metrics:      metrics,
		stop:         make(chan struct{}),
	}
	s.http = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.janitor.Add(1)
	go s.prune(cfg.Transaction.Retention)

	logger.Info("Server initialized successfully")
	return s, nil
}

func openStorage(cfg config.StorageConfig) (*storage.FS, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return storage.NewMemory(), nil
	case config.BackendLocal:
		fsys, err := storage.NewLocal(cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("open storage root %s: %w", cfg.Root, err)
		}
		return fsys, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// prune drops finished transactions and batches older than retention.
func (s *Server) prune(retention time.Duration) {
	defer s.janitor.Done()

	interval := retention / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			txs := s.transactions.Prune(retention)
			batches := s.batches.Prune(retention)
			if txs > 0 || batches > 0 {
				s.logger.Debug("pruned finished work",
					zap.Int("transactions", txs),
					zap.Int("batches", batches),
				)
			}
		}
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry returns the service registry.
func (s *Server) Registry() *service.Registry {
	return s.registry
}

// Run starts the HTTP server and blocks until it stops. It returns nil
// after a graceful Shutdown.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx
// expires, then releases background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	err := s.http.Shutdown(ctx)
	s.Close()
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close stops the pruning loop and the tracer and flushes the logger.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.janitor.Wait()
		s.tracer.Close()
		_ = s.logger.Sync()
	})
}
