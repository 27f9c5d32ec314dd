// Package app wires the storefront server together.
package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/fish-storefront/db"
	"github.com/xenking/fish-storefront/internal/domain/catalog"
	"github.com/xenking/fish-storefront/internal/domain/checkout"
	"github.com/xenking/fish-storefront/internal/domain/contact"
	"github.com/xenking/fish-storefront/internal/handler"
	"github.com/xenking/fish-storefront/internal/messaging"
	"github.com/xenking/fish-storefront/internal/storage"
	"github.com/xenking/fish-storefront/internal/storage/memory"
	"github.com/xenking/fish-storefront/internal/storage/postgres"
	"github.com/xenking/fish-storefront/internal/storage/redis"
	"github.com/xenking/fish-storefront/internal/storefront"
	"github.com/xenking/fish-storefront/internal/view"
	"github.com/xenking/fish-storefront/pkg/health"
	"github.com/xenking/fish-storefront/pkg/httpmiddleware"
)

// Run builds every dependency, serves HTTP and shuts down gracefully once
// ctx is cancelled.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("catalog", cfg.Catalog.Source),
	)

	res, err := openResources(ctx, lg, cfg)
	if err != nil {
		return err
	}
	defer res.Close()

	srv, err := newServer(ctx, lg, m, cfg, res)
	if err != nil {
		return err
	}
	return srv.serve(ctx, lg, cfg.Graceful)
}

// server is the HTTP server with its probes.
type server struct {
	http   *http.Server
	health *health.Health
	tasks  []func(context.Context) error
}

func newServer(ctx context.Context, lg *zap.Logger, tel httpmiddleware.Telemetry, cfg *Config, res *resources) (*server, error) {
	cat, err := catalog.Load(ctx, res.catalog)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	lg.Info("Catalog loaded", zap.Int("items", cat.Len()))

	hours, err := storefront.LoadHours(cfg.Shop.Timezone)
	if err != nil {
		return nil, err
	}

	bridge := messaging.NewBridge(cfg.Messaging.Host, cfg.Messaging.Recipient, nil)
	h, err := handler.New(handler.Config{
		ImageBaseURL: cfg.ImageBaseURL,
		KeyPrefix:    cfg.Storage.KeyPrefix,
		PollInterval: cfg.Cart.PollInterval,
	}, handler.Deps{
		Store:    res.store,
		Catalog:  cat,
		Checkout: checkout.NewService(bridge, checkout.WithTTL(cfg.Checkout.SnapshotTTL)),
		Contact:  contact.NewService(bridge),
		Bridge:   bridge,
		Hours:    hours,
		Hub:      view.NewHub(),
		Meter:    tel.MeterProvider(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create handler")
	}

	healthSvc := health.New(lg.Named("health"))
	healthSvc.AddReadiness("storage", 5*time.Second, health.PingCheck(res.store))
	healthSvc.AddLiveness("goroutines", time.Second, health.GoroutineCountCheck(10000))

	router := h.Routes()
	router.Get("/livez", healthSvc.LiveHandler)
	router.Get("/readyz", healthSvc.ReadyHandler)

	return &server{
		health: healthSvc,
		tasks:  res.tasks,
		http: &http.Server{
			ReadHeaderTimeout: time.Second,
			ReadTimeout:       5 * time.Second,
			// No WriteTimeout: /api/cart/stream stays open for as long as
			// the page does.
			IdleTimeout:    120 * time.Second,
			MaxHeaderBytes: 1 << 20,
			Addr:           cfg.Addr,
			Handler:        middleware(ctx, lg, tel, cfg, router),
		},
	}, nil
}

func (s *server) serve(ctx context.Context, lg *zap.Logger, graceful GracefulConfig) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.health.Run(gCtx, 10*time.Second)
	})
	for _, task := range s.tasks {
		g.Go(func() error { return task(gCtx) })
	}
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", s.http.Addr))
		s.health.SetReady(true)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		s.health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", graceful.ReadinessDelay))
		time.Sleep(graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", graceful.ShutdownTimeout))
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}

func middleware(ctx context.Context, lg *zap.Logger, m httpmiddleware.Telemetry, cfg *Config, router chi.Router) http.Handler {
	find := httpmiddleware.MakeRouteFinder(router)
	return httpmiddleware.Wrap(router,
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Recovery(),
		httpmiddleware.RequestID(),
		httpmiddleware.Instrument("storefront", find, m),
		httpmiddleware.Labeler(find),
		httpmiddleware.LogRequests(find),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", httpmiddleware.HeaderRequestID},
			ExposeHeaders:    []string{handler.HeaderCartCount, httpmiddleware.HeaderRequestID},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.Session(httpmiddleware.SessionConfig{
			Cookie: cfg.Session.Cookie,
			MaxAge: cfg.Session.MaxAge,
			Secure: cfg.Session.Secure,
		}),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:     cfg.RateLimit.Max,
			Window:  cfg.RateLimit.Window,
			KeyFunc: httpmiddleware.SessionOrIP,
		}),
	)
}

const memorySweepInterval = time.Minute

// resources are the backends that outlive a request.
type resources struct {
	store   storageBackend
	catalog catalog.Source
	closers []io.Closer
	// tasks run alongside the server until shutdown.
	tasks []func(context.Context) error
}

type storageBackend interface {
	storage.Store
	storage.Pinger
}

func (r *resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i].Close()
	}
}

type poolCloser struct{ pool *pgxpool.Pool }

func (c poolCloser) Close() error {
	c.pool.Close()
	return nil
}

func openResources(ctx context.Context, lg *zap.Logger, cfg *Config) (_ *resources, rerr error) {
	res := &resources{catalog: catalog.JSONSource(db.Catalog)}
	defer func() {
		if rerr != nil {
			res.Close()
		}
	}()

	var pool *pgxpool.Pool
	if cfg.needsPostgres() {
		p, err := postgres.NewPool(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		res.closers = append(res.closers, poolCloser{pool: p})
		if err := postgres.RunMigrations(ctx, p); err != nil {
			return nil, err
		}
		pool = p
	}
	if cfg.Catalog.Source == CatalogPostgres {
		res.catalog = postgres.NewCatalogRepository(pool)
	}

	switch cfg.Storage.Backend {
	case BackendRedis:
		s, err := redis.New(ctx, cfg.Storage.Redis, cfg.Storage.TTL)
		if err != nil {
			return nil, errors.Wrap(err, "connect redis")
		}
		res.closers = append(res.closers, s)
		res.store = s
	case BackendPostgres:
		res.store = postgres.NewStore(pool)
	default:
		lg.Warn("Using in-memory session storage; carts are lost on restart and it is meant for development only",
			zap.Duration("idle_ttl", cfg.Storage.TTL),
		)
		s := memory.New(memory.WithTTL(cfg.Storage.TTL))
		res.store = s
		res.tasks = append(res.tasks, func(ctx context.Context) error {
			return s.Run(ctx, memorySweepInterval)
		})
	}
	return res, nil
}
