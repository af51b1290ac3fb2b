package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ascend-hq/ascend/internal/api"
	"github.com/ascend-hq/ascend/internal/app/catalog"
	"github.com/ascend-hq/ascend/internal/app/challenge"
	"github.com/ascend-hq/ascend/internal/app/daily"
	"github.com/ascend-hq/ascend/internal/app/gamification"
	"github.com/ascend-hq/ascend/internal/app/ledger"
	"github.com/ascend-hq/ascend/internal/app/rewardbox"
	"github.com/ascend-hq/ascend/internal/app/toast"
	"github.com/ascend-hq/ascend/internal/domain"
	"github.com/ascend-hq/ascend/internal/health"
	"github.com/ascend-hq/ascend/internal/infra/metrics"
	"github.com/ascend-hq/ascend/internal/infra/sqlite"
	"github.com/ascend-hq/ascend/internal/infra/telemetry"
)

// Version is the build version reported in traces. The CLI sets it.
var Version = "dev"

// cleanupInterval is how often expired challenges are purged while serving.
const cleanupInterval = time.Hour

// Daemon is the ascend runtime. It wires together all services.
type Daemon struct {
	Config  Config
	Log     *zap.Logger
	DB      *sqlite.DB
	Catalog *catalog.Catalog
	Engine  *gamification.Engine

	Feed       *toast.Feed
	Ledger     *ledger.Service
	Boxes      api.BoxOpener
	Daily      *daily.Widget
	Challenges *challenge.Service
	Health     *health.Checker
	Server     *api.Server

	shutdownTracer telemetry.Shutdown
}

// New loads the configuration from $ASCEND_HOME and creates a Daemon.
func New(log *zap.Logger) (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg, AscendHome(), log)
}

// NewWithConfig creates a Daemon storing its state under home.
func NewWithConfig(cfg Config, home string, log *zap.Logger) (*Daemon, error) {
	if log == nil {
		log = zap.NewNop()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	cat := catalog.Default()
	if cfg.Rewards.Catalog != "" {
		if cat, err = catalog.Load(cfg.Rewards.Catalog); err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}

	shutdownTracer, err := telemetry.InitTracer(context.Background(), cfg.Telemetry.ServiceName, Version, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	}

	db, err := sqlite.Open(home)
	if err != nil {
		_ = shutdownTracer(context.Background())
		return nil, fmt.Errorf("open database: %w", err)
	}

	d := &Daemon{
		Config:         cfg,
		Log:            log,
		DB:             db,
		Catalog:        cat,
		shutdownTracer: shutdownTracer,
	}

	// ─── Notifications ─────────────────────────────────────────────────

	d.Feed = toast.NewFeed(db,
		toast.WithPolicy(cfg.NotificationPolicy()),
		toast.WithLocation(loc),
	)
	sinks := toast.Multi{d.Feed, toast.NewLogSink(log.Named("toast"))}

	// ─── Engine ────────────────────────────────────────────────────────

	opts := []gamification.Option{
		gamification.WithSeed(cfg.Engine.SeedCoins, 0),
		gamification.WithRevivalCost(cfg.Engine.RevivalCost),
		gamification.WithNotifier(sinks),
		gamification.WithLocation(loc),
		gamification.WithLogger(log.Named("engine")),
	}
	snap, ok, err := db.LoadSnapshot()
	if err != nil {
		db.Close()
		_ = shutdownTracer(context.Background())
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if ok {
		opts = append(opts, gamification.WithState(snap))
	}
	d.Engine = gamification.New(cat, opts...)

	d.Ledger = ledger.NewService(db, log.Named("ledger"))
	d.Engine.Subscribe(d.persist)
	d.Engine.Subscribe(d.Ledger.Record)
	d.Engine.Subscribe(metrics.Record)
	metrics.Record(domain.Change{Snapshot: d.Engine.Snapshot()})

	// ─── Widgets ───────────────────────────────────────────────────────

	resolver := rewardbox.New(cat, d.Engine,
		rewardbox.WithSeed(cfg.Rewards.Seed),
		rewardbox.WithLogger(log.Named("rewardbox")),
	)
	d.Boxes = meteredBoxes{resolver}
	d.Daily = daily.New(db, d.Engine, d.Boxes,
		daily.WithLocation(loc),
		daily.WithLogger(log.Named("daily")),
	)
	d.Challenges = challenge.NewService(db, d.Engine, d.Boxes,
		challenge.WithLogger(log.Named("challenge")),
	)

	d.Health = health.NewChecker(health.StandardChecks(db, d.Engine, d.Ledger)...)

	// ─── API ───────────────────────────────────────────────────────────

	d.Server = api.NewServer(api.Services{
		Engine:     d.Engine,
		Boxes:      d.Boxes,
		Daily:      d.Daily,
		Challenges: d.Challenges,
		Feed:       d.Feed,
		Ledger:     d.Ledger,
		Health:     d.Health,
	}, log.Named("api"))
	d.Server.SetCORSOrigins(cfg.API.CORSOrigins)
	if cfg.Telemetry.Prometheus {
		d.Server.EnableMetrics()
	}

	return d, nil
}

// persist stores the engine snapshot after every change.
func (d *Daemon) persist(c domain.Change) {
	if err := d.DB.SaveSnapshot(c.Snapshot); err != nil {
		d.Log.Error("save snapshot", zap.Error(err))
	}
}

// Serve listens on the configured address and blocks until SIGINT, SIGTERM
// or ctx cancellation.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(d.Config.API.Host, strconv.Itoa(d.Config.API.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return d.ServeListener(ctx, ln)
}

// ServeListener serves the API on ln until ctx is done, then shuts the HTTP
// server down gracefully.
func (d *Daemon) ServeListener(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.Log.Info("serving", zap.String("addr", ln.Addr().String()),
			zap.Bool("metrics", d.Config.Telemetry.Prometheus))
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		d.cleanupLoop(ctx)
		return nil
	})

	g.Go(func() error {
		d.Health.Run(ctx)
		return nil
	})

	return g.Wait()
}

// cleanupLoop purges expired challenges until ctx is done.
func (d *Daemon) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := d.Challenges.CleanupExpired()
			if err != nil {
				d.Log.Warn("cleanup expired challenges", zap.Error(err))
				continue
			}
			if n > 0 {
				d.Log.Debug("expired challenges removed", zap.Int64("count", n))
			}
		}
	}
}

// Close disposes the engine and releases all resources.
func (d *Daemon) Close() {
	if d.Engine != nil {
		d.Engine.Dispose()
	}
	if d.shutdownTracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = d.shutdownTracer(ctx)
		cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}

// meteredBoxes counts opened reward boxes by trigger and rarity.
type meteredBoxes struct {
	r *rewardbox.Resolver
}

func (m meteredBoxes) Open(ctx context.Context, trigger domain.Trigger) (domain.RewardEvent, error) {
	ev, err := m.r.Open(ctx, trigger)
	if err == nil {
		metrics.RewardBoxesOpened.WithLabelValues(string(trigger), string(ev.Rarity)).Inc()
	}
	return ev, err
}
