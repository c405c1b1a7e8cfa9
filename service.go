package signoff

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/signoff/internal/logging"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/adapter"
	"github.com/viant/signoff/service/adapter/entity"
	"github.com/viant/signoff/service/api"
	"github.com/viant/signoff/service/assignee"
	"github.com/viant/signoff/service/dao"
	"github.com/viant/signoff/service/dao/approval"
	amemory "github.com/viant/signoff/service/dao/approval/memory"
	"github.com/viant/signoff/service/dao/approval/postgres"
	"github.com/viant/signoff/service/dao/definition"
	"github.com/viant/signoff/service/dao/store"
	"github.com/viant/signoff/service/engine"
	"github.com/viant/signoff/service/escalation"
	"github.com/viant/signoff/service/invalidate"
	"github.com/viant/signoff/service/metrics"
	"github.com/viant/signoff/service/notify"
	"github.com/viant/signoff/tracing"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Name is the service name reported to tracing.
const Name = "signoff"

// Version is the release reported to tracing.
var Version = "dev"

// Service wires the approval engine with its stores, notification delivery,
// escalation scheduler and HTTP boundary.
type Service struct {
	config      *Config
	logger      *zap.Logger
	stores      *entity.Stores
	adapters    []adapter.Adapter
	registry    *adapter.Registry
	flows       []*model.Definition
	definitions *definition.Service
	directory   assignee.Directory
	store       approval.Store
	redis       redis.UniversalClient
	sinks       []notify.Sink
	audit       *notify.AuditSink
	dispatcher  *notify.Dispatcher
	metrics     *metrics.Metrics
	engine      *engine.Service
	scheduler   *escalation.Service
	server      *api.Server
	fsOptions   []storage.Option
	tracing     bool
	closers     []func(ctx context.Context) error
	initErr     error
}

// Config returns the effective configuration.
func (s *Service) Config() *Config { return s.config }

// Logger returns the service logger.
func (s *Service) Logger() *zap.Logger { return s.logger }

// Engine returns the approval engine.
func (s *Service) Engine() *engine.Service { return s.engine }

// Definitions returns the flow definition service.
func (s *Service) Definitions() *definition.Service { return s.definitions }

// Stores returns the business record stores.
func (s *Service) Stores() *entity.Stores { return s.stores }

// Audit returns the notification audit trail.
func (s *Service) Audit() *notify.AuditSink { return s.audit }

// Dispatcher returns the asynchronous notification dispatcher.
func (s *Service) Dispatcher() *notify.Dispatcher { return s.dispatcher }

// Scheduler returns the escalation scheduler.
func (s *Service) Scheduler() *escalation.Service { return s.scheduler }

// Handler returns the HTTP handler.
func (s *Service) Handler() http.Handler { return s.server.Handler() }

// Start launches notification delivery and, when enabled, the escalation loop.
func (s *Service) Start(ctx context.Context) {
	s.dispatcher.Start(ctx)
	if !s.config.Escalation.Enabled {
		return
	}
	errs := s.scheduler.Go(ctx)
	go func() {
		if err := <-errs; err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("escalation scheduler stopped", zap.Error(err))
		}
	}()
}

// Serve starts the background workers and serves HTTP on Config.HTTP.Addr until ctx is done.
func (s *Service) Serve(ctx context.Context) error {
	s.Start(ctx)
	server := &http.Server{Addr: s.config.HTTP.Addr, Handler: s.Handler()}
	group, gCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s.logger.Info("http server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.HTTP.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	err := group.Wait()
	if closeErr := s.Close(context.WithoutCancel(ctx)); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	return err
}

// Close stops the background workers and releases connections.
func (s *Service) Close(ctx context.Context) error {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.dispatcher != nil {
		s.dispatcher.Stop()
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	_ = s.logger.Sync()
	return errors.Join(errs...)
}

func (s *Service) init(ctx context.Context) (err error) {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err = s.config.Validate(); err != nil {
		return err
	}
	if s.logger == nil {
		if s.logger, err = logging.New(s.config.Log.Level, s.config.Log.Format); err != nil {
			return err
		}
	}
	if !s.tracing && s.config.Tracing.Enabled {
		shutdown, err := tracing.Init(Name, Version, s.config.Tracing.OutputFile)
		if err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
		s.closers = append(s.closers, shutdown)
	}
	if err = s.initRegistry(ctx); err != nil {
		return err
	}
	if err = s.initDefinitions(ctx); err != nil {
		return err
	}
	if s.directory == nil {
		if s.directory, err = s.loadDirectory(ctx); err != nil {
			return err
		}
	}
	if s.store == nil {
		if s.store, err = s.openStore(ctx); err != nil {
			return err
		}
	}
	if s.redis == nil && s.config.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: s.config.Redis.Addr, Password: s.config.Redis.Password, DB: s.config.Redis.DB})
		s.redis = client
		s.closers = append(s.closers, func(context.Context) error { return client.Close() })
	}
	s.metrics = metrics.New()
	sink, err := s.sink(ctx)
	if err != nil {
		return err
	}
	s.dispatcher = notify.NewDispatcher(sink,
		notify.WithQueueConfig(s.config.QueueConfig()),
		notify.WithWorkers(s.config.Notify.Workers),
		notify.WithLogger(s.logger))
	invalidator := invalidate.Nop
	if s.redis != nil {
		invalidator = invalidate.NewRedis(s.redis)
	}
	if s.engine, err = engine.New(
		engine.WithStore(s.store),
		engine.WithRegistry(s.registry),
		engine.WithDefinitions(s.definitions),
		engine.WithDirectory(s.directory),
		engine.WithAdminRole(s.config.HTTP.AdminRole),
		engine.WithNotifier(s.dispatcher),
		engine.WithInvalidator(invalidator),
		engine.WithMetrics(s.metrics),
		engine.WithLogger(s.logger),
	); err != nil {
		return err
	}
	s.scheduler = escalation.New(s.engine, s.config.SweepConfig(), s.logger)
	s.server = api.NewServer(s.engine, s.metrics.Handler(), s.logger)
	return nil
}

func (s *Service) initRegistry(ctx context.Context) (err error) {
	if s.stores == nil {
		if URL := s.config.Entities.URL; URL != "" {
			if s.stores, err = entity.NewFileStores(ctx, URL, s.fsOptions...); err != nil {
				return err
			}
		} else {
			s.stores = entity.NewMemoryStores()
		}
	}
	s.registry, err = adapter.NewRegistry(append(entity.Adapters(s.stores), s.adapters...)...)
	return err
}

func (s *Service) initDefinitions(ctx context.Context) error {
	options := []definition.Option{definition.WithFsOptions(s.fsOptions...)}
	for businessType, flowCode := range s.config.Definitions.Defaults {
		options = append(options, definition.WithDefault(businessType, flowCode))
	}
	s.definitions = definition.New(options...)
	for _, flow := range s.flows {
		if err := s.definitions.Publish(flow); err != nil {
			return err
		}
	}
	if URL := s.config.Definitions.URL; URL != "" {
		loaded, err := s.definitions.LoadAll(ctx, URL)
		if err != nil {
			return err
		}
		s.logger.Info("flow definitions loaded", zap.String("url", URL), zap.Int("count", len(loaded)))
	}
	return nil
}

func (s *Service) loadDirectory(ctx context.Context) (assignee.Directory, error) {
	URL := s.config.Directory.URL
	if URL == "" {
		s.logger.Warn("no directory configured; only user: assignees resolve")
		return assignee.NewMemory(), nil
	}
	return assignee.LoadMemory(ctx, afs.New(), URL, s.fsOptions...)
}

func (s *Service) openStore(ctx context.Context) (approval.Store, error) {
	switch strings.ToLower(s.config.Store.Driver) {
	case StorePostgres:
		dsn, err := s.config.Store.ResolveDSN(ctx)
		if err != nil {
			return nil, err
		}
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		s.closers = append(s.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		ret := postgres.New(pool)
		if err = ret.Init(ctx); err != nil {
			return nil, err
		}
		return ret, nil
	default:
		return amemory.New(), nil
	}
}

func (s *Service) sink(ctx context.Context) (notify.Sink, error) {
	var events dao.Service[string, notify.Event]
	if URL := s.config.Notify.AuditURL; URL != "" {
		fileStore, err := store.NewFileStore[notify.Event](ctx, URL, func(e *notify.Event) string { return e.ID }, s.fsOptions...)
		if err != nil {
			return nil, err
		}
		events = fileStore
	}
	s.audit = notify.NewAuditSink(events)
	sinks := notify.Sinks{notify.NewLogSink(s.logger), s.audit}
	if s.redis != nil {
		sinks = append(sinks, notify.NewRedisSink(s.redis))
	}
	return append(sinks, s.sinks...), nil
}

// New creates a Service; it connects to the configured store and loads flow definitions.
func New(ctx context.Context, options ...Option) (*Service, error) {
	ret := &Service{}
	for _, option := range options {
		option(ret)
	}
	if ret.initErr != nil {
		return nil, ret.initErr
	}
	if err := ret.init(ctx); err != nil {
		if ret.logger != nil {
			_ = ret.Close(ctx)
		}
		return nil, err
	}
	return ret, nil
}
