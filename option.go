package signoff

import (
	"github.com/go-redis/redis/v8"
	"github.com/viant/afs/storage"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/adapter"
	"github.com/viant/signoff/service/adapter/entity"
	"github.com/viant/signoff/service/assignee"
	"github.com/viant/signoff/service/dao/approval"
	"github.com/viant/signoff/service/notify"
	"github.com/viant/signoff/tracing"
	"go.uber.org/zap"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures the Service.
type Option func(s *Service)

// WithConfig sets the configuration; defaults to DefaultConfig.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithLogger sets the logger; defaults to one built from Config.Log.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithStores sets the business record stores; defaults to in-memory stores.
func WithStores(stores *entity.Stores) Option {
	return func(s *Service) { s.stores = stores }
}

// WithAdapters registers additional business-type adapters.
func WithAdapters(adapters ...adapter.Adapter) Option {
	return func(s *Service) { s.adapters = append(s.adapters, adapters...) }
}

// WithDirectory sets the organisation directory; defaults to Config.Directory.URL.
func WithDirectory(directory assignee.Directory) Option {
	return func(s *Service) { s.directory = directory }
}

// WithStore sets the approval store, bypassing Config.Store.
func WithStore(store approval.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithRedis sets the redis client used for notifications and cache invalidation.
func WithRedis(client redis.UniversalClient) Option {
	return func(s *Service) { s.redis = client }
}

// WithSinks adds notification sinks next to the built-in ones.
func WithSinks(sinks ...notify.Sink) Option {
	return func(s *Service) { s.sinks = append(s.sinks, sinks...) }
}

// WithDefinitions publishes flows at startup.
func WithDefinitions(definitions ...*model.Definition) Option {
	return func(s *Service) { s.flows = append(s.flows, definitions...) }
}

// WithFsOptions sets storage options used to load definitions and the directory,
// e.g. an *embed.FS for embed:// URLs.
func WithFsOptions(options ...storage.Option) Option {
	return func(s *Service) { s.fsOptions = append(s.fsOptions, options...) }
}

// WithTracingExporter configures OpenTelemetry tracing with a custom SpanExporter,
// for example OTLP or Zipkin, instead of Config.Tracing.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		shutdown, err := tracing.InitWithExporter(serviceName, serviceVersion, exporter)
		if err != nil {
			s.initErr = err
			return
		}
		s.tracing = true
		s.closers = append(s.closers, shutdown)
	}
}
