package engine

import (
	"github.com/viant/signoff/service/adapter"
	"github.com/viant/signoff/service/assignee"
	"github.com/viant/signoff/service/dao/approval"
	"github.com/viant/signoff/service/dao/definition"
	"github.com/viant/signoff/service/invalidate"
	"github.com/viant/signoff/service/metrics"
	"github.com/viant/signoff/service/notify"
	"go.uber.org/zap"
)

// Option configures the engine.
type Option func(s *Service)

// WithStore sets the approval store; defaults to the in-memory store.
func WithStore(store approval.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithRegistry sets the adapter registry.
func WithRegistry(registry *adapter.Registry) Option {
	return func(s *Service) { s.registry = registry }
}

// WithDefinitions sets the flow definition service.
func WithDefinitions(definitions *definition.Service) Option {
	return func(s *Service) { s.definitions = definitions }
}

// WithDirectory sets the organisation directory used to resolve assignees.
func WithDirectory(directory assignee.Directory) Option {
	return func(s *Service) { s.resolver = assignee.NewResolver(directory) }
}

// WithAdminRole sets the role whose members may cancel instances through CancelAs.
func WithAdminRole(role string) Option {
	return func(s *Service) { s.adminRole = role }
}

// WithNotifier sets the notification sink.
func WithNotifier(sink notify.Sink) Option {
	return func(s *Service) { s.notifier = sink }
}

// WithInvalidator sets the cache invalidation port.
func WithInvalidator(invalidator invalidate.Invalidator) Option {
	return func(s *Service) { s.invalidator = invalidator }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
