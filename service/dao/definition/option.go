package definition

import (
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
)

// Option configures the definition service.
type Option func(*Service)

// WithFS sets the storage service used to load definitions.
func WithFS(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// WithBaseURL sets the location relative definition URLs resolve against.
func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.baseURL = baseURL
	}
}

// WithFsOptions sets storage options, e.g. an *embed.FS for embed:// URLs.
func WithFsOptions(options ...storage.Option) Option {
	return func(s *Service) {
		s.fsOptions = append(s.fsOptions, options...)
	}
}

// WithDefault pins the flow used for a business type when a submission names none.
func WithDefault(businessType, flowCode string) Option {
	return func(s *Service) {
		s.defaults[businessType] = flowCode
	}
}
