package definition

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/runtime/condition"
	"github.com/viant/signoff/service/assignee"
)

// Service loads, validates and caches workflow definitions.
// Published definitions are immutable and safe to share across goroutines.
type Service struct {
	fs        afs.Service
	baseURL   string
	fsOptions []storage.Option

	mux      sync.RWMutex
	versions map[string]map[int]*model.Definition
	latest   map[string]*model.Definition
	defaults map[string]string
}

// Validate checks structure, assignee and escalation rules and conditions.
func Validate(definition *model.Definition) error {
	issues := definition.Validate()
	for _, node := range definition.Nodes {
		if node == nil {
			continue
		}
		if _, err := assignee.ParseAssignee(node.Assignee); node.Assignee != "" && err != nil {
			issues = append(issues, fmt.Errorf("node %d assignee: %w", node.Order, err))
		}
		if _, err := assignee.ParseChain(node.Escalation); err != nil {
			issues = append(issues, fmt.Errorf("node %d escalation: %w", node.Order, err))
		}
		if err := condition.Validate(node.When); err != nil {
			issues = append(issues, fmt.Errorf("node %d condition: %w", node.Order, err))
		}
	}
	if len(issues) > 0 {
		return model.WrapError(model.CodeInvalidDefinition, errors.Join(issues...), "flow %s", definition.FlowCode)
	}
	return nil
}

// Publish validates and registers a copy of definition. Re-publishing identical content is a no-op;
// different content under an existing flow code and version fails with a definition conflict.
func (s *Service) Publish(definition *model.Definition) error {
	_, err := s.publish(definition)
	return err
}

func (s *Service) publish(definition *model.Definition) (*model.Definition, error) {
	if definition == nil {
		return nil, model.NewError(model.CodeInvalidDefinition, "nil definition")
	}
	definition = definition.Clone()
	definition.Init()
	if err := Validate(definition); err != nil {
		return nil, err
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	versions, ok := s.versions[definition.FlowCode]
	if !ok {
		versions = map[int]*model.Definition{}
		s.versions[definition.FlowCode] = versions
	}
	if existing, ok := versions[definition.Version]; ok {
		if existing.Equal(definition) {
			return existing, nil
		}
		return nil, model.NewError(model.CodeDefinitionConflict, "flow %s already published with different content", definition.Key())
	}
	if latest, ok := s.latest[definition.FlowCode]; ok && latest.BusinessType != definition.BusinessType {
		return nil, model.NewError(model.CodeDefinitionConflict, "flow %s is bound to %s, not %s", definition.FlowCode, latest.BusinessType, definition.BusinessType)
	}
	versions[definition.Version] = definition
	if latest, ok := s.latest[definition.FlowCode]; !ok || definition.Version > latest.Version {
		s.latest[definition.FlowCode] = definition
	}
	return definition, nil
}

// Lookup returns a published definition; version 0 selects the latest one.
func (s *Service) Lookup(flowCode string, version int) (*model.Definition, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if version == 0 {
		if ret, ok := s.latest[flowCode]; ok {
			return ret, nil
		}
		return nil, model.NewError(model.CodeNoWorkflowDefined, "flow %s is not defined", flowCode)
	}
	if ret, ok := s.versions[flowCode][version]; ok {
		return ret, nil
	}
	return nil, model.NewError(model.CodeNoWorkflowDefined, "flow %s@%d is not defined", flowCode, version)
}

// Select returns the latest version of flowCode, or of the business type's default flow when flowCode is empty.
// Without a configured default, the flow with the highest latest version wins, ties going to the lowest flow code.
// The selected flow must belong to businessType.
func (s *Service) Select(businessType, flowCode string) (*model.Definition, error) {
	if flowCode == "" {
		s.mux.RLock()
		flowCode = s.defaults[businessType]
		if flowCode == "" {
			flowCode = s.defaultFlow(businessType)
		}
		s.mux.RUnlock()
		if flowCode == "" {
			return nil, model.NewError(model.CodeNoWorkflowDefined, "no flow defined for %s", businessType)
		}
	}
	ret, err := s.Lookup(flowCode, 0)
	if err != nil {
		return nil, err
	}
	if ret.BusinessType != businessType {
		return nil, model.NewError(model.CodeNoWorkflowDefined, "flow %s serves %s, not %s", flowCode, ret.BusinessType, businessType)
	}
	return ret, nil
}

func (s *Service) defaultFlow(businessType string) string {
	var ret *model.Definition
	for _, candidate := range s.latest {
		if candidate.BusinessType != businessType {
			continue
		}
		if ret == nil || candidate.Version > ret.Version || (candidate.Version == ret.Version && candidate.FlowCode < ret.FlowCode) {
			ret = candidate
		}
	}
	if ret == nil {
		return ""
	}
	return ret.FlowCode
}

// List returns the latest version of every flow, ordered by flow code.
func (s *Service) List() []*model.Definition {
	s.mux.RLock()
	defer s.mux.RUnlock()
	ret := make([]*model.Definition, 0, len(s.latest))
	for _, definition := range s.latest {
		ret = append(ret, definition)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].FlowCode < ret[j].FlowCode })
	return ret
}

// Decode decodes without publishing.
func (s *Service) Decode(URL string, encoded []byte) (*model.Definition, error) {
	ret, err := DecodeYAML(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode definition %s: %w", URL, err)
	}
	ret.Source = URL
	if ret.FlowCode == "" {
		base := path.Base(URL)
		ret.FlowCode = strings.TrimSuffix(base, path.Ext(base))
	}
	return ret, nil
}

// Load loads and publishes a definition from URL; relative URLs resolve against the base URL.
func (s *Service) Load(ctx context.Context, URL string) (*model.Definition, error) {
	URL = s.resolve(URL)
	if path.Ext(URL) == "" {
		URL += ".yaml"
	}
	data, err := s.fs.DownloadWithURL(ctx, URL, s.fsOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load definition from %s: %w", URL, err)
	}
	decoded, err := s.Decode(URL, data)
	if err != nil {
		return nil, err
	}
	return s.publish(decoded)
}

// LoadAll loads every YAML definition under location.
func (s *Service) LoadAll(ctx context.Context, location string) ([]*model.Definition, error) {
	location = s.resolve(location)
	objects, err := s.fs.List(ctx, location, s.fsOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions in %s: %w", location, err)
	}
	var ret []*model.Definition
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		switch path.Ext(object.Name()) {
		case ".yaml", ".yml":
		default:
			continue
		}
		definition, err := s.Load(ctx, object.URL())
		if err != nil {
			return nil, err
		}
		ret = append(ret, definition)
	}
	return ret, nil
}

func (s *Service) resolve(URL string) string {
	if s.baseURL == "" || strings.Contains(URL, "://") || strings.HasPrefix(URL, "/") {
		return URL
	}
	return url.Join(s.baseURL, URL)
}

// New creates a definition service.
func New(options ...Option) *Service {
	ret := &Service{
		fs:       afs.New(),
		versions: map[string]map[int]*model.Definition{},
		latest:   map[string]*model.Definition{},
		defaults: map[string]string{},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}
