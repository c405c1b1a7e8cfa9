package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"github.com/viant/signoff/service/dao"
	"github.com/viant/signoff/service/dao/criteria"
)

const fileExt = ".json"

// FileStore is an afs backed dao.Service keeping one JSON document per record
// under baseURL, e.g. file:///var/lib/signoff/quote or mem://localhost/quote.
type FileStore[T any] struct {
	baseURL     string
	fs          afs.Service
	options     []storage.Option
	keySelector func(*T) string
	mu          sync.RWMutex
}

var _ dao.Service[string, struct{}] = (*FileStore[struct{}])(nil)

func (s *FileStore[T]) Save(ctx context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	if key == "" || strings.ContainsAny(key, "/\\") {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.recordURL(key)
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data), s.options...); err != nil {
		return fmt.Errorf("failed to save %s: %w", URL, err)
	}
	return nil
}

func (s *FileStore[T]) Load(ctx context.Context, key string) (*T, error) {
	if key == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	URL := s.recordURL(key)
	if exists, _ := s.fs.Exists(ctx, URL, s.options...); !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, URL, s.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", URL, err)
	}
	ret := new(T)
	if err = json.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", URL, err)
	}
	return ret, nil
}

// Delete removes a record; deleting a missing record is a no-op.
func (s *FileStore[T]) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.recordURL(key)
	if exists, _ := s.fs.Exists(ctx, URL, s.options...); !exists {
		return nil
	}
	if err := s.fs.Delete(ctx, URL, s.options...); err != nil {
		return fmt.Errorf("failed to delete %s: %w", URL, err)
	}
	return nil
}

// List returns the records matching parameters in key order.
func (s *FileStore[T]) List(ctx context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.baseURL, s.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.baseURL, err)
	}
	var ret []*T
	for _, object := range objects {
		if object.IsDir() || path.Ext(object.Name()) != fileExt {
			continue
		}
		data, err := s.fs.Download(ctx, object, s.options...)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", object.URL(), err)
		}
		record := new(T)
		if err = json.Unmarshal(data, record); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", object.URL(), err)
		}
		if len(parameters) > 0 {
			fields, ok := any(record).(criteria.Fields)
			if !ok || !criteria.Match(fields, parameters) {
				continue
			}
		}
		ret = append(ret, record)
	}
	sort.SliceStable(ret, func(i, j int) bool { return s.keySelector(ret[i]) < s.keySelector(ret[j]) })
	return ret, nil
}

func (s *FileStore[T]) recordURL(key string) string {
	return url.Join(s.baseURL, key+fileExt)
}

// NewFileStore creates a FileStore rooted at baseURL, creating the location when missing.
func NewFileStore[T any](ctx context.Context, baseURL string, keySelector func(*T) string, options ...storage.Option) (*FileStore[T], error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	fs := afs.New()
	baseURL = url.Normalize(baseURL, file.Scheme)
	if exists, _ := fs.Exists(ctx, baseURL, options...); !exists {
		if err := fs.Create(ctx, baseURL, file.DefaultDirOsMode, true, options...); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", baseURL, err)
		}
	}
	return &FileStore[T]{baseURL: baseURL, fs: fs, options: options, keySelector: keySelector}, nil
}
