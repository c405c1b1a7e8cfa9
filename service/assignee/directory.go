package assignee

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"gopkg.in/yaml.v3"
)

// Directory answers organisation questions needed to resolve assignees.
type Directory interface {
	// UsersInRole returns the users holding role, in a stable order.
	UsersInRole(ctx context.Context, role string) ([]string, error)

	// ManagerOf returns the user's manager, or "" when there is none.
	ManagerOf(ctx context.Context, userID string) (string, error)
}

// Memory is an in-memory Directory.
type Memory struct {
	Roles    map[string][]string `yaml:"roles"`
	Managers map[string]string   `yaml:"managers"`
	mux      sync.RWMutex
}

func (m *Memory) UsersInRole(_ context.Context, role string) ([]string, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	users := append([]string(nil), m.Roles[role]...)
	sort.Strings(users)
	return users, nil
}

func (m *Memory) ManagerOf(_ context.Context, userID string) (string, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	return m.Managers[userID], nil
}

// AddRole grants role to users.
func (m *Memory) AddRole(role string, users ...string) *Memory {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.Roles[role] = append(m.Roles[role], users...)
	return m
}

// SetManager sets the user's manager.
func (m *Memory) SetManager(userID, managerID string) *Memory {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.Managers[userID] = managerID
	return m
}

// NewMemory creates an empty directory.
func NewMemory() *Memory {
	return &Memory{Roles: map[string][]string{}, Managers: map[string]string{}}
}

// LoadMemory reads a YAML directory document with "roles" and "managers" mappings from URL.
func LoadMemory(ctx context.Context, fs afs.Service, URL string, options ...storage.Option) (*Memory, error) {
	data, err := fs.DownloadWithURL(ctx, URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to download directory %s: %w", URL, err)
	}
	ret := NewMemory()
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode directory %s: %w", URL, err)
	}
	if ret.Roles == nil {
		ret.Roles = map[string][]string{}
	}
	if ret.Managers == nil {
		ret.Managers = map[string]string{}
	}
	return ret, nil
}
