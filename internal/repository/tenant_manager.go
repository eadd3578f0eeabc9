package repository

import (
	"sync"

	"github.com/consortial/counterharvest/internal/config"
)

// TenantManager opens and caches per-consortium stores. Handles are kept
// for the life of the process; a worker run touches the same few tenants
// repeatedly during the exclusion fan-out.
type TenantManager struct {
	cfg config.DatabaseConfig

	mu     sync.Mutex
	stores map[string]*TenantStore
}

// NewTenantManager creates a manager that opens stores from the tenant
// DSN template in cfg.
func NewTenantManager(cfg config.DatabaseConfig) *TenantManager {
	return &TenantManager{
		cfg:    cfg,
		stores: make(map[string]*TenantStore),
	}
}

// Store returns the cached store for a consortium key, opening it on
// first use.
func (m *TenantManager) Store(key string) (*TenantStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[key]; ok {
		return s, nil
	}
	db, err := OpenTenant(&m.cfg, key)
	if err != nil {
		return nil, err
	}
	s := NewTenantStore(key, db)
	m.stores[key] = s
	return s, nil
}

// Register installs a pre-built store for a key. Test fixtures use this
// to mount in-memory databases.
func (m *TenantManager) Register(key string, s *TenantStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores[key] = s
}
