package datasource

import (
	"context"
	"sort"
	"sync"
)

// AdapterInfo describes a registered engine adapter.
type AdapterInfo struct {
	Type        string `json:"type"`         // "sqlite", "postgres", "mysql", "mssql"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
	Description string `json:"description"`
	FileBased   bool   `json:"file_based"`
}

// ConnectFunc opens and pings a handle. It must release everything it
// allocated when it returns an error.
type ConnectFunc func(ctx context.Context, params map[string]any, opts Options) (Handle, error)

// AdapterRegistration pairs adapter info with its connect function.
type AdapterRegistration struct {
	Info    AdapterInfo
	Connect ConnectFunc
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AdapterRegistration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg AdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// GetConnectFunc returns the connect function for an engine, or nil when the
// engine is not compiled in.
func GetConnectFunc(engine string) ConnectFunc {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[engine]; ok {
		return reg.Connect
	}
	return nil
}

// IsRegistered checks if an engine adapter is available.
func IsRegistered(engine string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[engine]
	return ok
}
