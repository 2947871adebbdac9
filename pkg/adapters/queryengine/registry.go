package queryengine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
)

// EngineInfo describes a registered engine adapter.
type EngineInfo struct {
	Type        string   `json:"type"`         // "trino", "postgres"
	DisplayName string   `json:"display_name"` // "Trino", "PostgreSQL"
	Schemes     []string `json:"schemes"`      // URL schemes served, e.g. "postgresql"
}

// Registration contains info + the factory for creating sessions.
type Registration struct {
	Info    EngineInfo
	Factory func(ctx context.Context, d *Descriptor, logger *zap.Logger) (Engine, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, scheme := range reg.Info.Schemes {
		registry[strings.ToLower(scheme)] = reg
	}
}

// RegisteredEngines returns info for all registered adapters, sorted by type.
func RegisteredEngines() []EngineInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	result := make([]EngineInfo, 0, len(registry))
	for _, reg := range registry {
		if seen[reg.Info.Type] {
			continue
		}
		seen[reg.Info.Type] = true
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// IsRegistered checks if a URL scheme is served by some adapter.
func IsRegistered(scheme string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[strings.ToLower(scheme)]
	return ok
}

// Open creates a session for the descriptor's scheme.
func Open(ctx context.Context, d *Descriptor, logger *zap.Logger) (Engine, error) {
	registryMu.RLock()
	reg, ok := registry[d.Scheme]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unsupported engine %q", apperrors.ErrInvalidInput, d.Scheme)
	}
	return reg.Factory(ctx, d, logger)
}
