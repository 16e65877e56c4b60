package erp

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/b2x/erp-integration/internal/domain/erp"
)

// ConnectorRegistry keeps the set of registered ERP connectors and answers
// capability questions about them. Registration happens during startup wiring;
// lookups happen on every sync decision, so reads take no allocation beyond the
// capability copy.
type ConnectorRegistry struct {
	mu         sync.RWMutex
	connectors map[string]erp.Connector
	logger     *zap.Logger
}

// NewConnectorRegistry creates an empty registry.
func NewConnectorRegistry(logger *zap.Logger) *ConnectorRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectorRegistry{
		connectors: make(map[string]erp.Connector),
		logger:     logger,
	}
}

// Register adds a connector under its provider ID. Registering the same
// provider twice fails; replacing a live connector is never intended.
func (r *ConnectorRegistry) Register(connector erp.Connector) error {
	providerID := connector.ProviderID()
	if providerID == "" {
		return erp.ErrInvalidProviderID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.connectors[providerID]; exists {
		return erp.ErrProviderAlreadyExists
	}
	r.connectors[providerID] = connector

	r.logger.Info("connector registered",
		zap.String("provider_id", providerID),
		zap.String("display_name", connector.DisplayName()))
	return nil
}

// Get returns the connector registered under providerID.
func (r *ConnectorRegistry) Get(providerID string) (erp.Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connector, ok := r.connectors[providerID]
	if !ok {
		return nil, erp.ErrProviderNotRegistered
	}
	return connector, nil
}

// Describe returns the capability declaration for one provider.
func (r *ConnectorRegistry) Describe(providerID string) (erp.ConnectorCapabilities, error) {
	connector, err := r.Get(providerID)
	if err != nil {
		return erp.ConnectorCapabilities{}, err
	}
	return connector.Capabilities(), nil
}

// Providers returns the sorted IDs of all registered connectors.
func (r *ConnectorRegistry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.connectors))
	for id := range r.connectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SupportsOperation checks one capability flag for one provider via a selector,
// so callers can gate an operation without pulling the whole declaration.
func (r *ConnectorRegistry) SupportsOperation(providerID string, selector func(erp.ConnectorCapabilities) bool) (bool, error) {
	caps, err := r.Describe(providerID)
	if err != nil {
		return false, err
	}
	return selector(caps), nil
}
