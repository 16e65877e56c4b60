package connector

import (
	"go.uber.org/zap"

	"github.com/b2x/erp-integration/internal/domain/erp"
)

// FashopConnector is the connector for the Fashop fashion-retail ERP. Fashop
// speaks a plain REST API with no transactional endpoint, so its scopes batch
// outbound changes in memory and flush them on commit.
type FashopConnector struct {
	logger *zap.Logger
	scopes erp.ScopeFactory
}

var _ erp.Connector = (*FashopConnector)(nil)

// NewFashopConnector creates a new FashopConnector
func NewFashopConnector(logger *zap.Logger) *FashopConnector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FashopConnector{
		logger: logger,
		scopes: NewMemoryScopeFactory(),
	}
}

// ProviderID returns the stable connector identifier
func (c *FashopConnector) ProviderID() string { return "fashop" }

// DisplayName returns a human-readable connector name
func (c *FashopConnector) DisplayName() string { return "Fashop ERP" }

// ScopeFactory returns the factory used to open transaction scopes
func (c *FashopConnector) ScopeFactory() erp.ScopeFactory { return c.scopes }

// Capabilities returns the connector's immutable capability declaration.
func (c *FashopConnector) Capabilities() erp.ConnectorCapabilities {
	return erp.ConnectorCapabilities{
		Catalog: erp.CatalogCapability{
			Supported:               true,
			SupportsFullSync:        true,
			SupportsDeltaSync:       true,
			SupportsRealTimeUpdates: true,
			SupportedEntityTypes:    []string{"materials", "products"},
		},
		Order: erp.OrderCapability{
			Supported:             true,
			SupportsStatusUpdates: true,
			SupportsCancellation:  true,
			SupportsReturns:       true,
			SupportsPartialOrders: true,
		},
		Customer: erp.CustomerCapability{
			Supported:                 true,
			SupportsCreation:          true,
			SupportsUpdates:           true,
			SupportsAddressManagement: true,
			SupportsCreditLimitChecks: true,
		},
		Inventory: erp.InventoryCapability{
			Supported:               true,
			SupportsRealTimeUpdates: true,
			SupportsReservations:    true,
			SupportsMultiLocation:   true,
			SupportsLowStockAlerts:  true,
		},
		RealTime: erp.RealTimeCapability{
			Supported:           true,
			SupportsWebhooks:    true,
			SupportsPolling:     true,
			SupportedEventTypes: []string{"material-change", "order-update"},
		},
		Batch: erp.BatchCapability{
			Supported:          true,
			MaxBatchSize:       1000,
			SupportsBulkImport: true,
			SupportsBulkExport: true,
		},
		SupportedAuthTypes: []string{"basic", "oauth2"},
		Custom: map[string]bool{
			"supportsIdoc":  false,
			"supportsRfc":   false,
			"supportsOData": true,
		},
	}
}
