package connector

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/b2x/erp-integration/internal/domain/erp"
)

// SAPConnector is the connector for SAP ERP. Outbound changes are staged in
// local tables before hand-off to SAP, so its scopes ride on database
// transactions.
type SAPConnector struct {
	logger *zap.Logger
	scopes erp.ScopeFactory
}

var _ erp.Connector = (*SAPConnector)(nil)

// NewSAPConnector creates a new SAPConnector
func NewSAPConnector(db *gorm.DB, logger *zap.Logger) *SAPConnector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SAPConnector{
		logger: logger,
		scopes: NewGormScopeFactory(db),
	}
}

// ProviderID returns the stable connector identifier
func (c *SAPConnector) ProviderID() string { return "sap" }

// DisplayName returns a human-readable connector name
func (c *SAPConnector) DisplayName() string { return "SAP ERP" }

// ScopeFactory returns the factory used to open transaction scopes
func (c *SAPConnector) ScopeFactory() erp.ScopeFactory { return c.scopes }

// Capabilities returns the connector's immutable capability declaration.
func (c *SAPConnector) Capabilities() erp.ConnectorCapabilities {
	return erp.ConnectorCapabilities{
		Catalog: erp.CatalogCapability{
			Supported:               true,
			SupportsFullSync:        true,
			SupportsDeltaSync:       true,
			SupportsRealTimeUpdates: true,
			SupportedEntityTypes:    []string{"materials"},
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
			SupportedEventTypes: []string{"material-change"},
		},
		Batch: erp.BatchCapability{
			Supported:          true,
			MaxBatchSize:       1000,
			SupportsBulkImport: true,
			SupportsBulkExport: true,
		},
		SupportedAuthTypes: []string{"oauth2", "basic", "certificate"},
		Custom: map[string]bool{
			"supportsIdoc":         true,
			"supportsRfc":          true,
			"supportsOData":        true,
			"supportsMultiCompany": true,
		},
	}
}
