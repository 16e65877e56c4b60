package erp

// ---------------------------------------------------------------------------
// ConnectorCapabilities
// ---------------------------------------------------------------------------

// CatalogCapability describes a connector's catalog sync support.
type CatalogCapability struct {
	// Supported indicates catalog sync is available at all
	Supported bool
	// SupportsFullSync indicates full catalog export is supported
	SupportsFullSync bool
	// SupportsDeltaSync indicates incremental sync via change tokens
	SupportsDeltaSync bool
	// SupportsRealTimeUpdates indicates push-style catalog updates
	SupportsRealTimeUpdates bool
	// SupportedEntityTypes lists the catalog entity kinds the connector handles
	SupportedEntityTypes []string
}

// OrderCapability describes a connector's order operation support.
type OrderCapability struct {
	Supported            bool
	SupportsStatusUpdates bool
	SupportsCancellation  bool
	SupportsReturns       bool
	SupportsPartialOrders bool
}

// CustomerCapability describes a connector's customer master data support.
type CustomerCapability struct {
	Supported                bool
	SupportsCreation         bool
	SupportsUpdates          bool
	SupportsAddressManagement bool
	SupportsCreditLimitChecks bool
}

// InventoryCapability describes a connector's inventory support.
type InventoryCapability struct {
	Supported               bool
	SupportsRealTimeUpdates bool
	SupportsReservations    bool
	SupportsMultiLocation   bool
	SupportsLowStockAlerts  bool
}

// RealTimeCapability describes a connector's push/event support.
type RealTimeCapability struct {
	Supported           bool
	SupportsWebhooks    bool
	SupportsPolling     bool
	SupportedEventTypes []string
}

// BatchCapability describes a connector's bulk operation support.
type BatchCapability struct {
	Supported          bool
	MaxBatchSize       int
	SupportsBulkImport bool
	SupportsBulkExport bool
}

// ConnectorCapabilities is the immutable declaration of what operations one ERP
// connector supports. It is constructed once at connector registration time and
// only ever read afterwards. The registry is advisory: callers check the
// relevant flag before attempting an operation, and connectors still fail
// gracefully if an unsupported operation is attempted anyway.
type ConnectorCapabilities struct {
	Catalog   CatalogCapability
	Order     OrderCapability
	Customer  CustomerCapability
	Inventory InventoryCapability
	RealTime  RealTimeCapability
	Batch     BatchCapability
	// SupportedAuthTypes lists accepted authentication schemes ("basic", "oauth2", ...)
	SupportedAuthTypes []string
	// Custom carries connector-specific capability flags ("supportsOData", ...)
	Custom map[string]bool
}

// SupportsEntityType returns true if the connector's catalog sync handles the
// given entity type.
func (c ConnectorCapabilities) SupportsEntityType(entityType string) bool {
	if !c.Catalog.Supported {
		return false
	}
	for _, t := range c.Catalog.SupportedEntityTypes {
		if t == entityType {
			return true
		}
	}
	return false
}

// SupportsAuthType returns true if the connector accepts the auth scheme.
func (c ConnectorCapabilities) SupportsAuthType(authType string) bool {
	for _, t := range c.SupportedAuthTypes {
		if t == authType {
			return true
		}
	}
	return false
}

// HasCustom returns the value of a connector-specific capability flag.
func (c ConnectorCapabilities) HasCustom(name string) bool {
	return c.Custom[name]
}
