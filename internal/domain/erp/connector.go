package erp

// Connector is the port every ERP connector implements. The transport behind a
// connector (HTTP, RPC, file drop) is opaque to this layer; the reliability
// machinery only needs its identity, its declared capabilities, and a factory
// for transaction scopes.
type Connector interface {
	// ProviderID returns the stable connector identifier ("fashop", "sap", ...)
	ProviderID() string

	// DisplayName returns a human-readable connector name
	DisplayName() string

	// Capabilities returns the connector's immutable capability declaration
	Capabilities() ConnectorCapabilities

	// ScopeFactory returns the factory used to open transaction scopes against
	// this connector's external system
	ScopeFactory() ScopeFactory
}
