package erp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2x/erp-integration/internal/domain/erp"
)

type stubConnector struct {
	providerID  string
	displayName string
	caps        erp.ConnectorCapabilities
	factory     erp.ScopeFactory
}

func (c *stubConnector) ProviderID() string                      { return c.providerID }
func (c *stubConnector) DisplayName() string                     { return c.displayName }
func (c *stubConnector) Capabilities() erp.ConnectorCapabilities { return c.caps }
func (c *stubConnector) ScopeFactory() erp.ScopeFactory          { return c.factory }

func newStubConnector(providerID string) *stubConnector {
	return &stubConnector{
		providerID:  providerID,
		displayName: providerID,
		caps: erp.ConnectorCapabilities{
			Catalog: erp.CatalogCapability{
				Supported:            true,
				SupportsDeltaSync:    true,
				SupportedEntityTypes: []string{"materials"},
			},
			SupportedAuthTypes: []string{"basic"},
		},
		factory: &stubScopeFactory{},
	}
}

func TestConnectorRegistry_RegisterAndGet(t *testing.T) {
	registry := NewConnectorRegistry(nil)

	require.NoError(t, registry.Register(newStubConnector("fashop")))

	connector, err := registry.Get("fashop")
	require.NoError(t, err)
	assert.Equal(t, "fashop", connector.ProviderID())
}

func TestConnectorRegistry_DuplicateRegistration(t *testing.T) {
	registry := NewConnectorRegistry(nil)

	require.NoError(t, registry.Register(newStubConnector("fashop")))
	err := registry.Register(newStubConnector("fashop"))

	assert.ErrorIs(t, err, erp.ErrProviderAlreadyExists)
}

func TestConnectorRegistry_EmptyProviderID(t *testing.T) {
	registry := NewConnectorRegistry(nil)

	err := registry.Register(newStubConnector(""))
	assert.ErrorIs(t, err, erp.ErrInvalidProviderID)
}

func TestConnectorRegistry_UnknownProvider(t *testing.T) {
	registry := NewConnectorRegistry(nil)

	_, err := registry.Get("sap")
	assert.ErrorIs(t, err, erp.ErrProviderNotRegistered)

	_, err = registry.Describe("sap")
	assert.ErrorIs(t, err, erp.ErrProviderNotRegistered)
}

func TestConnectorRegistry_Describe(t *testing.T) {
	registry := NewConnectorRegistry(nil)
	require.NoError(t, registry.Register(newStubConnector("fashop")))

	caps, err := registry.Describe("fashop")

	require.NoError(t, err)
	assert.True(t, caps.SupportsEntityType("materials"))
	assert.False(t, caps.SupportsEntityType("invoices"))
}

func TestConnectorRegistry_ProvidersSorted(t *testing.T) {
	registry := NewConnectorRegistry(nil)
	require.NoError(t, registry.Register(newStubConnector("sap")))
	require.NoError(t, registry.Register(newStubConnector("fashop")))

	assert.Equal(t, []string{"fashop", "sap"}, registry.Providers())
}

func TestConnectorRegistry_SupportsOperation(t *testing.T) {
	registry := NewConnectorRegistry(nil)
	require.NoError(t, registry.Register(newStubConnector("fashop")))

	supported, err := registry.SupportsOperation("fashop", func(c erp.ConnectorCapabilities) bool {
		return c.Catalog.SupportsDeltaSync
	})
	require.NoError(t, err)
	assert.True(t, supported)

	supported, err = registry.SupportsOperation("fashop", func(c erp.ConnectorCapabilities) bool {
		return c.Order.Supported
	})
	require.NoError(t, err)
	assert.False(t, supported)
}
