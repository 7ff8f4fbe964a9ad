package serviceregistry

import (
	"context"
	"fmt"
	"testing"

	"github.com/core-tools/hsu-siat/pkg/clientfactory"
	"github.com/core-tools/hsu-siat/pkg/endpoints"
	"github.com/core-tools/hsu-siat/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) LogLevelf(level int, format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Debugf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Infof(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Warnf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Errorf(format string, args ...interface{}) {
	m.Called(format, args)
}

func newMockLogger() *MockLogger {
	logger := &MockLogger{}
	logger.On("Debugf", mock.Anything, mock.Anything).Maybe()
	logger.On("Infof", mock.Anything, mock.Anything).Maybe()
	logger.On("Warnf", mock.Anything, mock.Anything).Maybe()
	logger.On("Errorf", mock.Anything, mock.Anything).Maybe()
	return logger
}

type stubClient struct {
	url string
}

func (c *stubClient) WSDLURL() string      { return c.url }
func (c *stubClient) Operations() []string { return nil }
func (c *stubClient) Call(ctx context.Context, operation string, request, response interface{}) error {
	return nil
}

type mockFactory struct {
	mock.Mock
}

func (m *mockFactory) BuildClient(ctx context.Context, wsdlURL string, headers map[string]string, cacheName string) (clientfactory.Client, error) {
	args := m.Called(wsdlURL, headers, cacheName)
	client, _ := args.Get(0).(clientfactory.Client)
	return client, args.Error(1)
}

func TestBuildAll_Bulkhead(t *testing.T) {
	endpointMap := endpoints.EndpointMap{
		endpoints.ObtencionCodigo:     "https://siat.test/codigos?wsdl",
		endpoints.SincronizacionDatos: "https://unreachable.test/sync?wsdl",
		endpoints.Compras:             "https://siat.test/compras?wsdl",
	}

	factory := &mockFactory{}
	headers := map[string]string{"apikey": "TokenApi tok"}
	factory.On("BuildClient", "https://siat.test/codigos?wsdl", headers, "OBTENCION_CODIGO").
		Return(&stubClient{url: "https://siat.test/codigos?wsdl"}, nil).Once()
	factory.On("BuildClient", "https://unreachable.test/sync?wsdl", headers, "SINCRONIZACION_DATOS").
		Return(nil, errors.NewNetworkError("dial tcp: no such host", nil)).Once()
	factory.On("BuildClient", "https://siat.test/compras?wsdl", headers, "COMPRAS").
		Return(&stubClient{url: "https://siat.test/compras?wsdl"}, nil).Once()

	logger := newMockLogger()
	registry := NewRegistry(factory, logger)

	services := registry.BuildAll(context.Background(), endpointMap, "tok")

	require.Len(t, services, 3)
	assert.Equal(t, []ServiceName{endpoints.SincronizacionDatos}, services.Failed())
	assert.True(t, errors.IsNetworkError(services[endpoints.SincronizacionDatos].Err))
	assert.Nil(t, services.Client(endpoints.SincronizacionDatos))
	assert.NotNil(t, services.Client(endpoints.ObtencionCodigo))
	assert.NotNil(t, services.Client(endpoints.Compras))
	assert.Equal(t, "https://unreachable.test/sync?wsdl", services[endpoints.SincronizacionDatos].URL)

	factory.AssertExpectations(t)
	logger.AssertCalled(t, "Errorf", "Failed to build SOAP client, service: %s, error: %v", mock.Anything)
}

func TestBuildAll_KeySetMatchesEndpoints(t *testing.T) {
	endpointMap, err := endpoints.Build(endpoints.EnvironmentTest, endpoints.ModalityComputarizada)
	require.NoError(t, err)

	registry := NewRegistry(&alternatingFactory{}, nil)
	services := registry.BuildAll(context.Background(), endpointMap, "")

	assert.Equal(t, endpointMap.Names(), services.Names())
	ready, failed := services.Summary()
	assert.Equal(t, len(endpointMap), ready+failed)
	assert.Positive(t, failed)
}

// alternatingFactory fails every other service
type alternatingFactory struct {
	calls int
}

func (f *alternatingFactory) BuildClient(ctx context.Context, wsdlURL string, headers map[string]string, cacheName string) (clientfactory.Client, error) {
	f.calls++
	if f.calls%2 == 0 {
		return nil, fmt.Errorf("service %s unavailable", cacheName)
	}
	return &stubClient{url: wsdlURL}, nil
}

func TestBuildAll_NeverPanics(t *testing.T) {
	endpointMap := endpoints.EndpointMap{
		endpoints.Operaciones: "https://siat.test/operaciones?wsdl",
		endpoints.Compras:     "https://siat.test/compras?wsdl",
	}

	factory := &mockFactory{}
	factory.On("BuildClient", "https://siat.test/operaciones?wsdl", mock.Anything, mock.Anything).
		Panic("wsdl parser bug")
	factory.On("BuildClient", "https://siat.test/compras?wsdl", mock.Anything, mock.Anything).
		Return(&stubClient{}, nil)

	registry := NewRegistry(factory, newMockLogger())

	var services ServiceMap
	require.NotPanics(t, func() {
		services = registry.BuildAll(context.Background(), endpointMap, "")
	})
	assert.True(t, errors.IsInternalError(services[endpoints.Operaciones].Err))
	assert.True(t, services[endpoints.Compras].OK())
}

func TestBuildAll_NoToken(t *testing.T) {
	factory := &mockFactory{}
	factory.On("BuildClient", "https://siat.test/codigos?wsdl", map[string]string(nil), "OBTENCION_CODIGO").
		Return(&stubClient{}, nil).Once()

	registry := NewRegistry(factory, nil)
	services := registry.BuildAll(context.Background(), endpoints.EndpointMap{
		endpoints.ObtencionCodigo: "https://siat.test/codigos?wsdl",
	}, "")

	assert.Empty(t, services.Failed())
	factory.AssertExpectations(t)
}

func TestBuildAll_NilClientIsFailure(t *testing.T) {
	factory := &mockFactory{}
	factory.On("BuildClient", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	registry := NewRegistry(factory, nil)
	services := registry.BuildAll(context.Background(), endpoints.EndpointMap{
		endpoints.Compras: "https://siat.test/compras?wsdl",
	}, "")

	assert.True(t, errors.IsNoResultError(services[endpoints.Compras].Err))
}

func TestServiceMap_Helpers(t *testing.T) {
	client := &stubClient{}
	services := ServiceMap{
		endpoints.Compras:         {Client: client},
		endpoints.ObtencionCodigo: {Err: errors.New("down")},
		endpoints.Operaciones:     {},
	}

	assert.Equal(t, []ServiceName{endpoints.Compras}, services.Ready())
	assert.Equal(t, []ServiceName{endpoints.ObtencionCodigo, endpoints.Operaciones}, services.Failed())
	assert.Nil(t, services.Client("UNKNOWN"))

	clone := services.Clone()
	delete(clone, endpoints.Compras)
	assert.Contains(t, services, endpoints.Compras)
	assert.Same(t, client, services.Client(endpoints.Compras))
}
