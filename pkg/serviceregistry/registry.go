package serviceregistry

import (
	"context"

	"github.com/core-tools/hsu-siat/pkg/clientfactory"
	"github.com/core-tools/hsu-siat/pkg/endpoints"
	"github.com/core-tools/hsu-siat/pkg/errors"
	"github.com/core-tools/hsu-siat/pkg/logging"
)

// Registry turns an endpoint map into a service map, isolating per-service failures
type Registry struct {
	factory clientfactory.Factory
	logger  logging.Logger
}

// NewRegistry creates a registry that builds clients through factory
func NewRegistry(factory clientfactory.Factory, logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	return &Registry{
		factory: factory,
		logger:  logger,
	}
}

// BuildAll constructs one client per endpoint, sequentially. A failing service
// is logged and recorded as a failed entry; the remaining services are still built.
func (r *Registry) BuildAll(ctx context.Context, endpointMap endpoints.EndpointMap, token string) ServiceMap {
	services := make(ServiceMap, len(endpointMap))

	for _, name := range endpointMap.Names() {
		services[name] = r.Rebuild(ctx, name, endpointMap[name], token)
	}

	ready, failed := services.Summary()
	if failed > 0 {
		r.logger.Warnf("Built SOAP clients: %d ready, %d failed %v", ready, failed, services.Failed())
	} else {
		r.logger.Infof("Built SOAP clients: %d ready", ready)
	}

	return services
}

// Rebuild constructs the client for a single service with the same isolation as BuildAll
func (r *Registry) Rebuild(ctx context.Context, name ServiceName, wsdlURL string, token string) (entry Entry) {
	entry.URL = wsdlURL

	defer func() {
		if p := recover(); p != nil {
			entry.Client = nil
			entry.Err = errors.NewInternalError("client construction panicked", nil).
				WithContext("service", string(name)).
				WithContext("panic", p)
			r.logger.Errorf("Failed to build SOAP client, service: %s, error: %v", name, entry.Err)
		}
	}()

	if r.factory == nil {
		entry.Err = errors.NewInternalError("client factory is not configured", nil).
			WithContext("service", string(name))
		r.logger.Errorf("Failed to build SOAP client, service: %s, error: %v", name, entry.Err)
		return entry
	}

	client, err := r.factory.BuildClient(ctx, wsdlURL, clientfactory.AuthHeaders(token), string(name))
	if err == nil && client == nil {
		err = errors.NewNoResultError("factory returned no client", nil)
	}
	if err != nil {
		r.logger.Errorf("Failed to build SOAP client, service: %s, error: %v", name, err)
		entry.Err = err
		return entry
	}

	r.logger.Debugf("SOAP client built, service: %s", name)
	entry.Client = client
	return entry
}
