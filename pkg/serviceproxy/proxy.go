package serviceproxy

import (
	"context"
	"sync"

	"github.com/core-tools/hsu-siat/pkg/clientfactory"
	"github.com/core-tools/hsu-siat/pkg/endpoints"
	"github.com/core-tools/hsu-siat/pkg/errors"
	"github.com/core-tools/hsu-siat/pkg/logging"
	"github.com/core-tools/hsu-siat/pkg/serviceregistry"
)

type Options struct {
	Environment endpoints.Environment
	Modality    endpoints.Modality
	Token       string
	Factory     clientfactory.Factory // defaults to clientfactory.NewFactory with Logger
	Logger      logging.Logger
}

func (o *Options) OptLogger() logging.Logger {
	if o.Logger == nil {
		return logging.NewNullLogger()
	}
	return o.Logger
}

func (o *Options) OptFactory() clientfactory.Factory {
	if o.Factory == nil {
		return clientfactory.NewFactory(clientfactory.Options{Logger: o.Logger})
	}
	return o.Factory
}

// ServiceProxy owns the SIAT configuration and the current service map
type ServiceProxy struct {
	environment endpoints.Environment
	modality    endpoints.Modality
	token       string
	registry    *serviceregistry.Registry
	logger      logging.Logger

	mu       sync.RWMutex
	services serviceregistry.ServiceMap // nil until Setup
}

// New creates an uninitialized proxy; call Setup before use
func New(options Options) *ServiceProxy {
	logger := options.OptLogger()

	return &ServiceProxy{
		environment: options.Environment,
		modality:    options.Modality,
		token:       options.Token,
		registry:    serviceregistry.NewRegistry(options.OptFactory(), logger),
		logger:      logger,
	}
}

func (p *ServiceProxy) Environment() endpoints.Environment { return p.environment }
func (p *ServiceProxy) Modality() endpoints.Modality       { return p.modality }

// Endpoints resolves the endpoint map for the configured environment and modality
func (p *ServiceProxy) Endpoints() (endpoints.EndpointMap, error) {
	return endpoints.Build(p.environment, p.modality)
}

// Setup builds every client from scratch and replaces the current service map.
// Only configuration errors are returned; per-service failures are recorded in the map.
// Clients of a previous Setup are dropped without being closed.
func (p *ServiceProxy) Setup(ctx context.Context) (serviceregistry.ServiceMap, error) {
	endpointMap, err := p.Endpoints()
	if err != nil {
		return nil, err
	}

	p.logger.Infof("Setting up SIAT services, environment: %s, modality: %s, services: %d",
		p.environment, p.modality, len(endpointMap))

	services := p.registry.BuildAll(ctx, endpointMap, p.token)

	p.mu.Lock()
	p.services = services
	p.mu.Unlock()

	return services.Clone(), nil
}

// Services returns a snapshot of the current service map, nil before Setup
func (p *ServiceProxy) Services() serviceregistry.ServiceMap {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.services == nil {
		return nil
	}
	return p.services.Clone()
}

// Client returns the usable client for name
func (p *ServiceProxy) Client(name endpoints.ServiceName) (clientfactory.Client, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.services == nil {
		return nil, errors.NewValidationError("service proxy is not set up", nil)
	}

	entry, ok := p.services[name]
	if !ok {
		return nil, errors.NewNotFoundError("unknown service", nil).
			WithContext("service", string(name))
	}
	if !entry.OK() {
		return nil, errors.NewNotFoundError("service client is unavailable", entry.Err).
			WithContext("service", string(name))
	}
	return entry.Client, nil
}

// RegenerateFailedClients retries construction for failed entries only, using
// freshly resolved URLs. Usable clients are never replaced. An entry that fails
// again keeps its failed state with the new error.
func (p *ServiceProxy) RegenerateFailedClients(ctx context.Context) error {
	failed := p.failedServices()
	if failed == nil {
		return errors.NewValidationError("service proxy is not set up", nil)
	}
	if len(failed) == 0 {
		p.logger.Debugf("No failed SIAT services to regenerate")
		return nil
	}

	endpointMap, err := p.Endpoints()
	if err != nil {
		return err
	}

	p.logger.Infof("Regenerating %d failed SIAT services: %v", len(failed), failed)

	repaired := 0
	for _, name := range failed {
		url, ok := endpointMap[name]
		if !ok {
			// key set is fixed by configuration, so this only happens if the tables changed
			p.logger.Warnf("Service %s no longer has an endpoint, skipping", name)
			continue
		}

		entry := p.registry.Rebuild(ctx, name, url, p.token)

		p.mu.Lock()
		current, exists := p.services[name]
		if exists && !current.OK() {
			p.services[name] = entry
		}
		p.mu.Unlock()

		if entry.OK() {
			repaired++
		}
	}

	p.logger.Infof("Regeneration done, repaired: %d, still failed: %d", repaired, len(failed)-repaired)

	return nil
}

// failedServices returns nil before Setup, otherwise the failed names (possibly empty)
func (p *ServiceProxy) failedServices() []endpoints.ServiceName {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.services == nil {
		return nil
	}
	failed := p.services.Failed()
	if failed == nil {
		failed = []endpoints.ServiceName{}
	}
	return failed
}
