package clientfactory

import (
	"context"
	"time"

	"github.com/core-tools/hsu-siat/pkg/errors"
	"github.com/core-tools/hsu-siat/pkg/logging"
	"github.com/core-tools/hsu-siat/pkg/soap"
	"github.com/core-tools/hsu-siat/pkg/timeout"
	"github.com/core-tools/hsu-siat/pkg/wsdlcache"
)

const DefaultConstructionTimeout = 10 * time.Second

// Client is a constructed SOAP client bound to one WSDL endpoint
type Client interface {
	WSDLURL() string
	Operations() []string
	Call(ctx context.Context, operation string, request, response interface{}) error
}

var _ Client = (*soap.Client)(nil)

// Factory builds one client per WSDL endpoint
type Factory interface {
	BuildClient(ctx context.Context, wsdlURL string, headers map[string]string, cacheName string) (Client, error)
}

// AuthHeaders returns the SIAT apikey header for token, or nil when token is empty
func AuthHeaders(token string) map[string]string {
	if token == "" {
		return nil
	}
	return map[string]string{"apikey": "TokenApi " + token}
}

type Options struct {
	ConstructionTimeout time.Duration
	ConnectTimeout      time.Duration
	OperationTimeout    time.Duration
	CacheDir            string
	CacheTTL            time.Duration
	Logger              logging.Logger
}

func (o *Options) OptConstructionTimeout() time.Duration {
	if o.ConstructionTimeout <= 0 {
		return DefaultConstructionTimeout
	}
	return o.ConstructionTimeout
}

func (o *Options) OptLogger() logging.Logger {
	if o.Logger == nil {
		return logging.NewNullLogger()
	}
	return o.Logger
}

func NewFactory(options Options) Factory {
	logger := options.OptLogger()

	f := &factory{
		constructionTimeout: options.OptConstructionTimeout(),
		connectTimeout:      options.ConnectTimeout,
		operationTimeout:    options.OperationTimeout,
		cacheDir:            options.CacheDir,
		cacheTTL:            options.CacheTTL,
		logger:              logger,
	}

	logger.Debugf("SOAP client factory created (construction timeout: %s)", f.constructionTimeout)

	return f
}

type factory struct {
	constructionTimeout time.Duration
	connectTimeout      time.Duration
	operationTimeout    time.Duration
	cacheDir            string
	cacheTTL            time.Duration
	logger              logging.Logger
}

// BuildClient opens the cache, configures the transport and loads the WSDL,
// all under the construction timeout. Failures are returned unchanged.
func (f *factory) BuildClient(ctx context.Context, wsdlURL string, headers map[string]string, cacheName string) (Client, error) {
	if wsdlURL == "" {
		return nil, errors.NewValidationError("WSDL URL cannot be empty", nil).
			WithContext("cache_name", cacheName)
	}

	f.logger.Debugf("Building SOAP client, url: %s, cache: %q", wsdlURL, cacheName)

	client, err := timeout.RunContext(ctx, func(ctx context.Context) (*soap.Client, error) {
		return f.construct(ctx, wsdlURL, headers, cacheName)
	}, f.constructionTimeout, timeout.MustExist)
	if err != nil {
		return nil, err
	}

	f.logger.Infof("SOAP client ready, url: %s, operations: %d", wsdlURL, len(client.Operations()))

	return client, nil
}

func (f *factory) construct(ctx context.Context, wsdlURL string, headers map[string]string, cacheName string) (*soap.Client, error) {
	var cache wsdlcache.Cache
	if cacheName != "" {
		var err error
		cache, err = wsdlcache.Open(cacheName, wsdlcache.Options{
			Dir:    f.cacheDir,
			TTL:    f.cacheTTL,
			Logger: f.logger,
		})
		if err != nil {
			return nil, err
		}
	}

	transport := soap.NewTransport(soap.TransportOptions{
		ConnectTimeout:   f.connectTimeout,
		OperationTimeout: f.operationTimeout,
		Cache:            cache,
		Headers:          headers,
		Logger:           f.logger,
	})

	client, err := soap.NewClient(ctx, wsdlURL, transport)
	if err != nil {
		if cache != nil {
			cache.Close()
		}
		return nil, err
	}
	return client, nil
}
