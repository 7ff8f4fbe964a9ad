package soap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/core-tools/hsu-siat/pkg/errors"
	"github.com/core-tools/hsu-siat/pkg/logging"
	"github.com/core-tools/hsu-siat/pkg/wsdlcache"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultConnectTimeout   = 15 * time.Second
	DefaultOperationTimeout = 23 * time.Second

	maxDocumentSize = 16 << 20
)

// concurrent loads of the same WSDL URL within the process share one fetch
var fetchGroup singleflight.Group

type TransportOptions struct {
	ConnectTimeout   time.Duration     // dial, TLS handshake and whole WSDL load timeout
	OperationTimeout time.Duration     // whole SOAP call timeout
	Cache            wsdlcache.Cache   // optional
	Headers          map[string]string // session headers sent with every request
	RoundTripper     http.RoundTripper // optional, replaces the default dialer
	Logger           logging.Logger
}

func (o *TransportOptions) OptConnectTimeout() time.Duration {
	if o.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return o.ConnectTimeout
}

func (o *TransportOptions) OptOperationTimeout() time.Duration {
	if o.OperationTimeout <= 0 {
		return DefaultOperationTimeout
	}
	return o.OperationTimeout
}

func (o *TransportOptions) OptLogger() logging.Logger {
	if o.Logger == nil {
		return logging.NewNullLogger()
	}
	return o.Logger
}

// Transport carries WSDL loads and SOAP calls over HTTP
type Transport struct {
	httpClient       *http.Client
	connectTimeout   time.Duration
	operationTimeout time.Duration
	cache            wsdlcache.Cache
	headers          http.Header
	logger           logging.Logger
}

func NewTransport(options TransportOptions) *Transport {
	connectTimeout := options.OptConnectTimeout()

	roundTripper := options.RoundTripper
	if roundTripper == nil {
		dialer := &net.Dialer{Timeout: connectTimeout}
		roundTripper = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout: connectTimeout,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	headers := make(http.Header)
	for key, value := range options.Headers {
		headers.Set(key, value)
	}

	return &Transport{
		httpClient:       &http.Client{Transport: roundTripper},
		connectTimeout:   connectTimeout,
		operationTimeout: options.OptOperationTimeout(),
		cache:            options.Cache,
		headers:          headers,
		logger:           options.OptLogger(),
	}
}

// Header returns a copy of the session headers
func (t *Transport) Header() http.Header {
	return t.headers.Clone()
}

// Cache returns the WSDL cache, nil when caching is disabled
func (t *Transport) Cache() wsdlcache.Cache {
	return t.cache
}

// Load returns the document at url, from the cache when a fresh copy exists
func (t *Transport) Load(ctx context.Context, url string) ([]byte, error) {
	if t.cache != nil {
		body, found, err := t.cache.Get(ctx, url)
		if err != nil {
			t.logger.Warnf("WSDL cache read failed, url: %s, error: %v", url, err)
		} else if found {
			t.logger.Debugf("WSDL served from cache, url: %s", url)
			return body, nil
		}
	}

	// the session headers take part in the key since they may change what the server returns
	key := url + "\x00" + t.headers.Get("apikey")
	// the flight outlives any single waiter; each waiter gives up on its own ctx
	flight := fetchGroup.DoChan(key, func() (interface{}, error) {
		return t.fetch(context.WithoutCancel(ctx), url)
	})

	var result singleflight.Result
	select {
	case result = <-flight:
	case <-ctx.Done():
		return nil, errors.NewCancelledError("WSDL load cancelled", ctx.Err()).
			WithContext("url", url)
	}
	if result.Err != nil {
		return nil, result.Err
	}
	body := result.Val.([]byte)

	if result.Shared {
		t.logger.Debugf("WSDL fetch shared with a concurrent load, url: %s", url)
	}

	if t.cache != nil {
		if err := t.cache.Put(ctx, url, body); err != nil {
			t.logger.Warnf("WSDL cache write failed, url: %s, error: %v", url, err)
		}
	}

	return body, nil
}

func (t *Transport) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.connectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewValidationError("invalid WSDL URL", err).
			WithContext("url", url)
	}
	t.applyHeaders(req)

	t.logger.Debugf("Fetching WSDL, url: %s", url)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError("failed to fetch WSDL", err).
			WithContext("url", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, errors.NewNetworkError("failed to read WSDL response", err).
			WithContext("url", url)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewNetworkError(fmt.Sprintf("WSDL fetch failed with status %d", resp.StatusCode), nil).
			WithContext("url", url)
	}

	return body, nil
}

// Post sends a SOAP envelope and returns the raw response body and status code
func (t *Transport) Post(ctx context.Context, address, soapAction string, envelope []byte) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.operationTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, address, bytes.NewReader(envelope))
	if err != nil {
		return nil, 0, errors.NewValidationError("invalid service address", err).
			WithContext("address", address)
	}
	t.applyHeaders(req)
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"`+soapAction+`"`)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.NewNetworkError("SOAP request failed", err).
			WithContext("address", address)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, resp.StatusCode, errors.NewNetworkError("failed to read SOAP response", err).
			WithContext("address", address)
	}

	return body, resp.StatusCode, nil
}

func (t *Transport) applyHeaders(req *http.Request) {
	for key, values := range t.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
}
