package soap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/core-tools/hsu-siat/pkg/errors"
)

const envelopeNamespace = "http://schemas.xmlsoap.org/soap/envelope/"

// Client is a SOAP 1.1 client bound to one WSDL endpoint
type Client struct {
	wsdlURL     string
	address     string
	definitions *Definitions
	operations  map[string]Operation
	transport   *Transport
}

// NewClient loads and parses the WSDL at wsdlURL and binds a client to its first endpoint
func NewClient(ctx context.Context, wsdlURL string, transport *Transport) (*Client, error) {
	if transport == nil {
		return nil, errors.NewValidationError("transport is required", nil)
	}

	document, err := transport.Load(ctx, wsdlURL)
	if err != nil {
		return nil, err
	}

	definitions, err := ParseDefinitions(document)
	if err != nil {
		// a maintenance page must not be served from cache for the whole TTL
		if cache := transport.Cache(); cache != nil {
			if invalidateErr := cache.Invalidate(ctx, wsdlURL); invalidateErr != nil {
				transport.logger.Warnf("Failed to drop invalid WSDL from cache, url: %s, error: %v", wsdlURL, invalidateErr)
			}
		}
		return nil, errors.NewProtocolError("invalid WSDL", err).
			WithContext("url", wsdlURL)
	}

	return &Client{
		wsdlURL:     wsdlURL,
		address:     definitions.endpointAddress(),
		definitions: definitions,
		operations:  definitions.operations(),
		transport:   transport,
	}, nil
}

func (c *Client) WSDLURL() string {
	return c.wsdlURL
}

// Address is the service endpoint declared by the WSDL
func (c *Client) Address() string {
	return c.address
}

// Operations lists the operation names in sorted order
func (c *Client) Operations() []string {
	return sortedOperationNames(c.operations)
}

// Call invokes operation with request as the body element and decodes the
// first body element of the reply into response. Either may be nil.
func (c *Client) Call(ctx context.Context, operation string, request, response interface{}) error {
	op, ok := c.operations[operation]
	if !ok {
		return errors.NewNotFoundError("operation not declared by WSDL", nil).
			WithContext("operation", operation).
			WithContext("url", c.wsdlURL)
	}

	envelope, err := c.buildEnvelope(op, request)
	if err != nil {
		return err
	}

	body, status, err := c.transport.Post(ctx, c.address, op.SOAPAction, envelope)
	if err != nil {
		return err
	}

	content, fault, err := parseEnvelope(body)
	if err != nil {
		if status != http.StatusOK {
			return errors.NewNetworkError(fmt.Sprintf("SOAP call failed with status %d", status), nil).
				WithContext("operation", operation)
		}
		return errors.NewProtocolError("malformed SOAP response", err).
			WithContext("operation", operation)
	}
	if fault != nil {
		return errors.NewProtocolError("SOAP fault", nil).
			WithContext("operation", operation).
			WithContext("fault_code", fault.Code).
			WithContext("fault_string", fault.String)
	}
	if status != http.StatusOK {
		return errors.NewNetworkError(fmt.Sprintf("SOAP call failed with status %d", status), nil).
			WithContext("operation", operation)
	}

	if response == nil {
		return nil
	}
	if err := xml.Unmarshal(content, response); err != nil {
		return errors.NewProtocolError("failed to decode SOAP response", err).
			WithContext("operation", operation)
	}
	return nil
}

func (c *Client) buildEnvelope(op Operation, request interface{}) ([]byte, error) {
	var payload []byte
	if request == nil {
		payload = []byte(fmt.Sprintf(`<ns:%s xmlns:ns="%s"/>`, op.Name, c.definitions.TargetNamespace))
	} else {
		var err error
		payload, err = xml.Marshal(request)
		if err != nil {
			return nil, errors.NewValidationError("failed to encode SOAP request", err).
				WithContext("operation", op.Name)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<soapenv:Envelope xmlns:soapenv="` + envelopeNamespace + `"><soapenv:Header/><soapenv:Body>`)
	buf.Write(payload)
	buf.WriteString(`</soapenv:Body></soapenv:Envelope>`)
	return buf.Bytes(), nil
}

type responseEnvelope struct {
	XMLName xml.Name     `xml:"Envelope"`
	Body    responseBody `xml:"Body"`
}

type responseBody struct {
	Fault   *Fault `xml:"Fault"`
	Content []byte `xml:",innerxml"`
}

// Fault is a SOAP 1.1 fault
type Fault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

func parseEnvelope(data []byte) ([]byte, *Fault, error) {
	var envelope responseEnvelope
	if err := xml.Unmarshal(data, &envelope); err != nil {
		return nil, nil, err
	}
	return bytes.TrimSpace(envelope.Body.Content), envelope.Body.Fault, nil
}
