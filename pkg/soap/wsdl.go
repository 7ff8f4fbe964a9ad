package soap

import (
	"encoding/xml"
	"sort"

	"github.com/core-tools/hsu-siat/pkg/errors"
)

// Definitions is the subset of a WSDL 1.1 document needed to issue calls
type Definitions struct {
	XMLName         xml.Name   `xml:"definitions"`
	Name            string     `xml:"name,attr"`
	TargetNamespace string     `xml:"targetNamespace,attr"`
	PortTypes       []PortType `xml:"portType"`
	Bindings        []Binding  `xml:"binding"`
	Services        []Service  `xml:"service"`
}

type PortType struct {
	Name       string          `xml:"name,attr"`
	Operations []PortOperation `xml:"operation"`
}

type PortOperation struct {
	Name string `xml:"name,attr"`
}

type Binding struct {
	Name       string             `xml:"name,attr"`
	Type       string             `xml:"type,attr"`
	Operations []BindingOperation `xml:"operation"`
}

type BindingOperation struct {
	Name          string `xml:"name,attr"`
	SOAPOperation struct {
		SOAPAction string `xml:"soapAction,attr"`
	} `xml:"operation"`
}

type Service struct {
	Name  string `xml:"name,attr"`
	Ports []Port `xml:"port"`
}

type Port struct {
	Name    string `xml:"name,attr"`
	Binding string `xml:"binding,attr"`
	Address struct {
		Location string `xml:"location,attr"`
	} `xml:"address"`
}

// Operation is a callable operation resolved from the WSDL
type Operation struct {
	Name       string
	SOAPAction string
}

// ParseDefinitions decodes a WSDL document and checks it exposes an endpoint
func ParseDefinitions(data []byte) (*Definitions, error) {
	var definitions Definitions
	if err := xml.Unmarshal(data, &definitions); err != nil {
		return nil, errors.NewProtocolError("failed to parse WSDL document", err)
	}

	if definitions.endpointAddress() == "" {
		return nil, errors.NewProtocolError("WSDL document declares no service endpoint", nil).
			WithContext("definitions", definitions.Name)
	}

	return &definitions, nil
}

func (d *Definitions) endpointAddress() string {
	for _, service := range d.Services {
		for _, port := range service.Ports {
			if port.Address.Location != "" {
				return port.Address.Location
			}
		}
	}
	return ""
}

// operations merges portType operations with the soapAction declared by bindings
func (d *Definitions) operations() map[string]Operation {
	ops := make(map[string]Operation)
	for _, portType := range d.PortTypes {
		for _, op := range portType.Operations {
			ops[op.Name] = Operation{Name: op.Name}
		}
	}
	for _, binding := range d.Bindings {
		for _, op := range binding.Operations {
			ops[op.Name] = Operation{Name: op.Name, SOAPAction: op.SOAPOperation.SOAPAction}
		}
	}
	return ops
}

func sortedOperationNames(ops map[string]Operation) []string {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
