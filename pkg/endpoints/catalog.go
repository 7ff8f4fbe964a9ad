package endpoints

import (
	"github.com/core-tools/hsu-siat/pkg/errors"
)

const (
	pilotBaseURL      = "https://pilotosiatservicios.impuestos.gob.bo/v2/"
	productionBaseURL = "https://siatrest.impuestos.gob.bo/v2/"
)

// Tables below are never handed out directly; every accessor copies.

var baseTables = map[Environment]EndpointMap{
	EnvironmentTest: {
		ObtencionCodigo:     pilotBaseURL + "FacturacionCodigos?wsdl",
		SincronizacionDatos: pilotBaseURL + "FacturacionSincronizacion?wsdl",
		Operaciones:         pilotBaseURL + "FacturacionOperaciones?wsdl",
		Compras:             pilotBaseURL + "ServicioRecepcionCompras?wsdl",
		NotaCreditoDebito:   pilotBaseURL + "ServicioFacturacionDocumentoAjuste?wsdl",
		FacturaCompraVenta:  pilotBaseURL + "ServicioFacturacionCompraVenta?wsdl",
	},
	EnvironmentProduction: {
		ObtencionCodigo:     productionBaseURL + "FacturacionCodigos?wsdl",
		SincronizacionDatos: productionBaseURL + "FacturacionSincronizacion?wsdl",
		Operaciones:         productionBaseURL + "FacturacionOperaciones?wsdl",
		Compras:             productionBaseURL + "ServicioRecepcionCompras?wsdl",
		NotaCreditoDebito:   productionBaseURL + "ServicioFacturacionDocumentoAjuste?wsdl",
		FacturaCompraVenta:  productionBaseURL + "ServicioFacturacionCompraVenta?wsdl",
	},
}

// Each modality routes all of its services to one common URL per environment.
var modalityURLs = map[Modality]map[Environment]string{
	ModalityElectronica: {
		EnvironmentTest:       pilotBaseURL + "ServicioFacturacionElectronica?wsdl",
		EnvironmentProduction: productionBaseURL + "ServicioFacturacionElectronica?wsdl",
	},
	ModalityComputarizada: {
		EnvironmentTest:       pilotBaseURL + "ServicioFacturacionComputarizada?wsdl",
		EnvironmentProduction: productionBaseURL + "ServicioFacturacionComputarizada?wsdl",
	},
}

var sectorServices = []ServiceName{
	FacturaSectorHotel,
	FacturaSectorEducativo,
	FacturaAlquilerInmuebles,
	FacturaHospitalClinica,
	FacturaEntidadFinanciera,
	FacturaServiciosBasicos,
}

var modalityServices = map[Modality][]ServiceName{
	ModalityElectronica:   append([]ServiceName{ServiciosElectronica}, sectorServices...),
	ModalityComputarizada: append([]ServiceName{ServiciosComputarizada}, sectorServices...),
}

// BaseEndpoints returns a fresh copy of the shared endpoints for env
func BaseEndpoints(env Environment) (EndpointMap, error) {
	table, ok := baseTables[env]
	if !ok {
		return nil, errors.NewConfigError("unknown environment", nil).
			WithContext("environment", int(env))
	}
	return table.Clone(), nil
}

// ModalityEndpoints returns the overlay table of a modality for env.
// ModalityNone yields an empty map.
func ModalityEndpoints(modality Modality, env Environment) (EndpointMap, error) {
	if !env.Valid() {
		return nil, errors.NewConfigError("unknown environment", nil).
			WithContext("environment", int(env))
	}
	if modality == ModalityNone {
		return EndpointMap{}, nil
	}

	urls, ok := modalityURLs[modality]
	if !ok {
		return nil, errors.NewConfigError("unknown modality", nil).
			WithContext("modality", int(modality))
	}

	url := urls[env]
	overlay := make(EndpointMap, len(modalityServices[modality]))
	for _, name := range modalityServices[modality] {
		overlay[name] = url
	}
	return overlay, nil
}

// OverlayForModality merges the modality overlay on top of base; overlay entries win.
// base is never modified, the result is always a new map.
func OverlayForModality(base EndpointMap, modality Modality, env Environment) (EndpointMap, error) {
	overlay, err := ModalityEndpoints(modality, env)
	if err != nil {
		return nil, err
	}

	merged := base.Clone()
	for name, url := range overlay {
		merged[name] = url
	}
	return merged, nil
}

// Build resolves the full endpoint map for an environment and modality
func Build(env Environment, modality Modality) (EndpointMap, error) {
	base, err := BaseEndpoints(env)
	if err != nil {
		return nil, err
	}
	return OverlayForModality(base, modality, env)
}
