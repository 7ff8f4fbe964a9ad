package endpoints

import (
	"sort"
	"strconv"
	"strings"

	"github.com/core-tools/hsu-siat/pkg/errors"
)

// Environment selects which base-URL table is used
type Environment int

const (
	EnvironmentTest       Environment = 1
	EnvironmentProduction Environment = 2
)

func (e Environment) String() string {
	switch e {
	case EnvironmentTest:
		return "test"
	case EnvironmentProduction:
		return "production"
	default:
		return "unknown(" + strconv.Itoa(int(e)) + ")"
	}
}

func (e Environment) Valid() bool {
	return e == EnvironmentTest || e == EnvironmentProduction
}

// ParseEnvironment normalizes numeric or named input into an Environment
func ParseEnvironment(value string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "test", "pilot", "piloto":
		return EnvironmentTest, nil
	case "2", "production", "prod", "produccion":
		return EnvironmentProduction, nil
	}
	return 0, errors.NewConfigError("unknown environment", nil).
		WithContext("value", value)
}

// Modality is one of the two mutually exclusive invoicing regimes, or none
type Modality int

const (
	ModalityNone          Modality = 0
	ModalityElectronica   Modality = 1
	ModalityComputarizada Modality = 2
)

func (m Modality) String() string {
	switch m {
	case ModalityNone:
		return "none"
	case ModalityElectronica:
		return "electronica"
	case ModalityComputarizada:
		return "computarizada"
	default:
		return "unknown(" + strconv.Itoa(int(m)) + ")"
	}
}

func (m Modality) Valid() bool {
	return m == ModalityNone || m == ModalityElectronica || m == ModalityComputarizada
}

// ParseModality normalizes numeric or named input into a Modality; empty means none
func ParseModality(value string) (Modality, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "0", "none":
		return ModalityNone, nil
	case "1", "electronica", "electronic":
		return ModalityElectronica, nil
	case "2", "computarizada", "computerized":
		return ModalityComputarizada, nil
	}
	return 0, errors.NewConfigError("unknown modality", nil).
		WithContext("value", value)
}

// ServiceName identifies one SIAT web service
type ServiceName string

const (
	ObtencionCodigo     ServiceName = "OBTENCION_CODIGO"
	SincronizacionDatos ServiceName = "SINCRONIZACION_DATOS"
	Operaciones         ServiceName = "OPERACIONES"
	Compras             ServiceName = "COMPRAS"
	NotaCreditoDebito   ServiceName = "NOTA_CREDITO_DEBITO"
	FacturaCompraVenta  ServiceName = "FACTURA_COMPRA_VENTA"

	ServiciosElectronica     ServiceName = "SERVICIOS_ELECTRONICA"
	ServiciosComputarizada   ServiceName = "SERVICIOS_COMPUTARIZADA"
	FacturaSectorHotel       ServiceName = "FACTURA_SECTOR_HOTEL"
	FacturaSectorEducativo   ServiceName = "FACTURA_SECTOR_EDUCATIVO"
	FacturaAlquilerInmuebles ServiceName = "FACTURA_ALQUILER_INMUEBLES"
	FacturaHospitalClinica   ServiceName = "FACTURA_HOSPITAL_CLINICA"
	FacturaEntidadFinanciera ServiceName = "FACTURA_ENTIDAD_FINANCIERA"
	FacturaServiciosBasicos  ServiceName = "FACTURA_SERVICIOS_BASICOS"
)

// EndpointMap maps a service to its WSDL URL
type EndpointMap map[ServiceName]string

// Clone returns an independent copy
func (m EndpointMap) Clone() EndpointMap {
	clone := make(EndpointMap, len(m))
	for name, url := range m {
		clone[name] = url
	}
	return clone
}

// Names returns the service names in sorted order
func (m EndpointMap) Names() []ServiceName {
	names := make([]ServiceName, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
