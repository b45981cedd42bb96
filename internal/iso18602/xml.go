// Package iso18602 renders a shipment as the ISO 18602 freight tracking
// message, in XML and in its EDIFACT IFTSTA segment form. Rendering is a
// pure function of the shipment snapshot and the export time: exporting the
// same shipment twice yields byte-identical documents.
package iso18602

import (
	"encoding/xml"
	"fmt"
	"time"

	"seacert/internal/shipment"
)

const (
	namespace      = "urn:iso:18602:2013"
	schemaVersion  = "1.0"
	messageTypeIftsta = "IFTSTA"
)

// TrackingMessage is the ISO 18602 document root. Element order is fixed by
// the schema; struct order below is load-bearing.
type TrackingMessage struct {
	XMLName xml.Name `xml:"TrackingMessage"`
	Xmlns   string   `xml:"xmlns,attr"`
	Version string   `xml:"version,attr"`

	MessageID   string `xml:"MessageID"`
	Timestamp   string `xml:"Timestamp"`
	MessageType string `xml:"MessageType"`

	TransportUnit TransportUnit  `xml:"TransportUnit"`
	Cargo         Cargo          `xml:"Cargo"`
	Route         RouteInfo      `xml:"Route"`
	Status        StatusInfo     `xml:"Status"`
	Location      *Location      `xml:"CurrentLocation,omitempty"`
	Milestones    Milestones     `xml:"Milestones"`
	ThirdParty    *ThirdParty    `xml:"ThirdPartyVerification,omitempty"`
	Security      SecurityInfo   `xml:"Security"`
}

type TransportUnit struct {
	ContainerNumber string `xml:"ContainerNumber"`
	ContainerType   string `xml:"ContainerType,omitempty"`
	SealNumber      string `xml:"SealNumber,omitempty"`
	VesselName      string `xml:"VesselName,omitempty"`
	VesselIMO       string `xml:"VesselIMO,omitempty"`
	VoyageNumber    string `xml:"VoyageNumber,omitempty"`
}

type Cargo struct {
	Description   string  `xml:"Description"`
	VIN           string  `xml:"VIN,omitempty"`
	DeclaredValue float64 `xml:"DeclaredValue"`
	Currency      string  `xml:"Currency"`
}

type RouteInfo struct {
	OriginPort         string `xml:"OriginPort"`
	DestinationPort    string `xml:"DestinationPort"`
	DestinationCountry string `xml:"DestinationCountry,omitempty"`
	EstimatedDeparture string `xml:"EstimatedDeparture,omitempty"`
	ActualDeparture    string `xml:"ActualDeparture,omitempty"`
	EstimatedArrival   string `xml:"EstimatedArrival,omitempty"`
	ActualArrival      string `xml:"ActualArrival,omitempty"`
}

type StatusInfo struct {
	Code        string `xml:"Code"`
	DelayReason string `xml:"DelayReason,omitempty"`
}

type Location struct {
	Latitude  float64 `xml:"Latitude"`
	Longitude float64 `xml:"Longitude"`
	UpdatedAt string  `xml:"UpdatedAt"`
}

type Milestones struct {
	Milestone []Milestone `xml:"Milestone"`
}

type Milestone struct {
	Type       string `xml:"Type"`
	Port       string `xml:"Port,omitempty"`
	OccurredAt string `xml:"OccurredAt"`
	Passed     bool   `xml:"Passed"`
}

type ThirdParty struct {
	Provider    string `xml:"Provider"`
	TrackingID  string `xml:"TrackingID"`
	Tier        string `xml:"Tier,omitempty"`
	Surveyor    string `xml:"Surveyor,omitempty"`
	Certificate string `xml:"Certificate,omitempty"`
}

type SecurityInfo struct {
	RiskLevel     string `xml:"RiskLevel,omitempty"`
	RiskScore     int    `xml:"RiskScore"`
	SealIntact    bool   `xml:"SealIntact"`
	OpenIncidents int    `xml:"OpenIncidents"`
}

// MessageID derives the deterministic document identifier.
func MessageID(trackingNumber string, at time.Time) string {
	return fmt.Sprintf("TRK-%s-%s", trackingNumber, at.UTC().Format("20060102150405"))
}

// Build assembles the tracking message from a shipment snapshot.
func Build(sh *shipment.Shipment, at time.Time) TrackingMessage {
	msg := TrackingMessage{
		Xmlns:       namespace,
		Version:     schemaVersion,
		MessageID:   MessageID(sh.TrackingNumber, at),
		Timestamp:   at.UTC().Format(time.RFC3339),
		MessageType: messageTypeIftsta,
		TransportUnit: TransportUnit{
			ContainerNumber: sh.Container.Number,
			ContainerType:   sh.Container.Type,
			SealNumber:      sh.Seal.Number,
			VesselName:      sh.Route.VesselName,
			VesselIMO:       sh.Route.IMOVesselNumber,
			VoyageNumber:    sh.Route.VoyageNumber,
		},
		Cargo: Cargo{
			Description:   cargoDescription(sh),
			VIN:           sh.Deal.VIN,
			DeclaredValue: sh.Deal.DeclaredValue,
			Currency:      sh.Deal.Currency,
		},
		Route: RouteInfo{
			OriginPort:         sh.Route.OriginPort,
			DestinationPort:    sh.Route.DestinationPort,
			DestinationCountry: sh.Route.DestinationCountry,
			EstimatedDeparture: formatOptional(sh.Schedule.EstimatedDeparture),
			ActualDeparture:    formatOptional(sh.Schedule.ActualDeparture),
			EstimatedArrival:   formatOptional(sh.Schedule.EstimatedArrival),
			ActualArrival:      formatOptional(sh.Schedule.ActualArrival),
		},
		Status: StatusInfo{
			Code:        string(sh.Status),
			DelayReason: sh.DelayReason,
		},
		Security: SecurityInfo{
			RiskLevel:     string(sh.Security.RiskLevel),
			RiskScore:     sh.Security.RiskScore,
			SealIntact:    sh.Seal.Intact,
			OpenIncidents: openIncidents(sh),
		},
	}
	if sh.GPS != nil {
		msg.Location = &Location{
			Latitude:  sh.GPS.Latitude,
			Longitude: sh.GPS.Longitude,
			UpdatedAt: sh.GPS.UpdatedAt.UTC().Format(time.RFC3339),
		}
	}
	for _, v := range sh.Verifications {
		msg.Milestones.Milestone = append(msg.Milestones.Milestone, Milestone{
			Type:       string(v.Type),
			Port:       v.PortName,
			OccurredAt: v.VerifiedAt.UTC().Format(time.RFC3339),
			Passed:     v.Passed,
		})
	}
	if sh.LR.Engaged() {
		msg.ThirdParty = &ThirdParty{
			Provider:    "Lloyd's Register",
			TrackingID:  sh.LR.TrackingID,
			Tier:        string(sh.LR.Tier),
			Surveyor:    sh.LR.SurveyorName,
			Certificate: sh.LR.SafeDeliveryCertificate,
		}
	}
	return msg
}

// Render produces the XML document with the standard header and two-space
// indentation.
func Render(sh *shipment.Shipment, at time.Time) ([]byte, error) {
	msg := Build(sh, at)
	body, err := xml.MarshalIndent(msg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render tracking message: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func cargoDescription(sh *shipment.Shipment) string {
	if sh.Deal.VehicleMake == "" {
		return "motor vehicle"
	}
	return fmt.Sprintf("%d %s %s", sh.Deal.VehicleYear, sh.Deal.VehicleMake, sh.Deal.VehicleModel)
}

func openIncidents(sh *shipment.Shipment) int {
	count := 0
	for _, inc := range sh.Incidents {
		if !inc.Resolved {
			count++
		}
	}
	return count
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
