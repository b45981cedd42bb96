// Package seeder loads deterministic demo shipments through the public
// service API, so every seeded record obeys the same validation and audit
// rules as a live request.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"seacert/internal/certification"
	"seacert/internal/shipment"
	"seacert/pkg/domain"
	"seacert/pkg/requestcontext"
)

// baseTime pins the seed clock so repeated runs produce comparable data.
var baseTime = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)

// Seeder drives the certification service with canned scenarios.
type Seeder struct {
	svc    *certification.Service
	logger *slog.Logger
}

func New(svc *certification.Service, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{svc: svc, logger: logger}
}

// Run creates the demo fleet. Scenarios cover the quiet path, a filing
// deadline violation, a destination seal breach with LR escalation, and a
// shipment left half-done for compliance scoring.
func (s *Seeder) Run(ctx context.Context) error {
	ctx = requestcontext.WithActor(ctx, "seed", "Demo Seeder")
	ctx = requestcontext.WithClientMetadata(ctx, "127.0.0.1", "seacert-seed/1.0")

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"low-risk pacific route", s.lowRiskPacific},
		{"ams deadline violation", s.amsViolation},
		{"seal breach at destination", s.sealBreach},
		{"partial compliance", s.partialCompliance},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("seed %s: %w", step.name, err)
		}
		s.logger.Info("seeded scenario", "scenario", step.name)
	}
	return nil
}

func at(ctx context.Context, t time.Time) context.Context {
	return requestcontext.WithTime(ctx, t)
}

// lowRiskPacific is a quiet Vancouver to Tokyo run: low factors, no LR,
// filings in order, sitting ready to depart.
func (s *Seeder) lowRiskPacific(ctx context.Context) error {
	now := baseTime
	sh, err := s.svc.RegisterShipment(at(ctx, now), certification.NewShipmentInput{
		Deal: shipment.DealView{
			DealID:             domain.NewDealID(),
			VIN:                "4T1G11AK5PU123456",
			VehicleMake:        "Toyota",
			VehicleModel:       "Camry",
			VehicleYear:        2023,
			DeclaredValue:      28000,
			Currency:           "CAD",
			DealerName:         "Pacific Gate Motors",
			BuyerName:          "K. Tanaka",
			OriginPort:         "Vancouver",
			DestinationPort:    "Tokyo",
			DestinationCountry: "JP",
		},
		Route: shipment.Route{
			OriginPort:         "Vancouver",
			DestinationPort:    "Tokyo",
			DestinationCountry: "JP",
			VesselName:         "Pacific Harmony",
			VoyageNumber:       "PH2603",
			IMOVesselNumber:    "9074729",
		},
		Schedule:  schedule(now.Add(5*24*time.Hour), now.Add(19*24*time.Hour)),
		Container: shipment.Container{Number: "TCNU1234565", Type: "40HC"},
	})
	if err != nil {
		return err
	}

	if _, err := s.svc.AssessRisk(at(ctx, now.Add(time.Hour)), sh.ID,
		shipment.FactorScores{Route: 2, Value: 3, Destination: 2, Customs: 3, PortSecurity: 3},
		"standard transpacific routing, no escalation needed"); err != nil {
		return err
	}

	if _, err := s.svc.ApplySeal(at(ctx, now.Add(26*time.Hour)), sh.ID, "SL-7741023", shipment.SealBolt, "J. Moreau"); err != nil {
		return err
	}
	if _, err := s.svc.VerifySeal(at(ctx, now.Add(27*time.Hour)), sh.ID, "origin", "J. Moreau", true); err != nil {
		return err
	}

	certAt := now.Add(28 * time.Hour)
	_, err = s.svc.RecordFiling(at(ctx, certAt), sh.ID, shipment.RegimeVGM, certification.FilingUpdate{
		VGM: &shipment.VGMFiling{
			WeightKg:          18400,
			Method:            shipment.VGMMethod1,
			CertifiedBy:       "Vancouver Weighbridge Services",
			CertifiedAt:       &certAt,
			CertificateNumber: "VGM-2026-044871",
		},
	})
	return err
}

// amsViolation seeds a US-bound shipment whose AMS filing lands inside the
// 24-hour window, so the departure gate fails. The failure is expected and
// left in place for the demo.
func (s *Seeder) amsViolation(ctx context.Context) error {
	now := baseTime.Add(2 * time.Hour)
	departure := now.Add(23 * time.Hour)
	sh, err := s.svc.RegisterShipment(at(ctx, now), certification.NewShipmentInput{
		Deal: shipment.DealView{
			DealID:             domain.NewDealID(),
			VIN:                "1FTFW1E85PFB20119",
			VehicleMake:        "Ford",
			VehicleModel:       "F-150",
			VehicleYear:        2024,
			DeclaredValue:      64000,
			Currency:           "CAD",
			DealerName:         "Laurentide Auto Export",
			BuyerName:          "R. Alvarez",
			OriginPort:         "Montreal",
			DestinationPort:    "Newark",
			DestinationCountry: "US",
		},
		Route: shipment.Route{
			OriginPort:         "Montreal",
			DestinationPort:    "Newark",
			DestinationCountry: "US",
			VesselName:         "Atlantic Current",
			VoyageNumber:       "AC1107",
			IMOVesselNumber:    "9321483",
		},
		Schedule:  schedule(departure, now.Add(6*24*time.Hour)),
		Container: shipment.Container{Number: "MSKU9070323", Type: "40GP"},
	})
	if err != nil {
		return err
	}

	if _, err := s.svc.AssessRisk(at(ctx, now.Add(time.Hour)), sh.ID,
		shipment.FactorScores{Route: 3, Value: 5, Destination: 2, Customs: 4, PortSecurity: 3},
		"short Atlantic hop, value tier drives the score"); err != nil {
		return err
	}

	submitted := now.Add(2 * time.Hour)
	if _, err := s.svc.RecordFiling(at(ctx, submitted), sh.ID, shipment.RegimeAMS, certification.FilingUpdate{
		AMS: &shipment.AMSFiling{
			FilingNumber: "AMS-2026-118204",
			SubmittedAt:  &submitted,
			Status:       shipment.FilingSubmitted,
			SCAC:         "MAEU",
		},
	}); err != nil {
		return err
	}

	// Departing now would violate the 24-hour rule; record the refusal so
	// the demo shows the gate holding.
	if _, err := s.svc.Depart(at(ctx, departure), sh.ID); err != nil {
		s.logger.Info("departure blocked as expected", "tracking", sh.TrackingNumber, "reason", err)
	}
	return nil
}

// sealBreach walks a high-risk Lagos shipment through departure and arrival,
// then records a broken seal at the destination check. LR is engaged, so the
// breach is escalated.
func (s *Seeder) sealBreach(ctx context.Context) error {
	now := baseTime.Add(4 * time.Hour)
	departure := now.Add(3 * 24 * time.Hour)
	arrival := now.Add(17 * 24 * time.Hour)
	sh, err := s.svc.RegisterShipment(at(ctx, now), certification.NewShipmentInput{
		Deal: shipment.DealView{
			DealID:             domain.NewDealID(),
			VIN:                "WBA5R1C50KAK33448",
			VehicleMake:        "BMW",
			VehicleModel:       "330i",
			VehicleYear:        2022,
			DeclaredValue:      41000,
			Currency:           "CAD",
			DealerName:         "Ville-Marie Imports",
			BuyerName:          "A. Okonkwo",
			OriginPort:         "Montreal",
			DestinationPort:    "Lagos",
			DestinationCountry: "NG",
		},
		Route: shipment.Route{
			OriginPort:         "Montreal",
			DestinationPort:    "Lagos",
			DestinationCountry: "NG",
			VesselName:         "Gulf of Guinea Trader",
			VoyageNumber:       "GT0455",
			IMOVesselNumber:    "9074729",
		},
		Schedule:  schedule(departure, arrival),
		Container: shipment.Container{Number: "CMAU7629911", Type: "20GP"},
	})
	if err != nil {
		return err
	}

	if _, err := s.svc.AssessRisk(at(ctx, now.Add(time.Hour)), sh.ID,
		shipment.FactorScores{Route: 8, Value: 6, Destination: 8, Customs: 7, PortSecurity: 7},
		"Gulf of Guinea piracy corridor, surveyor monitoring required"); err != nil {
		return err
	}
	if _, err := s.svc.EngageLR(at(ctx, now.Add(2*time.Hour)), sh.ID, ""); err != nil {
		return err
	}

	if _, err := s.svc.ApplySeal(at(ctx, now.Add(24*time.Hour)), sh.ID, "SL-9910457", shipment.SealElectronic, "D. Tremblay"); err != nil {
		return err
	}
	if _, err := s.svc.VerifySeal(at(ctx, now.Add(25*time.Hour)), sh.ID, "origin", "D. Tremblay", true); err != nil {
		return err
	}
	certAt := now.Add(26 * time.Hour)
	if _, err := s.svc.RecordFiling(at(ctx, certAt), sh.ID, shipment.RegimeVGM, certification.FilingUpdate{
		VGM: &shipment.VGMFiling{
			WeightKg:          14950,
			Method:            shipment.VGMMethod2,
			CertifiedBy:       "Port of Montreal Scale House",
			CertifiedAt:       &certAt,
			CertificateNumber: "VGM-2026-045102",
		},
	}); err != nil {
		return err
	}

	if _, err := s.svc.TransitionTo(at(ctx, now.Add(30*time.Hour)), sh.ID, shipment.StatusPreShipmentReady); err != nil {
		return err
	}
	if _, err := s.svc.AddPortVerification(at(ctx, departure.Add(-2*time.Hour)), sh.ID, shipment.PortVerification{
		Type:                shipment.VerifyOriginDeparture,
		PortName:            "Montreal",
		PortCountry:         "CA",
		VerifierID:          "insp-204",
		VerifierName:        "D. Tremblay",
		VerifierCredentials: "CBSA marine inspector",
		SealNumberObserved:  "SL-9910457",
		SealIntact:          true,
		VehicleCondition:    shipment.ConditionExcellent,
		OdometerKm:          18230,
		DocumentsComplete:   true,
		Passed:              true,
	}); err != nil {
		return err
	}
	if _, err := s.svc.Depart(at(ctx, departure), sh.ID); err != nil {
		return err
	}

	if _, err := s.svc.AddPortVerification(at(ctx, arrival), sh.ID, shipment.PortVerification{
		Type:                shipment.VerifyDestinationArrival,
		PortName:            "Lagos",
		PortCountry:         "NG",
		VerifierID:          "insp-881",
		VerifierName:        "A. Balogun",
		VerifierCredentials: "NPA terminal surveyor",
		SealNumberObserved:  "SL-9910457",
		SealIntact:          false,
		SealNotes:           "electronic seal housing cracked, tag unreadable",
		VehicleCondition:    shipment.ConditionGood,
		OdometerKm:          18234,
		DocumentsComplete:   true,
		Passed:              true,
	}); err != nil {
		return err
	}

	// The destination seal check finds a breach: opens a severe incident and
	// notifies LR through the adapter.
	if _, err := s.svc.VerifySeal(at(ctx, arrival.Add(time.Hour)), sh.ID, "destination", "A. Balogun", false); err != nil {
		return err
	}
	return nil
}

// partialCompliance leaves a shipment with only an assessment on file, which
// scores 40 on the ISO 28000 checklist until the missing controls land.
func (s *Seeder) partialCompliance(ctx context.Context) error {
	now := baseTime.Add(6 * time.Hour)
	sh, err := s.svc.RegisterShipment(at(ctx, now), certification.NewShipmentInput{
		Deal: shipment.DealView{
			DealID:             domain.NewDealID(),
			VIN:                "JHMZE2H78ES004412",
			VehicleMake:        "Honda",
			VehicleModel:       "Insight",
			VehicleYear:        2021,
			DeclaredValue:      19500,
			Currency:           "CAD",
			DealerName:         "Halifax Harbour Auto",
			BuyerName:          "S. Mensah",
			OriginPort:         "Halifax",
			DestinationPort:    "Tema",
			DestinationCountry: "GH",
		},
		Route: shipment.Route{
			OriginPort:         "Halifax",
			DestinationPort:    "Tema",
			DestinationCountry: "GH",
			VesselName:         "Maritime Meridian",
			VoyageNumber:       "MM2218",
			IMOVesselNumber:    "9321483",
		},
		Schedule:  schedule(now.Add(9*24*time.Hour), now.Add(25*24*time.Hour)),
		Container: shipment.Container{Number: "HLXU4410087", Type: "20GP"},
	})
	if err != nil {
		return err
	}

	_, err = s.svc.AssessRisk(at(ctx, now.Add(time.Hour)), sh.ID,
		shipment.FactorScores{Route: 5, Value: 2, Destination: 5, Customs: 5, PortSecurity: 4},
		"West Africa routing, premium monitoring advised")
	return err
}

func schedule(departure, arrival time.Time) shipment.Schedule {
	return shipment.Schedule{EstimatedDeparture: &departure, EstimatedArrival: &arrival}
}
