package certification

import (
	"context"
	"fmt"
	"time"

	"seacert/internal/audit"
	"seacert/internal/events"
	"seacert/internal/lloyds"
	"seacert/internal/shipment"
	"seacert/pkg/domain"
	dErrors "seacert/pkg/domain-errors"
	"seacert/pkg/requestcontext"
)

// EngageLR registers the shipment with Lloyd's Register at the given tier
// and stores the quoted premium. Re-engaging is a no-op. A transient failure
// on the first attempt keeps retrying in the background; the caller sees the
// first error and can poll the shipment for the tracking id.
func (s *Service) EngageLR(ctx context.Context, id domain.ShipmentID, tier shipment.MonitoringTier) (*shipment.Shipment, error) {
	sh, err := s.shipments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh.LR.Engaged() {
		return sh, nil
	}
	if sh.Status.Terminal() {
		return nil, dErrors.Newf(dErrors.CodeIllegalTransition,
			"shipment is %s and cannot be registered", sh.Status)
	}
	if tier == "" {
		tier = sh.Security.MonitoringTier
	}
	if tier == "" {
		tier = shipment.TierStandard
	}

	reg := lloyds.Registration{
		ShipmentTracking: sh.TrackingNumber,
		VesselIMO:        sh.Route.IMOVesselNumber,
		ContainerNumber:  sh.Container.Number,
		OriginPort:       sh.Route.OriginPort,
		DestinationPort:  sh.Route.DestinationPort,
		DeclaredValue:    sh.Deal.DeclaredValue,
		Currency:         sh.Deal.Currency,
		Tier:             tier,
	}

	var trackingID string
	err = s.lrCall(ctx, "register", func() error {
		var callErr error
		trackingID, callErr = s.lr.Register(ctx, reg)
		return callErr
	})
	if err != nil {
		if lloyds.IsRetryable(err) {
			go s.retryRegistration(context.WithoutCancel(ctx), id, reg, tier)
		}
		return nil, err
	}
	return s.saveRegistration(ctx, id, trackingID, tier)
}

func (s *Service) retryRegistration(ctx context.Context, id domain.ShipmentID, reg lloyds.Registration, tier shipment.MonitoringTier) {
	policy := s.registrationRetry
	var trackingID string
	err := policy.Do(ctx, func(ctx context.Context) error {
		return s.lrCall(ctx, "register", func() error {
			var callErr error
			trackingID, callErr = s.lr.Register(ctx, reg)
			return callErr
		})
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "LR registration abandoned after retries",
			"shipment_id", id, "error", err)
		return
	}
	if _, err := s.saveRegistration(ctx, id, trackingID, tier); err != nil {
		s.logger.ErrorContext(ctx, "could not persist LR registration",
			"shipment_id", id, "tracking_id", trackingID, "error", err)
	}
}

func (s *Service) saveRegistration(ctx context.Context, id domain.ShipmentID, trackingID string, tier shipment.MonitoringTier) (*shipment.Shipment, error) {
	var sh *shipment.Shipment
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		sh, err = s.shipments.Get(ctx, id)
		if err != nil {
			return err
		}
		if sh.LR.Engaged() {
			return nil
		}
		now := requestcontext.Now(ctx)
		premium, err := s.lr.QuotePremium(ctx, sh.Deal.DeclaredValue, routeKey(sh.Route), tier)
		if err != nil {
			// Quote failure must not undo a successful registration.
			s.logger.WarnContext(ctx, "premium quote failed", "shipment_id", id, "error", err)
		}
		sh.LR = shipment.LloydsRecord{
			TrackingID:    trackingID,
			Tier:          tier,
			Status:        "registered",
			RegisteredAt:  &now,
			PremiumQuoted: premium,
		}
		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, sh.ID, audit.ActionLRRegistered,
			fmt.Sprintf("registered with Lloyd's Register as %s at %s tier", trackingID, tier),
			"lr_tracking", trackingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, events.NewLRStatusChanged(sh.ID, "", "registered"))
	return sh, nil
}

// routeKey derives the premium table key from the voyage. All routes this
// engine handles originate in Canada.
func routeKey(route shipment.Route) string {
	switch route.DestinationCountry {
	case "NG", "GH", "SN", "CI":
		return "canada_west_africa"
	case "KE", "TZ", "MZ":
		return "canada_east_africa"
	case "EG", "MA", "DZ", "TN", "LY":
		return "canada_north_africa"
	case "ZA", "NA", "BW":
		return "canada_south_africa"
	default:
		return "other"
	}
}

// RequestInspection asks LR for a surveyor inspection.
func (s *Service) RequestInspection(ctx context.Context, id domain.ShipmentID, kind lloyds.InspectionKind, preferred time.Time) (bool, error) {
	sh, err := s.shipments.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if !sh.LR.Engaged() {
		return false, dErrors.New(dErrors.CodeInvariantViolation,
			"shipment is not registered with Lloyd's Register")
	}
	var accepted bool
	err = s.lrCall(ctx, "request_inspection", func() error {
		var callErr error
		accepted, callErr = s.lr.RequestInspection(ctx, sh.LR.TrackingID, kind, preferred)
		return callErr
	})
	if err != nil {
		return false, err
	}
	_, err = s.audit.Record(ctx, sh.ID, audit.ActionLRInspection,
		fmt.Sprintf("%s inspection requested for %s, accepted=%t",
			kind, preferred.UTC().Format("2006-01-02"), accepted))
	return accepted, err
}

// ReconcileWithLR pulls the latest LR view and merges the non-authoritative
// fields: remote status, surveyor, and GPS position. The engine's own state
// machine is never driven by LR data. Once the shipment is released, the
// safe-delivery certificate is pulled as part of the same sweep.
func (s *Service) ReconcileWithLR(ctx context.Context, id domain.ShipmentID) (*shipment.Shipment, error) {
	current, err := s.shipments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.LR.Engaged() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation,
			"shipment is not registered with Lloyd's Register")
	}

	status, err := s.fetchStatus(ctx, current.LR.TrackingID)
	if err != nil {
		return nil, err
	}
	var cert *lloyds.Certificate
	if current.Status == shipment.StatusReleased && current.LR.SafeDeliveryCertificate == "" {
		cert, err = s.fetchCertificate(ctx, current.LR.TrackingID)
		if err != nil {
			s.logger.WarnContext(ctx, "certificate pull failed, will retry next sweep",
				"shipment_id", id, "error", err)
		}
	}

	var (
		sh   *shipment.Shipment
		evts []events.Event
	)
	err = s.inTx(ctx, func(ctx context.Context) error {
		evts = evts[:0]
		var err error
		sh, err = s.shipments.Get(ctx, id)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		previous := sh.LR.Status
		sh.LR.Status = status.State
		sh.LR.LastReconciledAt = &now
		if status.SurveyorName != "" {
			sh.LR.SurveyorName = status.SurveyorName
		}
		if status.Latitude != nil && status.Longitude != nil {
			sh.GPS = &shipment.Position{
				Latitude:  *status.Latitude,
				Longitude: *status.Longitude,
				UpdatedAt: status.UpdatedAt,
			}
		}
		if cert != nil {
			sh.LR.SafeDeliveryCertificate = cert.ID
		}
		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		if previous != status.State {
			if _, err := s.audit.Record(ctx, sh.ID, audit.ActionLRInspection,
				fmt.Sprintf("LR status moved from %q to %q", previous, status.State)); err != nil {
				return err
			}
			evts = append(evts, events.NewLRStatusChanged(sh.ID, previous, status.State))
		}
		if cert != nil {
			if _, err := s.audit.Record(ctx, sh.ID, audit.ActionDocumentUpload,
				fmt.Sprintf("safe delivery certificate %s received", cert.ID),
				"certificate", cert.ID); err != nil {
				return err
			}
			evts = append(evts, events.NewCertificateIssued(sh.ID, cert.ID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)
	return sh, nil
}

func (s *Service) fetchStatus(ctx context.Context, trackingID string) (*lloyds.Status, error) {
	if cached, err := s.lrCache.GetStatus(ctx, trackingID); err == nil && cached != nil {
		return cached, nil
	}
	var status *lloyds.Status
	err := s.lrCall(ctx, "fetch_status", func() error {
		var callErr error
		status, callErr = s.lr.FetchStatus(ctx, trackingID)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	if cacheErr := s.lrCache.PutStatus(ctx, status); cacheErr != nil {
		s.logger.WarnContext(ctx, "status cache write failed", "tracking_id", trackingID, "error", cacheErr)
	}
	return status, nil
}

func (s *Service) fetchCertificate(ctx context.Context, trackingID string) (*lloyds.Certificate, error) {
	if cached, err := s.lrCache.GetCertificate(ctx, trackingID); err == nil && cached != nil {
		return cached, nil
	}
	var cert *lloyds.Certificate
	err := s.lrCall(ctx, "fetch_certificate", func() error {
		var callErr error
		cert, callErr = s.lr.FetchCertificate(ctx, trackingID)
		return callErr
	})
	if err != nil || cert == nil {
		return nil, err
	}
	if cacheErr := s.lrCache.PutCertificate(ctx, cert); cacheErr != nil {
		s.logger.WarnContext(ctx, "certificate cache write failed", "tracking_id", trackingID, "error", cacheErr)
	}
	return cert, nil
}
