// Package certification orchestrates the shipment security lifecycle: state
// transitions, regulator filings, seal custody, port verifications,
// incidents, and the Lloyd's Register relationship. All writes flow through
// here so every mutation lands in the audit log and on the event bus.
package certification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"seacert/internal/audit"
	"seacert/internal/events"
	"seacert/internal/lloyds"
	"seacert/internal/platform/metrics"
	"seacert/internal/risk"
	"seacert/internal/shipment"
	"seacert/internal/shipment/store"
	"seacert/internal/shipment/validate"
	"seacert/pkg/domain"
	dErrors "seacert/pkg/domain-errors"
	txcontext "seacert/pkg/platform/tx"
	"seacert/pkg/requestcontext"
)

// VerificationSigner produces the tamper-evidence token stored on a port
// verification record.
type VerificationSigner interface {
	SignVerification(v shipment.PortVerification) (string, error)
}

// Service is the single entry point for shipment mutations.
type Service struct {
	shipments store.Store
	audit     *audit.Recorder
	bus       *events.Bus
	tx        txcontext.Transactor
	lr        lloyds.Client
	lrCache   lloyds.StatusCache
	signer    VerificationSigner
	logger    *slog.Logger
	metrics   *metrics.Metrics

	registrationRetry lloyds.Policy
	incidentRetry     lloyds.Policy
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTransactor(tx txcontext.Transactor) Option {
	return func(s *Service) { s.tx = tx }
}

func WithLloydsCache(cache lloyds.StatusCache) Option {
	return func(s *Service) { s.lrCache = cache }
}

func WithSigner(signer VerificationSigner) Option {
	return func(s *Service) { s.signer = signer }
}

func WithRetryPolicies(registration, incident lloyds.Policy) Option {
	return func(s *Service) {
		s.registrationRetry = registration
		s.incidentRetry = incident
	}
}

func New(shipments store.Store, recorder *audit.Recorder, bus *events.Bus, lr lloyds.Client, opts ...Option) *Service {
	s := &Service{
		shipments:         shipments,
		audit:             recorder,
		bus:               bus,
		tx:                txcontext.NopTransactor{},
		lr:                lr,
		lrCache:           lloyds.NewMemoryCache(),
		logger:            slog.Default(),
		registrationRetry: lloyds.RegistrationPolicy(),
		incidentRetry:     lloyds.IncidentPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// conflictRetries bounds how many times a mutation is replayed after losing
// an optimistic-lock race before the conflict surfaces to the caller.
const conflictRetries = 2

// inTx runs a mutation closure through the transactor. A version conflict
// replays the closure on a fresh snapshot; closures reset their collected
// events on entry so a replay starts clean.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := s.tx.InTx(ctx, fn)
	for attempt := 0; attempt < conflictRetries && dErrors.HasCode(err, dErrors.CodeConflict); attempt++ {
		err = s.tx.InTx(ctx, fn)
	}
	return err
}

// NewShipmentInput carries everything needed to open a shipment from a
// closed deal.
type NewShipmentInput struct {
	Deal      shipment.DealView
	Route     shipment.Route
	Schedule  shipment.Schedule
	Container shipment.Container
}

// RegisterShipment opens a new shipment in planning.
func (s *Service) RegisterShipment(ctx context.Context, in NewShipmentInput) (*shipment.Shipment, error) {
	if in.Deal.DealID.IsNil() {
		return nil, dErrors.NewField(dErrors.CodeValidation, "deal_id", "a closed deal is required")
	}
	if in.Deal.DeclaredValue <= 0 {
		return nil, dErrors.NewField(dErrors.CodeValidation, "declared_value", "must be positive")
	}
	if err := validate.Currency(in.Deal.Currency); err != nil {
		return nil, err
	}
	if in.Container.Number != "" {
		if err := validate.ContainerNumber(in.Container.Number); err != nil {
			return nil, err
		}
	}
	if in.Route.IMOVesselNumber != "" {
		if err := validate.IMOVesselNumber(in.Route.IMOVesselNumber); err != nil {
			return nil, err
		}
	}
	if in.Route.OriginPort == "" || in.Route.DestinationPort == "" {
		return nil, dErrors.NewField(dErrors.CodeValidation, "route", "origin and destination ports are required")
	}

	now := requestcontext.Now(ctx)
	sh := &shipment.Shipment{
		ID:             domain.NewShipmentID(),
		TrackingNumber: domain.NewTrackingNumber(now),
		Deal:           in.Deal,
		Status:         shipment.StatusPlanning,
		Route:          in.Route,
		Schedule:       in.Schedule,
		Container:      in.Container,
		Seal:           shipment.Seal{Intact: true},
	}
	if sh.Route.DestinationCountry == "" {
		sh.Route.DestinationCountry = in.Deal.DestinationCountry
	}

	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.shipments.Create(ctx, sh); err != nil {
			return err
		}
		_, err := s.audit.Record(ctx, sh.ID, audit.ActionSystemAlert,
			fmt.Sprintf("shipment %s registered from deal %s", sh.TrackingNumber, sh.Deal.DealID),
			"deal", sh.Deal.DealID.String())
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ShipmentsCreated.Inc()
	}
	s.bus.Publish(ctx, events.NewShipmentCreated(sh.ID, sh.TrackingNumber))
	return sh, nil
}

// AssessRisk scores the five security factors and saves the assessment. The
// shipment advances to risk_assessed when it was still in planning.
func (s *Service) AssessRisk(ctx context.Context, id domain.ShipmentID, factors shipment.FactorScores, mitigation string) (*shipment.Shipment, error) {
	var (
		sh   *shipment.Shipment
		evts []events.Event
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		evts = evts[:0]
		var err error
		sh, err = s.shipments.Get(ctx, id)
		if err != nil {
			return err
		}
		if sh.Status.Terminal() {
			return dErrors.Newf(dErrors.CodeIllegalTransition,
				"shipment is %s and no longer accepts assessments", sh.Status)
		}

		now := requestcontext.Now(ctx)
		assessment, err := risk.Assess(factors, sh.Deal, requestcontext.ActorName(ctx), now)
		if err != nil {
			return err
		}
		assessment.Mitigation = mitigation
		risk.Apply(sh, assessment)

		// The first assessment advances planning to risk_assessed;
		// re-assessments later in the lifecycle just refresh the numbers.
		if sh.Status == shipment.StatusPlanning {
			if _, err := s.applyTransition(sh, shipment.StatusRiskAssessed, now, &evts); err != nil {
				return err
			}
		}

		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, sh.ID, audit.ActionRiskAssessment,
			fmt.Sprintf("risk assessed at %d (%s), insurance %s %.2f",
				assessment.OverallScore, assessment.Level,
				assessment.InsuranceCurrency, assessment.RecommendedInsurance),
			"assessment", assessment.ID.String())
		if err != nil {
			return err
		}
		evts = append(evts, events.NewRiskAssessed(sh.ID, assessment.OverallScore, assessment.Level))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)
	return sh, nil
}

// FilingUpdate carries exactly one regime's sub-record. The handler decodes
// the regime-specific body into the matching slot.
type FilingUpdate struct {
	VGM          *shipment.VGMFiling
	AMS          *shipment.AMSFiling
	ACI          *shipment.ACIFiling
	AES          *shipment.AESFiling
	ENS          *shipment.ENSFiling
	ISPS         *shipment.ISPSRecord
	Customs      *shipment.CustomsFiling
	Hazmat       *shipment.HazmatDeclaration
	BillOfLading *shipment.BillOfLading
}

// FilingResult reports the outcome of a filing write.
type FilingResult struct {
	Shipment *shipment.Shipment
	// Warning carries advisory findings, like an implausibly early AMS
	// submission. The filing is still recorded.
	Warning string
	// Replayed is true when the update matched the stored record exactly;
	// replays write no audit entry and emit no events.
	Replayed bool
}

// RecordFiling validates and stores one regulator filing. Submitting an
// identical filing twice is a harmless replay.
func (s *Service) RecordFiling(ctx context.Context, id domain.ShipmentID, regime shipment.Regime, update FilingUpdate) (*FilingResult, error) {
	result := &FilingResult{}
	var evts []events.Event
	err := s.inTx(ctx, func(ctx context.Context) error {
		evts = evts[:0]
		sh, err := s.shipments.Get(ctx, id)
		if err != nil {
			return err
		}
		if sh.Status.Terminal() {
			return dErrors.Newf(dErrors.CodeIllegalTransition,
				"shipment is %s and no longer accepts filings", sh.Status)
		}

		before := sh.Filings
		warning, err := s.applyFiling(ctx, sh, regime, update)
		if err != nil {
			return err
		}
		result.Warning = warning
		result.Shipment = sh

		if reflect.DeepEqual(before, sh.Filings) {
			result.Replayed = true
			return nil
		}

		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, sh.ID, audit.ActionDocumentUpload,
			fmt.Sprintf("%s filing recorded", regime))
		if err != nil {
			return err
		}
		switch filingStatus(sh, regime) {
		case shipment.FilingAccepted:
			evts = append(evts, events.NewFilingAccepted(sh.ID, regime))
		case shipment.FilingRejected:
			evts = append(evts, events.NewFilingRejected(sh.ID, regime))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)
	return result, nil
}

func (s *Service) applyFiling(ctx context.Context, sh *shipment.Shipment, regime shipment.Regime, update FilingUpdate) (warning string, err error) {
	now := requestcontext.Now(ctx)
	switch regime {
	case shipment.RegimeVGM:
		if update.VGM == nil {
			return "", dErrors.NewField(dErrors.CodeBadRequest, "vgm", "payload is required")
		}
		f := *update.VGM
		if err := validate.VGMWeight(f.WeightKg, sh.Container); err != nil {
			return "", err
		}
		if f.Method != shipment.VGMMethod1 && f.Method != shipment.VGMMethod2 {
			return "", dErrors.NewField(dErrors.CodeValidation, "vgm_method", "must be method_1 or method_2")
		}
		if f.CertifiedAt == nil && f.CertifiedBy != "" {
			f.CertifiedAt = &now
		}
		sh.Filings.VGM = f

	case shipment.RegimeAMS:
		if update.AMS == nil {
			return "", dErrors.NewField(dErrors.CodeBadRequest, "ams", "payload is required")
		}
		f := *update.AMS
		if err := validate.SCAC(f.SCAC); err != nil {
			return "", err
		}
		if f.SubmittedAt == nil {
			f.SubmittedAt = &now
		}
		if f.Status == "" {
			f.Status = shipment.FilingSubmitted
		}
		if dep := sh.Schedule.EstimatedDeparture; dep != nil {
			warning, err = validate.AMS24h(*f.SubmittedAt, *dep)
			if err != nil {
				return "", err
			}
		}
		sh.Filings.AMS = f

	case shipment.RegimeACI:
		if update.ACI == nil {
			return "", dErrors.NewField(dErrors.CodeBadRequest, "aci", "payload is required")
		}
		f := *update.ACI
		if f.PARSNumber != "" {
			if err := validate.PARSNumber(f.PARSNumber); err != nil {
				return "", err
			}
		}
		if f.SubmittedAt == nil {
			f.SubmittedAt = &now
		}
		if f.Status == "" {
			f.Status = shipment.FilingSubmitted
		}
		if arr := sh.Schedule.EstimatedArrival; arr != nil {
			if err := validate.ACIAdvance(*f.SubmittedAt, *arr, validate.ModeMarine); err != nil {
				return "", err
			}
		}
		sh.Filings.ACI = f

	case shipment.RegimeAES:
		if update.AES == nil {
			return "", dErrors.NewField(dErrors.CodeBadRequest, "aes", "payload is required")
		}
		f := *update.AES
		if f.ScheduleBCode != "" {
			if err := validate.ScheduleB(f.ScheduleBCode); err != nil {
				return "", err
			}
		}
		if !f.Complete() {
			return "", dErrors.NewField(dErrors.CodeValidation, "aes",
				"either an ITN or an exemption code is required")
		}
		if f.FiledAt == nil {
			f.FiledAt = &now
		}
		sh.Filings.AES = f

	case shipment.RegimeENS:
		if update.ENS == nil {
			return "", dErrors.NewField(dErrors.CodeBadRequest, "ens", "payload is required")
		}
		f := *update.ENS
		if f.MRN != "" {
			if err := validate.MRN(f.MRN); err != nil {
				return "", err
			}
		}
		if f.FiledAt == nil {
			f.FiledAt = &now
		}
		if f.Status == "" {
			f.Status = shipment.FilingSubmitted
		}
		sh.Filings.ENS = f

	case shipment.RegimeISPS:
		if update.ISPS == nil {
			return "", dErrors.NewField(dErrors.CodeBadRequest, "isps", "payload is required")
		}
		if err := validate.FacilitySecurityLevel(update.ISPS.FacilitySecurityLevel); err != nil {
			return "", err
		}
		sh.Filings.ISPS = *update.ISPS

	case shipment.RegimeCustoms:
		if update.Customs == nil {
			return "", dErrors.NewField(dErrors.CodeBadRequest, "customs", "payload is required")
		}
		f := *update.Customs
		if err := validate.HSTariff(f.TariffCode); err != nil {
			return "", err
		}
		if err := validate.Currency(f.Currency); err != nil {
			return "", err
		}
		sh.Filings.Customs = f

	case shipment.RegimeHazmat:
		if update.Hazmat == nil {
			return "", dErrors.NewField(dErrors.CodeBadRequest, "hazmat", "payload is required")
		}
		if err := validate.Hazmat(*update.Hazmat); err != nil {
			return "", err
		}
		sh.Filings.Hazmat = *update.Hazmat

	case shipment.RegimeBillOfLading:
		if update.BillOfLading == nil {
			return "", dErrors.NewField(dErrors.CodeBadRequest, "bill_of_lading", "payload is required")
		}
		f := *update.BillOfLading
		if f.Number == "" {
			return "", dErrors.NewField(dErrors.CodeValidation, "bol_number", "is required")
		}
		if err := validate.IncotermTerm(f.Incoterm); err != nil {
			return "", err
		}
		if f.IssueDate == nil {
			f.IssueDate = &now
		}
		sh.Filings.BillOfLading = f

	default:
		return "", dErrors.Newf(dErrors.CodeBadRequest, "unknown filing regime %q", regime)
	}
	return warning, nil
}

func filingStatus(sh *shipment.Shipment, regime shipment.Regime) shipment.FilingStatus {
	switch regime {
	case shipment.RegimeAMS:
		return sh.Filings.AMS.Status
	case shipment.RegimeACI:
		return sh.Filings.ACI.Status
	case shipment.RegimeENS:
		return sh.Filings.ENS.Status
	default:
		return ""
	}
}

// ApplySeal records the container seal. Re-applying the same seal is a
// no-op; a different seal number on an already sealed container is rejected.
func (s *Service) ApplySeal(ctx context.Context, id domain.ShipmentID, number string, sealType shipment.SealType, appliedBy string) (*shipment.Shipment, error) {
	if strings.TrimSpace(number) == "" {
		return nil, dErrors.NewField(dErrors.CodeValidation, "seal_number", "is required")
	}
	var (
		sh       *shipment.Shipment
		replayed bool
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		sh, err = s.shipments.Get(ctx, id)
		if err != nil {
			return err
		}
		if sh.Seal.AppliedAt != nil {
			if sh.Seal.Number == number {
				replayed = true
				return nil
			}
			return dErrors.Newf(dErrors.CodeConflict,
				"seal %s is already applied; a replacement requires an incident record", sh.Seal.Number)
		}
		now := requestcontext.Now(ctx)
		sh.Seal = shipment.Seal{
			Number:    number,
			Type:      sealType,
			AppliedAt: &now,
			AppliedBy: appliedBy,
			Intact:    true,
		}
		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, sh.ID, audit.ActionSealApplied,
			fmt.Sprintf("%s seal %s applied by %s", sealType, number, appliedBy))
		return err
	})
	if err != nil {
		return nil, err
	}
	if !replayed {
		s.bus.Publish(ctx, events.NewSealApplied(sh.ID, number))
	}
	return sh, nil
}

// VerifySeal records one of the two mandatory seal checks. A destination
// check that finds the seal broken opens a severe seal_breach incident and
// puts the shipment in incident_open.
func (s *Service) VerifySeal(ctx context.Context, id domain.ShipmentID, position events.SealPosition, verifier string, intact bool) (*shipment.Shipment, error) {
	var (
		sh     *shipment.Shipment
		evts   []events.Event
		breach *shipment.SecurityIncident
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		evts = evts[:0]
		breach = nil
		var err error
		sh, err = s.shipments.Get(ctx, id)
		if err != nil {
			return err
		}
		if sh.Seal.AppliedAt == nil {
			return dErrors.New(dErrors.CodeInvariantViolation, "no seal has been applied yet")
		}
		now := requestcontext.Now(ctx)
		switch position {
		case events.SealAtOrigin:
			sh.Seal.OriginVerifiedAt = &now
			sh.Seal.OriginVerifier = verifier
		case events.SealAtDestination:
			sh.Seal.DestinationVerifiedAt = &now
			sh.Seal.DestinationVerifier = verifier
		default:
			return dErrors.NewField(dErrors.CodeBadRequest, "position", "must be origin or destination")
		}
		if !intact {
			sh.Seal.Intact = false
		}

		if !intact {
			breach = &shipment.SecurityIncident{
				ID:         domain.NewIncidentID(),
				Type:       shipment.IncidentSealBreach,
				Severity:   SeveritySealBreach,
				OccurredAt: now,
				Location:   sealCheckLocation(sh, position),
				Description: fmt.Sprintf("seal %s found broken at %s verification by %s",
					sh.Seal.Number, position, verifier),
				ImmediateAction: "cargo held pending inspection",
			}
			sh.Incidents = append(sh.Incidents, *breach)
			sh.Security.HasOpenIncidents = true
			sh.EnterIncident()
		}

		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, sh.ID, audit.ActionSealVerified,
			fmt.Sprintf("seal %s verified at %s by %s, intact=%t", sh.Seal.Number, position, verifier, intact)); err != nil {
			return err
		}
		evts = append(evts, events.NewSealVerified(sh.ID, position, intact))
		if breach != nil {
			if _, err := s.audit.Record(ctx, sh.ID, audit.ActionIncidentReport,
				"seal breach incident opened", "incident", breach.ID.String()); err != nil {
				return err
			}
			evts = append(evts, events.NewIncidentReported(sh.ID, breach.ID, breach.Severity))
			if s.metrics != nil {
				s.metrics.IncidentsOpened.WithLabelValues(string(breach.Type), string(breach.Severity)).Inc()
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)
	if breach != nil && sh.LR.Engaged() {
		go s.forwardIncident(context.WithoutCancel(ctx), sh.ID, sh.LR.TrackingID, *breach)
	}
	return sh, nil
}

// SeveritySealBreach is the severity automatically assigned to a broken seal.
const SeveritySealBreach = shipment.SeveritySevere

func sealCheckLocation(sh *shipment.Shipment, position events.SealPosition) string {
	if position == events.SealAtOrigin {
		return sh.Route.OriginPort
	}
	return sh.Route.DestinationPort
}

// AddPortVerification records a checkpoint inspection. Checkpoints are
// ordered: a verification cannot be filed for an earlier checkpoint than one
// already on record, and each non-transit checkpoint is recorded once.
func (s *Service) AddPortVerification(ctx context.Context, id domain.ShipmentID, v shipment.PortVerification) (*shipment.Shipment, error) {
	if v.Type.Rank() == 0 {
		return nil, dErrors.NewField(dErrors.CodeBadRequest, "type", "unknown verification type")
	}
	if v.VerifierName == "" {
		return nil, dErrors.NewField(dErrors.CodeValidation, "verifier_name", "is required")
	}
	var (
		sh   *shipment.Shipment
		evts []events.Event
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		evts = evts[:0]
		var err error
		sh, err = s.shipments.Get(ctx, id)
		if err != nil {
			return err
		}
		if sh.Status.Terminal() {
			return dErrors.Newf(dErrors.CodeIllegalTransition,
				"shipment is %s and no longer accepts verifications", sh.Status)
		}
		maxRank := 0
		for _, existing := range sh.Verifications {
			if existing.Type == v.Type && v.Type != shipment.VerifyTransitPort {
				return dErrors.Newf(dErrors.CodeConflict,
					"a %s verification is already on record", v.Type)
			}
			if r := existing.Type.Rank(); r > maxRank {
				maxRank = r
			}
		}
		if v.Type.Rank() < maxRank {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"%s checkpoint cannot be recorded after a later checkpoint", v.Type)
		}

		now := requestcontext.Now(ctx)
		v.ID = domain.NewVerificationID()
		if v.VerifiedAt.IsZero() {
			v.VerifiedAt = now
		}
		if v.SealNumberObserved != "" && v.SealNumberObserved != sh.Seal.Number {
			v.Passed = false
			v.Issues = strings.TrimSpace(v.Issues + " observed seal number does not match the applied seal")
		}
		if s.signer != nil {
			signature, err := s.signer.SignVerification(v)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "sign verification")
			}
			v.Signature = signature
		}
		sh.Verifications = append(sh.Verifications, v)

		// A passed arrival check is what lets the voyage leg complete.
		if v.Type == shipment.VerifyDestinationArrival && v.Passed {
			if sh.Schedule.ActualArrival == nil {
				sh.Schedule.ActualArrival = &v.VerifiedAt
			}
			// Best effort; if preconditions block the move the record
			// still stands and the transition happens later.
			_, _ = s.applyTransition(sh, shipment.StatusArrivedDestination, now, &evts)
		}

		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, sh.ID, audit.ActionPortVerification,
			fmt.Sprintf("%s verification at %s by %s, passed=%t", v.Type, v.PortName, v.VerifierName, v.Passed),
			"verification", v.ID.String())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)
	return sh, nil
}

// Depart stamps the actual departure and moves the shipment to in_transit.
func (s *Service) Depart(ctx context.Context, id domain.ShipmentID) (*shipment.Shipment, error) {
	var (
		sh   *shipment.Shipment
		evts []events.Event
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		evts = evts[:0]
		var err error
		sh, err = s.shipments.Get(ctx, id)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		if sh.Schedule.ActualDeparture == nil {
			sh.Schedule.ActualDeparture = &now
		}
		if _, err := s.applyTransition(sh, shipment.StatusInTransit, now, &evts); err != nil {
			return err
		}
		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, sh.ID, audit.ActionSecurityMeasure,
			fmt.Sprintf("vessel departed %s", sh.Route.OriginPort))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)
	return sh, nil
}

// IncidentInput is the operator-supplied portion of a security incident.
type IncidentInput struct {
	Type        shipment.IncidentType
	Severity    shipment.IncidentSeverity
	Location    string
	Latitude    *float64
	Longitude   *float64
	Description string

	PoliceReport       bool
	PoliceReportNumber string
	InsuranceClaim     bool
	InsuranceClaimNumber string
	ImmediateAction    string
	EstimatedCost      float64
}

// ReportIncident records a security incident. Severe and critical incidents
// move the shipment into incident_open and are forwarded to LR when the
// shipment is registered there; forwarding is best-effort and never blocks
// the incident from being recorded.
func (s *Service) ReportIncident(ctx context.Context, id domain.ShipmentID, in IncidentInput) (*shipment.SecurityIncident, error) {
	if in.Type == "" || in.Severity == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "incident type and severity are required")
	}
	if in.Latitude != nil && in.Longitude != nil {
		if err := validate.Coordinates(*in.Latitude, *in.Longitude); err != nil {
			return nil, err
		}
	}
	var (
		incident shipment.SecurityIncident
		sh       *shipment.Shipment
		evts     []events.Event
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		evts = evts[:0]
		var err error
		sh, err = s.shipments.Get(ctx, id)
		if err != nil {
			return err
		}
		if sh.Status.Terminal() {
			return dErrors.Newf(dErrors.CodeIllegalTransition,
				"shipment is %s and no longer accepts incidents", sh.Status)
		}
		now := requestcontext.Now(ctx)
		incident = shipment.SecurityIncident{
			ID:                   domain.NewIncidentID(),
			Type:                 in.Type,
			Severity:             in.Severity,
			OccurredAt:           now,
			Location:             in.Location,
			Latitude:             in.Latitude,
			Longitude:            in.Longitude,
			Description:          in.Description,
			PoliceReport:         in.PoliceReport,
			PoliceReportNumber:   in.PoliceReportNumber,
			InsuranceClaim:       in.InsuranceClaim,
			InsuranceClaimNumber: in.InsuranceClaimNumber,
			ImmediateAction:      in.ImmediateAction,
			EstimatedCost:        in.EstimatedCost,
		}
		sh.Incidents = append(sh.Incidents, incident)
		sh.Security.HasOpenIncidents = true
		if in.Severity == shipment.SeveritySevere || in.Severity == shipment.SeverityCritical {
			sh.EnterIncident()
		}
		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, sh.ID, audit.ActionIncidentReport,
			fmt.Sprintf("%s %s incident reported at %s", in.Severity, in.Type, in.Location),
			"incident", incident.ID.String())
		if err != nil {
			return err
		}
		evts = append(evts, events.NewIncidentReported(sh.ID, incident.ID, incident.Severity))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncidentsOpened.WithLabelValues(string(incident.Type), string(incident.Severity)).Inc()
	}
	s.publish(ctx, evts)

	if sh.LR.Engaged() && (incident.Severity == shipment.SeveritySevere || incident.Severity == shipment.SeverityCritical) {
		go s.forwardIncident(context.WithoutCancel(ctx), sh.ID, sh.LR.TrackingID, incident)
	}
	return &incident, nil
}

func (s *Service) forwardIncident(ctx context.Context, shipmentID domain.ShipmentID, trackingID string, incident shipment.SecurityIncident) {
	report := lloyds.IncidentReport{
		IncidentID:  incident.ID.String(),
		Type:        string(incident.Type),
		Severity:    string(incident.Severity),
		Description: incident.Description,
		OccurredAt:  incident.OccurredAt,
	}
	err := s.incidentRetry.Do(ctx, func(ctx context.Context) error {
		return s.lrCall(ctx, "report_incident", func() error {
			_, callErr := s.lr.ReportIncident(ctx, trackingID, report)
			return callErr
		})
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "incident forwarding to LR failed",
			"shipment_id", shipmentID, "incident_id", incident.ID, "error", err)
		if _, auditErr := s.audit.Record(ctx, shipmentID, audit.ActionSystemAlert,
			fmt.Sprintf("incident could not be forwarded to LR after retries: %v", err),
			"incident", incident.ID.String()); auditErr != nil {
			s.logger.ErrorContext(ctx, "could not record LR forwarding failure",
				"shipment_id", shipmentID, "incident_id", incident.ID, "error", auditErr)
		}
		return
	}
	// Flag the notification and record the handoff in one transaction.
	err = s.inTx(ctx, func(ctx context.Context) error {
		sh, err := s.shipments.Get(ctx, shipmentID)
		if err != nil {
			return err
		}
		for i := range sh.Incidents {
			if sh.Incidents[i].ID == incident.ID {
				sh.Incidents[i].LRNotified = true
			}
		}
		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, sh.ID, audit.ActionSystemAlert,
			"incident forwarded to LR", "incident", incident.ID.String())
		return err
	})
	if err != nil {
		s.logger.WarnContext(ctx, "could not flag incident as LR-notified",
			"shipment_id", shipmentID, "incident_id", incident.ID, "error", err)
	}
}

// ResolveIncident closes an incident. When the last severe or critical one
// resolves, the shipment returns to the status it held before the overlay.
func (s *Service) ResolveIncident(ctx context.Context, id domain.ShipmentID, incidentID domain.IncidentID, correctiveMeasures string) (*shipment.Shipment, error) {
	var (
		sh   *shipment.Shipment
		evts []events.Event
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		evts = evts[:0]
		var err error
		sh, err = s.shipments.Get(ctx, id)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		var resolved *shipment.SecurityIncident
		for i := range sh.Incidents {
			if sh.Incidents[i].ID == incidentID {
				resolved = &sh.Incidents[i]
				break
			}
		}
		if resolved == nil {
			return dErrors.Newf(dErrors.CodeNotFound, "incident %s not found", incidentID)
		}
		if resolved.Resolved {
			return nil // replay
		}
		resolved.Resolved = true
		resolved.ResolvedAt = &now
		if correctiveMeasures != "" {
			resolved.CorrectiveMeasures = correctiveMeasures
		}

		open := false
		for _, inc := range sh.Incidents {
			if !inc.Resolved {
				open = true
				break
			}
		}
		sh.Security.HasOpenIncidents = open
		if sh.Status == shipment.StatusIncidentOpen && len(sh.OpenSevereIncidents()) == 0 {
			from := sh.Status
			if err := sh.ExitIncident(); err != nil {
				return err
			}
			evts = append(evts, events.NewStateTransition(sh.ID, from, sh.Status))
		}

		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, sh.ID, audit.ActionIncidentReport,
			fmt.Sprintf("%s incident resolved", resolved.Type),
			"incident", incidentID.String())
		if err != nil {
			return err
		}
		evts = append(evts, events.NewIncidentResolved(sh.ID, incidentID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)
	return sh, nil
}

// TransitionTo moves a shipment along the lifecycle. Requesting the current
// status is a harmless no-op with no audit entry.
func (s *Service) TransitionTo(ctx context.Context, id domain.ShipmentID, target shipment.Status) (*shipment.Shipment, error) {
	var (
		sh   *shipment.Shipment
		evts []events.Event
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		evts = evts[:0]
		var err error
		sh, err = s.shipments.Get(ctx, id)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		moved, err := s.applyTransition(sh, target, now, &evts)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		action := audit.ActionSecurityMeasure
		if target == shipment.StatusCustomsCleared {
			action = audit.ActionCustomsCleared
		}
		_, err = s.audit.Record(ctx, sh.ID, action,
			fmt.Sprintf("shipment moved to %s", target))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)
	return sh, nil
}

// applyTransition runs the state machine and collects the event and metric
// for a successful move.
func (s *Service) applyTransition(sh *shipment.Shipment, target shipment.Status, now time.Time, evts *[]events.Event) (bool, error) {
	from := sh.Status
	moved, err := sh.Transition(target, now)
	if err != nil {
		return false, err
	}
	if moved {
		*evts = append(*evts, events.NewStateTransition(sh.ID, from, sh.Status))
		if s.metrics != nil {
			s.metrics.StateTransitions.WithLabelValues(string(from), string(sh.Status)).Inc()
		}
	}
	return moved, nil
}

// Delay puts the shipment in the delayed overlay.
func (s *Service) Delay(ctx context.Context, id domain.ShipmentID, reason string) (*shipment.Shipment, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, dErrors.NewField(dErrors.CodeValidation, "reason", "is required")
	}
	var (
		sh   *shipment.Shipment
		evts []events.Event
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		evts = evts[:0]
		var err error
		sh, err = s.shipments.Get(ctx, id)
		if err != nil {
			return err
		}
		from := sh.Status
		if err := sh.EnterDelay(reason); err != nil {
			return err
		}
		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, sh.ID, audit.ActionSystemAlert,
			fmt.Sprintf("shipment delayed: %s", reason)); err != nil {
			return err
		}
		if from != sh.Status {
			evts = append(evts, events.NewStateTransition(sh.ID, from, sh.Status))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)
	return sh, nil
}

// ClearDelay lifts the delayed overlay and restores the prior status.
func (s *Service) ClearDelay(ctx context.Context, id domain.ShipmentID) (*shipment.Shipment, error) {
	var (
		sh   *shipment.Shipment
		evts []events.Event
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		evts = evts[:0]
		var err error
		sh, err = s.shipments.Get(ctx, id)
		if err != nil {
			return err
		}
		from := sh.Status
		if err := sh.ExitDelay(); err != nil {
			return err
		}
		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, sh.ID, audit.ActionSystemAlert,
			"delay cleared"); err != nil {
			return err
		}
		evts = append(evts, events.NewStateTransition(sh.ID, from, sh.Status))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)
	return sh, nil
}

// Cancel terminates the shipment.
func (s *Service) Cancel(ctx context.Context, id domain.ShipmentID, reason string) (*shipment.Shipment, error) {
	var (
		sh   *shipment.Shipment
		evts []events.Event
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		evts = evts[:0]
		var err error
		sh, err = s.shipments.Get(ctx, id)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		moved, err := s.applyTransition(sh, shipment.StatusCancelled, now, &evts)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, sh.ID, audit.ActionSecurityMeasure,
			fmt.Sprintf("shipment cancelled: %s", reason))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evts)
	return sh, nil
}

// MarkISO18602Exported flips the compliance flag after a successful export.
// Repeat exports are replays and leave the log untouched.
func (s *Service) MarkISO18602Exported(ctx context.Context, id domain.ShipmentID) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		sh, err := s.shipments.Get(ctx, id)
		if err != nil {
			return err
		}
		if sh.ISO18602Compliant {
			return nil
		}
		sh.ISO18602Compliant = true
		if err := s.shipments.Update(ctx, sh); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, sh.ID, audit.ActionDocumentUpload,
			"ISO 18602 tracking message exported")
		return err
	})
}

// Get returns one shipment by id.
func (s *Service) Get(ctx context.Context, id domain.ShipmentID) (*shipment.Shipment, error) {
	return s.shipments.Get(ctx, id)
}

// GetByTracking returns one shipment by tracking number.
func (s *Service) GetByTracking(ctx context.Context, trackingNumber string) (*shipment.Shipment, error) {
	return s.shipments.GetByTracking(ctx, trackingNumber)
}

// List returns shipments matching the filter.
func (s *Service) List(ctx context.Context, filter store.Filter) ([]*shipment.Shipment, error) {
	return s.shipments.List(ctx, filter)
}

// AuditLog lists audit entries for a shipment.
func (s *Service) AuditLog(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	return s.audit.Store().List(ctx, filter)
}

func (s *Service) publish(ctx context.Context, evts []events.Event) {
	for _, evt := range evts {
		s.bus.Publish(ctx, evt)
	}
}

// lrCall wraps one adapter call with the call metrics.
func (s *Service) lrCall(_ context.Context, operation string, fn func() error) error {
	if s.metrics != nil {
		s.metrics.LRCalls.WithLabelValues(operation).Inc()
	}
	if err := fn(); err != nil {
		if s.metrics != nil {
			kind := "error"
			var ae *lloyds.AdapterError
			if errors.As(err, &ae) {
				kind = string(ae.Kind)
			}
			s.metrics.LRCallFailures.WithLabelValues(operation, kind).Inc()
		}
		return err
	}
	return nil
}
