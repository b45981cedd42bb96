// Package domain holds the typed identifiers shared across modules. Using
// distinct types keeps a ShipmentID from being passed where an IncidentID is
// expected.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "seacert/pkg/domain-errors"
)

type (
	ShipmentID     uuid.UUID
	DealID         uuid.UUID
	AssessmentID   uuid.UUID
	IncidentID     uuid.UUID
	VerificationID uuid.UUID
	AuditEntryID   uuid.UUID
)

func NewShipmentID() ShipmentID         { return ShipmentID(uuid.New()) }
func NewDealID() DealID                 { return DealID(uuid.New()) }
func NewAssessmentID() AssessmentID     { return AssessmentID(uuid.New()) }
func NewIncidentID() IncidentID         { return IncidentID(uuid.New()) }
func NewVerificationID() VerificationID { return VerificationID(uuid.New()) }
func NewAuditEntryID() AuditEntryID     { return AuditEntryID(uuid.New()) }

func (id ShipmentID) String() string     { return uuid.UUID(id).String() }
func (id DealID) String() string         { return uuid.UUID(id).String() }
func (id AssessmentID) String() string   { return uuid.UUID(id).String() }
func (id IncidentID) String() string     { return uuid.UUID(id).String() }
func (id VerificationID) String() string { return uuid.UUID(id).String() }
func (id AuditEntryID) String() string   { return uuid.UUID(id).String() }

func (id ShipmentID) MarshalText() ([]byte, error)     { return marshalText(uuid.UUID(id)) }
func (id DealID) MarshalText() ([]byte, error)         { return marshalText(uuid.UUID(id)) }
func (id AssessmentID) MarshalText() ([]byte, error)   { return marshalText(uuid.UUID(id)) }
func (id IncidentID) MarshalText() ([]byte, error)     { return marshalText(uuid.UUID(id)) }
func (id VerificationID) MarshalText() ([]byte, error) { return marshalText(uuid.UUID(id)) }
func (id AuditEntryID) MarshalText() ([]byte, error)   { return marshalText(uuid.UUID(id)) }

func (id *ShipmentID) UnmarshalText(b []byte) error     { return unmarshalText((*uuid.UUID)(id), b) }
func (id *DealID) UnmarshalText(b []byte) error         { return unmarshalText((*uuid.UUID)(id), b) }
func (id *AssessmentID) UnmarshalText(b []byte) error   { return unmarshalText((*uuid.UUID)(id), b) }
func (id *IncidentID) UnmarshalText(b []byte) error     { return unmarshalText((*uuid.UUID)(id), b) }
func (id *VerificationID) UnmarshalText(b []byte) error { return unmarshalText((*uuid.UUID)(id), b) }
func (id *AuditEntryID) UnmarshalText(b []byte) error   { return unmarshalText((*uuid.UUID)(id), b) }

func marshalText(u uuid.UUID) ([]byte, error) {
	return []byte(u.String()), nil
}

func unmarshalText(u *uuid.UUID, b []byte) error {
	if len(b) == 0 {
		*u = uuid.Nil
		return nil
	}
	parsed, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

func (id ShipmentID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DealID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id IncidentID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id VerificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AuditEntryID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

func parse(raw, kind string) (uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s is required", kind)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s is not a valid UUID", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s must not be the nil UUID", kind)
	}
	return parsed, nil
}

// ParseShipmentID validates an inbound shipment identifier at a trust boundary.
func ParseShipmentID(raw string) (ShipmentID, error) {
	parsed, err := parse(raw, "shipment_id")
	return ShipmentID(parsed), err
}

func ParseDealID(raw string) (DealID, error) {
	parsed, err := parse(raw, "deal_id")
	return DealID(parsed), err
}

func ParseIncidentID(raw string) (IncidentID, error) {
	parsed, err := parse(raw, "incident_id")
	return IncidentID(parsed), err
}

// NewTrackingNumber derives a human-facing tracking number from the creation
// time. Uniqueness within one second is provided by the random suffix.
func NewTrackingNumber(at time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("SEC-%s-%s", at.UTC().Format("20060102"), suffix)
}
