// Package audit is the append-only, tamper-evident record of every
// security-relevant action. Entries are never updated or deleted; each one
// carries a SHA3-256 hash chained to its predecessor within the shipment, so
// certification auditors can verify the log end to end.
package audit

import (
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/sha3"

	"seacert/pkg/domain"
)

// ActionType classifies an audit entry per ISO 28000.
type ActionType string

const (
	ActionRiskAssessment   ActionType = "risk_assessment"
	ActionIncidentReport   ActionType = "incident_report"
	ActionSealApplied      ActionType = "seal_applied"
	ActionSealVerified     ActionType = "seal_verified"
	ActionLRRegistered     ActionType = "lr_registered"
	ActionLRInspection     ActionType = "lr_inspection"
	ActionPortVerification ActionType = "port_verification"
	ActionInsuranceUpdated ActionType = "insurance_updated"
	ActionCustomsCleared   ActionType = "customs_cleared"
	ActionSecurityMeasure  ActionType = "security_measure"
	ActionDocumentUpload   ActionType = "document_upload"
	ActionAccessGranted    ActionType = "access_granted"
	ActionSystemAlert      ActionType = "system_alert"
)

// Entry is one immutable audit record. Seq is assigned by the store and is
// strictly monotonic within a shipment.
type Entry struct {
	ID         domain.AuditEntryID
	ShipmentID domain.ShipmentID
	Seq        int64
	Action     ActionType
	Timestamp  time.Time

	ActorID   string
	ActorName string

	Description string

	// RelatedType and RelatedID point at the object the action touched,
	// e.g. ("incident", <incident id>).
	RelatedType string
	RelatedID   string

	IPAddress string
	UserAgent string

	// PrevHash and Hash form the per-shipment tamper-evidence chain.
	PrevHash string
	Hash     string

	// Immutable is always true; it exists so exports carry the flag
	// certification auditors expect to see.
	Immutable bool
}

// ChainHash computes the entry hash over its predecessor's hash and the
// entry's identifying fields. Any retroactive edit breaks every later hash.
func ChainHash(prevHash string, e Entry) string {
	h := sha3.New256()
	fmt.Fprintf(h, "%s|%s|%d|%s|%s|%s|%s|%s|%s",
		prevHash,
		e.ShipmentID,
		e.Seq,
		e.Action,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.ActorID,
		e.Description,
		e.RelatedType,
		e.RelatedID,
	)
	return hex.EncodeToString(h.Sum(nil))
}
