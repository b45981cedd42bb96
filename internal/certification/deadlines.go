package certification

import (
	"fmt"
	"time"

	"seacert/internal/shipment"
)

// AlertSeverity grades a deadline finding.
type AlertSeverity string

const (
	AlertApproaching AlertSeverity = "approaching"
	AlertMissed      AlertSeverity = "missed"
)

// DeadlineAlert is one finding from the regulatory deadline sweep.
type DeadlineAlert struct {
	Regime    shipment.Regime
	Severity  AlertSeverity
	DueAt     time.Time
	HoursLeft float64
}

func (a DeadlineAlert) String() string {
	if a.Severity == AlertMissed {
		return fmt.Sprintf("%s filing deadline missed (was due %s)", a.Regime, a.DueAt.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("%s filing due in %.1f hours", a.Regime, a.HoursLeft)
}

// approachWindow is how close to a filing deadline the sweep starts warning.
const approachWindow = 6 * time.Hour

// aciMarineLead and ensDeepSeaLead are the advance-notice windows for ocean
// freight; this engine only books deep-sea voyages.
const (
	aciMarineLead  = 24 * time.Hour
	ensDeepSeaLead = 24 * time.Hour
	vgmLead        = 24 * time.Hour
)

// Deadlines sweeps the shipment's unfiled regulator obligations against the
// voyage schedule. It is a pure read; the tick turns findings into events
// and audit entries.
func Deadlines(sh *shipment.Shipment, now time.Time) []DeadlineAlert {
	if sh.Status.Terminal() {
		return nil
	}
	var alerts []DeadlineAlert

	departure := sh.Schedule.EstimatedDeparture
	arrival := sh.Schedule.EstimatedArrival
	departed := sh.Schedule.ActualDeparture != nil

	if departure != nil && !departed {
		if !sh.Filings.VGM.Certified() {
			alerts = appendAlert(alerts, shipment.RegimeVGM, departure.Add(-vgmLead), now)
		}
		if sh.Route.DestinationCountry == "US" && sh.Filings.AMS.SubmittedAt == nil {
			alerts = appendAlert(alerts, shipment.RegimeAMS, departure.Add(-shipment.AMSLeadTime), now)
		}
		if sh.OriginIsUS() && !sh.Filings.AES.Complete() {
			alerts = appendAlert(alerts, shipment.RegimeAES, *departure, now)
		}
	}
	if arrival != nil {
		if sh.Route.DestinationCountry == "CA" && sh.Filings.ACI.SubmittedAt == nil {
			alerts = appendAlert(alerts, shipment.RegimeACI, arrival.Add(-aciMarineLead), now)
		}
		if regime, _, filedAt := sh.Filings.ImportFiling(sh.Route.DestinationCountry); regime == shipment.RegimeENS && filedAt == nil {
			alerts = appendAlert(alerts, shipment.RegimeENS, arrival.Add(-ensDeepSeaLead), now)
		}
	}
	return alerts
}

func appendAlert(alerts []DeadlineAlert, regime shipment.Regime, dueAt, now time.Time) []DeadlineAlert {
	switch {
	case now.After(dueAt):
		return append(alerts, DeadlineAlert{Regime: regime, Severity: AlertMissed, DueAt: dueAt})
	case now.After(dueAt.Add(-approachWindow)):
		return append(alerts, DeadlineAlert{
			Regime:    regime,
			Severity:  AlertApproaching,
			DueAt:     dueAt,
			HoursLeft: dueAt.Sub(now).Hours(),
		})
	default:
		return alerts
	}
}
