package certification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seacert/internal/shipment"
)

func sweepShipment(destCountry string, departure, arrival time.Time) *shipment.Shipment {
	return &shipment.Shipment{
		Status: shipment.StatusRiskAssessed,
		Route: shipment.Route{
			OriginPort:         "CAMTR",
			DestinationPort:    "USNYC",
			DestinationCountry: destCountry,
		},
		Schedule: shipment.Schedule{
			EstimatedDeparture: &departure,
			EstimatedArrival:   &arrival,
		},
	}
}

func alertFor(t *testing.T, alerts []DeadlineAlert, regime shipment.Regime) DeadlineAlert {
	t.Helper()
	for _, a := range alerts {
		if a.Regime == regime {
			return a
		}
	}
	require.Failf(t, "missing alert", "no %s alert in %v", regime, alerts)
	return DeadlineAlert{}
}

func TestDeadlinesPreDeparture(t *testing.T) {
	departure := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	arrival := departure.Add(14 * 24 * time.Hour)

	t.Run("quiet well before the window", func(t *testing.T) {
		sh := sweepShipment("US", departure, arrival)
		assert.Empty(t, Deadlines(sh, departure.Add(-72*time.Hour)))
	})

	t.Run("vgm and ams approach together", func(t *testing.T) {
		sh := sweepShipment("US", departure, arrival)
		// Both are due 24h before departure; 26h out is inside the 6h window.
		now := departure.Add(-26 * time.Hour)
		alerts := Deadlines(sh, now)
		require.Len(t, alerts, 2)

		vgm := alertFor(t, alerts, shipment.RegimeVGM)
		assert.Equal(t, AlertApproaching, vgm.Severity)
		assert.InDelta(t, 2.0, vgm.HoursLeft, 0.001)

		ams := alertFor(t, alerts, shipment.RegimeAMS)
		assert.Equal(t, AlertApproaching, ams.Severity)
		assert.Contains(t, ams.String(), "due in")
	})

	t.Run("missed once the lead time is gone", func(t *testing.T) {
		sh := sweepShipment("US", departure, arrival)
		alerts := Deadlines(sh, departure.Add(-12*time.Hour))
		require.Len(t, alerts, 2)
		assert.Equal(t, AlertMissed, alertFor(t, alerts, shipment.RegimeAMS).Severity)
		assert.Contains(t, alertFor(t, alerts, shipment.RegimeAMS).String(), "missed")
	})

	t.Run("filed obligations stay quiet", func(t *testing.T) {
		sh := sweepShipment("US", departure, arrival)
		certified := departure.Add(-48 * time.Hour)
		sh.Filings.VGM = shipment.VGMFiling{WeightKg: 18400, Method: shipment.VGMMethod1, CertifiedAt: &certified}
		sh.Filings.AMS = shipment.AMSFiling{SCAC: "MAEU", SubmittedAt: &certified, Status: shipment.FilingSubmitted}
		assert.Empty(t, Deadlines(sh, departure.Add(-12*time.Hour)))
	})

	t.Run("departure ends the pre-departure sweep", func(t *testing.T) {
		sh := sweepShipment("US", departure, arrival)
		actual := departure.Add(time.Hour)
		sh.Schedule.ActualDeparture = &actual
		alerts := Deadlines(sh, departure.Add(2*time.Hour))
		for _, a := range alerts {
			assert.NotEqual(t, shipment.RegimeVGM, a.Regime)
			assert.NotEqual(t, shipment.RegimeAMS, a.Regime)
		}
	})

	t.Run("aes applies only to us origins", func(t *testing.T) {
		sh := sweepShipment("US", departure, arrival)
		sh.Route.OriginPort = "USLGB"
		alerts := Deadlines(sh, departure.Add(-3*time.Hour))
		aes := alertFor(t, alerts, shipment.RegimeAES)
		assert.Equal(t, AlertApproaching, aes.Severity)
	})
}

func TestDeadlinesArrival(t *testing.T) {
	departure := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	arrival := departure.Add(14 * 24 * time.Hour)

	t.Run("aci for canadian destinations", func(t *testing.T) {
		sh := sweepShipment("CA", departure, arrival)
		actual := departure
		sh.Schedule.ActualDeparture = &actual
		alerts := Deadlines(sh, arrival.Add(-26*time.Hour))
		aci := alertFor(t, alerts, shipment.RegimeACI)
		assert.Equal(t, AlertApproaching, aci.Severity)
	})

	t.Run("ens for eu destinations", func(t *testing.T) {
		sh := sweepShipment("DE", departure, arrival)
		alerts := Deadlines(sh, arrival.Add(-10*time.Hour))
		ens := alertFor(t, alerts, shipment.RegimeENS)
		assert.Equal(t, AlertMissed, ens.Severity)
	})

	t.Run("no import regime means no arrival alerts", func(t *testing.T) {
		sh := sweepShipment("JP", departure, arrival)
		actual := departure
		sh.Schedule.ActualDeparture = &actual
		assert.Empty(t, Deadlines(sh, arrival.Add(-10*time.Hour)))
	})

	t.Run("a filed ens stays quiet", func(t *testing.T) {
		sh := sweepShipment("DE", departure, arrival)
		filed := departure.Add(-48 * time.Hour)
		sh.Filings.ENS = shipment.ENSFiling{MRN: "DE1234567890ABCDEF", FiledAt: &filed, Status: shipment.FilingSubmitted}
		actual := departure
		sh.Schedule.ActualDeparture = &actual
		assert.Empty(t, Deadlines(sh, arrival.Add(-10*time.Hour)))
	})
}

func TestDeadlinesTerminal(t *testing.T) {
	departure := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	sh := sweepShipment("US", departure, departure.Add(14*24*time.Hour))
	sh.Status = shipment.StatusCancelled
	assert.Nil(t, Deadlines(sh, departure))
}
