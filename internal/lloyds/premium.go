package lloyds

import "seacert/internal/shipment"

// This engine is the source of truth for the premium formula:
// value x 0.015 x route multiplier x tier discount.
const baseRate = 0.015

var routeMultipliers = map[string]float64{
	"canada_west_africa":  1.2,
	"canada_east_africa":  1.3,
	"canada_north_africa": 1.0,
	"canada_south_africa": 1.1,
}

// defaultRouteMultiplier covers routes without an agreed rate.
const defaultRouteMultiplier = 1.2

var tierDiscounts = map[shipment.MonitoringTier]float64{
	shipment.TierStandard: 1.00,
	shipment.TierPremium:  0.85,
	shipment.TierSurveyor: 0.75,
}

// Premium computes the monitoring premium. It is a pure function: same
// inputs, same output.
func Premium(value float64, route string, tier shipment.MonitoringTier) float64 {
	multiplier, ok := routeMultipliers[route]
	if !ok {
		multiplier = defaultRouteMultiplier
	}
	discount, ok := tierDiscounts[tier]
	if !ok {
		discount = 1.00
	}
	return value * baseRate * multiplier * discount
}
