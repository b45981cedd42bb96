// Package risk computes the security risk assessment for a shipment. The
// scorer is a pure function of its inputs: recomputation on every update is
// mandatory so derived values are never persisted stale.
package risk

import (
	"time"

	"seacert/internal/shipment"
	"seacert/pkg/domain"
	dErrors "seacert/pkg/domain-errors"
)

// factorWeight scales the five 0-10 factors onto the 0-100 overall range.
// Five factors at 10 each land exactly on 100.
const factorWeight = 2

// insuranceHeadroom is the 20% margin over the declared vehicle value.
const insuranceHeadroom = 1.20

// lrThreshold is the overall score at which Lloyd's Register third-party
// verification is recommended.
const lrThreshold = 60

// Score returns the overall 0-100 score for the given factors.
func Score(f shipment.FactorScores) int {
	return factorWeight * f.Sum()
}

// Level buckets an overall score.
func Level(score int) shipment.RiskLevel {
	switch {
	case score <= 30:
		return shipment.RiskLow
	case score <= 60:
		return shipment.RiskMedium
	case score <= 85:
		return shipment.RiskHigh
	default:
		return shipment.RiskCritical
	}
}

// Tier maps a risk level to the monitoring tier.
func Tier(level shipment.RiskLevel) shipment.MonitoringTier {
	switch level {
	case shipment.RiskLow:
		return shipment.TierStandard
	case shipment.RiskMedium:
		return shipment.TierPremium
	default:
		return shipment.TierSurveyor
	}
}

// ValidateFactors rejects out-of-range factor scores.
func ValidateFactors(f shipment.FactorScores) error {
	for _, pair := range []struct {
		name  string
		value int
	}{
		{"route", f.Route},
		{"value", f.Value},
		{"destination", f.Destination},
		{"customs", f.Customs},
		{"port_security", f.PortSecurity},
	} {
		if pair.value < 0 || pair.value > 10 {
			return dErrors.NewField(dErrors.CodeValidation, "factors."+pair.name,
				"factor scores must be between 0 and 10")
		}
	}
	return nil
}

// Assess builds a complete SecurityRiskAssessment from the factors and the
// deal's declared value. Calling it twice with the same inputs produces the
// same outputs apart from the generated ID.
func Assess(f shipment.FactorScores, deal shipment.DealView, assessedBy string, at time.Time) (*shipment.SecurityRiskAssessment, error) {
	if err := ValidateFactors(f); err != nil {
		return nil, err
	}
	score := Score(f)
	level := Level(score)
	return &shipment.SecurityRiskAssessment{
		ID:                   domain.NewAssessmentID(),
		Factors:              f,
		OverallScore:         score,
		Level:                level,
		RecommendedInsurance: deal.DeclaredValue * insuranceHeadroom,
		InsuranceCurrency:    deal.Currency,
		MonitoringTier:       Tier(level),
		LRRecommended:        score >= lrThreshold,
		AssessedBy:           assessedBy,
		AssessedAt:           at,
	}, nil
}

// Apply copies the derived outputs of an assessment onto the shipment's
// security profile so callers always read a consistent pair.
func Apply(s *shipment.Shipment, a *shipment.SecurityRiskAssessment) {
	s.Assessment = a
	s.Security.RiskScore = a.OverallScore
	s.Security.RiskLevel = a.Level
	s.Security.InsuranceAmount = a.RecommendedInsurance
	s.Security.InsuranceCurrency = a.InsuranceCurrency
	s.Security.MonitoringTier = a.MonitoringTier
}
