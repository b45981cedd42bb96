// Package validate holds the pure per-field regulatory rules. Every function
// is side-effect free and returns a coded error with the offending field path,
// so callers can surface the message to operators unchanged.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"seacert/internal/shipment"
	dErrors "seacert/pkg/domain-errors"
)

var (
	scacPattern      = regexp.MustCompile(`^[A-Z]{4}$`)
	unNumberPattern  = regexp.MustCompile(`^UN\d{4}$`)
	scheduleBPattern = regexp.MustCompile(`^\d{10}$`)
	hsPlainPattern   = regexp.MustCompile(`^\d{6,10}$`)
	hsDottedPattern  = regexp.MustCompile(`^\d{2}(\d{2})?(\.\d{2}){2,3}$`)
	containerPattern = regexp.MustCompile(`^[A-Z]{4}\d{7}$`)
	mrnTailPattern   = regexp.MustCompile(`^[A-Z0-9]{16}$`)
	parsPattern      = regexp.MustCompile(`^\d{4,10}$`)
)

// mrnCountries are the country codes accepted in the first two positions of
// an EU Movement Reference Number.
var mrnCountries = map[string]bool{
	"AT": true, "BE": true, "BG": true, "HR": true, "CY": true, "CZ": true,
	"DK": true, "EE": true, "FI": true, "FR": true, "DE": true, "GR": true,
	"HU": true, "IE": true, "IT": true, "LV": true, "LT": true, "LU": true,
	"MT": true, "NL": true, "PL": true, "PT": true, "RO": true, "SK": true,
	"SI": true, "ES": true, "SE": true, "GB": true, "XI": true, "NO": true,
	"CH": true,
}

// iso4217 is the set of currencies the marketplace settles in.
var iso4217 = map[string]bool{
	"AED": true, "AUD": true, "CAD": true, "CHF": true, "CNY": true,
	"DKK": true, "EUR": true, "GBP": true, "GHS": true, "JPY": true,
	"KES": true, "MAD": true, "NGN": true, "NOK": true, "NZD": true,
	"SEK": true, "TZS": true, "UGX": true, "USD": true, "XOF": true,
	"ZAR": true,
}

// IMOVesselNumber checks the seven-digit vessel identifier and its check
// digit: sum of digit x weight for weights 7..2 over the first six digits,
// mod 10, equals the seventh.
func IMOVesselNumber(raw string) error {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "IMO ")
	s = strings.TrimPrefix(s, "IMO")
	if len(s) != 7 {
		return dErrors.NewField(dErrors.CodeValidation, "imo_vessel_number", "must be seven digits")
	}
	sum := 0
	for i := 0; i < 7; i++ {
		if s[i] < '0' || s[i] > '9' {
			return dErrors.NewField(dErrors.CodeValidation, "imo_vessel_number", "must be seven digits")
		}
		if i < 6 {
			sum += int(s[i]-'0') * (7 - i)
		}
	}
	if sum%10 != int(s[6]-'0') {
		return dErrors.NewField(dErrors.CodeValidation, "imo_vessel_number", "check digit does not match")
	}
	return nil
}

// SCAC checks the Standard Carrier Alpha Code: exactly four uppercase letters.
func SCAC(raw string) error {
	if !scacPattern.MatchString(raw) {
		return dErrors.NewField(dErrors.CodeValidation, "scac", "must be exactly four uppercase letters")
	}
	return nil
}

// MRN checks the EU Movement Reference Number: 18 characters, positions one
// and two a recognized country code, the rest alphanumeric.
func MRN(raw string) error {
	if len(raw) != 18 {
		return dErrors.NewField(dErrors.CodeValidation, "mrn", "must be exactly 18 characters")
	}
	if !mrnCountries[raw[:2]] {
		return dErrors.NewField(dErrors.CodeValidation, "mrn", "must start with a recognized country code")
	}
	if !mrnTailPattern.MatchString(raw[2:]) {
		return dErrors.NewField(dErrors.CodeValidation, "mrn", "characters after the country code must be alphanumeric")
	}
	return nil
}

// UNNumber checks the dangerous-goods identifier, e.g. UN1203.
func UNNumber(raw string) error {
	if !unNumberPattern.MatchString(raw) {
		return dErrors.NewField(dErrors.CodeValidation, "un_number", "must be UN followed by exactly four digits")
	}
	return nil
}

// ScheduleB checks the US export commodity code: exactly ten digits.
func ScheduleB(raw string) error {
	if !scheduleBPattern.MatchString(raw) {
		return dErrors.NewField(dErrors.CodeValidation, "schedule_b", "must be exactly ten digits")
	}
	return nil
}

// HSTariff accepts a plain 6-10 digit code or the dotted form dd(dd)?(.dd){2,3}.
func HSTariff(raw string) error {
	if hsPlainPattern.MatchString(raw) || hsDottedPattern.MatchString(raw) {
		return nil
	}
	return dErrors.NewField(dErrors.CodeValidation, "hs_tariff", "must be 6-10 digits or a dotted tariff code")
}

// PARSNumber checks the Canadian pre-arrival number: 4-10 digits.
func PARSNumber(raw string) error {
	if !parsPattern.MatchString(raw) {
		return dErrors.NewField(dErrors.CodeValidation, "pars_number", "must be 4-10 digits")
	}
	return nil
}

// ContainerNumber checks the ISO 6346 format: four letters plus seven digits.
func ContainerNumber(raw string) error {
	if !containerPattern.MatchString(raw) {
		return dErrors.NewField(dErrors.CodeValidation, "container_number", "must be four letters followed by seven digits")
	}
	return nil
}

// Currency checks the declared-value currency against ISO 4217.
func Currency(raw string) error {
	if !iso4217[raw] {
		return dErrors.NewField(dErrors.CodeValidation, "currency", "must be a valid ISO 4217 code")
	}
	return nil
}

// FacilitySecurityLevel checks the ISPS level.
func FacilitySecurityLevel(level int) error {
	if level < 1 || level > 3 {
		return dErrors.NewField(dErrors.CodeValidation, "facility_security_level", "must be 1, 2, or 3")
	}
	return nil
}

// Coordinates checks GPS bounds.
func Coordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return dErrors.NewField(dErrors.CodeValidation, "latitude", "must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return dErrors.NewField(dErrors.CodeValidation, "longitude", "must be between -180 and 180")
	}
	return nil
}

// unusualAMSLead flags submissions made implausibly far ahead of departure.
const unusualAMSLead = 30 * 24 * time.Hour

// AMS24h enforces the US 24-hour advance manifest rule. The returned warning
// is non-empty when the submission is unusually early; that is advisory only.
func AMS24h(submission, departure time.Time) (warning string, err error) {
	lead := departure.Sub(submission)
	if lead < 24*time.Hour {
		return "", dErrors.NewField(dErrors.CodeValidation, "ams_submitted_at",
			"AMS must be filed at least 24 hours before departure")
	}
	if lead > unusualAMSLead {
		warning = fmt.Sprintf("AMS filed %.0f days before departure; confirm the voyage schedule", lead.Hours()/24)
	}
	return warning, nil
}

// TransportMode selects the ACI advance-notice window.
type TransportMode string

const (
	ModeMarine  TransportMode = "marine"
	ModeAir     TransportMode = "air"
	ModeHighway TransportMode = "highway"
	ModeRail    TransportMode = "rail"
)

var aciLeadTimes = map[TransportMode]time.Duration{
	ModeMarine:  24 * time.Hour,
	ModeAir:     4 * time.Hour,
	ModeHighway: 1 * time.Hour,
	ModeRail:    2 * time.Hour,
}

// ACIAdvance enforces the Canadian advance commercial information windows per
// transport mode.
func ACIAdvance(submission, arrival time.Time, mode TransportMode) error {
	required, ok := aciLeadTimes[mode]
	if !ok {
		return dErrors.NewField(dErrors.CodeValidation, "aci_mode", "unknown transport mode")
	}
	if arrival.Sub(submission) < required {
		return dErrors.NewField(dErrors.CodeValidation, "aci_submitted_at",
			fmt.Sprintf("ACI for %s mode must be filed at least %s before arrival", mode, required))
	}
	return nil
}

// VGM ceilings per container class, SOLAS Chapter VI.
const (
	vgmFloorKg     = 1000
	vgmCeiling20Kg = 24000
	vgmCeiling40Kg = 30480
)

// VGMWeight checks the verified gross mass against the container class
// ceiling and the plausibility floor.
func VGMWeight(kg float64, container shipment.Container) error {
	if kg < vgmFloorKg {
		return dErrors.NewField(dErrors.CodeValidation, "vgm_weight_kg",
			"weights under 1000 kg are implausible for a vehicle shipment")
	}
	ceiling := float64(vgmCeiling20Kg)
	if container.Is40ft() {
		ceiling = vgmCeiling40Kg
	}
	if kg > ceiling {
		return dErrors.NewField(dErrors.CodeValidation, "vgm_weight_kg",
			fmt.Sprintf("exceeds the %.0f kg ceiling for this container class", ceiling))
	}
	return nil
}

// Hazmat checks that a declared hazmat shipment carries the mandatory fields.
func Hazmat(decl shipment.HazmatDeclaration) error {
	if !decl.ContainsHazmat {
		return nil
	}
	if decl.UNNumber == "" || decl.IMDGClass == "" || decl.EmergencyContact == "" {
		return dErrors.NewField(dErrors.CodeValidation, "hazmat",
			"UN number, IMDG class, and emergency contact are required for hazmat cargo")
	}
	return UNNumber(decl.UNNumber)
}

// Incoterm checks the delivery term against the accepted set.
func IncotermTerm(term shipment.Incoterm) error {
	if !shipment.ValidIncoterms[term] {
		return dErrors.NewField(dErrors.CodeValidation, "incoterm", "must be one of EXW, FCA, FOB, CFR, CIF, DAP, DDP")
	}
	return nil
}
