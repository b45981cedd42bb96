package shipment

import "time"

// FilingStatus tracks a regulator filing through its lifecycle.
type FilingStatus string

const (
	FilingPending   FilingStatus = "pending"
	FilingSubmitted FilingStatus = "submitted"
	FilingAccepted  FilingStatus = "accepted"
	FilingRejected  FilingStatus = "rejected"
	FilingAmended   FilingStatus = "amended"
)

// Regime names a regulatory filing regime.
type Regime string

const (
	RegimeVGM          Regime = "vgm"
	RegimeAMS          Regime = "ams"
	RegimeACI          Regime = "aci"
	RegimeAES          Regime = "aes"
	RegimeENS          Regime = "ens"
	RegimeISPS         Regime = "isps"
	RegimeCustoms      Regime = "customs"
	RegimeHazmat       Regime = "hazmat"
	RegimeBillOfLading Regime = "bill_of_lading"
)

// VGMMethod is the SOLAS verified-gross-mass weighing method.
type VGMMethod string

const (
	VGMMethod1 VGMMethod = "method_1" // weigh the packed container
	VGMMethod2 VGMMethod = "method_2" // sum cargo plus tare
)

// VGMFiling is the SOLAS verified gross mass certification.
type VGMFiling struct {
	WeightKg          float64
	Method            VGMMethod
	CertifiedBy       string
	CertifiedAt       *time.Time
	CertificateNumber string
}

// Certified reports whether the VGM has been certified.
func (f VGMFiling) Certified() bool { return f.CertifiedAt != nil && f.WeightKg > 0 }

// AMSFiling is the US CBP Automated Manifest System filing (24-hour rule).
type AMSFiling struct {
	FilingNumber      string
	SubmittedAt       *time.Time
	Status            FilingStatus
	SCAC              string
	ArrivalNoticeDate *time.Time
}

// ACIFiling is the Canadian Advance Commercial Information filing.
type ACIFiling struct {
	CCDNumber                 string
	PARSNumber                string
	PAPSNumber                string
	ReleaseNotificationNumber string
	SubmittedAt               *time.Time
	Status                    FilingStatus
}

// AESFiling is the US Automated Export System filing.
type AESFiling struct {
	ITN               string
	ScheduleBCode     string
	ExemptionCode     string
	FiledAt           *time.Time
	ExportLicense     bool
	ExportLicenseNumber string
}

// Complete reports whether the export side is covered, either by an ITN or a
// valid exemption code.
func (f AESFiling) Complete() bool { return f.ITN != "" || f.ExemptionCode != "" }

// ENSFiling is the EU Entry Summary Declaration.
type ENSFiling struct {
	MRN     string
	LRN     string
	FiledAt *time.Time
	Status  FilingStatus
}

// ISPSRecord captures port facility security posture for the voyage.
type ISPSRecord struct {
	FacilitySecurityLevel    int // 1..3
	OriginPortCertified      bool
	DestinationPortCertified bool
	PFSOName                 string
	SSASEquipped             bool
}

// CustomsFiling carries the harmonized tariff declaration.
type CustomsFiling struct {
	TariffCode    string
	DeclaredValue float64
	Currency      string
	DutyPaid      bool
	BrokerName    string
	BrokerLicence string
}

// HazmatDeclaration is present on every shipment; the detail fields are
// mandatory only when ContainsHazmat is true.
type HazmatDeclaration struct {
	ContainsHazmat   bool
	UNNumber         string
	IMDGClass        string
	EmergencyContact string
	MSDSAttached     bool
}

// BillOfLadingType classifies the transport document.
type BillOfLadingType string

const (
	BOLMaster BillOfLadingType = "master"
	BOLHouse  BillOfLadingType = "house"
	BOLSeaway BillOfLadingType = "seaway"
	BOLTelex  BillOfLadingType = "telex"
)

// Incoterm is the agreed international delivery term.
type Incoterm string

const (
	IncotermEXW Incoterm = "EXW"
	IncotermFCA Incoterm = "FCA"
	IncotermFOB Incoterm = "FOB"
	IncotermCFR Incoterm = "CFR"
	IncotermCIF Incoterm = "CIF"
	IncotermDAP Incoterm = "DAP"
	IncotermDDP Incoterm = "DDP"
)

// ValidIncoterms is the closed set accepted by the validators.
var ValidIncoterms = map[Incoterm]bool{
	IncotermEXW: true, IncotermFCA: true, IncotermFOB: true,
	IncotermCFR: true, IncotermCIF: true, IncotermDAP: true, IncotermDDP: true,
}

// BillOfLading is the ocean transport document record.
type BillOfLading struct {
	Number           string
	Type             BillOfLadingType
	IssueDate        *time.Time
	FreightTerms     string
	Incoterm         Incoterm
	ConsigneeName    string
	ConsigneeAddress string
	NotifyParty      string
}

// Filings groups the per-regime sub-records embedded in a shipment.
type Filings struct {
	VGM          VGMFiling
	AMS          AMSFiling
	ACI          ACIFiling
	AES          AESFiling
	ENS          ENSFiling
	ISPS         ISPSRecord
	Customs      CustomsFiling
	Hazmat       HazmatDeclaration
	BillOfLading BillOfLading
}

// ImportFiling returns the regime and submission state that applies to the
// destination country: AMS for the US, ACI for Canada, ENS for the EU.
func (f Filings) ImportFiling(destinationCountry string) (Regime, FilingStatus, *time.Time) {
	switch {
	case destinationCountry == "US":
		return RegimeAMS, f.AMS.Status, f.AMS.SubmittedAt
	case destinationCountry == "CA":
		return RegimeACI, f.ACI.Status, f.ACI.SubmittedAt
	case ensCountries[destinationCountry]:
		return RegimeENS, f.ENS.Status, f.ENS.FiledAt
	default:
		// No advance import filing regime applies on this lane.
		return "", "", nil
	}
}

// ensCountries are the destinations whose customs territory requires an
// Entry Summary Declaration.
var ensCountries = map[string]bool{
	"AT": true, "BE": true, "BG": true, "HR": true, "CY": true, "CZ": true,
	"DK": true, "EE": true, "FI": true, "FR": true, "DE": true, "GR": true,
	"HU": true, "IE": true, "IT": true, "LV": true, "LT": true, "LU": true,
	"MT": true, "NL": true, "PL": true, "PT": true, "RO": true, "SK": true,
	"SI": true, "ES": true, "SE": true, "GB": true, "XI": true, "NO": true,
	"CH": true,
}

func (f Filings) clone() Filings {
	out := f
	out.VGM.CertifiedAt = cloneTime(f.VGM.CertifiedAt)
	out.AMS.SubmittedAt = cloneTime(f.AMS.SubmittedAt)
	out.AMS.ArrivalNoticeDate = cloneTime(f.AMS.ArrivalNoticeDate)
	out.ACI.SubmittedAt = cloneTime(f.ACI.SubmittedAt)
	out.AES.FiledAt = cloneTime(f.AES.FiledAt)
	out.ENS.FiledAt = cloneTime(f.ENS.FiledAt)
	out.BillOfLading.IssueDate = cloneTime(f.BillOfLading.IssueDate)
	return out
}
