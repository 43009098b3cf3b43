package models

import "strings"

// HospitalSystem is the payroll entity a rotation belongs to. A resident
// cannot be on two systems in the same block.
type HospitalSystem string

const (
	HospitalUCSF  HospitalSystem = "UCSF"
	HospitalZSFG  HospitalSystem = "ZSFG"
	HospitalVA    HospitalSystem = "VA"
	HospitalOther HospitalSystem = "OTHER"
)

// Section is the coarse clinical grouping used for graduation accounting.
type Section string

const (
	SectionNucMed     Section = "NucMed"
	SectionBreast     Section = "Breast"
	SectionNeuro      Section = "Neuro"
	SectionBody       Section = "Body"
	SectionUltrasound Section = "Ultrasound"
	SectionChest      Section = "Chest"
	SectionCardiac    Section = "Cardiac"
	SectionMSK        Section = "MSK"
	SectionPeds       Section = "Peds"
	SectionIR         Section = "IR"
	SectionAdmin      Section = "Admin"
)

// hospitalByCode is an explicit lookup table. P-prefix rotations
// (Parnassus/China Basin) share UCSF payroll, so they map to UCSF rather
// than a system of their own. Unknown codes are OTHER.
var hospitalByCode = map[string]HospitalSystem{
	"Mnuc": HospitalUCSF, "Mnct": HospitalUCSF, "Mai": HospitalUCSF,
	"Mus": HospitalUCSF, "Mch": HospitalUCSF, "Mch2": HospitalUCSF,
	"Mb": HospitalUCSF, "Mucic": HospitalUCSF, "Mir": HospitalUCSF,
	"Mx": HospitalUCSF, "Mc": HospitalUCSF, "Mnf": HospitalUCSF,
	"Peds": HospitalUCSF,
	"Pcbi": HospitalUCSF, "Pcmb": HospitalUCSF,

	"Sbi": HospitalZSFG, "Ser": HospitalZSFG, "Smr": HospitalZSFG,
	"Sir": HospitalZSFG, "Sus": HospitalZSFG, "Sai": HospitalZSFG,
	"Snct": HospitalZSFG, "Sch": HospitalZSFG, "Sch2": HospitalZSFG,
	"Sx": HospitalZSFG, "Snf": HospitalZSFG, "Snf2": HospitalZSFG,
	"Zir": HospitalZSFG, "Zai": HospitalZSFG,

	"Vnuc": HospitalVA, "Vb": HospitalVA, "Vir": HospitalVA, "Vn": HospitalVA,
}

// HospitalFor returns the hospital system for a rotation code.
func HospitalFor(code string) HospitalSystem {
	if code == "" {
		return HospitalOther
	}
	if hs, ok := hospitalByCode[code]; ok {
		return hs
	}
	return HospitalOther
}

var sectionByCode = map[string]Section{
	"Mnuc": SectionNucMed, "Vnuc": SectionNucMed, "Snct": SectionNucMed, "Mnct": SectionNucMed,
	"Pcbi": SectionBreast, "Sbi": SectionBreast, "Vb": SectionBreast,
	"Zai": SectionNeuro, "Smr": SectionNeuro,
	"Mai": SectionBody, "Sai": SectionBody,
	"Mus": SectionUltrasound, "Sus": SectionUltrasound,
	"Mch": SectionChest, "Mch2": SectionChest, "Sch": SectionChest,
	"Mb": SectionMSK, "Ser": SectionMSK, "Mucic": SectionMSK,
	"Peds": SectionPeds,
	"Mir":  SectionIR, "Zir": SectionIR, "Sir": SectionIR, "Vir": SectionIR,
	"Mx": SectionAdmin, "Mc": SectionAdmin,
}

// SectionFor returns the graduation section for a rotation code.
func SectionFor(code string) (Section, bool) {
	s, ok := sectionByCode[code]
	return s, ok
}

// nightFloatCodes participate in NF accounting and are excluded from
// graduation tallies.
var nightFloatCodes = map[string]bool{
	"Mnf": true, "Snf": true, "Snf2": true, "Sx": true,
}

func IsNightFloat(code string) bool {
	return nightFloatCodes[code]
}

// IsSampler reports whether a code is an R1 sampler placeholder. The
// workbook uses several spellings (Msamp, Msampler, SSamplerCh2).
func IsSampler(code string) bool {
	return strings.Contains(strings.ToLower(code), "samp")
}

// MSKCodes are the rotations counted toward the 3-block MSK target for R4s.
var MSKCodes = []string{"Vb", "Mb", "Ser"}

// RotationCode is a catalog entry from the Key tab.
type RotationCode struct {
	Code        string       `json:"code"`
	Section     string       `json:"section"`
	Label       string       `json:"label"`
	EligibleRYears map[int]bool `json:"eligible_r_years"`
}

// EligibleFor reports whether a resident in the given radiology year may
// hold this rotation. An empty eligibility set means unrestricted.
func (rc RotationCode) EligibleFor(rYear int) bool {
	if len(rc.EligibleRYears) == 0 {
		return true
	}
	return rc.EligibleRYears[rYear]
}

func (rc RotationCode) HospitalSystem() HospitalSystem {
	return HospitalFor(rc.Code)
}

// Catalog indexes rotation codes read from the Key tab.
type Catalog struct {
	byCode map[string]RotationCode
}

func NewCatalog(codes []RotationCode) *Catalog {
	c := &Catalog{byCode: make(map[string]RotationCode, len(codes))}
	for _, rc := range codes {
		c.byCode[rc.Code] = rc
	}
	return c
}

func (c *Catalog) Get(code string) (RotationCode, bool) {
	rc, ok := c.byCode[code]
	return rc, ok
}

func (c *Catalog) Len() int { return len(c.byCode) }

func (c *Catalog) Codes() []string {
	out := make([]string, 0, len(c.byCode))
	for code := range c.byCode {
		out = append(out, code)
	}
	return out
}
