package models

import "fmt"

// GraduationRequirement is a minimum-weeks target over a set of qualifying
// rotation codes, optionally with partial-credit substitutions and a
// pathway scope.
type GraduationRequirement struct {
	Label         string             `json:"label"`
	Section       Section            `json:"section"`
	RequiredWeeks float64            `json:"required_weeks"`
	Qualifying    map[string]bool    `json:"qualifying"`
	PartialCredit map[string]float64 `json:"partial_credit"`

	// AppliesTo scopes the requirement: zero value = everyone. NonNRDR is a
	// carve-out for the standard NucMed rule, which NRDR replaces outright.
	AppliesTo Pathway `json:"applies_to"`
	NonNRDR   bool    `json:"non_nrdr"`
}

// NucMedPartialRatio: four weeks of a substitute rotation credit as one
// week of Mnuc equivalent. Never applies under NRDR.
const NucMedPartialRatio = 0.25

// NucMedSubstitutes qualify for 4:1 NucMed credit for non-NRDR residents.
var NucMedSubstitutes = []string{"Mai", "Mch", "Peds", "Mx"}

// NRDRComplementCodes: NRDR residents additionally need four weeks of each
// of these alongside the 48-week NucMed total.
var NRDRComplementCodes = []string{"Mai", "Mch", "Mb", "Mucic"}

func setOf(codes ...string) map[string]bool {
	m := make(map[string]bool, len(codes))
	for _, c := range codes {
		m[c] = true
	}
	return m
}

// StandardRequirements is the institutional graduation table.
func StandardRequirements() []GraduationRequirement {
	return []GraduationRequirement{
		{
			Label:         "Breast Imaging",
			Section:       SectionBreast,
			RequiredWeeks: 12,
			Qualifying:    setOf("Pcbi", "Mb", "Sbi", "Vb"),
		},
		{
			Label:         "Nuclear Medicine",
			Section:       SectionNucMed,
			RequiredWeeks: 16,
			Qualifying:    setOf("Mnuc", "Vnuc", "Snct", "Mnct"),
			PartialCredit: map[string]float64{
				"Mai": NucMedPartialRatio, "Mch": NucMedPartialRatio,
				"Peds": NucMedPartialRatio, "Mx": NucMedPartialRatio,
			},
			NonNRDR: true,
		},
		{
			Label:         "Nuclear Medicine (NRDR)",
			Section:       SectionNucMed,
			RequiredWeeks: 48, // inclusive of R4 research
			Qualifying:    setOf("Mnuc", "Vnuc", "Snct", "Mnct", "Res"),
			// No partial credit: the 4:1 substitution is forbidden under NRDR.
			AppliesTo: PathwayNRDR,
		},
		{
			Label:         "ESIR Interventional",
			Section:       SectionIR,
			RequiredWeeks: 12,
			Qualifying:    setOf("Mir", "Zir", "Sir", "Vir"),
			AppliesTo:     PathwayESIR,
		},
		{
			Label:         "ESNR Neuroradiology",
			Section:       SectionNeuro,
			RequiredWeeks: 24, // 6 blocks, at most one on Smr
			Qualifying:    setOf("Zai", "Smr"),
			AppliesTo:     PathwayESNR,
		},
	}
}

// AppliesToResident reports whether the requirement binds the resident.
func (req GraduationRequirement) AppliesToResident(r *Resident) bool {
	if req.NonNRDR && r.IsNRDR() {
		return false
	}
	if req.AppliesTo != 0 && !r.Pathway.Has(req.AppliesTo) {
		return false
	}
	return true
}

// CreditedWeeks totals historical plus current-year weeks toward the
// requirement, applying partial-credit ratios. NF overlay weeks never
// count; pass base-schedule weeks only.
func (req GraduationRequirement) CreditedWeeks(history, current map[string]float64) float64 {
	var total float64
	for code := range req.Qualifying {
		total += history[code] + current[code]
	}
	for code, ratio := range req.PartialCredit {
		total += (history[code] + current[code]) * ratio
	}
	return total
}

// Deficit is the remaining weeks needed, floored at zero.
func (req GraduationRequirement) Deficit(history, current map[string]float64) float64 {
	d := req.RequiredWeeks - req.CreditedWeeks(history, current)
	if d < 0 {
		return 0
	}
	return d
}

func (req GraduationRequirement) String() string {
	return fmt.Sprintf("%s (%.0f weeks)", req.Label, req.RequiredWeeks)
}
