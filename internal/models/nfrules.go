package models

// NFRules parameterizes the night-float overlay: per-year counts, shift
// eligibility, spacing, and the pull-preference source set.
type NFRules struct {
	// R2s take exactly this many Mnf weeks (Snf is already embedded in the
	// R2 tracks).
	R2MnfWeeks int `json:"r2_mnf_weeks"`

	// R3s take between R3MinNF and R3MaxNF weeks total across Mnf and Snf2.
	R3MinNF int `json:"r3_min_nf"`
	R3MaxNF int `json:"r3_max_nf"`

	// R4s take exactly this many Snf2 weeks.
	R4Snf2Weeks int `json:"r4_snf2_weeks"`

	// MinSpacingWeeks is the minimum gap between any two NF weeks for the
	// same resident.
	MinSpacingWeeks int `json:"min_spacing_weeks"`

	// ShiftEligibility maps NF kind → eligible radiology years.
	ShiftEligibility map[string]map[int]bool `json:"shift_eligibility"`

	// PreferredPull rotations are the base assignments NF is preferentially
	// drawn from. An objective reward, not a hard constraint.
	PreferredPull map[string]bool `json:"preferred_pull"`
}

func DefaultNFRules() NFRules {
	return NFRules{
		R2MnfWeeks:      2,
		R3MinNF:         1,
		R3MaxNF:         3,
		R4Snf2Weeks:     2,
		MinSpacingWeeks: 4,
		ShiftEligibility: map[string]map[int]bool{
			"Snf":  {2: true},
			"Mnf":  {2: true, 3: true},
			"Snf2": {3: true, 4: true},
			"Sx":   {2: true},
		},
		PreferredPull: setOf("Pcmb", "Mb", "Mucic", "Peds", "Mnuc", "Pcbi"),
	}
}

// EligibleFor reports whether a radiology year may hold an NF kind.
func (r NFRules) EligibleFor(kind string, rYear int) bool {
	years, ok := r.ShiftEligibility[kind]
	return ok && years[rYear]
}
