package models

// StaffingBound is a per-week head-count envelope over a group of rotation
// codes. Sourced from Base Schedule rows 101-151; treated as external
// configuration.
type StaffingBound struct {
	Label string          `json:"label"`
	Codes map[string]bool `json:"codes"`
	Min   int             `json:"min"`
	Max   int             `json:"max"`

	// WeeklyMin optionally overrides Min for specific weeks (1-based index,
	// entry 0 unused). Zero entries fall back to Min.
	WeeklyMin []int `json:"weekly_min,omitempty"`
}

func (b StaffingBound) MinFor(week int) int {
	if week < len(b.WeeklyMin) && b.WeeklyMin[week] > 0 {
		return b.WeeklyMin[week]
	}
	return b.Min
}

// Envelope is the full staffing configuration for the year.
type Envelope struct {
	Bounds []StaffingBound `json:"bounds"`
}

// DefaultEnvelope carries the institutional minimums used when the workbook
// rows are absent. Maximums are informational and left open.
func DefaultEnvelope() Envelope {
	return Envelope{Bounds: []StaffingBound{
		{Label: "Moffitt AI", Codes: setOf("Mai"), Min: 3, Max: 99},
		{Label: "Moffitt US", Codes: setOf("Mus"), Min: 2, Max: 99},
		{Label: "Moffitt Cardiothoracic", Codes: setOf("Mch", "Mch2"), Min: 2, Max: 99},
		{Label: "Peds", Codes: setOf("Peds"), Min: 1, Max: 99},
		{Label: "Moffitt Bone", Codes: setOf("Mb"), Min: 1, Max: 99},
		{Label: "Moffitt Nucs", Codes: setOf("Mnuc", "Mnct"), Min: 2, Max: 99},
		{Label: "PCMB Breast", Codes: setOf("Pcbi"), Min: 1, Max: 99},
		{Label: "ZSFG Total", Codes: setOf("Ser", "Smr", "Sbi", "Sir", "Sus",
			"Sai", "Snct", "Sch", "Sch2", "Sx", "SSamplerCh2"), Min: 8, Max: 99},
		{Label: "VA MSK/Nucs", Codes: setOf("Vnuc", "Vb", "Vn"), Min: 1, Max: 99},
		{Label: "IR Total", Codes: setOf("Mir", "Zir", "Sir", "Vir"), Min: 1, Max: 99},
		{Label: "Mucic", Codes: setOf("Mucic"), Min: 1, Max: 99},
	}}
}
