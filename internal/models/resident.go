package models

import (
	"strings"
	"time"
)

// Pathway is a set of subspecialty commitments. Flags are not mutually
// exclusive; a resident may carry more than one.
type Pathway uint8

const (
	PathwayESIR Pathway = 1 << iota
	PathwayESNR
	PathwayT32
	PathwayNRDR
)

func (p Pathway) Has(q Pathway) bool { return p&q != 0 }

// Dual reports whether two or more pathway flags are set.
func (p Pathway) Dual() bool {
	n := 0
	for _, f := range []Pathway{PathwayESIR, PathwayESNR, PathwayT32, PathwayNRDR} {
		if p.Has(f) {
			n++
		}
	}
	return n >= 2
}

func (p Pathway) String() string {
	var parts []string
	if p.Has(PathwayESIR) {
		parts = append(parts, "ESIR")
	}
	if p.Has(PathwayESNR) {
		parts = append(parts, "ESNR")
	}
	if p.Has(PathwayT32) {
		parts = append(parts, "T32")
	}
	if p.Has(PathwayNRDR) {
		parts = append(parts, "NRDR")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// ParsePathway reads a free-text pathway interest string from the survey
// ("ESIR, T32", "NR/DR", ...) into flags.
func ParsePathway(s string) Pathway {
	var p Pathway
	u := strings.ToUpper(s)
	if strings.Contains(u, "ESIR") {
		p |= PathwayESIR
	}
	if strings.Contains(u, "ESNR") {
		p |= PathwayESNR
	}
	if strings.Contains(u, "T32") {
		p |= PathwayT32
	}
	if strings.Contains(u, "NRDR") || strings.Contains(u, "NR/DR") || strings.Contains(u, "NR-DR") {
		p |= PathwayNRDR
	}
	return p
}

// SamplerPrefs holds R1 sampler rotation rankings (1 = top).
type SamplerPrefs struct {
	Rankings map[string]int `json:"rankings"`
}

// TrackPrefs holds R2 track rankings (1 = top).
type TrackPrefs struct {
	Rankings map[int]int `json:"rankings"`
}

// SectionPrefs holds R3/R4 top/bottom section preferences plus per-rotation
// scores from the survey form (TOP 1/2/3 → +3..+1, BOTTOM 1/2/3 → -1..-3).
type SectionPrefs struct {
	Top    []string       `json:"top"`
	Bottom []string       `json:"bottom"`
	Scores map[string]int `json:"scores"`
}

// AIRPPrefs holds R3 AIRP session rankings.
type AIRPPrefs struct {
	Rankings      map[string]int `json:"rankings"`
	GroupRequests []string       `json:"group_requests"`
}

// ZirPrefs holds preferred blocks for the Zir rotation.
type ZirPrefs struct {
	PreferredBlocks []int `json:"preferred_blocks"`
}

// FSEPrefs holds R4 focused subspecialty experience choices.
type FSEPrefs struct {
	Specialties  []string `json:"specialties"`
	Organization string   `json:"organization"`
}

// NoCallDates are dates a resident must not be assigned call or NF. A
// no-call weekend includes the following Monday.
type NoCallDates struct {
	RawDates []time.Time `json:"raw_dates"`
	Holidays []string    `json:"holidays"`
}

// Resident carries all scheduling-relevant data for one resident. It is
// populated once from roster + survey + recs overrides and immutable after
// that; only Schedule and TrackNumber are written during the build.
type Resident struct {
	Name      string `json:"name"` // "Last, First" canonical identity key
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// PGY is the target-year level (not the prior-year level). RYear is the
	// radiology year, PGY - 1.
	PGY   int `json:"pgy"`
	RYear int `json:"r_year"`

	Pathway Pathway `json:"pathway"`

	// History maps rotation code → cumulative weeks across prior years.
	History map[string]float64 `json:"history"`

	// Schedule maps week number (1-based) → rotation code for the target
	// year. Filled during the build.
	Schedule map[int]string `json:"schedule"`

	TrackNumber int `json:"track_number"`

	SamplerPrefs *SamplerPrefs `json:"sampler_prefs,omitempty"`
	TrackPrefs   *TrackPrefs   `json:"track_prefs,omitempty"`
	SectionPrefs *SectionPrefs `json:"section_prefs,omitempty"`
	AIRPPrefs    *AIRPPrefs    `json:"airp_prefs,omitempty"`
	ZirPrefs     *ZirPrefs     `json:"zir_prefs,omitempty"`
	FSEPrefs     *FSEPrefs     `json:"fse_prefs,omitempty"`
	NoCall       NoCallDates   `json:"no_call"`

	ResearchMonths      int  `json:"research_months"`
	CEPMonths           int  `json:"cep_months"`
	SupplementalFunding bool `json:"supplemental_funding"`

	// HarshR2Year is a reviewer-provided annotation used when redistributing
	// unfilled Mx quota.
	HarshR2Year bool `json:"harsh_r2_year"`

	// PriorIRChristmas marks residents who held IR over Christmas the
	// previous year; they are exempt from Zir over the holidays.
	PriorIRChristmas bool `json:"prior_ir_christmas"`

	// From the R3-4 Recs tab.
	DeficientSections []string           `json:"deficient_sections"`
	RecommendedBlocks map[string]float64 `json:"recommended_blocks"`

	VacationDates []string `json:"vacation_dates"`
	AcademicDates []string `json:"academic_dates"`
	LeaveInfo     string   `json:"leave_info"`
}

func NewResident(name string, pgy int) *Resident {
	last, first := name, ""
	if i := strings.Index(name, ","); i >= 0 {
		last = strings.TrimSpace(name[:i])
		first = strings.TrimSpace(name[i+1:])
	}
	return &Resident{
		Name:              name,
		FirstName:         first,
		LastName:          last,
		PGY:               pgy,
		RYear:             pgy - 1,
		History:           make(map[string]float64),
		Schedule:          make(map[int]string),
		RecommendedBlocks: make(map[string]float64),
	}
}

func (r *Resident) IsNRDR() bool { return r.Pathway.Has(PathwayNRDR) }
func (r *Resident) IsESIR() bool { return r.Pathway.Has(PathwayESIR) }
func (r *Resident) IsESNR() bool { return r.Pathway.Has(PathwayESNR) }
func (r *Resident) IsT32() bool  { return r.Pathway.Has(PathwayT32) }

// BlockCodes returns the rotation codes in the resident's four cells of a
// block. Empty cells come back as "".
func (r *Resident) BlockCodes(block int) []string {
	start := (block-1)*4 + 1
	out := make([]string, 0, 4)
	for w := start; w < start+4; w++ {
		out = append(out, r.Schedule[w])
	}
	return out
}

// HistoryWeeks sums historical weeks across a set of rotation codes.
func (r *Resident) HistoryWeeks(codes ...string) float64 {
	var total float64
	for _, c := range codes {
		total += r.History[c]
	}
	return total
}

// ByYear filters residents by radiology year.
func ByYear(residents []*Resident, rYear int) []*Resident {
	var out []*Resident
	for _, r := range residents {
		if r.RYear == rYear {
			out = append(out, r)
		}
	}
	return out
}
