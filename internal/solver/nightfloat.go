package solver

import (
	"fmt"
	"sort"

	"github.com/mfromano/schedule-creator/internal/models"
)

// NFPick is one NF week for one resident.
type NFPick struct {
	Week int    `json:"week"`
	Kind string `json:"kind"` // Mnf or Snf2
}

// NFProblem is the night-float overlay: place per-year NF quotas over a
// locked base schedule, then cover remaining weeks with spare R3 capacity.
type NFProblem struct {
	Residents []*models.Resident
	Rules     models.NFRules
	Weeks     int

	// Base returns the locked base-schedule rotation for (resident, week).
	Base func(name string, week int) string

	// NoCall flags weeks a resident must not take NF.
	NoCall map[string]map[int]bool

	// Locked picks are pre-pinned and must be respected.
	Locked map[string][]NFPick

	LCBlock   int
	CoreBlock int
}

// NFResult is the solved overlay plus the relaxation log.
type NFResult struct {
	Assignments map[string][]NFPick
	Relaxations []string
}

type nfState struct {
	p        NFProblem
	taken    map[int]map[string]string // week → kind → resident
	picks    map[string][]NFPick
	pullOnly bool // restrict pulls to the preferred source set
	reward   bool // order candidates by source-set reward
}

// SolveNightFloat satisfies the per-year NF count rules, then fills
// uncovered weeks with remaining R3 capacity. Soft terms are dropped in
// order (source-set reward, then the pull-preference restriction) before a
// hard infeasibility is reported.
func SolveNightFloat(p NFProblem) (*NFResult, error) {
	if p.Weeks <= 0 {
		p.Weeks = 52
	}

	var relaxations []string
	modes := []struct {
		pullOnly bool
		reward   bool
		note     string
	}{
		{true, true, ""},
		{true, false, "dropped source-set preference reward"},
		{false, false, "relaxed pull-preference rotation list"},
	}

	var lastErr error
	for _, mode := range modes {
		if mode.note != "" {
			relaxations = append(relaxations, mode.note)
		}
		st := &nfState{
			p:        p,
			taken:    make(map[int]map[string]string),
			picks:    make(map[string][]NFPick),
			pullOnly: mode.pullOnly,
			reward:   mode.reward,
		}
		if err := st.seedLocked(); err != nil {
			return nil, err
		}
		if err := st.placeQuotas(); err != nil {
			lastErr = err
			continue
		}
		st.coverRemaining()
		return &NFResult{Assignments: st.picks, Relaxations: relaxations}, nil
	}
	return nil, lastErr
}

func (s *nfState) seedLocked() error {
	for name, picks := range s.p.Locked {
		res := s.resident(name)
		if res == nil {
			return fmt.Errorf("locked NF pick for unknown resident %q", name)
		}
		for _, pk := range picks {
			if !s.p.Rules.EligibleFor(pk.Kind, res.RYear) {
				return fmt.Errorf("locked NF %s for %s (R%d) violates eligibility", pk.Kind, name, res.RYear)
			}
			s.place(res, pk.Week, pk.Kind)
		}
	}
	return nil
}

func (s *nfState) resident(name string) *models.Resident {
	for _, r := range s.p.Residents {
		if r.Name == name {
			return r
		}
	}
	return nil
}

func (s *nfState) place(r *models.Resident, week int, kind string) {
	if s.taken[week] == nil {
		s.taken[week] = make(map[string]string)
	}
	s.taken[week][kind] = r.Name
	s.picks[r.Name] = append(s.picks[r.Name], NFPick{Week: week, Kind: kind})
}

func (s *nfState) unplace(r *models.Resident, week int, kind string) {
	delete(s.taken[week], kind)
	picks := s.picks[r.Name]
	for i, pk := range picks {
		if pk.Week == week && pk.Kind == kind {
			s.picks[r.Name] = append(picks[:i], picks[i+1:]...)
			break
		}
	}
}

func (s *nfState) count(name, kind string) int {
	n := 0
	for _, pk := range s.picks[name] {
		if kind == "" || pk.Kind == kind {
			n++
		}
	}
	return n
}

// admissible checks every hard constraint for placing (r, week, kind),
// except quota counts (the caller tracks those).
func (s *nfState) admissible(r *models.Resident, week int, kind string, restrictPull bool) bool {
	if week < 1 || week > s.p.Weeks {
		return false
	}
	if !s.p.Rules.EligibleFor(kind, r.RYear) {
		return false
	}
	if s.taken[week][kind] != "" {
		return false
	}
	if s.p.NoCall[r.Name][week] {
		return false
	}

	base := ""
	if s.p.Base != nil {
		base = s.p.Base(r.Name, week)
	}
	// NF never lands on an educational lock; this also keeps R3s off NF
	// during their own AIRP session.
	if base == "AIRP" || base == "LC" {
		return false
	}
	if restrictPull && base != "" && !s.p.Rules.PreferredPull[base] {
		return false
	}

	block := models.WeekToBlock(week)
	switch {
	case block == 1 && kind == "Mnf":
		// Block 1 runs longer Mnf shifts to ease R2 integration: R3 only.
		if r.RYear != 3 {
			return false
		}
	case block == s.p.LCBlock || block == s.p.CoreBlock:
		// LC/CORE blocks: R2 carries Mnf, R4 carries Snf2.
		if kind == "Mnf" && r.RYear != 2 {
			return false
		}
		if kind == "Snf2" && r.RYear != 4 {
			return false
		}
	}

	// Spacing: no two NF weeks for the same resident closer than the rule.
	for _, pk := range s.picks[r.Name] {
		if abs(pk.Week-week) < s.p.Rules.MinSpacingWeeks {
			return false
		}
	}
	return true
}

type quota struct {
	res  *models.Resident
	kind string // "" = either kind (R3 minimum)
	need int
}

// placeQuotas backtracks over the required counts: R2 Mnf pairs, R4 Snf2
// pairs, and the R3 minimum.
func (s *nfState) placeQuotas() error {
	var quotas []quota
	for _, r := range s.sortedResidents() {
		switch r.RYear {
		case 2:
			if need := s.p.Rules.R2MnfWeeks - s.count(r.Name, "Mnf"); need > 0 {
				quotas = append(quotas, quota{res: r, kind: "Mnf", need: need})
			}
		case 3:
			if need := s.p.Rules.R3MinNF - s.count(r.Name, ""); need > 0 {
				quotas = append(quotas, quota{res: r, kind: "", need: need})
			}
		case 4:
			if need := s.p.Rules.R4Snf2Weeks - s.count(r.Name, "Snf2"); need > 0 {
				quotas = append(quotas, quota{res: r, kind: "Snf2", need: need})
			}
		}
	}

	if s.satisfy(quotas, 0) {
		return nil
	}
	return &Infeasibility{
		Phase:    "night-float",
		Blocking: s.blockingQuotas(quotas),
	}
}

// sortedResidents orders the placement: juniors with fixed quotas first,
// T32 residents last as the flexibility reserve, lexical within a group.
func (s *nfState) sortedResidents() []*models.Resident {
	out := make([]*models.Resident, len(s.p.Residents))
	copy(out, s.p.Residents)
	groupOf := func(r *models.Resident) int {
		g := 0
		switch r.RYear {
		case 2:
			g = 0
		case 4:
			g = 1
		case 3:
			g = 2
		default:
			g = 3
		}
		if r.IsT32() {
			g += 4
		}
		return g
	}
	sort.SliceStable(out, func(i, j int) bool {
		gi, gj := groupOf(out[i]), groupOf(out[j])
		if gi != gj {
			return gi < gj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (s *nfState) satisfy(quotas []quota, idx int) bool {
	if idx == len(quotas) {
		return true
	}
	q := quotas[idx]
	if q.need == 0 {
		return s.satisfy(quotas, idx+1)
	}

	for _, cand := range s.candidates(q.res, q.kind) {
		s.place(q.res, cand.Week, cand.Kind)
		next := quota{res: q.res, kind: q.kind, need: q.need - 1}
		rest := append([]quota{next}, quotas[idx+1:]...)
		if s.satisfy(rest, 0) {
			return true
		}
		s.unplace(q.res, cand.Week, cand.Kind)
	}
	return false
}

// candidates enumerates admissible (week, kind) picks for a resident,
// best-first: source-set pulls (when rewarded), then earlier weeks.
func (s *nfState) candidates(r *models.Resident, kind string) []NFPick {
	kinds := []string{kind}
	if kind == "" {
		kinds = []string{"Mnf", "Snf2"}
	}
	var out []NFPick
	for w := 1; w <= s.p.Weeks; w++ {
		for _, k := range kinds {
			if s.admissible(r, w, k, s.pullOnly) {
				out = append(out, NFPick{Week: w, Kind: k})
			}
		}
	}
	if s.reward {
		score := func(pk NFPick) int {
			base := ""
			if s.p.Base != nil {
				base = s.p.Base(r.Name, pk.Week)
			}
			if s.p.Rules.PreferredPull[base] {
				return 0
			}
			return 1
		}
		sort.SliceStable(out, func(i, j int) bool {
			si, sj := score(out[i]), score(out[j])
			if si != sj {
				return si < sj
			}
			return out[i].Week < out[j].Week
		})
	}
	return out
}

// blockingQuotas names the residents whose quota cannot be met and why.
func (s *nfState) blockingQuotas(quotas []quota) []string {
	var blocking []string
	for _, q := range quotas {
		if len(s.candidates(q.res, q.kind)) < q.need {
			kind := q.kind
			if kind == "" {
				kind = "Mnf/Snf2"
			}
			blocking = append(blocking, fmt.Sprintf(
				"%s (R%d) needs %d more %s week(s); admissible weeks exhausted by spacing/no-call/eligibility",
				q.res.Name, q.res.RYear, q.need, kind))
		}
	}
	if len(blocking) == 0 {
		blocking = append(blocking, "interacting spacing and weekly-capacity constraints admit no completion")
	}
	return blocking
}

// coverRemaining spends spare R3 capacity on weeks still missing a shift.
// Coverage is best-effort: gaps are reported by the staffing validator, not
// failed here.
func (s *nfState) coverRemaining() {
	r3s := models.ByYear(s.p.Residents, 3)

	for w := 1; w <= s.p.Weeks; w++ {
		for _, kind := range []string{"Mnf", "Snf2"} {
			if s.taken[w][kind] != "" {
				continue
			}
			// T32 last, then least-loaded, then lexical: variance across
			// residents stays low and the flexibility reserve is spent last.
			sort.SliceStable(r3s, func(i, j int) bool {
				if r3s[i].IsT32() != r3s[j].IsT32() {
					return !r3s[i].IsT32()
				}
				ci, cj := s.count(r3s[i].Name, ""), s.count(r3s[j].Name, "")
				if ci != cj {
					return ci < cj
				}
				return r3s[i].Name < r3s[j].Name
			})
			for _, r := range r3s {
				if s.count(r.Name, "") >= s.p.Rules.R3MaxNF {
					continue
				}
				if s.admissible(r, w, kind, s.pullOnly) {
					s.place(r, w, kind)
					break
				}
			}
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
