package phases

import (
	"sort"

	"go.uber.org/zap"

	"github.com/mfromano/schedule-creator/internal/models"
	"github.com/mfromano/schedule-creator/internal/solver"
)

// buildR3 runs the four R3 sub-steps in order: AIRP seating, LC, the
// graduation-requirement placer, and anchor accounting. Each sub-step locks
// cells the next must respect.
func (b *Builder) buildR3() error {
	r3s := sortedByName(models.ByYear(b.in.Residents, 3))
	if len(r3s) == 0 {
		return nil
	}

	if err := b.assignAIRP(r3s); err != nil {
		return err
	}
	if err := b.assignLearningCenter(r3s); err != nil {
		return err
	}

	filled := make(map[string]map[int]string, len(r3s))
	for _, res := range r3s {
		filled[res.Name] = map[int]string{}
	}
	if err := b.fillR3Requirements(r3s, filled); err != nil {
		return err
	}
	b.result.R3Filled = filled

	// Anchors: unfilled blocks carry forward as unassigned markers.
	for _, res := range r3s {
		if open := b.freeBlocks(res); len(open) > 0 {
			b.warn("%s has %d unassigned block(s) after R3 build: %v", res.Name, len(open), open)
		}
	}
	return nil
}

// assignAIRP seats R3s into AIRP sessions by ranked preference under the
// session capacities, then locks the session block cells.
func (b *Builder) assignAIRP(r3s []*models.Resident) error {
	sessions := b.cfg.AIRPSessions
	if len(sessions) == 0 {
		return nil
	}

	rows := make([]string, len(r3s))
	for i, r := range r3s {
		rows[i] = r.Name
	}
	cols := make([]string, len(sessions))
	capacity := make([]int, len(sessions))
	for j, s := range sessions {
		cols[j] = s.ID
		capacity[j] = s.Capacity
	}

	cost := func(i, j int) float64 {
		r := r3s[i]
		if r.AIRPPrefs == nil || len(r.AIRPPrefs.Rankings) == 0 {
			return float64(len(sessions)) // indifferent
		}
		if rk, ok := r.AIRPPrefs.Rankings[sessions[j].ID]; ok {
			return float64(rk - 1)
		}
		return float64(len(sessions))
	}

	res, err := solver.SolveAssignment(solver.AssignmentProblem{
		Phase:    "airp-seating",
		Rows:     rows,
		Cols:     cols,
		Capacity: capacity,
		Cost:     cost,
	})
	if err != nil {
		return err
	}

	assignments := make(map[string]string, len(r3s))
	for _, r := range r3s {
		id := res.ColFor[r.Name]
		assignments[r.Name] = id
		session, _ := b.cfg.Session(id)
		if err := b.assignBlock(models.PhaseR3, r, session.Block, "AIRP"); err != nil {
			return err
		}
	}
	b.result.AIRPAssignments = assignments
	b.log.Info("airp seated", zap.Int("residents", len(r3s)), zap.Int("sessions", len(sessions)))
	return nil
}

// assignLearningCenter locks LC into the last full block before the CORE
// exam for every rising R3.
func (b *Builder) assignLearningCenter(r3s []*models.Resident) error {
	lc := b.cfg.LCBlock()
	for _, r := range r3s {
		if err := b.assignBlock(models.PhaseR3, r, lc, "LC"); err != nil {
			return err
		}
	}
	return nil
}

type r3Candidate struct {
	res     *models.Resident
	block   int
	code    string
	urgency float64
}

// fillR3Requirements is the greedy best-first placer: it repeatedly takes
// the highest-urgency (resident, rotation, block) candidate and locks it,
// until no resident needs anything more or no block can take it.
func (b *Builder) fillR3Requirements(r3s []*models.Resident, filled map[string]map[int]string) error {
	need := make(map[string]map[string]int, len(r3s)) // resident → rotation → blocks still needed
	for _, r := range r3s {
		need[r.Name] = b.r3NeededRotations(r)
	}

	lcBlock := b.cfg.LCBlock()
	xmasBlock := b.in.Calendar.ChristmasBlock()

	placeable := func(r *models.Resident, block int, code string) bool {
		for _, w := range models.BlockWeeks(block) {
			if r.Schedule[w] != "" {
				return false
			}
		}
		if rc, ok := b.in.Catalog.Get(code); ok && !rc.EligibleFor(r.RYear) {
			return false
		}
		if b.grid.BlockConflict(r.Name, block, code) {
			return false
		}
		if code == "Zir" {
			// Zir only after LC, and never over the holidays for residents
			// who already had IR over Christmas last year.
			if block <= lcBlock {
				return false
			}
			if r.PriorIRChristmas && block == xmasBlock {
				return false
			}
		}
		return true
	}

	for {
		best := b.bestR3Candidate(r3s, need, placeable)
		if best == nil {
			break
		}
		if err := b.assignBlock(models.PhaseR3, best.res, best.block, best.code); err != nil {
			return err
		}
		filled[best.res.Name][best.block] = best.code
		need[best.res.Name][best.code]--
		if need[best.res.Name][best.code] <= 0 {
			delete(need[best.res.Name], best.code)
		}
	}

	for name, rest := range need {
		for code, n := range rest {
			if n > 0 {
				b.warn("%s: could not place %d block(s) of %s", name, n, code)
			}
		}
	}
	return nil
}

// bestR3Candidate scans every open (resident, rotation, block) triple and
// returns the one with the highest urgency, or nil when nothing remains.
func (b *Builder) bestR3Candidate(
	r3s []*models.Resident,
	need map[string]map[string]int,
	placeable func(*models.Resident, int, string) bool,
) *r3Candidate {
	// Block-pressure: how many residents still need each rotation.
	pressure := map[string]int{}
	for _, rest := range need {
		for code, n := range rest {
			if n > 0 {
				pressure[code]++
			}
		}
	}

	var best *r3Candidate
	for _, r := range r3s {
		prefs := map[string]int{}
		if r.SectionPrefs != nil {
			prefs = r.SectionPrefs.Scores
		}
		codes := make([]string, 0, len(need[r.Name]))
		for code := range need[r.Name] {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			remaining := need[r.Name][code]
			if remaining <= 0 {
				continue
			}
			// Zir timing preference: if the resident named preferred blocks
			// and one is still open, hold Zir for it.
			zirBlocks := map[int]bool{}
			if code == "Zir" && r.ZirPrefs != nil {
				for _, blk := range r.ZirPrefs.PreferredBlocks {
					zirBlocks[blk] = true
				}
			}
			for block := 1; block <= 13; block++ {
				if !placeable(r, block, code) {
					continue
				}
				u := float64(remaining) + 0.1*float64(pressure[code]) + b.cfg.Weights.PreferenceWeight*float64(prefs[code])
				if len(zirBlocks) > 0 {
					if zirBlocks[block] {
						u += 1.0
					} else if anyOpenZirBlock(b, r, zirBlocks, placeable) {
						continue
					}
				}
				if best == nil || u > best.urgency ||
					(u == best.urgency && (r.Name < best.res.Name ||
						(r.Name == best.res.Name && (block < best.block ||
							(block == best.block && code < best.code))))) {
					best = &r3Candidate{res: r, block: block, code: code, urgency: u}
				}
			}
		}
	}
	return best
}

func anyOpenZirBlock(b *Builder, r *models.Resident, preferred map[int]bool, placeable func(*models.Resident, int, string) bool) bool {
	for block := range preferred {
		if placeable(r, block, "Zir") {
			return true
		}
	}
	return false
}

// r3NeededRotations builds the prioritized requirement list for one R3 from
// the recs tab, the deficit table, and the pathway hard rules.
func (b *Builder) r3NeededRotations(r *models.Resident) map[string]int {
	need := map[string]int{}
	for code, blocks := range r.RecommendedBlocks {
		n := int(blocks + 0.5)
		if n < 1 {
			n = 1
		}
		need[code] = n
	}

	// Deficit table: subtract history from targets per section and map the
	// shortfall onto a representative rotation if the recs left it out.
	current := map[string]float64{}
	for _, code := range r.Schedule {
		if code != "" {
			current[code]++
		}
	}
	for _, req := range models.StandardRequirements() {
		if !req.AppliesToResident(r) {
			continue
		}
		deficit := req.Deficit(r.History, current)
		if deficit <= 0 {
			continue
		}
		code := representativeRotation(req.Section)
		if code == "" || need[code] > 0 {
			continue
		}
		blocks := int(deficit/4 + 0.999)
		// R3s chip away; the R4 year finishes the remainder.
		if blocks > 2 {
			blocks = 2
		}
		need[code] = blocks
	}

	// NRDR accrues six Mnuc blocks during the R3 year.
	if r.IsNRDR() && need["Mnuc"] < 6 {
		need["Mnuc"] = 6
	}
	// T32/ESIR/ESNR push to finish NucMed and breast before the R4 year
	// fills with pathway commitments.
	if r.IsT32() || r.IsESIR() || r.IsESNR() {
		if nm := b.nucMedDeficitBlocks(r, current); nm > 0 && need["Mnuc"] == 0 {
			need["Mnuc"] = nm
		}
		breast := models.GraduationRequirement{
			RequiredWeeks: 12,
			Qualifying:    map[string]bool{"Pcbi": true, "Mb": true, "Sbi": true, "Vb": true},
		}
		if d := breast.Deficit(r.History, current); d > 0 && need["Pcbi"] == 0 {
			need["Pcbi"] = int(d/4 + 0.999)
		}
	}
	return need
}

func (b *Builder) nucMedDeficitBlocks(r *models.Resident, current map[string]float64) int {
	for _, req := range models.StandardRequirements() {
		if req.Section != models.SectionNucMed || !req.AppliesToResident(r) {
			continue
		}
		if d := req.Deficit(r.History, current); d > 0 {
			return int(d/4 + 0.999)
		}
	}
	return 0
}

// representativeRotation picks the default placement code for a section.
func representativeRotation(s models.Section) string {
	switch s {
	case models.SectionNucMed:
		return "Mnuc"
	case models.SectionBreast:
		return "Pcbi"
	case models.SectionIR:
		return "Zir"
	case models.SectionNeuro:
		return "Zai"
	case models.SectionMSK:
		return "Ser"
	case models.SectionPeds:
		return "Peds"
	case models.SectionBody:
		return "Mai"
	case models.SectionChest:
		return "Mch"
	case models.SectionUltrasound:
		return "Mus"
	}
	return ""
}
