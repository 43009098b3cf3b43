package phases

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mfromano/schedule-creator/internal/models"
)

// R4Meta records what each R4 sub-step did to one resident.
type R4Meta struct {
	ResearchBlocks int            `json:"research_blocks"`
	NRDRMnucBlocks int            `json:"nrdr_mnuc_blocks"`
	ESIRMirBlocks  int            `json:"esir_mir_blocks"`
	ESNRBlocks     int            `json:"esnr_blocks"`
	FSEBlocks      int            `json:"fse_blocks"`
	GradFilled     map[int]string `json:"grad_filled"`
	CapacityFilled map[int]string `json:"capacity_filled"`
}

// researchPreferredBlocks orders research/CEP placement away from the LC
// and RSNA windows.
var researchPreferredBlocks = []int{3, 4, 8, 9, 10, 11, 2, 12}

// buildR4 runs the three R4 sub-steps in order: fixed commitments,
// graduation-deficiency fill, and capacity fill.
func (b *Builder) buildR4() error {
	r4s := sortedByName(models.ByYear(b.in.Residents, 4))
	if len(r4s) == 0 {
		return nil
	}

	meta := make(map[string]*R4Meta, len(r4s))
	for _, r := range r4s {
		meta[r.Name] = &R4Meta{GradFilled: map[int]string{}, CapacityFilled: map[int]string{}}
	}

	fseHalf := b.fsePartition(r4s)
	for _, r := range r4s {
		if err := b.placeFixedCommitments(r, meta[r.Name], fseHalf[r.Name]); err != nil {
			return err
		}
	}
	for _, r := range r4s {
		if err := b.fillGradRequirements(r, meta[r.Name]); err != nil {
			return err
		}
	}
	if err := b.fillCapacity(r4s, meta); err != nil {
		return err
	}

	b.result.R4Meta = meta
	b.log.Info("r4 schedules built", zap.Int("residents", len(r4s)))
	return nil
}

// fsePartition splits the FSE cohort deterministically by name: alternating
// residents take FSE in the first vs second half of the year.
func (b *Builder) fsePartition(r4s []*models.Resident) map[string]bool {
	var withFSE []*models.Resident
	for _, r := range r4s {
		if r.FSEPrefs != nil && len(r.FSEPrefs.Specialties) > 0 {
			withFSE = append(withFSE, r)
		}
	}
	sort.Slice(withFSE, func(i, j int) bool { return withFSE[i].Name < withFSE[j].Name })
	firstHalf := make(map[string]bool, len(withFSE))
	for i, r := range withFSE {
		firstHalf[r.Name] = i%2 == 0
	}
	return firstHalf
}

// placeFixedCommitments writes research/CEP months, the NRDR Mnuc sextet,
// the ESIR Mir octet, the ESNR contiguous neuro window, and FSE blocks.
func (b *Builder) placeFixedCommitments(r *models.Resident, meta *R4Meta, fseFirstHalf bool) error {
	// Research/CEP: capped at two months unless supplementary funding is
	// flagged; T32 residents run their research through the pathway and are
	// ineligible here.
	research := r.ResearchMonths + r.CEPMonths
	if !r.SupplementalFunding && research > 2 {
		b.warn("%s requested %d research/CEP months without supplemental funding; capped at 2", r.Name, research)
		research = 2
	}
	if r.IsT32() {
		research = 0
	}
	placed := 0
	for _, block := range researchPreferredBlocks {
		if placed >= research {
			break
		}
		if !b.blockOpen(r, block) {
			continue
		}
		code := "Res"
		if placed >= r.ResearchMonths {
			code = "CEP"
		}
		if err := b.assignBlock(models.PhaseR4, r, block, code); err != nil {
			return err
		}
		placed++
	}
	meta.ResearchBlocks = placed

	// NRDR Mnuc sextet plus the complement blocks still owed from history.
	if r.IsNRDR() {
		n, err := b.placeBlocks(r, "Mnuc", 6)
		if err != nil {
			return err
		}
		meta.NRDRMnucBlocks = n
		for _, code := range models.NRDRComplementCodes {
			if r.History[code] >= 4 {
				continue // already completed; honored from history
			}
			if _, err := b.placeBlocks(r, code, 1); err != nil {
				return err
			}
		}
	}

	// ESIR Mir octet.
	if r.IsESIR() {
		n, err := b.placeBlocks(r, "Mir", 8)
		if err != nil {
			return err
		}
		meta.ESIRMirBlocks = n
	}

	// ESNR: six contiguous neuro blocks, at most one on Smr.
	if r.IsESNR() {
		n, err := b.placeESNRWindow(r)
		if err != nil {
			return err
		}
		meta.ESNRBlocks = n
	}

	// FSE: contiguous; breast FSE runs exactly six months, others two. The
	// cohort halves between the first and second half of the year.
	if r.FSEPrefs != nil && len(r.FSEPrefs.Specialties) > 0 {
		specialty := r.FSEPrefs.Specialties[0]
		length := 2
		if strings.Contains(strings.ToLower(specialty), "breast") {
			length = 6
		}
		code := "FSE-" + specialty[:min(3, len(specialty))]
		lo, hi := 8, 13
		if fseFirstHalf {
			lo, hi = 1, 6
		}
		start := b.findContiguous(r, code, length, lo, hi)
		if start == 0 {
			// Fall back to anywhere in the year.
			start = b.findContiguous(r, code, length, 1, 13)
		}
		if start == 0 {
			b.warn("%s: no contiguous %d-block window for FSE %s", r.Name, length, specialty)
		} else {
			for blk := start; blk < start+length; blk++ {
				if err := b.assignBlock(models.PhaseR4, r, blk, code); err != nil {
					return err
				}
				meta.FSEBlocks++
			}
		}
	}
	return nil
}

// fillGradRequirements applies the graduation arithmetic to one R4.
func (b *Builder) fillGradRequirements(r *models.Resident, meta *R4Meta) error {
	current := b.currentWeeks(r)

	// Breast deficiency resolves through Pcbi.
	breast := findRequirement(models.SectionBreast, r)
	if breast != nil {
		if d := breast.Deficit(r.History, current); d > 0 {
			blocks := int(d/4 + 0.999)
			n, err := b.placeBlocksTracked(r, "Pcbi", blocks, meta.GradFilled)
			if err != nil {
				return err
			}
			if n < blocks {
				b.warn("%s: breast deficit needs %d block(s), placed %d", r.Name, blocks, n)
			}
			current = b.currentWeeks(r)
		}
	}

	// NucMed deficiency: Mnuc directly while the deficit is large; once the
	// remainder is under a block, the 4:1 substitutes close it out. NRDR
	// residents are handled by the fixed-commitment sextet (their 48-week
	// total is inclusive of R4 research), and the substitution is forbidden
	// for them.
	nm := findRequirement(models.SectionNucMed, r)
	if nm != nil && !r.IsNRDR() {
		deficit := nm.Deficit(r.History, current)
		for deficit >= 4 {
			n, err := b.placeBlocksTracked(r, "Mnuc", 1, meta.GradFilled)
			if err != nil {
				return err
			}
			if n == 0 {
				break
			}
			current = b.currentWeeks(r)
			deficit = nm.Deficit(r.History, current)
		}
		if deficit > 0 {
			// Each substitute block yields one week of Mnuc-equivalent credit.
			for _, code := range models.NucMedSubstitutes {
				if deficit <= 0 {
					break
				}
				n, err := b.placeBlocksTracked(r, code, 1, meta.GradFilled)
				if err != nil {
					return err
				}
				if n > 0 {
					deficit -= 4 * models.NucMedPartialRatio
				}
			}
		}
		if deficit > 0 {
			b.warn("%s: NucMed deficit of %.1f week(s) remains after fill", r.Name, deficit)
		}
	}

	// Remaining recs-tab recommendations.
	codes := make([]string, 0, len(r.RecommendedBlocks))
	for code := range r.RecommendedBlocks {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if r.RecommendedBlocks[codes[i]] != r.RecommendedBlocks[codes[j]] {
			return r.RecommendedBlocks[codes[i]] > r.RecommendedBlocks[codes[j]]
		}
		return codes[i] < codes[j]
	})
	for _, code := range codes {
		blocks := int(r.RecommendedBlocks[code] + 0.5)
		if blocks < 1 {
			blocks = 1
		}
		already := 0
		for _, c := range meta.GradFilled {
			if c == code {
				already++
			}
		}
		if blocks <= already {
			continue
		}
		if _, err := b.placeBlocksTracked(r, code, blocks-already, meta.GradFilled); err != nil {
			return err
		}
	}
	return nil
}

// fillCapacity distributes Mx, tops up Peds and MSK exposure, and fills the
// remaining cells toward the staffing envelope, least-satisfied bound first.
func (b *Builder) fillCapacity(r4s []*models.Resident, meta map[string]*R4Meta) error {
	// Every R4 who is neither T32 nor dual-pathway gets an Mx block; quota
	// freed by the exempt goes to residents flagged with a harsh R2 year.
	unfilledMx := 0
	for _, r := range r4s {
		if r.IsT32() || r.Pathway.Dual() {
			unfilledMx++
			continue
		}
		n, err := b.placeBlocksTracked(r, "Mx", 1, meta[r.Name].CapacityFilled)
		if err != nil {
			return err
		}
		if n == 0 {
			unfilledMx++
		}
	}
	for _, r := range r4s {
		if unfilledMx <= 0 {
			break
		}
		if !r.HarshR2Year || r.IsT32() || r.Pathway.Dual() {
			continue
		}
		n, err := b.placeBlocksTracked(r, "Mx", 1, meta[r.Name].CapacityFilled)
		if err != nil {
			return err
		}
		unfilledMx -= n
	}

	// Residents with at most one historical Peds block (none included) get
	// another.
	for _, r := range r4s {
		if r.History["Peds"] <= 4 && b.grid.CountRotationWeeks(r.Name, "Peds") == 0 {
			if _, err := b.placeBlocksTracked(r, "Peds", 1, meta[r.Name].CapacityFilled); err != nil {
				return err
			}
		}
	}

	// MSK exposure: below three total blocks across Vb/Mb/Ser, add more.
	for _, r := range r4s {
		total := r.HistoryWeeks(models.MSKCodes...) / 4
		for _, code := range models.MSKCodes {
			total += float64(b.grid.CountRotationWeeks(r.Name, code)) / 4
		}
		for blocksNeeded := 3 - int(total); blocksNeeded > 0; blocksNeeded-- {
			placedAny := false
			for _, code := range models.MSKCodes {
				n, err := b.placeBlocksTracked(r, code, 1, meta[r.Name].CapacityFilled)
				if err != nil {
					return err
				}
				if n > 0 {
					placedAny = true
					break
				}
			}
			if !placedAny {
				break
			}
		}
	}

	// Remaining cells fill toward the envelope, minimum-satisfaction-first.
	for _, r := range r4s {
		for _, block := range b.freeBlocks(r) {
			code := b.leastSatisfiedRotation(r, block)
			if code == "" {
				continue
			}
			if err := b.assignBlock(models.PhaseR4, r, block, code); err != nil {
				return err
			}
			meta[r.Name].CapacityFilled[block] = code
		}
	}
	return nil
}

// leastSatisfiedRotation picks the envelope bound furthest below its weekly
// minimum over the block and returns a placeable rotation from it.
func (b *Builder) leastSatisfiedRotation(r *models.Resident, block int) string {
	type gap struct {
		code  string
		ratio float64
	}
	var worst *gap
	for _, bound := range b.in.Envelope.Bounds {
		var have, want float64
		for _, w := range models.BlockWeeks(block) {
			have += float64(b.grid.HeadCount(w, bound.Codes))
			want += float64(bound.MinFor(w))
		}
		if want == 0 {
			continue
		}
		ratio := have / want
		codes := make([]string, 0, len(bound.Codes))
		for c := range bound.Codes {
			codes = append(codes, c)
		}
		sort.Strings(codes)
		for _, code := range codes {
			if models.IsNightFloat(code) || models.IsSampler(code) {
				continue
			}
			if rc, ok := b.in.Catalog.Get(code); ok && !rc.EligibleFor(r.RYear) {
				continue
			}
			if b.grid.BlockConflict(r.Name, block, code) {
				continue
			}
			if worst == nil || ratio < worst.ratio {
				worst = &gap{code: code, ratio: ratio}
			}
			break
		}
	}
	if worst == nil {
		return ""
	}
	return worst.code
}

// placeESNRWindow finds six contiguous open blocks for the neuro window and
// fills them with Zai, seating a single Smr in the final slot.
func (b *Builder) placeESNRWindow(r *models.Resident) (int, error) {
	start := b.findContiguous(r, "Zai", 6, 1, 13)
	if start == 0 {
		b.warn("%s: no contiguous 6-block neuro window; placing non-contiguously", r.Name)
		n, err := b.placeBlocks(r, "Zai", 5)
		if err != nil {
			return n, err
		}
		m, err := b.placeBlocks(r, "Smr", 1)
		return n + m, err
	}
	placed := 0
	for blk := start; blk < start+6; blk++ {
		code := "Zai"
		if blk == start+5 {
			code = "Smr"
		}
		if err := b.assignBlock(models.PhaseR4, r, blk, code); err != nil {
			return placed, err
		}
		placed++
	}
	return placed, nil
}

// findContiguous returns the first block of a run of `length` open,
// conflict-free blocks within [lo, hi], or 0.
func (b *Builder) findContiguous(r *models.Resident, code string, length, lo, hi int) int {
	for start := lo; start+length-1 <= hi; start++ {
		ok := true
		for blk := start; blk < start+length; blk++ {
			if !b.blockOpen(r, blk) || b.grid.BlockConflict(r.Name, blk, code) {
				ok = false
				break
			}
		}
		if ok {
			return start
		}
	}
	return 0
}

func (b *Builder) blockOpen(r *models.Resident, block int) bool {
	for _, w := range models.BlockWeeks(block) {
		if r.Schedule[w] != "" {
			return false
		}
	}
	return true
}

// placeBlocks assigns up to n blocks of code into the resident's open,
// conflict-free blocks, earliest first. Returns how many were placed.
func (b *Builder) placeBlocks(r *models.Resident, code string, n int) (int, error) {
	return b.placeBlocksTracked(r, code, n, nil)
}

func (b *Builder) placeBlocksTracked(r *models.Resident, code string, n int, tracked map[int]string) (int, error) {
	placed := 0
	for block := 1; block <= 13 && placed < n; block++ {
		if !b.blockOpen(r, block) || b.grid.BlockConflict(r.Name, block, code) {
			continue
		}
		if rc, ok := b.in.Catalog.Get(code); ok && !rc.EligibleFor(r.RYear) {
			return placed, fmt.Errorf("rotation %s not eligible for %s (R%d)", code, r.Name, r.RYear)
		}
		if err := b.assignBlock(models.PhaseR4, r, block, code); err != nil {
			return placed, err
		}
		if tracked != nil {
			tracked[block] = code
		}
		placed++
	}
	return placed, nil
}

func (b *Builder) currentWeeks(r *models.Resident) map[string]float64 {
	out := map[string]float64{}
	for _, code := range r.Schedule {
		if code != "" && !models.IsNightFloat(code) {
			out[code]++
		}
	}
	return out
}

func findRequirement(s models.Section, r *models.Resident) *models.GraduationRequirement {
	for _, req := range models.StandardRequirements() {
		if req.Section == s && req.AppliesToResident(r) {
			req := req
			return &req
		}
	}
	return nil
}
