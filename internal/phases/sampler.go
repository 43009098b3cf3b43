package phases

import (
	"sort"

	"go.uber.org/zap"

	"github.com/mfromano/schedule-creator/internal/models"
)

// resolveSamplers rewrites every R1 sampler placeholder after NF is placed.
// Each 4-week sampler block becomes Pcbi (1 week), Mucic or Mir per
// preference (1 week), and Mnuc (2 weeks), ordered so the sampler is
// on-service in the weeks an upper-level from the same rotation is away on
// NF.
func (b *Builder) resolveSamplers() error {
	r1s := models.ByYear(b.in.Residents, 1)
	rewrites := make(map[string]map[int]string)

	for _, res := range r1s {
		weeks := samplerWeeks(res)
		if len(weeks) == 0 {
			continue
		}
		rewrites[res.Name] = make(map[int]string)
		for _, run := range contiguousRuns(weeks) {
			seq := b.orderSamplerRun(res, run)
			for i, w := range run {
				code := "Mnuc"
				if i < len(seq) {
					code = seq[i]
				}
				if err := b.assign(models.PhaseSampler, res, w, code); err != nil {
					return err
				}
				rewrites[res.Name][w] = code
			}
		}
	}

	b.result.SamplerRewrites = rewrites
	total := 0
	for _, m := range rewrites {
		total += len(m)
	}
	b.log.Info("samplers resolved", zap.Int("weeks", total), zap.Int("residents", len(rewrites)))
	return nil
}

func samplerWeeks(r *models.Resident) []int {
	var weeks []int
	for w, code := range r.Schedule {
		if models.IsSampler(code) {
			weeks = append(weeks, w)
		}
	}
	sort.Ints(weeks)
	return weeks
}

func contiguousRuns(weeks []int) [][]int {
	var runs [][]int
	var cur []int
	for _, w := range weeks {
		if len(cur) > 0 && w != cur[len(cur)-1]+1 {
			runs = append(runs, cur)
			cur = nil
		}
		cur = append(cur, w)
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}

// orderSamplerRun decides the week order of the replacement bundle within
// one sampler run so that the sampler covers NF gaps: the two Mnuc weeks
// anchor on weeks where an Mnuc upper-level is pulled to NF, and the Pcbi
// week likewise prefers a Pcbi gap.
func (b *Builder) orderSamplerRun(r *models.Resident, run []int) []string {
	gapped := b.nfGapWeeks()
	mucicOrMir := "Mucic"
	if r.SamplerPrefs != nil {
		mirRank, mirOK := r.SamplerPrefs.Rankings["Mir"]
		mucicRank, mucicOK := r.SamplerPrefs.Rankings["Mucic"]
		if mirOK && (!mucicOK || mirRank < mucicRank) {
			mucicOrMir = "Mir"
		}
	}

	seq := make([]string, len(run))

	// Choose the 2-week Mnuc window: most Mnuc gaps covered; among ties,
	// prefer a window that begins on a gap week, then the earliest.
	bestStart, bestScore := 0, -1
	for i := 0; i+1 < len(run); i++ {
		score := 0
		if gapped[run[i]]["Mnuc"] {
			score += 2
		}
		if gapped[run[i+1]]["Mnuc"] {
			score++
		}
		if score > bestScore {
			bestStart, bestScore = i, score
		}
	}
	if len(run) >= 2 {
		seq[bestStart] = "Mnuc"
		seq[bestStart+1] = "Mnuc"
	}

	// Pcbi takes the remaining week with a Pcbi gap if there is one,
	// otherwise the earliest open week; the elective fills what is left.
	pcbiAt := -1
	for i := range run {
		if seq[i] == "" && gapped[run[i]]["Pcbi"] {
			pcbiAt = i
			break
		}
	}
	if pcbiAt == -1 {
		for i := range run {
			if seq[i] == "" {
				pcbiAt = i
				break
			}
		}
	}
	if pcbiAt >= 0 {
		seq[pcbiAt] = "Pcbi"
	}
	elective := true
	for i := range run {
		if seq[i] != "" {
			continue
		}
		if elective {
			seq[i] = mucicOrMir
			elective = false
			continue
		}
		// Runs longer than four weeks pad with Mnuc.
		seq[i] = "Mnuc"
	}
	return seq
}

// nfGapWeeks maps week → set of base rotations left short-handed by an NF
// pull that week.
func (b *Builder) nfGapWeeks() map[int]map[string]bool {
	out := make(map[int]map[string]bool)
	for name, picks := range b.grid.NFAssignments() {
		for w := range picks {
			base := b.grid.Base(name, w)
			if base == "" {
				continue
			}
			if out[w] == nil {
				out[w] = make(map[string]bool)
			}
			out[w][base] = true
		}
	}
	return out
}
